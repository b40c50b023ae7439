// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Thermoquad/aldestat/pkg/aldes"
)

// commandQueueSize bounds commands waiting for the command gap
const commandQueueSize = 16

// ErrCommandQueueFull is returned by QueueCommand when RunCommands has
// fallen behind
var ErrCommandQueueFull = errors.New("command queue full")

// QueueCommand hands payload to RunCommands without blocking. Payloads
// are written in the order they were queued.
func (b *Bridge) QueueCommand(payload []byte) error {
	select {
	case b.commands <- append([]byte(nil), payload...):
		return nil
	default:
		b.commandDone(aldes.Command{Kind: "dropped"}, nil, ErrCommandQueueFull)
		return ErrCommandQueueFull
	}
}

// RunCommands handles queued payloads one at a time until ctx is done
func (b *Bridge) RunCommands(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-b.commands:
			if err := b.HandleCommand(ctx, payload); err != nil {
				b.log.Debug("command payload", zap.ByteString("payload", payload), zap.Error(err))
			}
		}
	}
}

// HandleCommand parses a JSON command received from MQTT and writes it
// to the controller. Every outcome is logged and counted.
func (b *Bridge) HandleCommand(ctx context.Context, payload []byte) error {
	cmd, err := aldes.ParseCommand(payload)
	if err != nil {
		b.commandDone(aldes.Command{Kind: "invalid"}, nil, err)
		return err
	}
	_, err = b.SendCommand(ctx, cmd)
	return err
}

// SendCommand encodes cmd and writes it, waiting for the command gap
// since the previous write. Returns the frame written.
func (b *Bridge) SendCommand(ctx context.Context, cmd aldes.Command) ([]byte, error) {
	frame, err := aldes.Encode(cmd)
	if err != nil {
		b.commandDone(cmd, nil, err)
		return nil, err
	}

	if err := b.commandLimiter.Wait(ctx); err != nil {
		err = fmt.Errorf("waiting for command gap: %w", err)
		b.commandDone(cmd, frame, err)
		return nil, err
	}

	if err := b.write(frame); err != nil {
		b.commandDone(cmd, frame, err)
		return nil, err
	}

	b.commandDone(cmd, frame, nil)
	return frame, nil
}

func (b *Bridge) write(frame []byte) error {
	b.connMu.Lock()
	defer b.connMu.Unlock()

	if b.conn == nil {
		return ErrNotConnected
	}
	if _, err := b.conn.Write(frame); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	return nil
}

func (b *Bridge) commandDone(cmd aldes.Command, frame []byte, err error) {
	b.stats.RecordCommand(err)
	b.opts.Metrics.ObserveCommand(string(cmd.Kind), err)

	if err != nil {
		b.log.Warn("command rejected", zap.String("kind", string(cmd.Kind)), zap.Error(err))
	} else {
		b.log.Info("command sent", zap.String("kind", string(cmd.Kind)), zap.String("frame", aldes.FormatHex(frame)))
	}

	if b.opts.Observer != nil {
		b.opts.Observer.CommandHandled(cmd, frame, err)
	}
}
