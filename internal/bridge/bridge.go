// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package bridge connects the controller UART to MQTT: frames read from
// the connection are decoded and published, commands received from MQTT
// are encoded and written back.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Thermoquad/aldestat/internal/config"
	"github.com/Thermoquad/aldestat/internal/metrics"
	"github.com/Thermoquad/aldestat/internal/mqtt"
	"github.com/Thermoquad/aldestat/internal/transport"
	"github.com/Thermoquad/aldestat/pkg/aldes"
)

// ErrNotConnected is returned for commands sent while no controller
// connection is open
var ErrNotConnected = errors.New("controller not connected")

// maxBurstFrames bounds a burst before it is dropped as noise
const maxBurstFrames = 8

// Observer receives bridge events. Frame events come from the Run
// goroutine, command events from the caller of SendCommand. Calls must
// not block.
type Observer interface {
	FrameDecoded(frame *aldes.DecodedFrame)
	FrameRejected(raw []byte, err error)
	CommandHandled(cmd aldes.Command, frame []byte, err error)
}

// Options configures a Bridge
type Options struct {
	// Dial opens the controller connection; required
	Dial transport.Dialer
	// Decoder turns frames into fields; required
	Decoder *aldes.Decoder
	// Publisher receives decoded frames; nil disables publishing
	Publisher mqtt.Publisher

	Bridge  config.BridgeConfig
	MQTT    config.MQTTConfig
	Metrics *metrics.BridgeMetrics
	Log     *zap.Logger
	// Observer is optional
	Observer Observer
}

// Bridge moves frames and commands between the controller and MQTT
type Bridge struct {
	opts    Options
	log     *zap.Logger
	decoder *aldes.Decoder
	stats   *aldes.Statistics

	publishLimiter *rate.Limiter
	commandLimiter *rate.Limiter
	commands       chan []byte

	connMu sync.Mutex
	conn   transport.Connection

	last atomic.Pointer[aldes.DecodedFrame]
}

// New validates opts and creates a bridge
func New(opts Options) (*Bridge, error) {
	if opts.Dial == nil {
		return nil, fmt.Errorf("bridge: Dial is required")
	}
	if opts.Decoder == nil {
		return nil, fmt.Errorf("bridge: Decoder is required")
	}
	if opts.Bridge.FrameLength < aldes.MinFrameLength {
		return nil, fmt.Errorf("bridge: %w: frame length %d", aldes.ErrInvalidFrameLength, opts.Bridge.FrameLength)
	}
	switch opts.Bridge.Framing {
	case config.FramingSync, config.FramingBurst:
	case "":
		opts.Bridge.Framing = config.FramingSync
	default:
		return nil, fmt.Errorf("bridge: unknown framing %q", opts.Bridge.Framing)
	}
	if opts.Bridge.FrameGap <= 0 {
		opts.Bridge.FrameGap = 50 * time.Millisecond
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	return &Bridge{
		opts:           opts,
		log:            opts.Log,
		decoder:        opts.Decoder,
		stats:          aldes.NewStatistics(),
		publishLimiter: newLimiter(opts.Bridge.RefreshInterval),
		commandLimiter: newLimiter(opts.Bridge.CommandGap),
		commands:       make(chan []byte, commandQueueSize),
	}, nil
}

// newLimiter allows one event per interval, the first immediately.
// A zero interval disables limiting.
func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Decoder returns the decoder, for swapping field maps at runtime
func (b *Bridge) Decoder() *aldes.Decoder {
	return b.decoder
}

// LastFrame returns the most recent valid frame, or nil
func (b *Bridge) LastFrame() *aldes.DecodedFrame {
	return b.last.Load()
}

// Stats returns a snapshot of frame and command counters
func (b *Bridge) Stats() aldes.StatsSnapshot {
	return b.stats.Snapshot()
}

// Connected reports whether a controller connection is open
func (b *Bridge) Connected() bool {
	b.connMu.Lock()
	defer b.connMu.Unlock()
	return b.conn != nil
}

// Run reads frames until ctx is done. A failed connection is reopened
// with transport.Reconnect; Run returns an error only when reconnecting
// gives up.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		conn, err := transport.Reconnect(ctx, b.opts.Dial, b.opts.Bridge.ReconnectAttempts, b.log)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("bridge: %w", err)
		}

		b.setConn(conn)
		err = b.serve(ctx, conn)
		b.setConn(nil)
		conn.Close()

		if ctx.Err() != nil {
			return nil
		}
		b.log.Warn("controller connection lost", zap.Error(err))
	}
}

func (b *Bridge) setConn(conn transport.Connection) {
	b.connMu.Lock()
	b.conn = conn
	b.connMu.Unlock()
}

func (b *Bridge) newFramer() framer {
	if b.opts.Bridge.Framing == config.FramingBurst {
		return &burstFramer{max: maxBurstFrames * b.opts.Bridge.FrameLength}
	}
	// FrameLength was checked in New
	s, _ := aldes.NewFrameSync(b.opts.Bridge.FrameLength)
	return &syncFramer{s: s}
}

// serve reads conn until it fails or ctx is done
func (b *Bridge) serve(ctx context.Context, conn transport.Connection) error {
	chunks := make(chan []byte, 16)
	readErr := make(chan error, 1)

	go func() {
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case chunks <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	f := b.newFramer()
	idle := time.NewTimer(b.opts.Bridge.FrameGap)
	defer idle.Stop()

	consume := func(chunk []byte) {
		b.opts.Metrics.AddBytes(len(chunk))
		b.handleFrames(f.push(chunk), f)
		idle.Reset(b.opts.Bridge.FrameGap)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case chunk := <-chunks:
			consume(chunk)

		case <-idle.C:
			b.handleFrames(f.gap(), f)

		case err := <-readErr:
			// Chunks read before the error are already queued
		drain:
			for {
				select {
				case chunk := <-chunks:
					consume(chunk)
				default:
					break drain
				}
			}
			b.handleFrames(f.gap(), f)
			return fmt.Errorf("read: %w", err)
		}
	}
}

func (b *Bridge) handleFrames(frames [][]byte, f framer) {
	if n := f.discarded(); n > 0 {
		b.stats.RecordDiscarded(n)
		b.log.Debug("discarded bytes while synchronizing", zap.Uint64("bytes", n))
	}
	for _, raw := range frames {
		b.HandleFrame(raw)
	}
}

// HandleFrame decodes one frame, records it and publishes it when the
// refresh interval allows
func (b *Bridge) HandleFrame(raw []byte) {
	var (
		frame *aldes.DecodedFrame
		err   error
	)
	if b.opts.Bridge.ChecksumFallback {
		frame, err = b.decoder.DecodeWithFallback(raw)
	} else {
		frame, err = b.decoder.Decode(raw)
	}

	now := time.Now()
	b.stats.RecordFrame(frame, err)
	b.opts.Metrics.ObserveFrame(frameResult(err), now)

	if err != nil {
		b.log.Warn("frame rejected", zap.Int("len", len(raw)), zap.Error(err))
		if b.opts.Observer != nil {
			b.opts.Observer.FrameRejected(raw, err)
		}
	} else {
		for _, fe := range frame.Errors() {
			b.log.Debug("field unavailable", zap.String("field", fe.Field), zap.Error(fe))
		}
		b.last.Store(frame)
		if b.opts.Observer != nil {
			b.opts.Observer.FrameDecoded(frame)
		}
	}

	if b.opts.Publisher == nil || !b.publishLimiter.AllowN(now, 1) {
		return
	}
	b.publish(raw, frame)
}

func frameResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, aldes.ErrChecksumMismatch):
		return metrics.ResultChecksum
	default:
		return metrics.ResultLength
	}
}
