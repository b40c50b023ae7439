// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/aldestat/internal/bridge"
	"github.com/Thermoquad/aldestat/internal/config"
	"github.com/Thermoquad/aldestat/internal/httpserver"
	"github.com/Thermoquad/aldestat/internal/metrics"
	"github.com/Thermoquad/aldestat/internal/mqtt"
	"github.com/Thermoquad/aldestat/internal/transport"
	"github.com/Thermoquad/aldestat/pkg/aldes"
)

const shutdownTimeout = 5 * time.Second

var (
	bridgeBroker string
	bridgeHTTP   bool
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Publish decoded frames to MQTT and forward commands to the unit",
	Long: `Run the UART to MQTT bridge.

Every decoded frame is published as one topic per field under mqtt.topic_main
(or as a single JSON/CBOR document on <topic_main>state), at most once per
bridge.refresh_interval. The raw frame is published on <topic_main>trame.

Commands are JSON documents received on mqtt.topic_command:
  {"type": "auto"}
  {"type": "boost"}
  {"type": "confort", "params": {"duration": 3}}
  {"type": "vacances", "params": {"duration": 10}}
  {"type": "temp", "params": {"temperature": 21.5}}

The controller connection is reopened after errors, up to
bridge.reconnect_attempts times in a row (0 retries forever).`,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
	bridgeCmd.Flags().StringVar(&bridgeBroker, "broker", "", "MQTT broker URL (tcp://host:1883)")
	bridgeCmd.Flags().BoolVar(&bridgeHTTP, "http", false, "Serve health, metrics and the command API")
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("broker") {
		cfg.MQTT.Broker = bridgeBroker
	}
	if cmd.Flags().Changed("http") {
		cfg.HTTP.Enable = bridgeHTTP
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serveBridge(ctx, cfg, log)
}

func serveBridge(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	fieldMap, err := loadFieldMap(cfg.Bridge)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	m := metrics.NewBridgeMetrics(reg)

	dial, err := dialer(cfg, log)
	if err != nil {
		return err
	}

	client := mqtt.New(cfg.MQTT, log.Named("mqtt"))
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	defer client.Close()

	b, err := bridge.New(bridge.Options{
		Dial:      dial,
		Decoder:   aldes.NewDecoder(fieldMap),
		Publisher: client,
		Bridge:    cfg.Bridge,
		MQTT:      cfg.MQTT,
		Metrics:   m,
		Log:       log.Named("bridge"),
	})
	if err != nil {
		return err
	}

	// Paho's router must not block on the command gap
	err = client.SubscribeCommands(func(payload []byte) {
		if err := b.QueueCommand(payload); err != nil {
			log.Warn("command dropped", zap.ByteString("payload", payload), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	go b.RunCommands(ctx)

	if cfg.HTTP.Enable {
		srv := httpserver.New(cfg.HTTP, b, metrics.Handler(reg), log.Named("http"))
		go func() {
			if err := srv.Start(); err != nil {
				log.Error("http server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn("http shutdown", zap.Error(err))
			}
		}()
	}

	log.Info("bridge started",
		zap.String("field_map", fieldMap.Version()),
		zap.String("broker", cfg.MQTT.Broker),
		zap.String("topic_main", cfg.MQTT.TopicMain),
		zap.String("topic_command", cfg.MQTT.TopicCommand),
		zap.String("framing", cfg.Bridge.Framing),
	)

	err = b.Run(ctx)
	log.Info("bridge stopped", zap.Stringer("stats", statsLine(b.Stats())))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// dialer opens the configured endpoint and logs which one was reached.
// The password is asked for here, once, not on every reconnect.
func dialer(cfg *config.Config, log *zap.Logger) (transport.Dialer, error) {
	password, err := transport.ResolvePassword(cfg)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (transport.Connection, error) {
		conn, info, err := transport.Open(ctx, cfg, password)
		if err != nil {
			return nil, err
		}
		log.Info("connected", zap.String("endpoint", info))
		return conn, nil
	}, nil
}

type statsLine aldes.StatsSnapshot

func (s statsLine) String() string {
	return fmt.Sprintf("frames=%d valid=%d checksum_errors=%d commands=%d",
		s.TotalFrames, s.ValidFrames, s.ChecksumErrors, s.CommandsSent)
}
