// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/aldestat/internal/config"
	"github.com/Thermoquad/aldestat/internal/logging"
	"github.com/Thermoquad/aldestat/internal/transport"
	"github.com/Thermoquad/aldestat/pkg/aldes"
)

var (
	configPath string

	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Decoding flags
	fieldMapName string
	fieldMapFile string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "aldestat",
	Short: "Aldes ventilation UART decoder and MQTT bridge",
	Long: `Aldestat - decode the status frames of an Aldes T.One / InspirAIR controller,
publish them to MQTT and forward commands back to the unit.

Connection modes:
  Serial:    --port /dev/ttyAMA0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

Settings are read from --config, ALDES_CONFIG or ./aldestat.yaml, and can be
overridden with ALDES_* environment variables (ALDES_MQTT_BROKER). Flags win
over both.

For WebSocket authentication, the password is read from the ALDES_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:      "1.0.0",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (YAML)")

	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&fieldMapName, "field-map", "", "Built-in field map (v1, v2)")
	rootCmd.PersistentFlags().StringVar(&fieldMapFile, "field-map-file", "", "Field map YAML file, overrides --field-map")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads the configuration and applies the flags the user set.
// Commands that open a connection pass validate so an endpoint is required.
func loadConfig(cmd *cobra.Command, validate bool) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Serial.Port = portName
	}
	if flags.Changed("baud") {
		cfg.Serial.Baud = baudRate
	}
	if flags.Changed("url") {
		cfg.WebSocket.URL = wsURL
	}
	if flags.Changed("username") {
		cfg.WebSocket.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		cfg.WebSocket.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("field-map") {
		cfg.Bridge.FieldMap = fieldMapName
	}
	if flags.Changed("field-map-file") {
		cfg.Bridge.FieldMapFile = fieldMapFile
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}

	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newLogger builds the zap logger for long-running commands
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, nil
}

// loadFieldMap resolves the configured field map, a YAML file taking
// precedence over the built-in version name
func loadFieldMap(cfg config.BridgeConfig) (*aldes.FieldMap, error) {
	if cfg.FieldMapFile != "" {
		return aldes.LoadFieldMapFile(cfg.FieldMapFile)
	}
	return aldes.BuiltinFieldMap(cfg.FieldMap)
}

// OpenConnection opens the configured serial port or WebSocket once,
// asking for the WebSocket password if needed
func OpenConnection(ctx context.Context, cfg *config.Config) (transport.Connection, string, error) {
	password, err := transport.ResolvePassword(cfg)
	if err != nil {
		return nil, "", err
	}
	return transport.Open(ctx, cfg, password)
}
