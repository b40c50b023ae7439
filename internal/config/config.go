// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads aldestat settings from a YAML file, ALDES_*
// environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/Thermoquad/aldestat/pkg/aldes"
)

// EnvPrefix is prepended to environment overrides (ALDES_MQTT_BROKER)
const EnvPrefix = "ALDES"

// Framing modes
const (
	// FramingSync finds frame boundaries with a sliding checksum window
	FramingSync = "sync"
	// FramingBurst treats every burst of bytes ended by an idle gap as
	// one frame
	FramingBurst = "burst"
)

// Payload formats for decoded frames
const (
	PayloadText = "text"
	PayloadJSON = "json"
	PayloadCBOR = "cbor"
)

// SerialConfig selects the UART
type SerialConfig struct {
	Port string `mapstructure:"port"`
	Baud int    `mapstructure:"baud"`
}

// WebSocketConfig selects a serial-over-WebSocket bridge
type WebSocketConfig struct {
	URL         string `mapstructure:"url"`
	Username    string `mapstructure:"username"`
	NoSSLVerify bool   `mapstructure:"no_ssl_verify"`
}

// MQTTConfig holds broker and topic settings
type MQTTConfig struct {
	Broker        string        `mapstructure:"broker"`
	ClientID      string        `mapstructure:"client_id"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	KeepAlive     time.Duration `mapstructure:"keepalive"`
	QoS           byte          `mapstructure:"qos"`
	Retain        bool          `mapstructure:"retain"`
	TopicMain     string        `mapstructure:"topic_main"`
	TopicCommand  string        `mapstructure:"topic_command"`
	PayloadFormat string        `mapstructure:"payload_format"`
}

// BridgeConfig controls frame handling between the UART and MQTT
type BridgeConfig struct {
	RefreshInterval   time.Duration `mapstructure:"refresh_interval"`
	FrameLength       int           `mapstructure:"frame_length"`
	FieldMap          string        `mapstructure:"field_map"`
	FieldMapFile      string        `mapstructure:"field_map_file"`
	PublishRaw        bool          `mapstructure:"publish_raw"`
	CommandGap        time.Duration `mapstructure:"command_gap"`
	ChecksumFallback  bool          `mapstructure:"checksum_fallback"`
	ReconnectAttempts int           `mapstructure:"reconnect_attempts"`
	Framing           string        `mapstructure:"framing"`
	FrameGap          time.Duration `mapstructure:"frame_gap"`
}

// LumberjackConfig configures rolling log files
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig sets level, encoder and optional file output
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// HTTPConfig enables the status and command API
type HTTPConfig struct {
	Enable       bool          `mapstructure:"enable"`
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MetricsPath  string        `mapstructure:"metrics_path"`
}

// Config is the top-level configuration
type Config struct {
	Serial    SerialConfig    `mapstructure:"serial"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Bridge    BridgeConfig    `mapstructure:"bridge"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	HTTP      HTTPConfig      `mapstructure:"http"`
}

// Load reads configuration from path, falling back to ALDES_CONFIG and
// then aldestat.yaml in the working directory or ./configs. A missing
// default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("config")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("aldestat")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return decode(v)
}

// Default returns the configuration used when no file or environment
// override is present
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		panic(fmt.Sprintf("config: defaults do not decode: %v", err))
	}
	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "aldes-" + uuid.NewString()
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baud", 115200)

	v.SetDefault("websocket.url", "")
	v.SetDefault("websocket.username", "")
	v.SetDefault("websocket.no_ssl_verify", false)

	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "aldes")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.keepalive", "60s")
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("mqtt.retain", false)
	v.SetDefault("mqtt.topic_main", "aldes/")
	v.SetDefault("mqtt.topic_command", "aldes/commands")
	v.SetDefault("mqtt.payload_format", PayloadText)

	v.SetDefault("bridge.refresh_interval", "60s")
	v.SetDefault("bridge.frame_length", aldes.DefaultFrameLength)
	v.SetDefault("bridge.field_map", "v1")
	v.SetDefault("bridge.field_map_file", "")
	v.SetDefault("bridge.publish_raw", true)
	v.SetDefault("bridge.command_gap", "500ms")
	v.SetDefault("bridge.checksum_fallback", false)
	v.SetDefault("bridge.reconnect_attempts", 5)
	v.SetDefault("bridge.framing", FramingSync)
	v.SetDefault("bridge.frame_gap", "50ms")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.max_size", 10)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age", 28)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("http.enable", false)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", "5s")
	v.SetDefault("http.write_timeout", "10s")
	v.SetDefault("http.metrics_path", "/metrics")
}

// Validate rejects settings the bridge cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Bridge.FrameLength < aldes.MinFrameLength {
		errs = append(errs, fmt.Errorf("bridge.frame_length must be at least %d, got %d", aldes.MinFrameLength, c.Bridge.FrameLength))
	}
	if c.Bridge.FieldMapFile == "" {
		if _, err := aldes.BuiltinFieldMap(c.Bridge.FieldMap); err != nil {
			errs = append(errs, fmt.Errorf("bridge.field_map: %w", err))
		}
	}
	if c.Bridge.RefreshInterval < 0 {
		errs = append(errs, fmt.Errorf("bridge.refresh_interval must not be negative"))
	}
	if c.Bridge.CommandGap < 0 {
		errs = append(errs, fmt.Errorf("bridge.command_gap must not be negative"))
	}
	switch c.Bridge.Framing {
	case FramingSync, FramingBurst:
	default:
		errs = append(errs, fmt.Errorf("bridge.framing must be sync or burst, got %q", c.Bridge.Framing))
	}
	if c.Bridge.FrameGap <= 0 {
		errs = append(errs, fmt.Errorf("bridge.frame_gap must be positive"))
	}

	switch c.MQTT.PayloadFormat {
	case PayloadText, PayloadJSON, PayloadCBOR:
	default:
		errs = append(errs, fmt.Errorf("mqtt.payload_format must be text, json or cbor, got %q", c.MQTT.PayloadFormat))
	}
	if c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS))
	}
	if c.MQTT.TopicCommand == "" {
		errs = append(errs, fmt.Errorf("mqtt.topic_command must not be empty"))
	}

	if c.Serial.Port == "" && c.WebSocket.URL == "" {
		errs = append(errs, fmt.Errorf("either serial.port or websocket.url must be set"))
	}

	return errors.Join(errs...)
}

// Topic joins the main topic prefix and a field name, as the firmware
// publishes "<main><field>"
func (c MQTTConfig) Topic(name string) string {
	return c.TopicMain + name
}

// RawTopic is the topic receiving the frame as hex text
func (c MQTTConfig) RawTopic() string {
	return c.Topic("trame")
}
