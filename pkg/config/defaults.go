package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. It is called after loading configuration from file and
// environment variables, before validation.
//
// Default Strategy:
//   - Zero values (0, "", false) are replaced with defaults.
//   - Explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applySerialDefaults(&cfg.Serial)
	applyNotificationDefaults(&cfg.Notification)
	applyMetricsDefaults(&cfg.Metrics)
	applyAdminAPIDefaults(&cfg.AdminAPI)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	// Note: no default for TagTable.Path — an empty tag table is a
	// configuration error the user must fix, not silently paper over.
}

// applyLoggingDefaults sets logging defaults and normalizes the level.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

// applySerialDefaults sets the AFSEC+ serial link defaults.
func applySerialDefaults(cfg *SerialConfig) {
	if cfg.Device == "" {
		cfg.Device = "/dev/ttyS0"
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 9600
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 200 * time.Millisecond
	}
}

// applyNotificationDefaults sets the change-notification ledger defaults.
func applyNotificationDefaults(cfg *NotificationConfig) {
	if cfg.DebounceWindow == 0 {
		cfg.DebounceWindow = time.Second
	}
	if cfg.DrainInterval == 0 {
		cfg.DrainInterval = 100 * time.Millisecond
	}
}

// applyMetricsDefaults sets Prometheus metrics server defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyAdminAPIDefaults sets diagnostic HTTP API defaults.
func applyAdminAPIDefaults(cfg *AdminAPIConfig) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8081"
	}
}

// GetDefaultConfig returns a fully-defaulted Config, as used when no config
// file is present at startup.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
