// Package config loads the icomsim simulator's configuration from
// environment variables, a YAML file, and defaults, in that precedence order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the icomsim simulator's static configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (ICOMSIM_*, highest priority)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// The CLI's --config flag only selects which file is read.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Serial configures the AFSEC+ serial link the dispatcher reads frames
	// from and writes replies to.
	Serial SerialConfig `mapstructure:"serial" yaml:"serial"`

	// TagTable configures the CSV tag table loaded into the database at
	// startup.
	TagTable TagTableConfig `mapstructure:"tag_table" yaml:"tag_table"`

	// Notification sets the drain loop's polling interval (and carries a
	// debounce window value that the ledger does not read).
	Notification NotificationConfig `mapstructure:"notification" yaml:"notification"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// AdminAPI contains the diagnostic HTTP API server configuration.
	AdminAPI AdminAPIConfig `mapstructure:"admin_api" yaml:"admin_api"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format.
	// Valid values: text, json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use an insecure (non-TLS) connection.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
}

// SerialConfig configures the AFSEC+ serial link.
type SerialConfig struct {
	// Device is the serial device path (e.g. /dev/ttyS0, COM3).
	Device string `mapstructure:"device" validate:"required" yaml:"device"`

	// BaudRate is the link's bit rate.
	BaudRate int `mapstructure:"baud_rate" validate:"required,gt=0" yaml:"baud_rate"`

	// ReadTimeout is defaulted and validated, but the serial loop does not
	// apply it: reads block until the next byte arrives, and the frame
	// builder is never reset on a timeout.
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"required,gt=0" yaml:"read_timeout"`
}

// TagTableConfig configures the CSV tag table loaded at startup.
type TagTableConfig struct {
	// Path is the CSV file describing every tag to register in the database.
	Path string `mapstructure:"path" validate:"required" yaml:"path"`
}

// NotificationConfig controls the change-notification ledger.
type NotificationConfig struct {
	// DebounceWindow is defaulted and validated, but the notification ledger
	// does not read it: pkg/tagdb suppresses a repeated change for the same
	// tag and user within a fixed one-second window.
	DebounceWindow time.Duration `mapstructure:"debounce_window" validate:"required,gt=0" yaml:"debounce_window"`

	// DrainInterval is how often the dispatcher polls the ledger for
	// pending changes to forward into MDataIn/MPackIn.
	DrainInterval time.Duration `mapstructure:"drain_interval" validate:"required,gt=0" yaml:"drain_interval"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// AdminAPIConfig configures the read-mostly diagnostic HTTP API.
type AdminAPIConfig struct {
	// Enabled controls whether the diagnostic HTTP API server is started.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// ListenAddr is the address the admin API listens on (e.g. ":8081").
	ListenAddr string `mapstructure:"listen_addr" validate:"required_if=Enabled true" yaml:"listen_addr"`

	// JWTSecret signs and verifies bearer tokens for the API's mutating
	// routes. Required when Enabled is true.
	JWTSecret string `mapstructure:"jwt_secret" validate:"required_if=Enabled true" yaml:"jwt_secret,omitempty"`
}

// Load loads configuration from file, environment, and defaults. When no
// config file is found it returns GetDefaultConfig() as is; environment
// variables are not applied in that case.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with a helpful error when no config file is
// found at the requested (or default) location.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please create a configuration file there first.\n\n"+
				"Or specify a custom config file:\n"+
				"  icomsim <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML
// format, respecting yaml tags.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variable and config file
// search settings.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("ICOMSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. Returns
// (fileFound, error).
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns the combined mapstructure decode hook used when
// unmarshaling viper's loose map into Config: only time.Duration needs a
// custom hook here (unlike the teacher's config, icomsim carries no
// human-readable byte-size fields).
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(durationDecodeHook())
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path: XDG_CONFIG_HOME,
// falling back to ~/.config, falling back to the current directory.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "icomsim")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "icomsim")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
