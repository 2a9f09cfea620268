package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := GetDefaultConfig()
	cfg.TagTable.Path = "tags.csv"
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Validate(cfg))
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "VERBOSE"
	assert.Error(t, Validate(cfg))
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, Validate(cfg))
}

func TestValidate_MissingTagTablePath(t *testing.T) {
	cfg := validConfig()
	cfg.TagTable.Path = ""
	assert.Error(t, Validate(cfg))
}

func TestValidate_InvalidMetricsPort(t *testing.T) {
	cfg := validConfig()
	cfg.Metrics.Port = -1
	assert.Error(t, Validate(cfg))
}

func TestValidate_TelemetryEnabledWithoutEndpoint(t *testing.T) {
	cfg := validConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = ""
	assert.Error(t, Validate(cfg))
}

func TestValidate_TelemetrySampleRateOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Telemetry.SampleRate = 1.5
	assert.Error(t, Validate(cfg))
}

func TestValidate_AdminAPIEnabledRequiresSecret(t *testing.T) {
	cfg := validConfig()
	cfg.AdminAPI.Enabled = true
	cfg.AdminAPI.JWTSecret = ""
	assert.Error(t, Validate(cfg))
}

func TestValidate_AdminAPIEnabledWithSecret(t *testing.T) {
	cfg := validConfig()
	cfg.AdminAPI.Enabled = true
	cfg.AdminAPI.JWTSecret = "super-secret"
	assert.NoError(t, Validate(cfg))
}
