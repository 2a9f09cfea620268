package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "/dev/ttyS0", cfg.Serial.Device)
}

func TestLoad_ReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
logging:
  level: debug
  format: json
  output: stdout
serial:
  device: /dev/ttyUSB0
  baud_rate: 19200
  read_timeout: 500ms
tag_table:
  path: tags.csv
notification:
  debounce_window: 2s
  drain_interval: 50ms
shutdown_timeout: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Device)
	assert.Equal(t, 19200, cfg.Serial.BaudRate)
	assert.Equal(t, "tags.csv", cfg.TagTable.Path)
}

func TestSaveConfig_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := validConfig()
	cfg.Serial.Device = "/dev/ttyACM0"

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", loaded.Serial.Device)
}

func TestMustLoad_MissingFileReturnsHelpfulError(t *testing.T) {
	_, err := MustLoad(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
