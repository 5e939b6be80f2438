package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"pillarpuller/host/serial"
	"pillarpuller/host/telemetry"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

// chdir moves into an empty directory so no stray pillarpuller.yaml is found
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdir(t)

	cfg, err := Load(newFlags(t))
	require.NoError(t, err)

	require.Equal(t, serial.DefaultDevice(), cfg.Serial.Port)
	require.Equal(t, serial.DefaultBaud, cfg.Serial.Baud)
	require.Equal(t, 100*time.Millisecond, cfg.Serial.ReadTimeout)
	require.Equal(t, telemetry.DefaultMaxPoints, cfg.Display.MaxPoints)
	require.Equal(t, 1, cfg.Display.DecimationFactor)
	require.Equal(t, ".", cfg.Export.Dir)
	require.Equal(t, DefaultExportPattern, cfg.Export.Pattern)
	require.True(t, cfg.Export.Plot)
	require.True(t, cfg.Export.Metadata)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, telemetry.DefaultStatusInterval, cfg.StatusInterval)
	require.Empty(t, cfg.File)
}

func TestLoadPrecedence(t *testing.T) {
	dir := chdir(t)

	path := filepath.Join(dir, "pillarpuller.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
serial:
  port: /dev/ttyUSB7
  baud: 57600
display:
  max_points: 40
  decimation_factor: 2
export:
  plot: false
status_interval: 2s
`), 0o644))

	// Environment overrides the file, flags override both
	t.Setenv("PILLAR_DISPLAY_MAX_POINTS", "60")
	t.Setenv("PILLAR_SERIAL_BAUD", "9600")

	cfg, err := Load(newFlags(t, "--baud", "230400", "--log-format", "json"))
	require.NoError(t, err)

	require.Equal(t, filepath.Base(path), filepath.Base(cfg.File))
	require.Equal(t, "/dev/ttyUSB7", cfg.Serial.Port)
	require.Equal(t, 230400, cfg.Serial.Baud)
	require.Equal(t, 60, cfg.Display.MaxPoints)
	require.Equal(t, 2, cfg.Display.DecimationFactor)
	require.False(t, cfg.Export.Plot)
	require.Equal(t, 2*time.Second, cfg.StatusInterval)
	require.Equal(t, "json", cfg.Log.Format)

	require.Equal(t, telemetry.Options{MaxPoints: 60, DecimationFactor: 2}, cfg.BufferOptions())
	require.Equal(t, &serial.Config{Device: "/dev/ttyUSB7", Baud: 230400, ReadTimeout: 100}, cfg.SerialPort())
}

func TestLoadExplicitConfigMissing(t *testing.T) {
	dir := chdir(t)
	_, err := Load(newFlags(t, "--config", filepath.Join(dir, "missing.yaml")))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	chdir(t)

	base, err := Load(newFlags(t))
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Serial.Port = " " }},
		{"zero baud", func(c *Config) { c.Serial.Baud = 0 }},
		{"negative timeout", func(c *Config) { c.Serial.ReadTimeout = -time.Second }},
		{"negative decimation", func(c *Config) { c.Display.DecimationFactor = -1 }},
		{"empty pattern", func(c *Config) { c.Export.Pattern = "" }},
		{"bad level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, test := range tests {
		cfg := *base
		test.mutate(&cfg)
		require.Error(t, cfg.Validate(), test.name)
	}

	_, err = Load(newFlags(t, "--decimation=-3"))
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var out bytes.Buffer

	logger, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&out)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "key", 1)
	require.NotContains(t, out.String(), "hidden")
	require.Contains(t, out.String(), `"msg":"shown"`)

	_, err = LogConfig{Level: "loud"}.NewLogger(&out)
	require.Error(t, err)
}
