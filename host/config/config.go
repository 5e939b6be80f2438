// Package config loads host configuration.
//
// Values are resolved by viper in this order: command-line flags,
// PILLAR_* environment variables (PILLAR_SERIAL_PORT, PILLAR_DISPLAY_MAX_POINTS,
// ...), a YAML config file, then built-in defaults. The config file is
// taken from --config when given, otherwise pillarpuller.yaml is looked
// up in the working directory and $HOME/.pillarpuller.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"pillarpuller/host/serial"
	"pillarpuller/host/telemetry"
)

// EnvPrefix prefixes every environment variable override
const EnvPrefix = "PILLAR"

// Config is the host configuration
type Config struct {
	Serial         SerialConfig  `mapstructure:"serial"`
	Display        DisplayConfig `mapstructure:"display"`
	Export         ExportConfig  `mapstructure:"export"`
	Log            LogConfig     `mapstructure:"log"`
	StatusInterval time.Duration `mapstructure:"status_interval"`

	// File is the config file that was read, empty if none
	File string `mapstructure:"-"`
}

// SerialConfig selects the device link
type SerialConfig struct {
	Port        string        `mapstructure:"port"`
	Baud        int           `mapstructure:"baud"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// DisplayConfig shapes the live display window
type DisplayConfig struct {
	MaxPoints        int `mapstructure:"max_points"`
	DecimationFactor int `mapstructure:"decimation_factor"`
}

// ExportConfig controls session exports
type ExportConfig struct {
	Dir string `mapstructure:"dir"`

	// Pattern is a time layout used to name exports when the operator
	// gives no name
	Pattern  string `mapstructure:"pattern"`
	Plot     bool   `mapstructure:"plot"`
	Metadata bool   `mapstructure:"metadata"`
}

// LogConfig configures the slog handler
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

// DefaultExportPattern names exports pillar_puller_<date>-<time>
const DefaultExportPattern = "pillar_puller_20060102-150405"

// flag name -> config key
var flagKeys = map[string]string{
	"port":            "serial.port",
	"baud":            "serial.baud",
	"read-timeout":    "serial.read_timeout",
	"max-points":      "display.max_points",
	"decimation":      "display.decimation_factor",
	"export-dir":      "export.dir",
	"export-pattern":  "export.pattern",
	"export-plot":     "export.plot",
	"export-metadata": "export.metadata",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"status-interval": "status_interval",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.port", serial.DefaultDevice())
	v.SetDefault("serial.baud", serial.DefaultBaud)
	v.SetDefault("serial.read_timeout", 100*time.Millisecond)
	v.SetDefault("display.max_points", telemetry.DefaultMaxPoints)
	v.SetDefault("display.decimation_factor", 1)
	v.SetDefault("export.dir", ".")
	v.SetDefault("export.pattern", DefaultExportPattern)
	v.SetDefault("export.plot", true)
	v.SetDefault("export.metadata", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("status_interval", telemetry.DefaultStatusInterval)
}

// RegisterFlags adds the configuration flags to fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.StringP("port", "p", serial.DefaultDevice(), "serial device path (e.g. /dev/ttyACM0, COM3)")
	fs.IntP("baud", "b", serial.DefaultBaud, "serial baud rate")
	fs.Duration("read-timeout", 100*time.Millisecond, "serial read timeout (0 blocks)")
	fs.Int("max-points", telemetry.DefaultMaxPoints, "samples kept in the live display window")
	fs.Int("decimation", 1, "keep every Nth sample in the display window")
	fs.String("export-dir", ".", "directory exports are written to")
	fs.String("export-pattern", DefaultExportPattern, "time layout for unnamed exports")
	fs.Bool("export-plot", true, "write a PNG plot next to each CSV export")
	fs.Bool("export-metadata", true, "write a YAML metadata file next to each CSV export")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("log-format", "text", "log format (text, json)")
	fs.Duration("status-interval", telemetry.DefaultStatusInterval, "how often the latest sample is logged")
}

// Load resolves the configuration from fs, the environment and the
// config file. fs must have been populated with RegisterFlags and parsed.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}

	explicit := ""
	if flag := fs.Lookup("config"); flag != nil {
		explicit = flag.Value.String()
	}
	if explicit == "" {
		explicit = os.Getenv(EnvPrefix + "_CONFIG")
	}

	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("pillarpuller")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".pillarpuller"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for values the host cannot run with
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Serial.Port) == "" {
		return errors.New("serial port must not be empty")
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("baud rate must be positive, got %d", c.Serial.Baud)
	}
	if c.Serial.ReadTimeout < 0 {
		return fmt.Errorf("read timeout must not be negative, got %v", c.Serial.ReadTimeout)
	}
	if c.Display.DecimationFactor < 0 {
		return fmt.Errorf("decimation factor must not be negative, got %d", c.Display.DecimationFactor)
	}
	if c.Export.Pattern == "" {
		return errors.New("export pattern must not be empty")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// SerialPort converts the serial settings to a port config
func (c *Config) SerialPort() *serial.Config {
	return &serial.Config{
		Device:      c.Serial.Port,
		Baud:        c.Serial.Baud,
		ReadTimeout: int(c.Serial.ReadTimeout / time.Millisecond),
	}
}

// BufferOptions converts the display settings to buffer options
func (c *Config) BufferOptions() telemetry.Options {
	return telemetry.Options{
		MaxPoints:        c.Display.MaxPoints,
		DecimationFactor: c.Display.DecimationFactor,
	}
}

// NewLogger builds the logger described by c, writing to w
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	switch c.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", c.Format)
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
