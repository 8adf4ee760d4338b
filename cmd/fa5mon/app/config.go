package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration
type Config struct {
	Settings Settings     `yaml:"settings"`
	Serial   SerialConfig `yaml:"serial"`
	Export   ExportConfig `yaml:"export"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`

	// GateTimes are the gate-time presets, in seconds, cycled by the
	// gate-time key.
	GateTimes []float64 `yaml:"gateTimes"`
}

// SerialConfig represents the serial link settings
type SerialConfig struct {
	Port          string `yaml:"port"`
	BaudRate      int    `yaml:"baudRate"`
	ReadTimeoutMs int    `yaml:"readTimeoutMs"`
	SettleDelayMs int    `yaml:"settleDelayMs"`
}

// ExportConfig represents the CSV export targets
type ExportConfig struct {
	StatsFile string `yaml:"statsFile"`
	RawFile   string `yaml:"rawFile"`
}

func NewConfig() *Config {
	return &Config{
		Settings: Settings{
			LogLevel:  "info",
			GateTimes: []float64{0.1, 1, 2, 10, 20},
		},
		Serial: SerialConfig{
			Port:          "/dev/ttyUSB0",
			BaudRate:      115200,
			ReadTimeoutMs: 100,
			SettleDelayMs: 200,
		},
		Export: ExportConfig{
			StatsFile: "fa5-stats.csv",
			RawFile:   "fa5-raw.csv",
		},
	}
}

// LoadConfig reads the YAML configuration at path over the defaults. An
// empty path yields the default configuration.
func LoadConfig(path string) (*Config, error) {
	c := NewConfig()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if err = c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.Serial.Port == "" {
		return errors.New("serial port is required")
	}
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("invalid baud rate: %d", c.Serial.BaudRate)
	}
	if len(c.Settings.GateTimes) == 0 {
		return errors.New("at least one gate time preset is required")
	}
	for _, gt := range c.Settings.GateTimes {
		if gt <= 0 {
			return fmt.Errorf("invalid gate time preset: %v", gt)
		}
	}
	return nil
}

// SlogLevel parses the configured log level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Settings.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.Settings.LogLevel, err)
	}
	return level, nil
}

func (sc SerialConfig) ReadTimeout() time.Duration {
	return time.Duration(sc.ReadTimeoutMs) * time.Millisecond
}

func (sc SerialConfig) SettleDelay() time.Duration {
	return time.Duration(sc.SettleDelayMs) * time.Millisecond
}
