// Package config loads the rangematrix configuration with viper.
//
// Values come from defaults, then an optional TOML file, then environment
// variables prefixed with RANGEMATRIX_ (dots become underscores, so
// sensor.echo_pin is RANGEMATRIX_SENSOR_ECHO_PIN).
package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of the environment variables read by New.
const EnvPrefix = "RANGEMATRIX"

// Sensor backends.
const (
	BackendPeriph   = "periph"
	BackendGPIOCdev = "gpiocdev"
)

// Config is the complete rangematrix configuration.
type Config struct {
	Sensor  SensorConfig  `mapstructure:"sensor"`
	Display DisplayConfig `mapstructure:"display"`
}

// SensorConfig configures the HC-SR04 range sensor.
type SensorConfig struct {
	Backend string `mapstructure:"backend"` // periph or gpiocdev

	// periph backend
	TriggerPin string `mapstructure:"trigger_pin"` // e.g. GPIO23
	EchoPin    string `mapstructure:"echo_pin"`    // e.g. GPIO24

	// gpiocdev backend
	Chip          string `mapstructure:"chip"`
	TriggerOffset int    `mapstructure:"trigger_offset"`
	EchoOffset    int    `mapstructure:"echo_offset"`

	TriggerPulse       time.Duration `mapstructure:"trigger_pulse"`
	EchoTimeout        time.Duration `mapstructure:"echo_timeout"`
	SpeedOfSound       float64       `mapstructure:"speed_of_sound"`       // m/s
	CounterFrequencyHz float64       `mapstructure:"counter_frequency_hz"` // 0 = backend clock
	PollInterval       time.Duration `mapstructure:"poll_interval"`
}

// DisplayConfig configures the MAX7219 matrix.
type DisplayConfig struct {
	SPIPort      string             `mapstructure:"spi_port"` // empty = first port
	Intensity    int                `mapstructure:"intensity"`
	PollInterval time.Duration      `mapstructure:"poll_interval"`
	Frames       []FrameConfig      `mapstructure:"frames"`
	Sequences    map[string][][]int `mapstructure:"sequences"` // name = [[frame, ms], ...]
}

// FrameConfig is one frame table entry.
type FrameConfig struct {
	Slot    int   `mapstructure:"slot"`
	Columns []int `mapstructure:"columns"` // 8 column bitmaps, bit 0 = top row
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("sensor.backend", BackendPeriph)
	v.SetDefault("sensor.trigger_pin", "GPIO23")
	v.SetDefault("sensor.echo_pin", "GPIO24")
	v.SetDefault("sensor.chip", "gpiochip0")
	v.SetDefault("sensor.trigger_offset", 23)
	v.SetDefault("sensor.echo_offset", 24)
	v.SetDefault("sensor.trigger_pulse", 150*time.Microsecond)
	v.SetDefault("sensor.echo_timeout", 1000*time.Second)
	v.SetDefault("sensor.speed_of_sound", 343.0)
	v.SetDefault("sensor.counter_frequency_hz", 0.0)
	v.SetDefault("sensor.poll_interval", 10*time.Millisecond)

	v.SetDefault("display.spi_port", "")
	v.SetDefault("display.intensity", 0)
	v.SetDefault("display.poll_interval", 10*time.Millisecond)
}

// New returns a viper instance with defaults and environment binding. When
// path is not empty the TOML file at path is read as well.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if path == "" {
		return v, nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "failed to read config file %s", path),
			"check the file exists and is valid TOML",
		)
	}
	return v, nil
}

// LoadWithViper decodes and validates the configuration held by v.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads the configuration from defaults, the file at path (optional)
// and the environment.
func Load(path string) (*Config, error) {
	v, err := New(path)
	if err != nil {
		return nil, err
	}
	return LoadWithViper(v)
}
