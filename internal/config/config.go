package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/oc05/oc05"
)

// Command kinds.
const (
	Angle = "angle"
	Speed = "speed"
	Pulse = "pulse"
)

// Command is one channel setting applied after Init.
type Command struct {
	Kind    string `yaml:"kind"` // "angle" | "speed" | "pulse"
	Channel int    `yaml:"channel"`
	Degrees int    `yaml:"degrees,omitempty"`
	Speed   int    `yaml:"speed,omitempty"`
	On      int    `yaml:"on,omitempty"`
	Off     int    `yaml:"off,omitempty"`
}

// Sweep bounces an angle servo between Min and Max degrees.
type Sweep struct {
	Channel  int `yaml:"channel"`
	Min      int `yaml:"min"`
	Max      int `yaml:"max"`
	Step     int `yaml:"step"`
	PeriodMs int `yaml:"period_ms"`
}

// Config is the oc05ctl config file. Zero fields are unset and leave the
// matching flag in effect.
type Config struct {
	Driver      string `yaml:"driver"` // "i2c" | "sim"
	Bus         string `yaml:"bus"`    // i2creg name, e.g. "I2C1" or "" for the first bus
	Addr        string `yaml:"addr"`   // e.g. "0x78"
	ClockHz     int64  `yaml:"clock_hz"`
	FrequencyHz int    `yaml:"frequency_hz"`

	Commands []Command `yaml:"commands,omitempty"`
	Sweep    *Sweep    `yaml:"sweep,omitempty"`
}

// Default returns the settings used when neither a flag nor the config file
// names a value.
func Default() *Config {
	return &Config{
		Driver:      "i2c",
		Addr:        fmt.Sprintf("0x%02X", oc05.I2CAddr),
		ClockHz:     int64(oc05.DefaultClock / physic.Hertz),
		FrequencyHz: oc05.DefaultFrequency,
	}
}

// Load reads a YAML config from path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &c, nil
}

// Save writes c to path as YAML.
func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
