package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	KindDS18B20 = "ds18b20"
	KindIIO     = "iio"
)

// SensorsConfig lists the sensor groups of one installation. Each group is
// sampled by its own schedule entry.
type SensorsConfig struct {
	Site   string        `yaml:"site"`
	Groups []GroupConfig `yaml:"groups"`
}

type GroupConfig struct {
	Name       string          `yaml:"name"`
	Kind       string          `yaml:"kind"`
	Interval   time.Duration   `yaml:"interval"`
	I2CBus     string          `yaml:"i2c_bus"`
	I2CAddress uint16          `yaml:"i2c_address"`
	Resolution int             `yaml:"resolution"`
	DevicePath string          `yaml:"device_path"`
	Channels   []ChannelConfig `yaml:"channels"`
}

type ChannelConfig struct {
	Name     string `yaml:"name"`
	Address  string `yaml:"address"`
	Quantity string `yaml:"quantity"`
	Topic    string `yaml:"topic"`
}

func MustLoadSensors(configPath string) *SensorsConfig {
	cfg, err := LoadSensors(configPath)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

func LoadSensors(configPath string) (*SensorsConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("sensors config file not found: %s", configPath)
	}

	var cfg SensorsConfig
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read sensors config: %w", err)
	}

	for i := range cfg.Groups {
		applyGroupDefaults(&cfg.Groups[i])
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// cleanenv does not descend into slice elements, so defaults for groups and
// channels are filled in here.
func applyGroupDefaults(g *GroupConfig) {
	if g.Kind == "" {
		g.Kind = KindDS18B20
	}
	if g.Interval == 0 {
		g.Interval = 10 * time.Second
	}
	if g.Kind == KindDS18B20 {
		if g.Resolution == 0 {
			g.Resolution = 12
		}
		if g.I2CAddress == 0 {
			g.I2CAddress = 0x18
		}
	}
	for i := range g.Channels {
		ch := &g.Channels[i]
		if ch.Quantity == "" {
			ch.Quantity = "temperature"
		}
		if ch.Name == "" {
			ch.Name = fmt.Sprintf("%s-%d", g.Name, i+1)
		}
	}
}

func (c *SensorsConfig) validate() error {
	if len(c.Groups) == 0 {
		return fmt.Errorf("sensors config has no groups")
	}

	groups := make(map[string]struct{}, len(c.Groups))
	topics := make(map[string]string)

	for _, g := range c.Groups {
		if g.Name == "" {
			return fmt.Errorf("sensor group without name")
		}
		if _, dup := groups[g.Name]; dup {
			return fmt.Errorf("duplicate sensor group %q", g.Name)
		}
		groups[g.Name] = struct{}{}

		if g.Interval <= 0 {
			return fmt.Errorf("group %q: interval must be positive", g.Name)
		}
		if len(g.Channels) == 0 {
			return fmt.Errorf("group %q: no channels", g.Name)
		}

		switch g.Kind {
		case KindDS18B20:
			if g.Resolution < 9 || g.Resolution > 12 {
				return fmt.Errorf("group %q: resolution must be 9..12 bits, got %d", g.Name, g.Resolution)
			}
		case KindIIO:
			if g.DevicePath == "" {
				return fmt.Errorf("group %q: device_path is required for iio", g.Name)
			}
		default:
			return fmt.Errorf("group %q: unknown kind %q", g.Name, g.Kind)
		}

		for _, ch := range g.Channels {
			if ch.Topic == "" {
				return fmt.Errorf("group %q channel %q: topic is required", g.Name, ch.Name)
			}
			if owner, dup := topics[ch.Topic]; dup {
				return fmt.Errorf("topic %q used by %q and %q", ch.Topic, owner, ch.Name)
			}
			topics[ch.Topic] = ch.Name

			if g.Kind == KindDS18B20 && ch.Address == "" {
				return fmt.Errorf("group %q channel %q: address is required", g.Name, ch.Name)
			}
			if ch.Quantity != "temperature" && ch.Quantity != "humidity" {
				return fmt.Errorf("group %q channel %q: unknown quantity %q", g.Name, ch.Name, ch.Quantity)
			}
		}
	}

	return nil
}
