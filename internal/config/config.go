package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string         `yaml:"env" env-default:"prod"`
	Device   DeviceRef      `yaml:"device"`
	Broker   BrokerConfig   `yaml:"broker"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
	Journal  JournalConfig  `yaml:"journal"`
	Health   HealthConfig   `yaml:"health"`
	Log      LogConfig      `yaml:"log"`
}

type DeviceRef struct {
	ClientID    string `yaml:"client_id" env:"DEVICE_CLIENT_ID" env-required:"true"`
	SensorsPath string `yaml:"sensors_path" env-required:"true"`
}

type BrokerConfig struct {
	Host           string        `yaml:"host" env:"BROKER_HOST" env-required:"true"`
	Port           int           `yaml:"port" env-default:"1883"`
	Username       string        `yaml:"username" env:"BROKER_USERNAME"`
	Password       string        `yaml:"password" env:"BROKER_PASSWORD"`
	KeepAlive      time.Duration `yaml:"keep_alive" env-default:"15s"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env-default:"5s"`
	PublishTimeout time.Duration `yaml:"publish_timeout" env-default:"2s"`
	Backoff        time.Duration `yaml:"backoff" env-default:"5s"`
	QoS            int           `yaml:"qos" env-default:"0"`
	Retain         bool          `yaml:"retain" env-default:"false"`
	Subscriptions  []string      `yaml:"subscriptions"`
}

type ScheduleConfig struct {
	ConnectionInterval time.Duration `yaml:"connection_interval" env-default:"500ms"`
	IdleSleep          time.Duration `yaml:"idle_sleep" env-default:"5ms"`
}

// cleanenv replaces zero values with env-default, so on-by-default switches
// are expressed as Disabled.
// MaxWatchdogUptime is the largest uptime threshold the 32-bit millisecond
// clock can measure reliably.
const MaxWatchdogUptime = time.Duration(1<<31) * time.Millisecond

type WatchdogConfig struct {
	Disabled bool          `yaml:"disabled"`
	Uptime   time.Duration `yaml:"uptime" env-default:"5000s"`
	Mode     string        `yaml:"mode" env-default:"exec"`
}

type JournalConfig struct {
	Disabled        bool          `yaml:"disabled"`
	Path            string        `yaml:"path" env-default:"/var/lib/trafo-telemetry/journal.db"`
	MaxAge          time.Duration `yaml:"max_age" env-default:"168h"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env-default:"1h"`
	MaxRows         int64         `yaml:"max_rows" env-default:"100000"`
}

type HealthConfig struct {
	Address string `yaml:"address" env-default:":8080"`
}

type LogConfig struct {
	Level  string `yaml:"level" env-default:"info"`
	Format string `yaml:"format" env-default:"json"`
}

func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}

	if configPath == "" {
		configPath = "config/config.yaml"
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Schedule.ConnectionInterval <= 0 {
		return fmt.Errorf("schedule.connection_interval must be positive")
	}
	if c.Broker.Backoff <= 0 {
		return fmt.Errorf("broker.backoff must be positive")
	}
	if c.Broker.QoS < 0 || c.Broker.QoS > 2 {
		return fmt.Errorf("broker.qos must be 0, 1 or 2, got %d", c.Broker.QoS)
	}
	if !c.Watchdog.Disabled {
		if c.Watchdog.Uptime < time.Millisecond || c.Watchdog.Uptime > MaxWatchdogUptime {
			return fmt.Errorf("watchdog.uptime must be between 1ms and %s, got %s", MaxWatchdogUptime, c.Watchdog.Uptime)
		}
		switch c.Watchdog.Mode {
		case "exec", "exit":
		default:
			return fmt.Errorf("watchdog.mode must be exec or exit, got %q", c.Watchdog.Mode)
		}
	}
	if !c.Journal.Disabled && c.Journal.MaxRows <= 0 {
		return fmt.Errorf("journal.max_rows must be positive")
	}
	return nil
}
