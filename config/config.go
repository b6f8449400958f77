package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	RelayPostgres = "postgres"
	RelayLocal    = "local"
)

type HTTP struct {
	Addr string `yaml:"addr" env:"HTTP_ADDR"`
}

type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER"` // postgres|sqlite
	DSN    string `yaml:"dsn" env:"STORAGE_DSN"`       // postgres
	Path   string `yaml:"path" env:"STORAGE_PATH"`     // sqlite
}

type Bus struct {
	Relay   string `yaml:"relay" env:"BUS_RELAY"`     // postgres|local
	Channel string `yaml:"channel" env:"BUS_CHANNEL"` // LISTEN/NOTIFY канал
}

type Chat struct {
	MaxMessageLen int     `yaml:"maxMessageLen" env:"CHAT_MAX_MESSAGE_LEN"`
	ReplayLimit   int     `yaml:"replayLimit" env:"CHAT_REPLAY_LIMIT"` // 0 — без лимита
	SubmitRate    float64 `yaml:"submitRate" env:"CHAT_SUBMIT_RATE"`   // сообщений/с на соединение
	SubmitBurst   int     `yaml:"submitBurst" env:"CHAT_SUBMIT_BURST"`
}

type Logging struct {
	Env       string `yaml:"env" env:"LOG_ENV"`             // dev|prod
	Service   string `yaml:"service" env:"LOG_SERVICE"`     // chat-service
	Version   string `yaml:"version" env:"LOG_VERSION"`     // v0.1.0
	Backend   string `yaml:"backend" env:"LOG_BACKEND"`     // std|zap
	AddSource bool   `yaml:"addSource" env:"LOG_ADDSOURCE"` // false|true
	Debug     bool   `yaml:"debug" env:"LOG_DEBUG"`         // false|true
}

type Config struct {
	HTTP    HTTP    `yaml:"http"`
	Storage Storage `yaml:"storage"`
	Bus     Bus     `yaml:"bus"`
	Chat    Chat    `yaml:"chat"`
	Logging Logging `yaml:"logging"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	// env поверх yaml
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}

	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for postgres")
		}
	case DriverSQLite:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for sqlite")
		}
	default:
		return fmt.Errorf("storage.driver must be %q or %q", DriverPostgres, DriverSQLite)
	}

	// дефолты, если значения не указаны
	if c.Bus.Relay == "" {
		if c.Storage.Driver == DriverPostgres {
			c.Bus.Relay = RelayPostgres
		} else {
			c.Bus.Relay = RelayLocal
		}
	}
	switch c.Bus.Relay {
	case RelayPostgres:
		if c.Storage.Driver != DriverPostgres {
			return errors.New("bus.relay=postgres requires storage.driver=postgres")
		}
	case RelayLocal:
	default:
		return fmt.Errorf("bus.relay must be %q or %q", RelayPostgres, RelayLocal)
	}
	if c.Bus.Channel == "" {
		c.Bus.Channel = "chat_events"
	}

	if c.Chat.MaxMessageLen == 0 {
		c.Chat.MaxMessageLen = 4000
	}
	if c.Chat.SubmitRate == 0 {
		c.Chat.SubmitRate = 10
	}
	if c.Chat.SubmitBurst == 0 {
		c.Chat.SubmitBurst = 20
	}

	if c.Logging.Service == "" {
		c.Logging.Service = "chat-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	return nil
}
