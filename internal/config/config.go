package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Stream struct {
		WSEndpoint string `yaml:"ws_endpoint" envconfig:"STREAM_WS_ENDPOINT"`
		// Optional frame sent after connect, for feeds that need an explicit
		// subscription (the Upbit-style feed pushes without one).
		SubscribeMessage string `yaml:"subscribe_message" envconfig:"STREAM_SUBSCRIBE_MESSAGE"`
	} `yaml:"stream"`

	Favorites struct {
		APIBaseURL string `yaml:"api_base_url" envconfig:"FAVORITES_API_URL"`
	} `yaml:"favorites"`

	Storage struct {
		DBPath string `yaml:"db_path" envconfig:"DB_PATH"`
	} `yaml:"storage"`

	Alarm struct {
		Threshold       float64 `yaml:"threshold" envconfig:"ALARM_THRESHOLD"`
		CooldownSeconds int     `yaml:"cooldown_seconds" envconfig:"ALARM_COOLDOWN_SECONDS"`
		LogCapacity     int     `yaml:"log_capacity" envconfig:"ALARM_LOG_CAPACITY"`
	} `yaml:"alarm"`

	Logging struct {
		Level string `yaml:"level" envconfig:"LOG_LEVEL"`
	} `yaml:"logging"`

	Server struct {
		Port int `yaml:"port" envconfig:"SERVER_PORT"`
	} `yaml:"server"`
}

func (c *Config) AlarmCooldown() time.Duration {
	return time.Duration(c.Alarm.CooldownSeconds) * time.Second
}

// Load reads the yaml file, then lets environment variables (and a .env file
// if present) override individual values. A missing config file is fine; the
// defaults plus environment carry a dev setup.
func Load(path string) (*Config, error) {
	cfg := defaults()

	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// .env may not exist in production, that is fine.
	_ = godotenv.Load()

	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Stream.WSEndpoint = "ws://localhost:8080/ws"
	cfg.Favorites.APIBaseURL = "http://localhost:8080/api"
	cfg.Storage.DBPath = "alarm.db"
	cfg.Alarm.Threshold = 300_000_000
	cfg.Alarm.CooldownSeconds = 3
	cfg.Alarm.LogCapacity = 100
	cfg.Logging.Level = "info"
	cfg.Server.Port = 8090
	return cfg
}
