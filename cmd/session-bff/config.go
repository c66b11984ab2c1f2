package main

import (
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the gateway configuration. Value sources, in descending
// priority: the --config file path, the CONFIG_PATH environment variable,
// then plain environment variables.
type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Store    StoreConfig    `yaml:"store"`
	Guard    GuardConfig    `yaml:"guard"`
}

type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8085"`
}

// Addr returns the listen address in host:port form.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

type AuthConfig struct {
	BaseURL string        `yaml:"base_url" env:"AUTH_BASE_URL" env-required:"true"`
	Timeout time.Duration `yaml:"timeout" env:"AUTH_TIMEOUT" env-default:"10s"`
}

type UpstreamConfig struct {
	URL string `yaml:"url" env:"UPSTREAM_URL" env-required:"true"`
}

// StoreConfig selects the token store: a Redis address when set, otherwise a
// JSON file on disk.
type StoreConfig struct {
	RedisAddr string `yaml:"redis_addr" env:"REDIS_ADDR"`
	FilePath  string `yaml:"file_path" env:"TOKEN_FILE" env-default:"tokens.json"`
}

type GuardConfig struct {
	LoginPath   string `yaml:"login_path" env:"LOGIN_PATH" env-default:"/login"`
	DefaultPath string `yaml:"default_path" env:"DEFAULT_PATH" env-default:"/app/"`
}

// MustLoad wraps Load with a panic on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the configuration from path (or CONFIG_PATH) when present,
// falling back to environment variables alone.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
