package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        string `yaml:"port" env:"QUIZ_SERVER_PORT"`
		WaitTimeout string `yaml:"wait_timeout" env:"QUIZ_SERVER_WAIT_TIMEOUT"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr" env:"QUIZ_REDIS_ADDR"`
		Password string `yaml:"password" env:"QUIZ_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"QUIZ_REDIS_DB"`
		TTL      string `yaml:"ttl" env:"QUIZ_REDIS_TTL"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"QUIZ_POSTGRES_URL"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path" env:"QUIZ_SQLITE_PATH"`
	} `yaml:"sqlite"`
	Quiz struct {
		// TTL bounds the tab-scoped copy of the last generated quiz.
		TTL string `yaml:"ttl" env:"QUIZ_TTL"`
	} `yaml:"quiz"`
	Generator struct {
		URL     string `yaml:"url" env:"QUIZ_GENERATOR_URL"`
		Timeout string `yaml:"timeout" env:"QUIZ_GENERATOR_TIMEOUT"`
	} `yaml:"generator"`
	Auth struct {
		JWTSecret       string `yaml:"jwt_secret" env:"QUIZ_AUTH_JWT_SECRET"`
		Issuer          string `yaml:"issuer" env:"QUIZ_AUTH_ISSUER"`
		RequireVerified bool   `yaml:"require_verified" env:"QUIZ_AUTH_REQUIRE_VERIFIED"`
	} `yaml:"auth"`
	Leaderboard struct {
		Capacity int `yaml:"capacity" env:"QUIZ_LEADERBOARD_CAPACITY"`
	} `yaml:"leaderboard"`
	Log struct {
		Mode string `yaml:"mode" env:"QUIZ_LOG_MODE"`
	} `yaml:"log"`
}

// Load reads YAML config from path, then applies QUIZ_* environment overrides.
// A missing file is not an error; the environment alone can configure the service.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
