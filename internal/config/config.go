package config

import (
	"errors"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken string          `yaml:"discord_token" env:"DISCORD_TOKEN"`
	DatabasePath string          `yaml:"database_path" env:"DATABASE_PATH"`
	LogLevel     string          `yaml:"log_level" env:"LOG_LEVEL"`
	Health       HealthConfig    `yaml:"health"`
	AutoMod      AutoModConfig   `yaml:"automod"`
	Leveling     LevelingConfig  `yaml:"leveling"`
	Scheduler    SchedulerConfig `yaml:"scheduler"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled" env:"HEALTH_ENABLED"`
	Addr    string `yaml:"addr" env:"HEALTH_ADDR"`
}

type AutoModConfig struct {
	SpamWindowSeconds int `yaml:"spam_window_seconds" env:"SPAM_WINDOW_SECONDS"`
	SpamThreshold     int `yaml:"spam_threshold" env:"SPAM_THRESHOLD"`
	PingThreshold     int `yaml:"ping_threshold" env:"PING_THRESHOLD"`
}

type LevelingConfig struct {
	XPPerMessage int `yaml:"xp_per_message" env:"XP_PER_MESSAGE"`
}

type SchedulerConfig struct {
	IntervalSeconds int `yaml:"interval_seconds" env:"SCHEDULER_INTERVAL_SECONDS"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath: "/data/hansel.db",
		LogLevel:     "info",
		Health:       HealthConfig{Enabled: false, Addr: ":8080"},
		AutoMod: AutoModConfig{
			SpamWindowSeconds: 10,
			SpamThreshold:     5,
			PingThreshold:     5,
		},
		Leveling:  LevelingConfig{XPPerMessage: 10},
		Scheduler: SchedulerConfig{IntervalSeconds: 60},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}

	if cfg.AutoMod.SpamWindowSeconds < 1 {
		cfg.AutoMod.SpamWindowSeconds = 10
	}
	if cfg.AutoMod.SpamThreshold < 1 {
		cfg.AutoMod.SpamThreshold = 5
	}
	if cfg.AutoMod.PingThreshold < 1 {
		cfg.AutoMod.PingThreshold = 5
	}
	if cfg.Leveling.XPPerMessage < 1 {
		cfg.Leveling.XPPerMessage = 10
	}
	if cfg.Scheduler.IntervalSeconds < 1 {
		cfg.Scheduler.IntervalSeconds = 60
	}

	return cfg, nil
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
