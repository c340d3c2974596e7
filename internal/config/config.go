// Package config loads service configuration from .env files, configs/config.yml
// and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. APP_PORT or APP_UPDATES_WORKERS.
const EnvPrefix = "APP"

// APIKeyEnv is the environment variable holding the weather provider credential.
const APIKeyEnv = "API_KEY"

type Config struct {
	Port     string        `mapstructure:"port" validate:"required"`
	LogLevel string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Log      LogConfig     `mapstructure:"log"`
	DB       DBConfig      `mapstructure:"db"`
	Server   ServerConfig  `mapstructure:"server"`
	Weather  WeatherConfig `mapstructure:"weather"`
	Updates  UpdatesConfig `mapstructure:"updates"`
	Seed     SeedConfig    `mapstructure:"seed"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

type DBConfig struct {
	Path         string `mapstructure:"path" validate:"required"`
	ResetOnStart bool   `mapstructure:"reset_on_start"`
}

type ServerConfig struct {
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" validate:"gt=0"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type WeatherConfig struct {
	BaseURL   string        `mapstructure:"base_url" validate:"required,url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RedisAddr string        `mapstructure:"redis_addr"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
}

type UpdatesConfig struct {
	Workers     int  `mapstructure:"workers" validate:"min=1"`
	QueueSize   int  `mapstructure:"queue_size" validate:"min=1"`
	HistorySize int  `mapstructure:"history_size" validate:"min=1"`
	AtomicGuard bool `mapstructure:"atomic_guard"`
}

type SeedConfig struct {
	Users       int           `mapstructure:"users" validate:"gte=0"`
	BaseBalance int64         `mapstructure:"base_balance"`
	BalanceStep int64         `mapstructure:"balance_step"`
	Requests    int           `mapstructure:"requests" validate:"gte=0"`
	Interval    time.Duration `mapstructure:"interval" validate:"gte=0"`
	Cities      []string      `mapstructure:"cities" validate:"required_with=Requests,dive,required"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "5000")
	v.SetDefault("log_level", "info")

	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 14)

	v.SetDefault("db.path", "users.db")
	v.SetDefault("db.reset_on_start", true)

	v.SetDefault("server.read_header_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("weather.base_url", "http://api.openweathermap.org/data/2.5/weather")
	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.timeout", 5*time.Second)
	v.SetDefault("weather.redis_addr", "")
	v.SetDefault("weather.cache_ttl", 0)

	v.SetDefault("updates.workers", 8)
	v.SetDefault("updates.queue_size", 1024)
	v.SetDefault("updates.history_size", 1000)
	v.SetDefault("updates.atomic_guard", true)

	v.SetDefault("seed.users", 5)
	v.SetDefault("seed.base_balance", 5000)
	v.SetDefault("seed.balance_step", 1000)
	v.SetDefault("seed.requests", 1200)
	v.SetDefault("seed.interval", 100*time.Millisecond)
	v.SetDefault("seed.cities", []string{"Moscow"})
}

// Load reads .env files, <dir>/config.yml and environment overrides, then validates the result.
// A missing config file is not an error; defaults apply.
func Load(dir string) (*Config, *viper.Viper, error) {
	// .env files are optional
	_ = godotenv.Load(".env.local", ".env")

	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("weather.api_key", APIKeyEnv); err != nil {
		return nil, nil, fmt.Errorf("bind %s: %w", APIKeyEnv, err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, v, nil
}

// WatchLogLevel calls apply with the new log_level whenever the config file changes.
// It does nothing when no config file was read.
func WatchLogLevel(v *viper.Viper, apply func(level string)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		apply(v.GetString("log_level"))
	})
	v.WatchConfig()
}
