package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for pushbell.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Push       PushConfig       `mapstructure:"push"`
	Foreground ForegroundConfig `mapstructure:"foreground"`
	Background BackgroundConfig `mapstructure:"background"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int             `mapstructure:"port"`
	LogLevel        string          `mapstructure:"log_level"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds API requests per client.
type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
	Burst     int `mapstructure:"burst"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	Database string            `mapstructure:"database"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	Options  map[string]string `mapstructure:"options"`
}

// StorageConfig selects the key-value backend for local notification state.
type StorageConfig struct {
	Backend string      `mapstructure:"backend"`
	Redis   RedisConfig `mapstructure:"redis"`
	Mongo   MongoConfig `mapstructure:"mongo"`
}

// RedisConfig holds Redis connection options.
type RedisConfig struct {
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// MongoConfig holds MongoDB connection options.
type MongoConfig struct {
	URI        string        `mapstructure:"uri"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// AuthConfig configures validation of backend-issued session tokens.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures JWT session tokens.
type JWTSettings struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	Audience string        `mapstructure:"audience"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// PushConfig configures delivery-token acquisition and backend association.
type PushConfig struct {
	Provider        string        `mapstructure:"provider"`
	StaticToken     string        `mapstructure:"static_token"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	BackendURL      string        `mapstructure:"backend_url"`
	BackendTimeout  time.Duration `mapstructure:"backend_timeout"`
}

// ForegroundConfig configures the in-app channel.
type ForegroundConfig struct {
	Source        string        `mapstructure:"source"`
	StreamURL     string        `mapstructure:"stream_url"`
	InboxSize     int           `mapstructure:"inbox_size"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	ToastDuration time.Duration `mapstructure:"toast_duration"`
	DedupWindow   time.Duration `mapstructure:"dedup_window"`
}

// BackgroundConfig configures the background worker and its queue.
type BackgroundConfig struct {
	Enabled     bool        `mapstructure:"enabled"`
	Redis       RedisConfig `mapstructure:"redis"`
	Concurrency int         `mapstructure:"concurrency"`
	Presenter   string      `mapstructure:"presenter"`
	AppName     string      `mapstructure:"app_name"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles the metrics endpoint.
type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// HealthConfig toggles dependency checks on the health endpoint.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("PUSHBELL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.rate_limit.per_minute", 120)
	v.SetDefault("server.rate_limit.burst", 20)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/pushbell.sqlite")

	v.SetDefault("storage.backend", "database")
	v.SetDefault("storage.redis.address", "127.0.0.1:6379")
	v.SetDefault("storage.redis.timeout", "5s")
	v.SetDefault("storage.mongo.database", "pushbell")
	v.SetDefault("storage.mongo.collection", "state_entries")
	v.SetDefault("storage.mongo.timeout", "10s")

	v.SetDefault("auth.jwt.secret", "")
	v.SetDefault("auth.jwt.issuer", "")
	v.SetDefault("auth.jwt.audience", "")
	v.SetDefault("auth.jwt.ttl", "1h")

	v.SetDefault("push.provider", "installation")
	v.SetDefault("push.static_token", "")
	v.SetDefault("push.credentials_file", "")
	v.SetDefault("push.backend_url", "http://127.0.0.1:8000")
	v.SetDefault("push.backend_timeout", "15s")

	v.SetDefault("foreground.source", "inbox")
	v.SetDefault("foreground.stream_url", "")
	v.SetDefault("foreground.inbox_size", 32)
	v.SetDefault("foreground.retry_delay", "2s")
	v.SetDefault("foreground.toast_duration", "5s")
	v.SetDefault("foreground.dedup_window", "0s")

	v.SetDefault("background.enabled", false)
	v.SetDefault("background.redis.address", "127.0.0.1:6379")
	v.SetDefault("background.concurrency", 4)
	v.SetDefault("background.presenter", "log")
	v.SetDefault("background.app_name", "pushbell")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.health_check.enabled", true)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
