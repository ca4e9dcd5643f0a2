package app

import (
	"strings"

	"github.com/hibiken/asynq"

	"github.com/charlesng35/pushbell/internal/auth"
	"github.com/charlesng35/pushbell/internal/database"
	"github.com/charlesng35/pushbell/internal/storage"
)

// DatabaseConfig converts the database section into database.Config.
func (c DatabaseConfig) DatabaseConfig() database.Config {
	out := database.Config{
		Driver: c.Driver,
		Path:   c.Path,
		DSN:    c.DSN,
	}

	var host DBAuthConfig
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case "postgres", "postgresql":
		host = c.Postgres
	case "mysql", "mariadb":
		host = c.MySQL
	default:
		return out
	}

	out.Host = host.Host
	out.Port = host.Port
	out.Name = host.Database
	out.User = host.Username
	out.Password = host.Password
	out.Options = host.Options
	return out
}

// StorageConfig converts the storage section into storage.Config.
func (c StorageConfig) StorageConfig() storage.Config {
	return storage.Config{
		Backend: c.Backend,
		Redis: storage.RedisConfig{
			Address:  c.Redis.Address,
			Username: c.Redis.Username,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Timeout:  c.Redis.Timeout,
		},
		Mongo: storage.MongoConfig{
			URI:        c.Mongo.URI,
			Database:   c.Mongo.Database,
			Collection: c.Mongo.Collection,
			Timeout:    c.Mongo.Timeout,
		},
	}
}

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultTokenTTL
	}

	return auth.JWTConfig{
		Secret:   c.JWT.Secret,
		Issuer:   c.JWT.Issuer,
		Audience: c.JWT.Audience,
		TTL:      ttl,
	}
}

// RedisClientOpt converts the background queue settings into asynq options.
func (c BackgroundConfig) RedisClientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:         c.Redis.Address,
		Username:     c.Redis.Username,
		Password:     c.Redis.Password,
		DB:           c.Redis.DB,
		DialTimeout:  c.Redis.Timeout,
		ReadTimeout:  c.Redis.Timeout,
		WriteTimeout: c.Redis.Timeout,
	}
}
