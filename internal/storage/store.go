package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ErrNotInitialised is returned when a nil store is used.
var ErrNotInitialised = errors.New("storage: store not initialised")

// KV is the key-value backend behind the notification store and token
// manager. Values are opaque byte slices.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// Config selects and configures a KV backend.
type Config struct {
	Backend string
	Redis   RedisConfig
	Mongo   MongoConfig
}

// Open builds the configured backend. The database backend reuses db.
func Open(ctx context.Context, cfg Config, db *gorm.DB) (KV, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "database", "sql":
		if db == nil {
			return nil, errors.New("storage: database backend requires a database handle")
		}
		return NewDatabaseStore(db), nil
	case "redis":
		return NewRedisStore(ctx, cfg.Redis)
	case "mongo", "mongodb":
		return NewMongoStore(ctx, cfg.Mongo)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("storage: unsupported backend %q", cfg.Backend)
	}
}

func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
