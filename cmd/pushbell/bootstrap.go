package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/pushbell/internal/api"
	"github.com/charlesng35/pushbell/internal/app"
	iauth "github.com/charlesng35/pushbell/internal/auth"
	"github.com/charlesng35/pushbell/internal/background"
	"github.com/charlesng35/pushbell/internal/database"
	"github.com/charlesng35/pushbell/internal/handlers"
	"github.com/charlesng35/pushbell/internal/listener"
	"github.com/charlesng35/pushbell/internal/notifier"
	"github.com/charlesng35/pushbell/internal/push"
	"github.com/charlesng35/pushbell/internal/realtime"
	"github.com/charlesng35/pushbell/internal/storage"
	"github.com/charlesng35/pushbell/internal/store"
	"github.com/charlesng35/pushbell/internal/toast"
	"github.com/charlesng35/pushbell/internal/token"
	"github.com/charlesng35/pushbell/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	KV         storage.KV
	Toasts     *toast.Manager
	Runtime    *notifier.Runtime
	Dispatcher *background.Dispatcher
	Router     *gin.Engine
}

// bootstrapRuntime initialises storage, the notification services and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	checks := map[string]handlers.Check{}

	if usesDatabase(cfg.Storage.Backend) {
		stack.DB, err = initialiseDatabase(cfg)
		if err != nil {
			return nil, err
		}
		db := stack.DB
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}

	stack.KV, err = storage.Open(ctx, cfg.Storage.StorageConfig(), stack.DB)
	if err != nil {
		return nil, fmt.Errorf("open state storage: %w", err)
	}
	log.Info("state storage ready", zap.String("backend", storageBackend(cfg.Storage.Backend)))

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	hub := realtime.NewHub()
	publisher := realtime.NewPublisher(hub)

	notifications, err := store.New(stack.KV,
		store.WithObserver(publisher),
		store.WithDedupWindow(cfg.Foreground.DedupWindow),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise notification store: %w", err)
	}

	provider, err := buildProvider(ctx, cfg.Push, stack.KV, log)
	if err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(
		token.NewKVPermissionStore(stack.KV),
		publisher,
		provider,
		push.NewBackendClient(cfg.Push.BackendURL, &http.Client{Timeout: cfg.Push.BackendTimeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise token manager: %w", err)
	}

	stack.Toasts = toast.NewManager(publisher, cfg.Foreground.ToastDuration)

	deps := api.Dependencies{
		JWT:                jwtSvc,
		Store:              notifications,
		Tokens:             tokens,
		Hub:                hub,
		RateLimitPerMinute: cfg.Server.RateLimit.PerMinute,
		RateLimitBurst:     cfg.Server.RateLimit.Burst,
		MetricsEnabled:     cfg.Monitoring.Prometheus.Enabled,
	}

	var sources notifier.SourceFactory
	switch strings.ToLower(strings.TrimSpace(cfg.Foreground.Source)) {
	case "stream":
		sources = notifier.StreamSources(cfg.Foreground.StreamURL)
	default:
		inbox := listener.NewInbox(cfg.Foreground.InboxSize)
		sources = notifier.InboxSources(inbox)
		deps.Foreground = inbox
	}

	stack.Runtime, err = notifier.New(notifications, tokens, sources,
		notifier.WithRetryDelay(cfg.Foreground.RetryDelay),
		notifier.WithToasts(stack.Toasts),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise notifier runtime: %w", err)
	}
	deps.Runtime = stack.Runtime

	if cfg.Background.Enabled {
		stack.Dispatcher = background.NewDispatcher(cfg.Background.RedisClientOpt())
		deps.Background = stack.Dispatcher
		log.Info("background queue enabled", zap.String("addr", cfg.Background.Redis.Address))
	}

	if cfg.Monitoring.Health.Enabled {
		deps.Checks = checks
	}

	stack.Router, err = api.NewRouter(deps)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown ends sessions and releases resources in reverse order of creation.
func (s *runtimeStack) Shutdown(log *zap.Logger) {
	if s == nil {
		return
	}

	var err error
	if s.Runtime != nil {
		err = multierr.Append(err, s.Runtime.Close())
	}
	if s.Toasts != nil {
		s.Toasts.Close()
	}
	if s.Dispatcher != nil {
		err = multierr.Append(err, s.Dispatcher.Close())
	}
	if closer, ok := s.KV.(io.Closer); ok {
		err = multierr.Append(err, closer.Close())
	}
	if s.DB != nil {
		err = multierr.Append(err, database.Close(s.DB))
	}
	for _, e := range multierr.Errors(err) {
		log.Warn("shutdown", zap.Error(e))
	}
}

func buildProvider(ctx context.Context, cfg app.PushConfig, kv storage.KV, log *zap.Logger) (token.TokenProvider, error) {
	var source push.TokenSource = push.NewInstallationProvider(kv)
	if strings.TrimSpace(cfg.StaticToken) != "" {
		source = push.NewStaticProvider(cfg.StaticToken)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "firebase", "fcm":
		client, err := push.NewFirebaseMessaging(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		log.Info("firebase token validation enabled")
		return push.NewFirebaseProvider(source, client), nil
	case "static":
		if strings.TrimSpace(cfg.StaticToken) == "" {
			return nil, errors.New("push.static_token must be set for the static provider")
		}
		return source, nil
	case "", "installation":
		return source, nil
	default:
		return nil, fmt.Errorf("unsupported push provider %q", cfg.Provider)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func usesDatabase(backend string) bool {
	switch storageBackend(backend) {
	case "database", "sql":
		return true
	}
	return false
}

func storageBackend(backend string) string {
	backend = strings.ToLower(strings.TrimSpace(backend))
	if backend == "" {
		return "database"
	}
	return backend
}
