package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	iauth "github.com/charlesng35/pushbell/internal/auth"
	"github.com/charlesng35/pushbell/internal/handlers"
	"github.com/charlesng35/pushbell/internal/middleware"
	"github.com/charlesng35/pushbell/internal/realtime"
)

// Dependencies are the services the HTTP surface is built on. Foreground and
// Background may be nil when that delivery channel is not configured.
type Dependencies struct {
	JWT        *iauth.JWTService
	Store      handlers.NotificationStore
	Tokens     handlers.TokenManager
	Runtime    handlers.SessionRuntime
	Hub        *realtime.Hub
	Foreground handlers.Deliverer
	Background handlers.Enqueuer
	Checks     map[string]handlers.Check

	RateLimitPerMinute int
	RateLimitBurst     int
	MetricsEnabled     bool
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Hub == nil {
		return nil, fmt.Errorf("realtime hub must be provided")
	}

	notificationHandler, err := handlers.NewNotificationHandler(deps.Store)
	if err != nil {
		return nil, err
	}
	pushHandler, err := handlers.NewPushHandler(deps.Tokens, deps.Foreground, deps.Background)
	if err != nil {
		return nil, err
	}
	sessionHandler, err := handlers.NewSessionHandler(deps.Runtime)
	if err != nil {
		return nil, err
	}
	realtimeHandler := handlers.NewRealtimeHandler(deps.Hub)

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	registerHealthRoutes(r, deps.Checks)
	if deps.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.JWT))
	if deps.RateLimitPerMinute > 0 {
		api.Use(middleware.RateLimit(deps.RateLimitPerMinute, deps.RateLimitBurst))
	}

	registerSessionRoutes(api, sessionHandler)
	registerNotificationRoutes(api, notificationHandler)
	registerPushRoutes(api, pushHandler)
	registerRealtimeRoutes(api, realtimeHandler)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
