package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/pushbell/internal/handlers"
)

func registerHealthRoutes(r *gin.Engine, checks map[string]handlers.Check) {
	health := handlers.Health(checks)
	r.GET("/health", health)
	r.GET("/api/health", health)
}
