package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/pushbell/internal/handlers"
)

func registerSessionRoutes(api *gin.RouterGroup, handler *handlers.SessionHandler) {
	api.POST("/session", handler.Login)
	api.DELETE("/session", handler.Logout)
}

func registerRealtimeRoutes(api *gin.RouterGroup, handler *handlers.RealtimeHandler) {
	api.GET("/stream", handler.Stream)
}
