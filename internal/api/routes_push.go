package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/pushbell/internal/handlers"
)

func registerPushRoutes(api *gin.RouterGroup, handler *handlers.PushHandler) {
	group := api.Group("/push")
	{
		group.GET("/state", handler.State)
		group.POST("/check", handler.Check)
		group.POST("/permission", handler.Permission)
		group.POST("/deliver", handler.Deliver)
	}
}
