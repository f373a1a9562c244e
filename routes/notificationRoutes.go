package routes

import (
	"wastewise-be/middlewares"
	"wastewise-be/models"

	"github.com/gin-gonic/gin"
)

// NotificationRoutes sets up the notification routes. The websocket accepts
// the token as a query parameter since browsers cannot set headers on it.
func NotificationRoutes(api *gin.RouterGroup, h Handlers) {
	notifications := api.Group("/notifications", h.Authenticate)
	{
		notifications.GET("", h.Notifications.GetNotifications)
		notifications.POST("", middlewares.RequireRoles(models.RoleAdmin), h.Notifications.Broadcast)
		notifications.GET("/stats", h.Notifications.GetStats)
		notifications.GET("/ws", h.Notifications.Stream)
		notifications.PUT("/read-all", h.Notifications.MarkAllRead)
		notifications.PUT("/:id/read", h.Notifications.MarkRead)
		notifications.DELETE("/:id", h.Notifications.DeleteNotification)
	}
}
