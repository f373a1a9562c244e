package routes

import (
	"wastewise-be/middlewares"
	"wastewise-be/models"

	"github.com/gin-gonic/gin"
)

func SettingsRoutes(api *gin.RouterGroup, h Handlers) {
	settings := api.Group("/settings")
	{
		settings.GET("/app-info", h.Settings.GetAppInfo)
		settings.GET("/user", h.Authenticate, h.Settings.GetUserSettings)
		settings.PUT("/user", h.Authenticate, h.Settings.UpdateUserSettings)
		settings.GET("/system", h.Authenticate, middlewares.RequireRoles(models.RoleAdmin), h.Settings.GetSystemSettings)
		settings.PUT("/system", h.Authenticate, middlewares.RequireRoles(models.RoleAdmin), h.Settings.UpdateSystemSettings)
		settings.GET("/community/:id", h.Authenticate, h.Settings.GetCommunitySettings)
		settings.PUT("/community/:id", h.Authenticate, h.Settings.UpdateCommunitySettings)
	}
}
