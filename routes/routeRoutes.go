package routes

import (
	"wastewise-be/middlewares"
	"wastewise-be/models"

	"github.com/gin-gonic/gin"
)

func RouteRoutes(api *gin.RouterGroup, h Handlers) {
	adminOnly := middlewares.RequireRoles(models.RoleAdmin)
	routes := api.Group("/routes", h.Authenticate)
	{
		routes.GET("", middlewares.RequireRoles(models.RoleAdmin, models.RoleCommunityAdmin), h.Routes.GetRoutes)
		routes.GET("/available", h.Routes.GetAvailableRoute)
		routes.GET("/:id", h.Routes.GetRoute)
		routes.POST("", adminOnly, h.Routes.CreateRoute)
		routes.PUT("/:id", adminOnly, h.Routes.UpdateRoute)
		routes.DELETE("/:id", adminOnly, h.Routes.DeleteRoute)
	}
}
