package routes

import (
	"wastewise-be/middlewares"
	"wastewise-be/models"

	"github.com/gin-gonic/gin"
)

// CommunityRoutes keeps listing public so registration can offer existing communities.
func CommunityRoutes(api *gin.RouterGroup, h Handlers) {
	adminOnly := middlewares.RequireRoles(models.RoleAdmin)
	communities := api.Group("/communities")
	{
		communities.GET("", h.Communities.GetCommunities)
		communities.GET("/:id", h.Communities.GetCommunity)
		communities.GET("/:id/stats", h.Authenticate, h.Communities.GetCommunityStats)
		communities.POST("", h.Authenticate, adminOnly, h.Communities.CreateCommunity)
		communities.PUT("/:id", h.Authenticate, adminOnly, h.Communities.UpdateCommunity)
		communities.DELETE("/:id", h.Authenticate, adminOnly, h.Communities.DeleteCommunity)
	}
}
