package routes

import (
	"wastewise-be/middlewares"
	"wastewise-be/models"

	"github.com/gin-gonic/gin"
)

func AnalyticsRoutes(api *gin.RouterGroup, h Handlers) {
	analytics := api.Group("/analytics", h.Authenticate, middlewares.RequireRoles(models.RoleAdmin, models.RoleCommunityAdmin))
	{
		analytics.GET("/overview", h.Analytics.Overview)
		analytics.GET("/waste-trends", h.Analytics.WasteTrends)
		analytics.GET("/pickup-stats", h.Analytics.PickupStats)
		analytics.GET("/issue-analytics", h.Analytics.IssueAnalytics)
		analytics.GET("/environmental-impact", h.Analytics.EnvironmentalImpact)
		analytics.POST("/generate-report", h.Analytics.GenerateReport)
	}
}
