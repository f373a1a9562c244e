package routes

import (
	"github.com/gin-gonic/gin"
)

// IssueRoutes sets up the issue routes
func IssueRoutes(api *gin.RouterGroup, h Handlers) {
	issues := api.Group("/issues", h.Authenticate)
	{
		create := []gin.HandlerFunc{h.Issues.CreateIssue}
		if h.IssueLimiter != nil {
			create = append([]gin.HandlerFunc{h.IssueLimiter}, create...)
		}
		issues.POST("", create...)
		issues.GET("", h.Issues.GetAllIssues)
		issues.GET("/stats/overview", h.Issues.GetIssueStats)
		issues.GET("/:id", h.Issues.GetIssue)
		issues.PUT("/:id", h.Issues.UpdateIssue)
		issues.DELETE("/:id", h.Issues.DeleteIssue)
		issues.POST("/:id/comments", h.Issues.AddComment)
		issues.POST("/:id/feedback", h.Issues.SubmitFeedback)
	}
}
