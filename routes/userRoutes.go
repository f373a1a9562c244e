package routes

import (
	"wastewise-be/middlewares"
	"wastewise-be/models"

	"github.com/gin-gonic/gin"
)

// UserRoutes sets up user management. Single-user reads and updates are also
// open to the user themself.
func UserRoutes(api *gin.RouterGroup, h Handlers) {
	adminOnly := middlewares.RequireRoles(models.RoleAdmin)
	users := api.Group("/users", h.Authenticate)
	{
		users.GET("", adminOnly, h.Users.ListUsers)
		users.GET("/stats/overview", adminOnly, h.Users.Stats)
		users.POST("/bulk-action", adminOnly, h.Users.BulkAction)
		users.GET("/community/:id", middlewares.RequireRoles(models.RoleAdmin, models.RoleCommunityAdmin), h.Users.ListByCommunity)
		users.GET("/:id", h.Users.GetUser)
		users.PUT("/:id", h.Users.UpdateUser)
		users.DELETE("/:id", adminOnly, h.Users.DeleteUser)
	}
}
