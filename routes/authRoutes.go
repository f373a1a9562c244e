package routes

import (
	"github.com/gin-gonic/gin"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(api *gin.RouterGroup, h Handlers) {
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.RegisterUser)
		auth.POST("/login", h.Auth.LoginUser)
		auth.GET("/me", h.Authenticate, h.Auth.GetMe)
		auth.PUT("/profile", h.Authenticate, h.Auth.UpdateProfile)
		auth.PUT("/change-password", h.Authenticate, h.Auth.ChangePassword)
		auth.POST("/logout", h.Authenticate, h.Auth.Logout)
	}
}
