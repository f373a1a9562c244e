// Package routes mounts the REST API under /api.
package routes

import (
	"wastewise-be/controllers"

	"github.com/gin-gonic/gin"
)

// Handlers bundles the controllers and the middleware the route groups need.
type Handlers struct {
	Auth          *controllers.AuthController
	Users         *controllers.UserController
	Communities   *controllers.CommunityController
	Routes        *controllers.RouteController
	Pickups       *controllers.PickupController
	Issues        *controllers.IssueController
	Notifications *controllers.NotificationController
	Analytics     *controllers.AnalyticsController
	Settings      *controllers.SettingsController

	// Authenticate resolves the bearer token into a principal.
	Authenticate gin.HandlerFunc
	// IssueLimiter guards issue creation.
	IssueLimiter gin.HandlerFunc
}

// Register mounts every route group on r and returns the /api group.
func Register(r *gin.Engine, h Handlers) *gin.RouterGroup {
	api := r.Group("/api")
	AuthRoutes(api, h)
	UserRoutes(api, h)
	CommunityRoutes(api, h)
	RouteRoutes(api, h)
	PickupRoutes(api, h)
	IssueRoutes(api, h)
	NotificationRoutes(api, h)
	AnalyticsRoutes(api, h)
	SettingsRoutes(api, h)
	return api
}
