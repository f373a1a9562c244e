package routes

import (
	"github.com/gin-gonic/gin"
)

// PickupRoutes sets up the pickup routes. Scoping by role happens in the
// pickup service.
func PickupRoutes(api *gin.RouterGroup, h Handlers) {
	pickups := api.Group("/pickups", h.Authenticate)
	{
		pickups.GET("", h.Pickups.GetPickups)
		pickups.POST("", h.Pickups.CreatePickup)
		pickups.GET("/stats/overview", h.Pickups.GetPickupStats)
		pickups.GET("/:id", h.Pickups.GetPickup)
		pickups.PUT("/:id", h.Pickups.UpdatePickup)
		pickups.DELETE("/:id", h.Pickups.DeletePickup)
		pickups.PUT("/:id/complete", h.Pickups.CompletePickup)
		pickups.PUT("/:id/cancel", h.Pickups.CancelPickup)
	}
}
