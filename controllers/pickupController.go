package controllers

import (
	"net/http"

	"wastewise-be/models"
	"wastewise-be/services"
	"wastewise-be/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PickupController struct {
	base
}

func NewPickupController(svc *services.Services, logger *zap.Logger) *PickupController {
	useJSONFieldNames()
	return &PickupController{base{svc: svc, logger: logger}}
}

func (ctl *PickupController) CreatePickup(c *gin.Context) {
	var input struct {
		ScheduledDate   string           `json:"scheduledDate" binding:"required"`
		TimeSlot        models.TimeSlot  `json:"timeSlot" binding:"required"`
		WasteType       models.WasteType `json:"wasteType" binding:"required"`
		Address         string           `json:"address"`
		Notes           string           `json:"notes" binding:"max=500"`
		EstimatedWeight float64          `json:"estimatedWeight" binding:"min=0"`
		Priority        models.Priority  `json:"priority"`
		User            string           `json:"user"`
		Community       string           `json:"community"`
	}
	if !bindJSON(c, &input) {
		return
	}
	date, ok := optionalDate(c, "scheduledDate", input.ScheduledDate)
	if !ok {
		return
	}
	user, ok := optionalID(c, "user", input.User)
	if !ok {
		return
	}
	community, ok := optionalID(c, "community", input.Community)
	if !ok {
		return
	}

	pickup, err := ctl.svc.Pickups.Create(c.Request.Context(), principal(c), services.PickupInput{
		ScheduledDate:   *date,
		TimeSlot:        input.TimeSlot,
		WasteType:       input.WasteType,
		Address:         input.Address,
		Notes:           input.Notes,
		EstimatedWeight: input.EstimatedWeight,
		Priority:        input.Priority,
		User:            user,
		Community:       community,
	})
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Pickup scheduled successfully", pickup)
}

// pickupFilter reads the optional list filters. The service narrows them
// further according to the caller's role.
func pickupFilter(c *gin.Context) (store.PickupFilter, bool) {
	var filter store.PickupFilter
	var ok bool
	if filter.User, ok = optionalID(c, "user", c.Query("user")); !ok {
		return filter, false
	}
	if filter.Community, ok = optionalID(c, "community", c.Query("community")); !ok {
		return filter, false
	}
	if filter.From, ok = optionalDate(c, "startDate", c.Query("startDate")); !ok {
		return filter, false
	}
	if filter.To, ok = optionalDate(c, "endDate", c.Query("endDate")); !ok {
		return filter, false
	}
	filter.Status = models.PickupStatus(c.Query("status"))
	filter.WasteType = models.WasteType(c.Query("wasteType"))
	return filter, true
}

func (ctl *PickupController) GetPickups(c *gin.Context) {
	filter, ok := pickupFilter(c)
	if !ok {
		return
	}
	res, err := ctl.svc.Pickups.List(c.Request.Context(), principal(c), filter, page(c))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respondList(c, res)
}

func (ctl *PickupController) GetPickup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pickup, err := ctl.svc.Pickups.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", pickup)
}

func (ctl *PickupController) UpdatePickup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input struct {
		ScheduledDate   *string              `json:"scheduledDate"`
		TimeSlot        *models.TimeSlot     `json:"timeSlot"`
		WasteType       *models.WasteType    `json:"wasteType"`
		Notes           *string              `json:"notes" binding:"omitempty,max=500"`
		EstimatedWeight *float64             `json:"estimatedWeight" binding:"omitempty,min=0"`
		Address         *string              `json:"address"`
		Status          *models.PickupStatus `json:"status"`
		Route           *string              `json:"route"`
		Driver          *string              `json:"driver"`
		Vehicle         *models.Vehicle      `json:"vehicle"`
		ActualWeight    *float64             `json:"actualWeight" binding:"omitempty,min=0"`
		Priority        *models.Priority     `json:"priority"`
	}
	if !bindJSON(c, &input) {
		return
	}

	update := services.PickupUpdate{
		TimeSlot:        input.TimeSlot,
		WasteType:       input.WasteType,
		Notes:           input.Notes,
		EstimatedWeight: input.EstimatedWeight,
		Address:         input.Address,
		Status:          input.Status,
		Vehicle:         input.Vehicle,
		ActualWeight:    input.ActualWeight,
		Priority:        input.Priority,
	}
	if input.ScheduledDate != nil {
		if update.ScheduledDate, ok = optionalDate(c, "scheduledDate", *input.ScheduledDate); !ok {
			return
		}
	}
	if input.Route != nil {
		if update.Route, ok = optionalID(c, "route", *input.Route); !ok {
			return
		}
	}
	if input.Driver != nil {
		if update.Driver, ok = optionalID(c, "driver", *input.Driver); !ok {
			return
		}
	}

	pickup, err := ctl.svc.Pickups.Update(c.Request.Context(), principal(c), id, update)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Pickup updated successfully", pickup)
}

// CompletePickup is open to admins and the pickup's assigned driver.
func (ctl *PickupController) CompletePickup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Driver       string          `json:"driver"`
		Vehicle      *models.Vehicle `json:"vehicle"`
		ActualWeight *float64        `json:"actualWeight" binding:"omitempty,min=0"`
	}
	if c.Request.ContentLength != 0 && !bindJSON(c, &input) {
		return
	}
	driver, ok := optionalID(c, "driver", input.Driver)
	if !ok {
		return
	}

	pickup, err := ctl.svc.Pickups.Complete(c.Request.Context(), principal(c), id, models.Completion{
		Driver:       driver,
		Vehicle:      input.Vehicle,
		ActualWeight: input.ActualWeight,
	})
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Pickup marked as completed", pickup)
}

func (ctl *PickupController) CancelPickup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Reason string `json:"reason" binding:"max=500"`
	}
	if c.Request.ContentLength != 0 && !bindJSON(c, &input) {
		return
	}

	pickup, err := ctl.svc.Pickups.Cancel(c.Request.Context(), principal(c), id, input.Reason)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Pickup cancelled successfully", pickup)
}

// DeletePickup cancels active pickups and only removes terminal ones.
func (ctl *PickupController) DeletePickup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := ctl.svc.Pickups.Delete(c.Request.Context(), principal(c), id)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	if result.Cancelled != nil {
		respond(c, http.StatusOK, "Pickup cancelled successfully", result.Cancelled)
		return
	}
	respond(c, http.StatusOK, "Pickup deleted successfully", nil)
}

func (ctl *PickupController) GetPickupStats(c *gin.Context) {
	filter, ok := pickupFilter(c)
	if !ok {
		return
	}
	stats, err := ctl.svc.Pickups.Stats(c.Request.Context(), principal(c), filter)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", stats)
}
