package controllers

import (
	"net/http"

	"wastewise-be/models"
	"wastewise-be/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SettingsController struct {
	base
}

func NewSettingsController(svc *services.Services, logger *zap.Logger) *SettingsController {
	useJSONFieldNames()
	return &SettingsController{base{svc: svc, logger: logger}}
}

func (ctl *SettingsController) GetUserSettings(c *gin.Context) {
	prefs, err := ctl.svc.Settings.UserPreferences(c.Request.Context(), principal(c))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"notificationPreferences": prefs})
}

func (ctl *SettingsController) UpdateUserSettings(c *gin.Context) {
	var input struct {
		Notifications *models.NotificationPreferences `json:"notificationPreferences" binding:"required"`
	}
	if !bindJSON(c, &input) {
		return
	}
	prefs, err := ctl.svc.Settings.UpdateUserPreferences(c.Request.Context(), principal(c), *input.Notifications)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Settings updated successfully", gin.H{"notificationPreferences": prefs})
}

func (ctl *SettingsController) GetSystemSettings(c *gin.Context) {
	settings, err := ctl.svc.Settings.System(c.Request.Context(), principal(c))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", settings)
}

func (ctl *SettingsController) UpdateSystemSettings(c *gin.Context) {
	var input struct {
		PickupCutoffHours  *int               `json:"pickupCutoffHours" binding:"omitempty,min=0"`
		MaxPickupsPerDay   *int               `json:"maxPickupsPerDay" binding:"omitempty,min=0"`
		IssueAutoCloseDays *int               `json:"issueAutoCloseDays" binding:"omitempty,min=0"`
		MaintenanceMode    *bool              `json:"maintenanceMode"`
		WasteTypes         []models.WasteType `json:"wasteTypes"`
	}
	if !bindJSON(c, &input) {
		return
	}

	settings, err := ctl.svc.Settings.UpdateSystem(c.Request.Context(), principal(c), services.SystemSettingsUpdate{
		PickupCutoffHours:  input.PickupCutoffHours,
		MaxPickupsPerDay:   input.MaxPickupsPerDay,
		IssueAutoCloseDays: input.IssueAutoCloseDays,
		MaintenanceMode:    input.MaintenanceMode,
		WasteTypes:         input.WasteTypes,
	})
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "System settings updated successfully", settings)
}

func (ctl *SettingsController) GetCommunitySettings(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	schedule, err := ctl.svc.Settings.CommunitySchedule(c.Request.Context(), principal(c), id)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", schedule)
}

func (ctl *SettingsController) UpdateCommunitySettings(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Schedule map[models.WasteType]models.CollectionDay `json:"schedule" binding:"required"`
	}
	if !bindJSON(c, &input) {
		return
	}

	schedule, err := ctl.svc.Settings.UpdateCommunitySchedule(c.Request.Context(), principal(c), id, input.Schedule)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Community settings updated successfully", schedule)
}

func (ctl *SettingsController) GetAppInfo(c *gin.Context) {
	info, err := ctl.svc.Settings.AppInfo(c.Request.Context())
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", info)
}
