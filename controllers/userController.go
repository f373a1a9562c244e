package controllers

import (
	"net/http"

	"wastewise-be/models"
	"wastewise-be/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserController struct {
	base
}

func NewUserController(svc *services.Services, logger *zap.Logger) *UserController {
	useJSONFieldNames()
	return &UserController{base{svc: svc, logger: logger}}
}

// ListUsers supports role, community, isActive and search filters.
func (ctl *UserController) ListUsers(c *gin.Context) {
	community, ok := optionalID(c, "community", c.Query("community"))
	if !ok {
		return
	}
	active, ok := optionalBool(c, "isActive", c.Query("isActive"))
	if !ok {
		return
	}
	role := models.Role(c.Query("role"))
	if role != "" && !role.Valid() {
		badRequest(c, "role", "must be user, community_admin or admin")
		return
	}

	res, err := ctl.svc.Users.List(c.Request.Context(), principal(c), services.UserQuery{
		Role:      role,
		Community: community,
		Active:    active,
		Search:    c.Query("search"),
		Page:      page(c),
	})
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respondList(c, res)
}

func (ctl *UserController) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := ctl.svc.Users.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", user)
}

func (ctl *UserController) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Name          *string                         `json:"name" binding:"omitempty,max=50"`
		Phone         *string                         `json:"phone"`
		Address       *string                         `json:"address"`
		Notifications *models.NotificationPreferences `json:"notificationPreferences"`
		Role          *models.Role                    `json:"role"`
		Community     *string                         `json:"community"`
		IsActive      *bool                           `json:"isActive"`
	}
	if !bindJSON(c, &input) {
		return
	}
	update := services.UserUpdate{
		Name:          input.Name,
		Phone:         input.Phone,
		Address:       input.Address,
		Notifications: input.Notifications,
		Role:          input.Role,
		IsActive:      input.IsActive,
	}
	if input.Community != nil {
		if update.Community, ok = optionalID(c, "community", *input.Community); !ok {
			return
		}
	}

	user, err := ctl.svc.Users.Update(c.Request.Context(), principal(c), id, update)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "User updated successfully", user)
}

// DeleteUser deactivates the account; users are never removed.
func (ctl *UserController) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := ctl.svc.Users.Deactivate(c.Request.Context(), principal(c), id)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "User deactivated successfully", user)
}

func (ctl *UserController) BulkAction(c *gin.Context) {
	var input struct {
		Action  string   `json:"action" binding:"required,oneof=activate deactivate"`
		UserIDs []string `json:"userIds" binding:"required,min=1"`
	}
	if !bindJSON(c, &input) {
		return
	}
	ids, ok := optionalIDs(c, "userIds", input.UserIDs)
	if !ok {
		return
	}

	result, err := ctl.svc.Users.BulkUpdate(c.Request.Context(), principal(c), services.BulkAction(input.Action), ids)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Bulk action completed", result)
}

func (ctl *UserController) Stats(c *gin.Context) {
	stats, err := ctl.svc.Users.Stats(c.Request.Context(), principal(c))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", stats)
}

func (ctl *UserController) ListByCommunity(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := ctl.svc.Users.ListByCommunity(c.Request.Context(), principal(c), id, page(c))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respondList(c, res)
}
