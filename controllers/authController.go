package controllers

import (
	"net/http"

	"wastewise-be/middlewares"
	"wastewise-be/models"
	"wastewise-be/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthController struct {
	base
}

func NewAuthController(svc *services.Services, logger *zap.Logger) *AuthController {
	useJSONFieldNames()
	return &AuthController{base{svc: svc, logger: logger}}
}

// RegisterUser handles user registration
func (ctl *AuthController) RegisterUser(c *gin.Context) {
	var input struct {
		Name      string `json:"name" binding:"required,max=50"`
		Email     string `json:"email" binding:"required,email"`
		Password  string `json:"password" binding:"required,min=6"`
		Community string `json:"community"`
		Address   string `json:"address"`
		Phone     string `json:"phone"`
	}
	if !bindJSON(c, &input) {
		return
	}

	result, err := ctl.svc.Auth.Register(c.Request.Context(), services.RegisterInput{
		Name:      input.Name,
		Email:     input.Email,
		Password:  input.Password,
		Community: input.Community,
		Address:   input.Address,
		Phone:     input.Phone,
	})
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "User registered successfully", result)
}

// LoginUser handles user login
func (ctl *AuthController) LoginUser(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &input) {
		return
	}

	result, err := ctl.svc.Auth.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Login successful", result)
}

// GetMe returns the logged in user
func (ctl *AuthController) GetMe(c *gin.Context) {
	user, err := ctl.svc.Auth.Me(c.Request.Context(), principal(c))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", user)
}

func (ctl *AuthController) UpdateProfile(c *gin.Context) {
	var input struct {
		Name          *string                         `json:"name" binding:"omitempty,max=50"`
		Phone         *string                         `json:"phone"`
		Address       *string                         `json:"address"`
		Notifications *models.NotificationPreferences `json:"notificationPreferences"`
	}
	if !bindJSON(c, &input) {
		return
	}

	user, err := ctl.svc.Auth.UpdateProfile(c.Request.Context(), principal(c), services.ProfileInput{
		Name:          input.Name,
		Phone:         input.Phone,
		Address:       input.Address,
		Notifications: input.Notifications,
	})
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Profile updated successfully", user)
}

func (ctl *AuthController) ChangePassword(c *gin.Context) {
	var input struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required,min=6"`
	}
	if !bindJSON(c, &input) {
		return
	}

	if err := ctl.svc.Auth.ChangePassword(c.Request.Context(), principal(c), input.CurrentPassword, input.NewPassword); err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Password changed successfully", nil)
}

// Logout revokes the token the request was made with.
func (ctl *AuthController) Logout(c *gin.Context) {
	claims, ok := middlewares.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.NewErrorResponse("User not authenticated"))
		return
	}
	if err := ctl.svc.Auth.Logout(c.Request.Context(), claims); err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Logged out successfully", nil)
}
