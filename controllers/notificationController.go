package controllers

import (
	"net/http"

	"wastewise-be/models"
	"wastewise-be/realtime"
	"wastewise-be/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type NotificationController struct {
	base
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

// NewNotificationController accepts websocket connections from the given
// origins, or from any origin when none are listed.
func NewNotificationController(svc *services.Services, hub *realtime.Hub, origins []string, logger *zap.Logger) *NotificationController {
	useJSONFieldNames()
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &NotificationController{
		base: base{svc: svc, logger: logger},
		hub:  hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
			},
		},
	}
}

type notificationList struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unreadCount"`
}

func (ctl *NotificationController) GetNotifications(c *gin.Context) {
	unreadOnly, ok := optionalBool(c, "unreadOnly", c.Query("unreadOnly"))
	if !ok {
		return
	}
	q := services.NotificationQuery{
		UnreadOnly: unreadOnly != nil && *unreadOnly,
		Type:       models.NotificationType(c.Query("type")),
		Page:       page(c),
	}
	list, err := ctl.svc.Notifications.List(c.Request.Context(), principal(c), q)
	if err != nil {
		ctl.respondError(c, err)
		return
	}

	items := list.Items
	if items == nil {
		items = []models.Notification{}
	}
	resp := models.NewSuccessResponse("", notificationList{Notifications: items, UnreadCount: list.Unread})
	resp.Pagination = list.Pagination
	c.JSON(http.StatusOK, resp)
}

func (ctl *NotificationController) GetStats(c *gin.Context) {
	stats, err := ctl.svc.Notifications.Stats(c.Request.Context(), principal(c))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", stats)
}

func (ctl *NotificationController) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	n, err := ctl.svc.Notifications.MarkRead(c.Request.Context(), principal(c), id)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Notification marked as read", n)
}

func (ctl *NotificationController) MarkAllRead(c *gin.Context) {
	modified, err := ctl.svc.Notifications.MarkAllRead(c.Request.Context(), principal(c))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "All notifications marked as read", gin.H{"modified": modified})
}

func (ctl *NotificationController) DeleteNotification(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := ctl.svc.Notifications.Delete(c.Request.Context(), principal(c), id); err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Notification deleted successfully", nil)
}

// Broadcast sends an admin notification to one user, a community or everyone.
func (ctl *NotificationController) Broadcast(c *gin.Context) {
	var input struct {
		Target    string                  `json:"target" binding:"required,oneof=user community all"`
		UserID    string                  `json:"userId"`
		Community string                  `json:"communityId"`
		Type      models.NotificationType `json:"type"`
		Title     string                  `json:"title" binding:"required,max=100"`
		Message   string                  `json:"message" binding:"required,max=1000"`
		Priority  models.Priority         `json:"priority"`
	}
	if !bindJSON(c, &input) {
		return
	}
	user, ok := optionalID(c, "userId", input.UserID)
	if !ok {
		return
	}
	community, ok := optionalID(c, "communityId", input.Community)
	if !ok {
		return
	}

	sent, err := ctl.svc.Notifications.Broadcast(c.Request.Context(), principal(c), services.BroadcastInput{
		Target:    services.BroadcastTarget(input.Target),
		User:      user,
		Community: community,
		Type:      input.Type,
		Title:     input.Title,
		Message:   input.Message,
		Priority:  input.Priority,
	})
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Notification sent", gin.H{"recipients": sent})
}

// Stream upgrades the request to a websocket that receives the caller's new
// notifications as they are created.
func (ctl *NotificationController) Stream(c *gin.Context) {
	p := principal(c)
	conn, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already answered the client.
		ctl.logger.Debug("websocket upgrade failed", zap.String("user_id", p.UserID.Hex()), zap.Error(err))
		return
	}
	ctl.hub.Register(uuid.NewString(), p.UserID.Hex(), conn)
}
