package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationPickup       NotificationType = "pickup"
	NotificationIssue        NotificationType = "issue"
	NotificationSystem       NotificationType = "system"
	NotificationAnnouncement NotificationType = "announcement"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationPickup, NotificationIssue, NotificationSystem, NotificationAnnouncement:
		return true
	}
	return false
}

type Notification struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	User      primitive.ObjectID     `bson:"user" json:"user"`
	Type      NotificationType       `bson:"type" json:"type"`
	Title     string                 `bson:"title" json:"title"`
	Message   string                 `bson:"message" json:"message"`
	Data      map[string]interface{} `bson:"data,omitempty" json:"data,omitempty"`
	Priority  Priority               `bson:"priority" json:"priority"`
	IsRead    bool                   `bson:"isRead" json:"isRead"`
	ReadAt    *time.Time             `bson:"readAt,omitempty" json:"readAt,omitempty"`
	CreatedAt time.Time              `bson:"createdAt" json:"createdAt"`
}

// MarkRead returns n flagged as read. Reading twice keeps the first readAt.
func (n Notification) MarkRead(now time.Time) Notification {
	if n.IsRead {
		return n
	}
	stamp := now
	n.IsRead = true
	n.ReadAt = &stamp
	return n
}
