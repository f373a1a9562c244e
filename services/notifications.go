package services

import (
	"context"
	"strings"

	"wastewise-be/models"
	"wastewise-be/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type NotificationService struct {
	*base
	notifier Notifier
}

// notify stores a notification and pushes it to the user's live connections,
// unless the user turned that kind of notification off. It runs as a side
// effect of another write, so failures are only logged.
func (s *NotificationService) notify(ctx context.Context, user primitive.ObjectID, kind models.NotificationType, title, message string, data map[string]interface{}, priority models.Priority) {
	if !s.wants(ctx, user, kind) {
		return
	}
	if _, err := s.create(ctx, user, kind, title, message, data, priority); err != nil {
		s.logger.Warn("failed to create notification", zap.String("user_id", user.Hex()), zap.Error(err))
	}
}

// wants reports whether the user's preferences allow notifications of kind.
func (s *NotificationService) wants(ctx context.Context, userID primitive.ObjectID, kind models.NotificationType) bool {
	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load notification preferences", zap.String("user_id", userID.Hex()), zap.Error(err))
		return true
	}
	return user.Notifications.Allows(kind)
}

func (s *NotificationService) create(ctx context.Context, user primitive.ObjectID, kind models.NotificationType, title, message string, data map[string]interface{}, priority models.Priority) (*models.Notification, error) {
	if priority == "" {
		priority = models.PriorityMedium
	}
	n := &models.Notification{
		User:      user,
		Type:      kind,
		Title:     title,
		Message:   message,
		Data:      data,
		Priority:  priority,
		CreatedAt: s.now(),
	}
	if err := s.store.Notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.SendToUser(user.Hex(), n)
	}
	return n, nil
}

type NotificationQuery struct {
	UnreadOnly bool
	Type       models.NotificationType
	Page       store.Page
}

type NotificationList struct {
	ListResult[models.Notification]
	Unread int64
}

func (s *NotificationService) List(ctx context.Context, p models.Principal, q NotificationQuery) (*NotificationList, error) {
	filter := store.NotificationFilter{User: p.UserID, UnreadOnly: q.UnreadOnly, Type: q.Type}
	items, total, err := s.store.Notifications.List(ctx, filter, q.Page)
	if err != nil {
		return nil, err
	}
	unread, err := s.store.Notifications.CountUnread(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	return &NotificationList{ListResult: newListResult(items, q.Page, total), Unread: unread}, nil
}

type NotificationStats struct {
	Total  int64                             `json:"total"`
	Unread int64                             `json:"unread"`
	ByType map[models.NotificationType]int64 `json:"byType"`
}

func (s *NotificationService) Stats(ctx context.Context, p models.Principal) (*NotificationStats, error) {
	items, total, err := s.store.Notifications.List(ctx, store.NotificationFilter{User: p.UserID}, store.Page{Page: 1})
	if err != nil {
		return nil, err
	}
	stats := &NotificationStats{Total: total, ByType: map[models.NotificationType]int64{}}
	for _, n := range items {
		stats.ByType[n.Type]++
		if !n.IsRead {
			stats.Unread++
		}
	}
	return stats, nil
}

func (s *NotificationService) own(ctx context.Context, p models.Principal, id primitive.ObjectID) (*models.Notification, error) {
	n, err := s.store.Notifications.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Notification")
	}
	if n.User != p.UserID {
		return nil, models.NewNotFoundError("Notification")
	}
	return n, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, p models.Principal, id primitive.ObjectID) (*models.Notification, error) {
	n, err := s.own(ctx, p, id)
	if err != nil {
		return nil, err
	}
	read := n.MarkRead(s.now())
	if err := s.store.Notifications.Update(ctx, &read); err != nil {
		return nil, notFound(err, "Notification")
	}
	return &read, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, p models.Principal) (int64, error) {
	return s.store.Notifications.MarkAllRead(ctx, p.UserID, s.now())
}

func (s *NotificationService) Delete(ctx context.Context, p models.Principal, id primitive.ObjectID) error {
	if _, err := s.own(ctx, p, id); err != nil {
		return err
	}
	return notFound(s.store.Notifications.Delete(ctx, id), "Notification")
}

type BroadcastTarget string

const (
	TargetUser      BroadcastTarget = "user"
	TargetCommunity BroadcastTarget = "community"
	TargetAll       BroadcastTarget = "all"
)

type BroadcastInput struct {
	Target    BroadcastTarget
	User      *primitive.ObjectID
	Community *primitive.ObjectID
	Type      models.NotificationType
	Title     string
	Message   string
	Priority  models.Priority
}

// Broadcast sends an admin notification to one user, the active members of a
// community, or every active user. It returns the number of recipients.
func (s *NotificationService) Broadcast(ctx context.Context, p models.Principal, in BroadcastInput) (int, error) {
	if err := requireAdmin(p); err != nil {
		return 0, err
	}
	if in.Type == "" {
		in.Type = models.NotificationAnnouncement
	}
	var fields []models.FieldError
	if !in.Type.Valid() {
		fields = append(fields, models.FieldError{Field: "type", Message: "must be pickup, issue, system or announcement"})
	}
	if strings.TrimSpace(in.Title) == "" {
		fields = append(fields, models.FieldError{Field: "title", Message: "is required"})
	}
	if strings.TrimSpace(in.Message) == "" {
		fields = append(fields, models.FieldError{Field: "message", Message: "is required"})
	}
	if in.Priority != "" && !in.Priority.Valid() {
		fields = append(fields, models.FieldError{Field: "priority", Message: "must be low, medium, high or urgent"})
	}
	if len(fields) > 0 {
		return 0, models.NewValidationError("Validation failed", fields...)
	}

	recipients, err := s.recipients(ctx, in)
	if err != nil {
		return 0, err
	}
	for _, user := range recipients {
		if _, err := s.create(ctx, user, in.Type, strings.TrimSpace(in.Title), strings.TrimSpace(in.Message), nil, in.Priority); err != nil {
			return 0, err
		}
	}
	return len(recipients), nil
}

func (s *NotificationService) recipients(ctx context.Context, in BroadcastInput) ([]primitive.ObjectID, error) {
	active := true
	filter := store.UserFilter{Active: &active}
	switch in.Target {
	case TargetUser:
		if in.User == nil {
			return nil, models.NewValidationError("Recipient is required", models.FieldError{Field: "userId", Message: "is required"})
		}
		user, err := s.store.Users.FindByID(ctx, *in.User)
		if err != nil {
			return nil, notFound(err, "User")
		}
		return []primitive.ObjectID{user.ID}, nil
	case TargetCommunity:
		if in.Community == nil {
			return nil, models.NewValidationError("Community is required", models.FieldError{Field: "communityId", Message: "is required"})
		}
		filter.Community = in.Community
	case TargetAll, "":
	default:
		return nil, models.NewValidationError("Invalid target", models.FieldError{Field: "target", Message: "must be user, community or all"})
	}

	users, _, err := s.store.Users.List(ctx, filter, store.Page{Page: 1})
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids, nil
}
