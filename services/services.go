// Package services implements the business operations behind the REST API.
// Every operation receives the calling principal and derives its data scope
// from the principal's role before touching the store.
package services

import (
	"context"
	"errors"
	"time"

	"wastewise-be/cache"
	"wastewise-be/events"
	"wastewise-be/models"
	"wastewise-be/store"
	"wastewise-be/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Notifier pushes a payload to a user's live connections.
type Notifier interface {
	SendToUser(userID string, payload interface{})
}

type Deps struct {
	Store     *store.Store
	Cache     cache.Cache
	Publisher events.Publisher
	Notifier  Notifier
	Tokens    *utils.TokenManager
	Logger    *zap.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Services bundles every service sharing one set of dependencies.
type Services struct {
	Auth          *AuthService
	Users         *UserService
	Communities   *CommunityService
	Routes        *RouteService
	Pickups       *PickupService
	Issues        *IssueService
	Notifications *NotificationService
	Stats         *StatsService
	Analytics     *AnalyticsService
	Settings      *SettingsService
}

func New(deps Deps) *Services {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.Nop{}
	}
	b := &base{
		store:     deps.Store,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		now:       deps.Clock,
	}

	stats := &StatsService{base: b}
	notifications := &NotificationService{base: b, notifier: deps.Notifier}
	return &Services{
		Auth:          &AuthService{base: b, tokens: deps.Tokens, cache: deps.Cache, stats: stats},
		Users:         &UserService{base: b, stats: stats},
		Communities:   &CommunityService{base: b, stats: stats},
		Routes:        &RouteService{base: b},
		Pickups:       &PickupService{base: b, stats: stats, notifications: notifications},
		Issues:        &IssueService{base: b, stats: stats, notifications: notifications},
		Notifications: notifications,
		Stats:         stats,
		Analytics:     &AnalyticsService{base: b},
		Settings:      &SettingsService{base: b, started: deps.Clock()},
	}
}

// base carries what every service needs.
type base struct {
	store     *store.Store
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// publish sends a domain event. Failures are logged and never reach the caller.
func (b *base) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	event := events.Event{Type: eventType, OccurredAt: b.now(), Data: data}
	if err := b.publisher.Publish(ctx, event); err != nil {
		b.logger.Warn("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

// notFound turns store.ErrNotFound into a NotFound AppError for what.
func notFound(err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return models.NewNotFoundError(what)
	}
	return err
}

func duplicate(err error, message string) error {
	if errors.Is(err, store.ErrDuplicate) {
		return models.NewDuplicateError(message)
	}
	return err
}

// ListResult is one page of items plus the pagination envelope.
type ListResult[T any] struct {
	Items      []T
	Pagination *models.Pagination
}

func newListResult[T any](items []T, page store.Page, total int64) ListResult[T] {
	return ListResult[T]{Items: items, Pagination: models.NewPagination(page.Page, page.Limit, total)}
}

func forbidden() error {
	return models.NewForbiddenError("Access denied")
}

func requireAdmin(p models.Principal) error {
	if !p.IsAdmin() {
		return models.NewForbiddenError("Admin access required")
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

func idPtr(id primitive.ObjectID) *primitive.ObjectID { return &id }

// startOfDay truncates t to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
