// Package store persists the domain entities. Mongo is the production
// backend; Memory backs demo mode and tests.
package store

import (
	"context"
	"errors"
	"time"

	"wastewise-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

// Page selects one offset-based page of results.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Skip() int64 {
	if p.Page < 1 {
		return 0
	}
	return int64((p.Page - 1) * p.Limit)
}

// Bounds returns the [start, end) slice bounds of the page within n items.
func (p Page) Bounds(n int) (int, int) {
	start := int(p.Skip())
	if start > n {
		start = n
	}
	if p.Limit <= 0 {
		return start, n
	}
	end := start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}

type UserFilter struct {
	Role      models.Role
	Community *primitive.ObjectID
	Active    *bool
	Search    string
}

type CommunityFilter struct {
	Status models.CommunityStatus
	Search string
}

type RouteFilter struct {
	Status    models.RouteStatus
	Community *primitive.ObjectID
	Driver    *primitive.ObjectID
}

type PickupFilter struct {
	User      *primitive.ObjectID
	Community *primitive.ObjectID
	Status    models.PickupStatus
	WasteType models.WasteType
	From      *time.Time
	To        *time.Time
}

type IssueFilter struct {
	Reporter   *primitive.ObjectID
	Community  *primitive.ObjectID
	AssignedTo *primitive.ObjectID
	Status     models.IssueStatus
	Type       models.IssueType
	Priority   models.Priority
	Search     string
}

type NotificationFilter struct {
	User       primitive.ObjectID
	UnreadOnly bool
	Type       models.NotificationType
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, filter UserFilter, page Page) ([]models.User, int64, error)
	CountByCommunity(ctx context.Context, community primitive.ObjectID) (models.UserCounts, error)
	CountByRole(ctx context.Context) (map[models.Role]int64, error)
}

type CommunityRepository interface {
	Create(ctx context.Context, community *models.Community) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Community, error)
	FindByName(ctx context.Context, name string) (*models.Community, error)
	Update(ctx context.Context, community *models.Community) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, filter CommunityFilter, page Page) ([]models.Community, int64, error)
}

type RouteRepository interface {
	Create(ctx context.Context, route *models.Route) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Route, error)
	Update(ctx context.Context, route *models.Route) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, filter RouteFilter, page Page) ([]models.Route, int64, error)
	// FindAvailable returns the first active route serving the community for
	// the waste type on the weekday of date, or ErrNotFound.
	FindAvailable(ctx context.Context, date time.Time, waste models.WasteType, community primitive.ObjectID) (*models.Route, error)
}

type PickupRepository interface {
	Create(ctx context.Context, pickup *models.Pickup) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Pickup, error)
	Update(ctx context.Context, pickup *models.Pickup) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, filter PickupFilter, page Page) ([]models.Pickup, int64, error)
	Count(ctx context.Context, filter PickupFilter) (int64, error)
	Summary(ctx context.Context, filter PickupFilter) (models.PickupSummary, error)
	Trends(ctx context.Context, filter PickupFilter) ([]models.TrendPoint, error)
}

type IssueRepository interface {
	Create(ctx context.Context, issue *models.Issue) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	Update(ctx context.Context, issue *models.Issue) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, filter IssueFilter, page Page) ([]models.Issue, int64, error)
	Summary(ctx context.Context, filter IssueFilter) (models.IssueSummary, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error)
	Update(ctx context.Context, n *models.Notification) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, filter NotificationFilter, page Page) ([]models.Notification, int64, error)
	MarkAllRead(ctx context.Context, user primitive.ObjectID, at time.Time) (int64, error)
	CountUnread(ctx context.Context, user primitive.ObjectID) (int64, error)
}

type SettingsRepository interface {
	// GetSystem returns the stored settings, or the defaults when none are stored.
	GetSystem(ctx context.Context) (*models.SystemSettings, error)
	SaveSystem(ctx context.Context, settings *models.SystemSettings) error
}

// Sequencer hands out atomically increasing numbers per key, starting at 1.
type Sequencer interface {
	Next(ctx context.Context, key string) (int64, error)
}

// Store bundles the repositories one backend provides.
type Store struct {
	Users         UserRepository
	Communities   CommunityRepository
	Routes        RouteRepository
	Pickups       PickupRepository
	Issues        IssueRepository
	Notifications NotificationRepository
	Settings      SettingsRepository
	Sequences     Sequencer
	// Ping checks backend health; nil for backends that are always up.
	Ping func(ctx context.Context) error
	// Backend names the storage engine for health reporting.
	Backend string
}
