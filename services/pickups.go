package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wastewise-be/models"
	"wastewise-be/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type PickupService struct {
	*base
	stats         *StatsService
	notifications *NotificationService
}

type PickupInput struct {
	ScheduledDate   time.Time
	TimeSlot        models.TimeSlot
	WasteType       models.WasteType
	Address         string
	Notes           string
	EstimatedWeight float64
	Priority        models.Priority
	// User and Community let admins book on behalf of someone else.
	User      *primitive.ObjectID
	Community *primitive.ObjectID
}

// Create books a pickup for the caller, or for in.User when the caller is an
// admin. A matching route is attached when one exists.
func (s *PickupService) Create(ctx context.Context, p models.Principal, in PickupInput) (*models.Pickup, error) {
	now := s.now()
	owner, community, err := s.resolveOwner(ctx, p, in)
	if err != nil {
		return nil, err
	}

	settings, err := s.store.Settings.GetSystem(ctx)
	if err != nil {
		return nil, err
	}
	if settings.MaintenanceMode && !p.IsAdmin() {
		return nil, models.NewConflictError("Pickup scheduling is paused for maintenance")
	}

	pickup, err := models.NewPickup(owner, community, in.ScheduledDate, in.TimeSlot, in.WasteType, strings.TrimSpace(in.Address), now)
	if err != nil {
		return nil, err
	}
	if !settings.Accepts(pickup.WasteType) {
		return nil, models.NewValidationError("Waste type is not currently offered",
			models.FieldError{Field: "wasteType", Message: string(pickup.WasteType) + " pickups are disabled"})
	}
	if err := s.checkDailyLimit(ctx, owner, pickup.ScheduledDate, settings.MaxPickupsPerDay); err != nil {
		return nil, err
	}
	pickup.Notes = strings.TrimSpace(in.Notes)
	if in.EstimatedWeight < 0 {
		return nil, models.NewValidationError("Estimated weight cannot be negative", models.FieldError{Field: "estimatedWeight", Message: "must be >= 0"})
	}
	pickup.EstimatedWeight = in.EstimatedWeight
	if in.Priority != "" {
		if !in.Priority.Valid() {
			return nil, models.NewValidationError("Invalid priority", models.FieldError{Field: "priority", Message: "must be low, medium, high or urgent"})
		}
		pickup.Priority = in.Priority
	}

	route, err := s.store.Routes.FindAvailable(ctx, pickup.ScheduledDate, pickup.WasteType, community)
	switch {
	case err == nil:
		pickup.Route = idPtr(route.ID)
	case !errors.Is(err, store.ErrNotFound):
		s.logger.Warn("route lookup failed, scheduling without route", zap.Error(err))
	}

	if err := s.store.Pickups.Create(ctx, &pickup); err != nil {
		return nil, err
	}
	if pickup.Route != nil {
		s.recordRoute(ctx, *pickup.Route, false)
	}
	s.stats.afterMutation(ctx, &pickup.Community)
	s.publish(ctx, "pickup.scheduled", pickupEventData(pickup))
	return &pickup, nil
}

func (s *PickupService) resolveOwner(ctx context.Context, p models.Principal, in PickupInput) (primitive.ObjectID, primitive.ObjectID, error) {
	if !p.IsAdmin() || in.User == nil {
		if p.IsAdmin() && in.Community != nil {
			return p.UserID, *in.Community, nil
		}
		if p.Community == nil {
			return primitive.NilObjectID, primitive.NilObjectID, models.NewValidationError("You must belong to a community to schedule pickups",
				models.FieldError{Field: "community", Message: "is required"})
		}
		return p.UserID, *p.Community, nil
	}

	user, err := s.store.Users.FindByID(ctx, *in.User)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, notFound(err, "User")
	}
	switch {
	case in.Community != nil:
		return user.ID, *in.Community, nil
	case user.Community != nil:
		return user.ID, *user.Community, nil
	}
	return primitive.NilObjectID, primitive.NilObjectID, models.NewValidationError("Community is required",
		models.FieldError{Field: "community", Message: "is required"})
}

// checkDailyLimit counts the user's non-cancelled pickups on the same day.
func (s *PickupService) checkDailyLimit(ctx context.Context, user primitive.ObjectID, date time.Time, limit int) error {
	if limit <= 0 {
		return nil
	}
	from := startOfDay(date)
	to := from.Add(24*time.Hour - time.Nanosecond)
	filter := store.PickupFilter{User: &user, From: &from, To: &to}
	total, err := s.store.Pickups.Count(ctx, filter)
	if err != nil {
		return err
	}
	filter.Status = models.PickupCancelled
	cancelled, err := s.store.Pickups.Count(ctx, filter)
	if err != nil {
		return err
	}
	if total-cancelled >= int64(limit) {
		return models.NewConflictError(fmt.Sprintf("You can schedule at most %d pickups per day", limit))
	}
	return nil
}

// scope restricts a listing to what the principal may see.
func (s *PickupService) scope(p models.Principal, filter store.PickupFilter) (store.PickupFilter, error) {
	switch p.Role {
	case models.RoleAdmin:
		return filter, nil
	case models.RoleCommunityAdmin:
		if p.Community == nil {
			return filter, forbidden()
		}
		filter.Community = p.Community
		return filter, nil
	default:
		filter.User = idPtr(p.UserID)
		filter.Community = nil
		return filter, nil
	}
}

func (s *PickupService) List(ctx context.Context, p models.Principal, filter store.PickupFilter, page store.Page) (ListResult[models.Pickup], error) {
	filter, err := s.scope(p, filter)
	if err != nil {
		return ListResult[models.Pickup]{}, err
	}
	items, total, err := s.store.Pickups.List(ctx, filter, page)
	if err != nil {
		return ListResult[models.Pickup]{}, err
	}
	return newListResult(items, page, total), nil
}

func canSeePickup(p models.Principal, pickup *models.Pickup) bool {
	if p.IsAdmin() || pickup.User == p.UserID || pickup.IsAssignedDriver(p.UserID) {
		return true
	}
	return p.Role == models.RoleCommunityAdmin && p.ManagesCommunity(pickup.Community)
}

func (s *PickupService) load(ctx context.Context, id primitive.ObjectID) (*models.Pickup, error) {
	pickup, err := s.store.Pickups.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Pickup")
	}
	return pickup, nil
}

func (s *PickupService) Get(ctx context.Context, p models.Principal, id primitive.ObjectID) (*models.Pickup, error) {
	pickup, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSeePickup(p, pickup) {
		return nil, forbidden()
	}
	return pickup, nil
}

// PickupUpdate lists every writable pickup field. Owners may change the
// booking details; the operational fields below them are admin-only and
// silently ignored for everyone else.
type PickupUpdate struct {
	ScheduledDate   *time.Time
	TimeSlot        *models.TimeSlot
	WasteType       *models.WasteType
	Notes           *string
	EstimatedWeight *float64
	Address         *string

	Status       *models.PickupStatus
	Route        *primitive.ObjectID
	Driver       *primitive.ObjectID
	Vehicle      *models.Vehicle
	ActualWeight *float64
	Priority     *models.Priority
}

func (s *PickupService) Update(ctx context.Context, p models.Principal, id primitive.ObjectID, in PickupUpdate) (*models.Pickup, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() {
		if current.User != p.UserID {
			return nil, forbidden()
		}
		if current.Status != models.PickupScheduled {
			return nil, models.NewConflictError("Only scheduled pickups can be modified")
		}
	}

	now := s.now()
	next := *current
	if in.ScheduledDate != nil {
		if next, err = next.Reschedule(*in.ScheduledDate, now); err != nil {
			return nil, err
		}
	}
	if in.TimeSlot != nil {
		if !in.TimeSlot.Valid() {
			return nil, models.NewValidationError("Invalid time slot", models.FieldError{Field: "timeSlot", Message: "must be morning, afternoon or evening"})
		}
		next.TimeSlot = *in.TimeSlot
	}
	if in.WasteType != nil {
		if !in.WasteType.Valid() {
			return nil, models.NewValidationError("Invalid waste type", models.FieldError{Field: "wasteType", Message: "unsupported waste type"})
		}
		next.WasteType = *in.WasteType
	}
	if in.Notes != nil {
		next.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.EstimatedWeight != nil {
		if *in.EstimatedWeight < 0 {
			return nil, models.NewValidationError("Estimated weight cannot be negative", models.FieldError{Field: "estimatedWeight", Message: "must be >= 0"})
		}
		next.EstimatedWeight = *in.EstimatedWeight
	}
	if in.Address != nil {
		next.Address = strings.TrimSpace(*in.Address)
	}

	if p.IsAdmin() {
		if in.Route != nil {
			if _, err := s.store.Routes.FindByID(ctx, *in.Route); err != nil {
				return nil, notFound(err, "Route")
			}
			next.Route = in.Route
		}
		if in.Driver != nil {
			next.Driver = in.Driver
		}
		if in.Vehicle != nil {
			next.Vehicle = in.Vehicle
		}
		if in.ActualWeight != nil {
			if *in.ActualWeight < 0 {
				return nil, models.NewValidationError("Actual weight cannot be negative", models.FieldError{Field: "actualWeight", Message: "must be >= 0"})
			}
			next.ActualWeight = *in.ActualWeight
		}
		if in.Priority != nil {
			if !in.Priority.Valid() {
				return nil, models.NewValidationError("Invalid priority", models.FieldError{Field: "priority", Message: "must be low, medium, high or urgent"})
			}
			next.Priority = *in.Priority
		}
		if in.Status != nil {
			if next, err = next.WithStatus(*in.Status, now); err != nil {
				return nil, err
			}
		}
	}
	next.UpdatedAt = now

	if err := s.store.Pickups.Update(ctx, &next); err != nil {
		return nil, notFound(err, "Pickup")
	}
	s.afterStatusChange(ctx, current, &next)
	return &next, nil
}

// Complete is reserved for admins and the pickup's assigned driver.
func (s *PickupService) Complete(ctx context.Context, p models.Principal, id primitive.ObjectID, details models.Completion) (*models.Pickup, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && !current.IsAssignedDriver(p.UserID) {
		return nil, models.NewForbiddenError("Only admins or the assigned driver can complete a pickup")
	}
	next, err := current.Complete(details, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Pickups.Update(ctx, &next); err != nil {
		return nil, notFound(err, "Pickup")
	}
	s.afterStatusChange(ctx, current, &next)
	return &next, nil
}

// Cancel is open to the owner and admins. The route stays attached.
func (s *PickupService) Cancel(ctx context.Context, p models.Principal, id primitive.ObjectID, reason string) (*models.Pickup, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && current.User != p.UserID {
		return nil, forbidden()
	}
	next, err := current.Cancel(strings.TrimSpace(reason), s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Pickups.Update(ctx, &next); err != nil {
		return nil, notFound(err, "Pickup")
	}
	s.afterStatusChange(ctx, current, &next)
	return &next, nil
}

// DeleteResult tells whether a delete request removed the pickup or only
// cancelled it.
type DeleteResult struct {
	Deleted   bool
	Cancelled *models.Pickup
}

// Delete cancels pickups that are still active. Only admins may remove a
// pickup that already reached a terminal state.
func (s *PickupService) Delete(ctx context.Context, p models.Principal, id primitive.ObjectID) (*DeleteResult, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status.Active() {
		cancelled, err := s.Cancel(ctx, p, id, "Cancelled by user")
		if err != nil {
			return nil, err
		}
		return &DeleteResult{Cancelled: cancelled}, nil
	}
	if !p.IsAdmin() {
		if current.User == p.UserID {
			return nil, models.NewForbiddenError("Only admins can delete completed, cancelled or missed pickups")
		}
		return nil, forbidden()
	}
	if err := s.store.Pickups.Delete(ctx, id); err != nil {
		return nil, notFound(err, "Pickup")
	}
	s.stats.afterMutation(ctx, &current.Community)
	s.publish(ctx, "pickup.deleted", pickupEventData(*current))
	return &DeleteResult{Deleted: true}, nil
}

// afterStatusChange notifies the owner, publishes the event and refreshes
// the read models when the status moved.
func (s *PickupService) afterStatusChange(ctx context.Context, before, after *models.Pickup) {
	if before.Status == after.Status {
		return
	}
	if after.Status == models.PickupCompleted && after.Route != nil {
		s.recordRoute(ctx, *after.Route, true)
	}
	s.stats.afterMutation(ctx, &after.Community)
	s.publish(ctx, "pickup."+string(after.Status), pickupEventData(*after))
	s.notifications.notify(ctx, after.User, models.NotificationPickup,
		"Pickup "+humanize(string(after.Status)),
		fmt.Sprintf("Your %s pickup on %s is now %s.", after.WasteType, after.ScheduledDate.Format("2006-01-02"), humanize(string(after.Status))),
		map[string]interface{}{"pickupId": after.ID.Hex(), "status": after.Status},
		models.PriorityMedium,
	)
}

func (s *PickupService) recordRoute(ctx context.Context, route primitive.ObjectID, completed bool) {
	routes := &RouteService{base: s.base}
	if err := routes.recordPickup(ctx, route, completed); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("failed to update route metrics", zap.String("route_id", route.Hex()), zap.Error(err))
	}
}

type PickupStats struct {
	models.PickupSummary
	CompletionRate float64 `json:"completionRate"`
	RecyclingRate  float64 `json:"recyclingRate"`
}

// Stats summarizes the pickups the caller can see.
func (s *PickupService) Stats(ctx context.Context, p models.Principal, filter store.PickupFilter) (*PickupStats, error) {
	filter, err := s.scope(p, filter)
	if err != nil {
		return nil, err
	}
	summary, err := s.store.Pickups.Summary(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &PickupStats{
		PickupSummary:  summary,
		CompletionRate: summary.CompletionRate(),
		RecyclingRate:  summary.RecyclingRate(),
	}, nil
}

func pickupEventData(p models.Pickup) map[string]interface{} {
	return map[string]interface{}{
		"pickupId":      p.ID.Hex(),
		"userId":        p.User.Hex(),
		"communityId":   p.Community.Hex(),
		"status":        p.Status,
		"wasteType":     p.WasteType,
		"scheduledDate": p.ScheduledDate,
	}
}

func humanize(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
