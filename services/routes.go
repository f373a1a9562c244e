package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"wastewise-be/models"
	"wastewise-be/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RouteService struct {
	*base
}

type RouteInput struct {
	Name        *string
	Description *string
	Communities []primitive.ObjectID
	Driver      *primitive.ObjectID
	Vehicle     *models.Vehicle
	Schedule    *models.RouteSchedule
	WasteTypes  []models.WasteType
	Waypoints   []models.Waypoint
	Status      *models.RouteStatus
}

// List shows every route to admins and the routes serving their own
// community to community admins.
func (s *RouteService) List(ctx context.Context, p models.Principal, filter store.RouteFilter, page store.Page) (ListResult[models.Route], error) {
	switch p.Role {
	case models.RoleAdmin:
	case models.RoleCommunityAdmin:
		if p.Community == nil {
			return ListResult[models.Route]{}, forbidden()
		}
		filter.Community = p.Community
	default:
		return ListResult[models.Route]{}, forbidden()
	}
	items, total, err := s.store.Routes.List(ctx, filter, page)
	if err != nil {
		return ListResult[models.Route]{}, err
	}
	return newListResult(items, page, total), nil
}

// Available finds the route that would serve a pickup. Non-admins always
// look within their own community.
func (s *RouteService) Available(ctx context.Context, p models.Principal, date time.Time, waste models.WasteType, community *primitive.ObjectID) (*models.Route, error) {
	if !waste.Valid() {
		return nil, models.NewValidationError("Invalid waste type", models.FieldError{Field: "wasteType", Message: "unsupported waste type"})
	}
	if !p.IsAdmin() || community == nil {
		community = p.Community
	}
	if community == nil {
		return nil, models.NewValidationError("Community is required", models.FieldError{Field: "community", Message: "is required"})
	}
	route, err := s.store.Routes.FindAvailable(ctx, date, waste, *community)
	if err != nil {
		return nil, notFound(err, "Available route")
	}
	return route, nil
}

func (s *RouteService) Get(ctx context.Context, p models.Principal, id primitive.ObjectID) (*models.Route, error) {
	route, err := s.store.Routes.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Route")
	}
	if p.IsAdmin() || sameID(route.Driver, &p.UserID) {
		return route, nil
	}
	for _, c := range route.Communities {
		if sameID(p.Community, &c) {
			return route, nil
		}
	}
	return nil, forbidden()
}

func (s *RouteService) Create(ctx context.Context, p models.Principal, in RouteInput) (*models.Route, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	now := s.now()
	route := &models.Route{
		Status:    models.RouteActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.apply(ctx, route, in); err != nil {
		return nil, err
	}
	if err := s.store.Routes.Create(ctx, route); err != nil {
		return nil, err
	}
	return route, nil
}

func (s *RouteService) Update(ctx context.Context, p models.Principal, id primitive.ObjectID, in RouteInput) (*models.Route, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	route, err := s.store.Routes.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Route")
	}
	if err := s.apply(ctx, route, in); err != nil {
		return nil, err
	}
	route.UpdatedAt = s.now()
	if err := s.store.Routes.Update(ctx, route); err != nil {
		return nil, notFound(err, "Route")
	}
	return route, nil
}

func (s *RouteService) apply(ctx context.Context, r *models.Route, in RouteInput) error {
	if in.Name != nil {
		r.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		r.Description = strings.TrimSpace(*in.Description)
	}
	if in.Communities != nil {
		for _, id := range in.Communities {
			if _, err := s.store.Communities.FindByID(ctx, id); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return models.NewValidationError("Unknown community", models.FieldError{Field: "communities", Message: "community " + id.Hex() + " does not exist"})
				}
				return err
			}
		}
		r.Communities = in.Communities
	}
	if in.Driver != nil {
		r.Driver = in.Driver
	}
	if in.Vehicle != nil {
		r.Vehicle = *in.Vehicle
	}
	if in.Schedule != nil {
		r.Schedule = *in.Schedule
	}
	if in.WasteTypes != nil {
		r.WasteTypes = in.WasteTypes
	}
	if in.Waypoints != nil {
		r.Waypoints = in.Waypoints
	}
	if in.Status != nil {
		r.Status = *in.Status
	}
	return r.Validate()
}

func (s *RouteService) Delete(ctx context.Context, p models.Principal, id primitive.ObjectID) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	return notFound(s.store.Routes.Delete(ctx, id), "Route")
}

// recordPickup updates the route's rolling metrics after one of its pickups
// was scheduled or completed.
func (s *RouteService) recordPickup(ctx context.Context, id primitive.ObjectID, completed bool) error {
	route, err := s.store.Routes.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if completed {
		route.Metrics.CompletedPickups++
	} else {
		route.Metrics.TotalPickups++
	}
	if route.Metrics.TotalPickups > 0 {
		route.Metrics.Efficiency = float64(int64(float64(route.Metrics.CompletedPickups)/float64(route.Metrics.TotalPickups)*10000+0.5)) / 100
	}
	route.UpdatedAt = s.now()
	return s.store.Routes.Update(ctx, route)
}
