package services

import (
	"context"
	"errors"
	"strings"

	"wastewise-be/models"
	"wastewise-be/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CommunityService struct {
	*base
	stats *StatsService
}

type CommunityInput struct {
	Name        *string
	Description *string
	Address     *models.Address
	Admin       *primitive.ObjectID
	Schedule    map[models.WasteType]models.CollectionDay
	Status      *models.CommunityStatus
}

func (s *CommunityService) List(ctx context.Context, filter store.CommunityFilter, page store.Page) (ListResult[models.Community], error) {
	filter.Search = strings.TrimSpace(filter.Search)
	items, total, err := s.store.Communities.List(ctx, filter, page)
	if err != nil {
		return ListResult[models.Community]{}, err
	}
	return newListResult(items, page, total), nil
}

func (s *CommunityService) Get(ctx context.Context, id primitive.ObjectID) (*models.Community, error) {
	community, err := s.store.Communities.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Community")
	}
	return community, nil
}

func (s *CommunityService) Create(ctx context.Context, p models.Principal, in CommunityInput) (*models.Community, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, models.NewValidationError("Validation failed", models.FieldError{Field: "name", Message: "Community name is required"})
	}

	newAdmin, err := s.loadAdmin(ctx, in.Admin)
	if err != nil {
		return nil, err
	}

	now := s.now()
	community := &models.Community{
		Name:      strings.TrimSpace(*in.Name),
		Status:    models.CommunityActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.apply(community, in); err != nil {
		return nil, err
	}
	if err := s.store.Communities.Create(ctx, community); err != nil {
		return nil, duplicate(err, "Community with this name already exists")
	}
	if newAdmin != nil {
		if err := s.assignAdmin(ctx, newAdmin, community.ID); err != nil {
			return nil, err
		}
	}
	return community, nil
}

func (s *CommunityService) Update(ctx context.Context, p models.Principal, id primitive.ObjectID, in CommunityInput) (*models.Community, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	community, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previousAdmin := community.Admin
	newAdmin, err := s.loadAdmin(ctx, in.Admin)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, models.NewValidationError("Validation failed", models.FieldError{Field: "name", Message: "Community name is required"})
		}
		community.Name = strings.TrimSpace(*in.Name)
	}
	if err := s.apply(community, in); err != nil {
		return nil, err
	}
	community.UpdatedAt = s.now()
	if err := s.store.Communities.Update(ctx, community); err != nil {
		return nil, duplicate(notFound(err, "Community"), "Community with this name already exists")
	}
	if newAdmin != nil && !sameID(previousAdmin, community.Admin) {
		if previousAdmin != nil {
			if err := s.revokeAdmin(ctx, *previousAdmin, community.ID); err != nil {
				return nil, err
			}
		}
		if err := s.assignAdmin(ctx, newAdmin, community.ID); err != nil {
			return nil, err
		}
	}
	return community, nil
}

func (s *CommunityService) apply(c *models.Community, in CommunityInput) error {
	if in.Description != nil {
		c.Description = strings.TrimSpace(*in.Description)
	}
	if in.Address != nil {
		c.Address = *in.Address
	}
	if in.Admin != nil {
		c.Admin = in.Admin
	}
	if in.Schedule != nil {
		if err := validateSchedule(in.Schedule); err != nil {
			return err
		}
		c.Schedule = in.Schedule
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return models.NewValidationError("Invalid status", models.FieldError{Field: "status", Message: "must be active, inactive, pending or suspended"})
		}
		c.Status = *in.Status
	}
	return nil
}

// loadAdmin resolves the requested admin before anything is written.
func (s *CommunityService) loadAdmin(ctx context.Context, id *primitive.ObjectID) (*models.User, error) {
	if id == nil {
		return nil, nil
	}
	user, err := s.store.Users.FindByID(ctx, *id)
	if err != nil {
		return nil, notFound(err, "Admin user")
	}
	return user, nil
}

// assignAdmin makes the user the community's admin. Platform admins keep
// their role and only get the community reference.
func (s *CommunityService) assignAdmin(ctx context.Context, user *models.User, community primitive.ObjectID) error {
	if user.Role != models.RoleAdmin {
		user.Role = models.RoleCommunityAdmin
	}
	user.Community = &community
	user.UpdatedAt = s.now()
	return notFound(s.store.Users.Update(ctx, user), "Admin user")
}

// revokeAdmin drops a replaced community admin back to a regular member of
// the community. Platform admins and users who moved on are left alone.
func (s *CommunityService) revokeAdmin(ctx context.Context, userID, community primitive.ObjectID) error {
	user, err := s.store.Users.FindByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.Role != models.RoleCommunityAdmin || !sameID(user.Community, &community) {
		return nil
	}
	user.Role = models.RoleUser
	user.UpdatedAt = s.now()
	return notFound(s.store.Users.Update(ctx, user), "User")
}

// Delete removes the community record only. Users, pickups, routes and issues
// that reference it keep the now dangling reference.
func (s *CommunityService) Delete(ctx context.Context, p models.Principal, id primitive.ObjectID) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	return notFound(s.store.Communities.Delete(ctx, id), "Community")
}

// Stats recomputes the community's statistics and returns the fresh copy.
func (s *CommunityService) Stats(ctx context.Context, p models.Principal, id primitive.ObjectID) (*models.Community, error) {
	if !p.ManagesCommunity(id) && !sameID(p.Community, &id) {
		return nil, forbidden()
	}
	return s.stats.RefreshCommunity(ctx, id)
}

func validateSchedule(schedule map[models.WasteType]models.CollectionDay) error {
	var fields []models.FieldError
	for waste, day := range schedule {
		if !waste.Valid() {
			fields = append(fields, models.FieldError{Field: "schedule", Message: "unsupported waste type " + string(waste)})
			continue
		}
		for _, d := range day.Days {
			if !models.ValidWeekday(d) {
				fields = append(fields, models.FieldError{Field: "schedule." + string(waste), Message: "unknown day " + d})
			}
		}
	}
	if len(fields) > 0 {
		return models.NewValidationError("Invalid schedule", fields...)
	}
	return nil
}
