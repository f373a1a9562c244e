package services

import (
	"context"
	"strings"

	"wastewise-be/models"
	"wastewise-be/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserService struct {
	*base
	stats *StatsService
}

type UserQuery struct {
	Role      models.Role
	Community *primitive.ObjectID
	Active    *bool
	Search    string
	Page      store.Page
}

func (s *UserService) List(ctx context.Context, p models.Principal, q UserQuery) (ListResult[models.User], error) {
	if err := requireAdmin(p); err != nil {
		return ListResult[models.User]{}, err
	}
	filter := store.UserFilter{Role: q.Role, Community: q.Community, Active: q.Active, Search: strings.TrimSpace(q.Search)}
	items, total, err := s.store.Users.List(ctx, filter, q.Page)
	if err != nil {
		return ListResult[models.User]{}, err
	}
	return newListResult(items, q.Page, total), nil
}

// canView lets admins see everyone, users see themselves, and community
// admins see the members of their own community.
func canView(p models.Principal, u *models.User) bool {
	if p.IsAdmin() || p.UserID == u.ID {
		return true
	}
	return u.Community != nil && p.Role == models.RoleCommunityAdmin && p.ManagesCommunity(*u.Community)
}

func (s *UserService) Get(ctx context.Context, p models.Principal, id primitive.ObjectID) (*models.User, error) {
	user, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "User")
	}
	if !canView(p, user) {
		return nil, forbidden()
	}
	return user, nil
}

// UserUpdate lists the writable user fields. Name, phone, address and
// notification preferences are open to the user themself; the rest are admin-only.
type UserUpdate struct {
	Name          *string
	Phone         *string
	Address       *string
	Notifications *models.NotificationPreferences
	Role          *models.Role
	Community     *primitive.ObjectID
	IsActive      *bool
}

func (s *UserService) Update(ctx context.Context, p models.Principal, id primitive.ObjectID, in UserUpdate) (*models.User, error) {
	user, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "User")
	}
	if !p.IsAdmin() && p.UserID != user.ID {
		return nil, forbidden()
	}

	previousCommunity := user.Community
	wasActive := user.IsActive

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, models.NewValidationError("Name cannot be empty", models.FieldError{Field: "name", Message: "is required"})
		}
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		user.Address = strings.TrimSpace(*in.Address)
	}
	if in.Notifications != nil {
		user.Notifications = *in.Notifications
	}
	if p.IsAdmin() {
		if in.Role != nil {
			if !in.Role.Valid() {
				return nil, models.NewValidationError("Invalid role", models.FieldError{Field: "role", Message: "must be user, community_admin or admin"})
			}
			user.Role = *in.Role
		}
		if in.Community != nil {
			if _, err := s.store.Communities.FindByID(ctx, *in.Community); err != nil {
				return nil, notFound(err, "Community")
			}
			user.Community = in.Community
		}
		if in.IsActive != nil {
			if !*in.IsActive && user.ID == p.UserID {
				return nil, models.NewConflictError("You cannot deactivate your own account")
			}
			user.IsActive = *in.IsActive
		}
	}
	if user.Role == models.RoleUser && user.Community == nil {
		return nil, models.NewValidationError("Community is required for users", models.FieldError{Field: "community", Message: "is required"})
	}

	user.UpdatedAt = s.now()
	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, notFound(err, "User")
	}

	if wasActive != user.IsActive || !sameID(previousCommunity, user.Community) {
		s.stats.afterMutation(ctx, previousCommunity)
		if !sameID(previousCommunity, user.Community) {
			s.stats.afterMutation(ctx, user.Community)
		}
	}
	return user, nil
}

func sameID(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Deactivate soft-deletes a user; the record stays for history.
func (s *UserService) Deactivate(ctx context.Context, p models.Principal, id primitive.ObjectID) (*models.User, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if p.UserID == id {
		return nil, models.NewConflictError("You cannot deactivate your own account")
	}
	return s.setActive(ctx, id, false)
}

func (s *UserService) setActive(ctx context.Context, id primitive.ObjectID, active bool) (*models.User, error) {
	user, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "User")
	}
	if user.IsActive == active {
		return user, nil
	}
	user.IsActive = active
	user.UpdatedAt = s.now()
	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, notFound(err, "User")
	}
	s.stats.afterMutation(ctx, user.Community)
	return user, nil
}

type BulkAction string

const (
	BulkActivate   BulkAction = "activate"
	BulkDeactivate BulkAction = "deactivate"
)

type BulkResult struct {
	Modified int      `json:"modified"`
	Failed   []string `json:"failed,omitempty"`
}

// BulkUpdate applies the action to every listed user. Unknown ids and the
// caller's own account are reported as failed instead of aborting the batch.
func (s *UserService) BulkUpdate(ctx context.Context, p models.Principal, action BulkAction, ids []primitive.ObjectID) (*BulkResult, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if action != BulkActivate && action != BulkDeactivate {
		return nil, models.NewValidationError("Invalid action", models.FieldError{Field: "action", Message: "must be activate or deactivate"})
	}
	if len(ids) == 0 {
		return nil, models.NewValidationError("No users selected", models.FieldError{Field: "userIds", Message: "at least one id is required"})
	}

	result := &BulkResult{}
	for _, id := range ids {
		if action == BulkDeactivate && id == p.UserID {
			result.Failed = append(result.Failed, id.Hex())
			continue
		}
		if _, err := s.setActive(ctx, id, action == BulkActivate); err != nil {
			if models.IsKind(err, models.KindNotFound) {
				result.Failed = append(result.Failed, id.Hex())
				continue
			}
			return nil, err
		}
		result.Modified++
	}
	return result, nil
}

type UserStats struct {
	Total    int64                 `json:"total"`
	Active   int64                 `json:"active"`
	Inactive int64                 `json:"inactive"`
	ByRole   map[models.Role]int64 `json:"byRole"`
}

func (s *UserService) Stats(ctx context.Context, p models.Principal) (*UserStats, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	byRole, err := s.store.Users.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	_, active, err := s.store.Users.List(ctx, store.UserFilter{Active: ptr(true)}, store.Page{Page: 1, Limit: 1})
	if err != nil {
		return nil, err
	}
	stats := &UserStats{ByRole: byRole, Active: active}
	for _, n := range byRole {
		stats.Total += n
	}
	stats.Inactive = stats.Total - stats.Active
	return stats, nil
}

// ListByCommunity is open to admins and the community's own admin.
func (s *UserService) ListByCommunity(ctx context.Context, p models.Principal, community primitive.ObjectID, page store.Page) (ListResult[models.User], error) {
	if !p.ManagesCommunity(community) {
		return ListResult[models.User]{}, forbidden()
	}
	items, total, err := s.store.Users.List(ctx, store.UserFilter{Community: &community}, page)
	if err != nil {
		return ListResult[models.User]{}, err
	}
	return newListResult(items, page, total), nil
}
