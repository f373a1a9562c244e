package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wastewise-be/cache"
	"wastewise-be/models"
	"wastewise-be/store"
	"wastewise-be/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const revokedTokenPrefix = "revoked_token:"

type AuthService struct {
	*base
	tokens *utils.TokenManager
	cache  cache.Cache
	stats  *StatsService
}

type RegisterInput struct {
	Name      string
	Email     string
	Password  string
	Community string
	Address   string
	Phone     string
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates an account. The role follows from the email address and is
// stored once; regular users must name a community, which is created on the
// fly if it does not exist yet.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	now := s.now()
	email := strings.ToLower(strings.TrimSpace(in.Email))
	role := models.RoleForEmail(email)

	var fields []models.FieldError
	if role == models.RoleUser {
		if strings.TrimSpace(in.Community) == "" {
			fields = append(fields, models.FieldError{Field: "community", Message: "Community is required"})
		}
		if strings.TrimSpace(in.Address) == "" {
			fields = append(fields, models.FieldError{Field: "address", Message: "Address is required"})
		}
	}
	if len(fields) > 0 {
		return nil, models.NewValidationError("Validation failed", fields...)
	}

	if _, err := s.store.Users.FindByEmail(ctx, email); err == nil {
		return nil, models.NewDuplicateError("User already exists with this email")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	user := &models.User{
		Name:          strings.TrimSpace(in.Name),
		Email:         email,
		Password:      in.Password,
		Role:          role,
		Address:       strings.TrimSpace(in.Address),
		Phone:         strings.TrimSpace(in.Phone),
		IsActive:      true,
		Notifications: models.DefaultNotificationPreferences(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if name := strings.TrimSpace(in.Community); name != "" {
		community, err := s.findOrCreateCommunity(ctx, name, user.Address)
		if err != nil {
			return nil, err
		}
		user.Community = idPtr(community.ID)
	}

	if err := user.HashPassword(); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, duplicate(err, "User already exists with this email")
	}
	s.stats.afterMutation(ctx, user.Community)

	return s.issue(user)
}

func (s *AuthService) findOrCreateCommunity(ctx context.Context, name, address string) (*models.Community, error) {
	community, err := s.store.Communities.FindByName(ctx, name)
	if err == nil {
		return community, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	now := s.now()
	community = &models.Community{
		Name:        name,
		Description: "Community created during user registration",
		Address:     models.Address{Street: address},
		Status:      models.CommunityActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Communities.Create(ctx, community); err != nil {
		// lost a race with a concurrent registration naming the same community
		if errors.Is(err, store.ErrDuplicate) {
			return s.store.Communities.FindByName(ctx, name)
		}
		return nil, err
	}
	return community, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.store.Users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if !user.ComparePassword(password) {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if !user.IsActive {
		return nil, models.NewUnauthorizedError("Account is deactivated")
	}

	now := s.now()
	user.LastLogin = &now
	user.UpdatedAt = now
	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, _, err := s.tokens.GenerateToken(user.ID.Hex(), string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Authenticate resolves a bearer token to an active user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, utils.TokenClaims, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, utils.TokenClaims{}, models.NewUnauthorizedError("Invalid authorization token")
	}
	revoked, err := s.cache.Exists(ctx, revokedTokenPrefix+claims.TokenID)
	if err != nil {
		return nil, utils.TokenClaims{}, fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return nil, utils.TokenClaims{}, models.NewUnauthorizedError("Token has been revoked")
	}

	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, utils.TokenClaims{}, models.NewUnauthorizedError("Invalid token claims")
	}
	user, err := s.store.Users.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, utils.TokenClaims{}, models.NewUnauthorizedError("User not found")
	}
	if err != nil {
		return nil, utils.TokenClaims{}, err
	}
	if !user.IsActive {
		return nil, utils.TokenClaims{}, models.NewUnauthorizedError("Account is deactivated")
	}
	return user, claims, nil
}

// Logout revokes the token until it would have expired anyway. Token expiry
// is wall-clock time, independent of the service clock.
func (s *AuthService) Logout(ctx context.Context, claims utils.TokenClaims) error {
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.cache.SetFlag(ctx, revokedTokenPrefix+claims.TokenID, ttl)
}

func (s *AuthService) Me(ctx context.Context, p models.Principal) (*models.User, error) {
	user, err := s.store.Users.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, notFound(err, "User")
	}
	return user, nil
}

type ProfileInput struct {
	Name          *string
	Phone         *string
	Address       *string
	Notifications *models.NotificationPreferences
}

func (s *AuthService) UpdateProfile(ctx context.Context, p models.Principal, in ProfileInput) (*models.User, error) {
	user, err := s.Me(ctx, p)
	if err != nil {
		return nil, err
	}
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
	user.UpdatedAt = s.now()
	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, notFound(err, "User")
	}
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, p models.Principal, current, next string) error {
	user, err := s.Me(ctx, p)
	if err != nil {
		return err
	}
	if !user.ComparePassword(current) {
		return models.NewValidationError("Current password is incorrect",
			models.FieldError{Field: "currentPassword", Message: "is incorrect"})
	}
	user.Password = next
	if err := user.HashPassword(); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.UpdatedAt = s.now()
	return notFound(s.store.Users.Update(ctx, user), "User")
}
