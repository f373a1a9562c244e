package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// Role decides data visibility and write permissions. It is assigned once at
// registration and stored on the user.
type Role string

const (
	RoleUser           Role = "user"
	RoleCommunityAdmin Role = "community_admin"
	RoleAdmin          Role = "admin"
)

// AdminEmailDomain marks registrations that are granted the admin role.
const AdminEmailDomain = "@admin.com"

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleCommunityAdmin, RoleAdmin:
		return true
	}
	return false
}

// RoleForEmail applies the registration rule: addresses on the admin domain
// become admins, everyone else is a regular user. This is a convenience rule,
// not a verified authorization boundary.
func RoleForEmail(email string) Role {
	if strings.HasSuffix(strings.ToLower(strings.TrimSpace(email)), AdminEmailDomain) {
		return RoleAdmin
	}
	return RoleUser
}

type NotificationPreferences struct {
	Email           bool `bson:"email" json:"email"`
	SMS             bool `bson:"sms" json:"sms"`
	Push            bool `bson:"push" json:"push"`
	PickupReminders bool `bson:"pickupReminders" json:"pickupReminders"`
	IssueUpdates    bool `bson:"issueUpdates" json:"issueUpdates"`
}

func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{Email: true, Push: true, PickupReminders: true, IssueUpdates: true}
}

// Allows reports whether notifications of kind should be created. System
// messages and announcements are always delivered.
func (p NotificationPreferences) Allows(kind NotificationType) bool {
	switch kind {
	case NotificationPickup:
		return p.PickupReminders
	case NotificationIssue:
		return p.IssueUpdates
	}
	return true
}

type User struct {
	ID            primitive.ObjectID      `bson:"_id,omitempty" json:"id"`
	Name          string                  `bson:"name" json:"name"`
	Email         string                  `bson:"email" json:"email"`
	Password      string                  `bson:"password,omitempty" json:"-"`
	Role          Role                    `bson:"role" json:"role"`
	Community     *primitive.ObjectID     `bson:"community,omitempty" json:"community,omitempty"`
	Address       string                  `bson:"address" json:"address"`
	Phone         string                  `bson:"phone,omitempty" json:"phone,omitempty"`
	IsActive      bool                    `bson:"isActive" json:"isActive"`
	Notifications NotificationPreferences `bson:"notificationPreferences" json:"notificationPreferences"`
	LastLogin     *time.Time              `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	CreatedAt     time.Time               `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time               `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) ComparePassword(candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate))
	return err == nil
}

// InCommunity reports whether the user belongs to the given community.
func (u *User) InCommunity(id primitive.ObjectID) bool {
	return u.Community != nil && *u.Community == id
}

// Principal is the authenticated caller resolved from a bearer token.
type Principal struct {
	UserID    primitive.ObjectID
	Email     string
	Role      Role
	Community *primitive.ObjectID
}

func (u *User) Principal() Principal {
	return Principal{UserID: u.ID, Email: u.Email, Role: u.Role, Community: u.Community}
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// ManagesCommunity reports whether p may act on records of the given community
// with community-admin scope.
func (p Principal) ManagesCommunity(id primitive.ObjectID) bool {
	if p.IsAdmin() {
		return true
	}
	return p.Role == RoleCommunityAdmin && p.Community != nil && *p.Community == id
}
