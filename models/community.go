package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CommunityStatus string

const (
	CommunityActive    CommunityStatus = "active"
	CommunityInactive  CommunityStatus = "inactive"
	CommunityPending   CommunityStatus = "pending"
	CommunitySuspended CommunityStatus = "suspended"
)

func (s CommunityStatus) Valid() bool {
	switch s {
	case CommunityActive, CommunityInactive, CommunityPending, CommunitySuspended:
		return true
	}
	return false
}

type Address struct {
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city,omitempty" json:"city,omitempty"`
	State   string `bson:"state,omitempty" json:"state,omitempty"`
	ZipCode string `bson:"zipCode,omitempty" json:"zipCode,omitempty"`
}

// CollectionDay is the weekly slot on which one waste type is collected.
type CollectionDay struct {
	Days []string `bson:"days" json:"days"`
	Time string   `bson:"time" json:"time"`
}

// CommunityStats is a read model rebuilt from users, pickups and issues.
type CommunityStats struct {
	TotalUsers       int64     `bson:"totalUsers" json:"totalUsers"`
	ActiveUsers      int64     `bson:"activeUsers" json:"activeUsers"`
	TotalPickups     int64     `bson:"totalPickups" json:"totalPickups"`
	CompletedPickups int64     `bson:"completedPickups" json:"completedPickups"`
	WasteCollected   float64   `bson:"wasteCollected" json:"wasteCollected"`
	RecyclingRate    float64   `bson:"recyclingRate" json:"recyclingRate"`
	TotalIssues      int64     `bson:"totalIssues" json:"totalIssues"`
	OpenIssues       int64     `bson:"openIssues" json:"openIssues"`
	ResolvedIssues   int64     `bson:"resolvedIssues" json:"resolvedIssues"`
	LastUpdated      time.Time `bson:"lastUpdated" json:"lastUpdated"`
}

type Community struct {
	ID          primitive.ObjectID          `bson:"_id,omitempty" json:"id"`
	Name        string                      `bson:"name" json:"name"`
	Description string                      `bson:"description,omitempty" json:"description,omitempty"`
	Address     Address                     `bson:"address" json:"address"`
	Admin       *primitive.ObjectID         `bson:"admin,omitempty" json:"admin,omitempty"`
	Schedule    map[WasteType]CollectionDay `bson:"schedule,omitempty" json:"schedule,omitempty"`
	Stats       CommunityStats              `bson:"stats" json:"stats"`
	Status      CommunityStatus             `bson:"status" json:"status"`
	CreatedAt   time.Time                   `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time                   `bson:"updatedAt" json:"updatedAt"`
}

// WithStats returns a copy of c carrying freshly computed statistics.
func (c Community) WithStats(users UserCounts, pickups PickupSummary, issues IssueSummary, now time.Time) Community {
	stats := CommunityStats{
		TotalUsers:       users.Total,
		ActiveUsers:      users.Active,
		TotalPickups:     pickups.Total,
		CompletedPickups: pickups.ByStatus[PickupCompleted],
		WasteCollected:   pickups.CollectedWeight,
		RecyclingRate:    pickups.RecyclingRate(),
		TotalIssues:      issues.Total,
		OpenIssues:       issues.Open(),
		ResolvedIssues:   issues.ByStatus[IssueResolved] + issues.ByStatus[IssueClosed],
		LastUpdated:      now,
	}
	c.Stats = stats
	return c
}

// UserCounts is the user part of a community's statistics.
type UserCounts struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}
