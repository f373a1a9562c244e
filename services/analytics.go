package services

import (
	"context"
	"fmt"
	"time"

	"wastewise-be/models"
	"wastewise-be/store"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversion factors for the environmental impact report, per kg of waste
// kept out of landfill.
const (
	co2SavedPerKg      = 0.9
	waterSavedPerKg    = 5.0
	energySavedPerKg   = 1.4
	co2AbsorbedPerTree = 21.77
)

const (
	defaultTrendMonths = 6
	maxTrendMonths     = 24
)

type AnalyticsService struct {
	*base
}

// scope returns the community the caller's analytics are limited to. Admins
// see everything unless they ask for one community; community admins always
// see their own.
func (s *AnalyticsService) scope(p models.Principal, requested *primitive.ObjectID) (*primitive.ObjectID, error) {
	switch p.Role {
	case models.RoleAdmin:
		return requested, nil
	case models.RoleCommunityAdmin:
		if p.Community == nil {
			return nil, forbidden()
		}
		return p.Community, nil
	default:
		return nil, models.NewForbiddenError("Analytics are available to administrators only")
	}
}

type Overview struct {
	Community     *primitive.ObjectID `json:"community,omitempty"`
	Users         models.UserCounts   `json:"users"`
	Communities   int64               `json:"communities,omitempty"`
	Pickups       PickupStats         `json:"pickups"`
	Issues        IssueStats          `json:"issues"`
	UnreadForUser int64               `json:"unreadNotifications"`
	GeneratedAt   time.Time           `json:"generatedAt"`
}

func (s *AnalyticsService) Overview(ctx context.Context, p models.Principal, community *primitive.ObjectID) (*Overview, error) {
	community, err := s.scope(p, community)
	if err != nil {
		return nil, err
	}
	out := &Overview{Community: community, GeneratedAt: s.now()}

	if community != nil {
		if out.Users, err = s.store.Users.CountByCommunity(ctx, *community); err != nil {
			return nil, err
		}
	} else {
		if out.Users, err = s.allUsers(ctx); err != nil {
			return nil, err
		}
		if _, out.Communities, err = s.store.Communities.List(ctx, store.CommunityFilter{}, store.Page{Page: 1, Limit: 1}); err != nil {
			return nil, err
		}
	}

	pickups, err := s.pickupStats(ctx, store.PickupFilter{Community: community})
	if err != nil {
		return nil, err
	}
	out.Pickups = *pickups
	issues, err := s.issueStats(ctx, store.IssueFilter{Community: community})
	if err != nil {
		return nil, err
	}
	out.Issues = *issues
	if out.UnreadForUser, err = s.store.Notifications.CountUnread(ctx, p.UserID); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AnalyticsService) allUsers(ctx context.Context) (models.UserCounts, error) {
	byRole, err := s.store.Users.CountByRole(ctx)
	if err != nil {
		return models.UserCounts{}, err
	}
	_, active, err := s.store.Users.List(ctx, store.UserFilter{Active: ptr(true)}, store.Page{Page: 1, Limit: 1})
	if err != nil {
		return models.UserCounts{}, err
	}
	counts := models.UserCounts{Active: active}
	for _, n := range byRole {
		counts.Total += n
	}
	return counts, nil
}

func (s *AnalyticsService) pickupStats(ctx context.Context, filter store.PickupFilter) (*PickupStats, error) {
	summary, err := s.store.Pickups.Summary(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("summarize pickups: %w", err)
	}
	return &PickupStats{
		PickupSummary:  summary,
		CompletionRate: summary.CompletionRate(),
		RecyclingRate:  summary.RecyclingRate(),
	}, nil
}

func (s *AnalyticsService) issueStats(ctx context.Context, filter store.IssueFilter) (*IssueStats, error) {
	summary, err := s.store.Issues.Summary(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("summarize issues: %w", err)
	}
	return &IssueStats{
		IssueSummary:           summary,
		OpenIssues:             summary.Open(),
		AverageResolutionHours: summary.AverageResolutionHours(),
	}, nil
}

type WasteTrends struct {
	From   time.Time           `json:"from"`
	Months int                 `json:"months"`
	Points []models.TrendPoint `json:"points"`
}

// WasteTrends returns the monthly collected weight per waste type over the
// last months calendar months, the current one included.
func (s *AnalyticsService) WasteTrends(ctx context.Context, p models.Principal, community *primitive.ObjectID, months int) (*WasteTrends, error) {
	community, err := s.scope(p, community)
	if err != nil {
		return nil, err
	}
	if months <= 0 {
		months = defaultTrendMonths
	}
	if months > maxTrendMonths {
		months = maxTrendMonths
	}
	from := monthsBack(s.now(), months)
	points, err := s.store.Pickups.Trends(ctx, store.PickupFilter{Community: community, From: &from})
	if err != nil {
		return nil, fmt.Errorf("pickup trends: %w", err)
	}
	if points == nil {
		points = []models.TrendPoint{}
	}
	return &WasteTrends{From: from, Months: months, Points: points}, nil
}

// monthsBack returns the first day of the month months-1 months before now.
func monthsBack(now time.Time, months int) time.Time {
	return time.Date(now.Year(), now.Month()-time.Month(months-1), 1, 0, 0, 0, 0, now.Location())
}

func (s *AnalyticsService) PickupStats(ctx context.Context, p models.Principal, community *primitive.ObjectID, from, to *time.Time) (*PickupStats, error) {
	community, err := s.scope(p, community)
	if err != nil {
		return nil, err
	}
	return s.pickupStats(ctx, store.PickupFilter{Community: community, From: from, To: to})
}

type IssueAnalytics struct {
	IssueStats
	ResolutionRate float64 `json:"resolutionRate"`
}

func (s *AnalyticsService) IssueAnalytics(ctx context.Context, p models.Principal, community *primitive.ObjectID) (*IssueAnalytics, error) {
	community, err := s.scope(p, community)
	if err != nil {
		return nil, err
	}
	stats, err := s.issueStats(ctx, store.IssueFilter{Community: community})
	if err != nil {
		return nil, err
	}
	out := &IssueAnalytics{IssueStats: *stats}
	if stats.Total > 0 {
		done := stats.ByStatus[models.IssueResolved] + stats.ByStatus[models.IssueClosed]
		out.ResolutionRate = roundTo2(float64(done) / float64(stats.Total) * 100)
	}
	return out, nil
}

type EnvironmentalImpact struct {
	CollectedKg     float64 `json:"collectedKg"`
	DivertedKg      float64 `json:"divertedKg"`
	LandfillKg      float64 `json:"landfillKg"`
	RecyclingRate   float64 `json:"recyclingRate"`
	CO2SavedKg      float64 `json:"co2SavedKg"`
	WaterSavedL     float64 `json:"waterSavedLiters"`
	EnergySavedKWh  float64 `json:"energySavedKwh"`
	TreesEquivalent float64 `json:"treesEquivalent"`
}

func (s *AnalyticsService) EnvironmentalImpact(ctx context.Context, p models.Principal, community *primitive.ObjectID) (*EnvironmentalImpact, error) {
	community, err := s.scope(p, community)
	if err != nil {
		return nil, err
	}
	summary, err := s.store.Pickups.Summary(ctx, store.PickupFilter{Community: community, Status: models.PickupCompleted})
	if err != nil {
		return nil, fmt.Errorf("summarize pickups: %w", err)
	}
	return impactOf(summary), nil
}

func impactOf(summary models.PickupSummary) *EnvironmentalImpact {
	diverted := summary.DivertedWeight
	co2 := diverted * co2SavedPerKg
	return &EnvironmentalImpact{
		CollectedKg:     roundTo2(summary.CollectedWeight),
		DivertedKg:      roundTo2(diverted),
		LandfillKg:      roundTo2(summary.CollectedWeight - diverted),
		RecyclingRate:   summary.RecyclingRate(),
		CO2SavedKg:      roundTo2(co2),
		WaterSavedL:     roundTo2(diverted * waterSavedPerKg),
		EnergySavedKWh:  roundTo2(diverted * energySavedPerKg),
		TreesEquivalent: roundTo2(co2 / co2AbsorbedPerTree),
	}
}

func roundTo2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

type ReportType string

const (
	ReportOverview      ReportType = "overview"
	ReportPickups       ReportType = "pickups"
	ReportIssues        ReportType = "issues"
	ReportEnvironmental ReportType = "environmental"
)

type ReportInput struct {
	Type      ReportType
	Community *primitive.ObjectID
	From      *time.Time
	To        *time.Time
}

type Report struct {
	ID          string              `json:"id"`
	Type        ReportType          `json:"type"`
	Community   *primitive.ObjectID `json:"community,omitempty"`
	From        *time.Time          `json:"from,omitempty"`
	To          *time.Time          `json:"to,omitempty"`
	GeneratedBy primitive.ObjectID  `json:"generatedBy"`
	GeneratedAt time.Time           `json:"generatedAt"`
	Data        interface{}         `json:"data"`
}

// GenerateReport builds a report snapshot and announces it with a
// report.generated event. Reports are not stored.
func (s *AnalyticsService) GenerateReport(ctx context.Context, p models.Principal, in ReportInput) (*Report, error) {
	community, err := s.scope(p, in.Community)
	if err != nil {
		return nil, err
	}
	if in.Type == "" {
		in.Type = ReportOverview
	}
	if in.From != nil && in.To != nil && in.To.Before(*in.From) {
		return nil, models.NewValidationError("Invalid period", models.FieldError{Field: "endDate", Message: "must not be before startDate"})
	}
	// overview and issue reports always cover all time
	if (in.Type == ReportOverview || in.Type == ReportIssues) && (in.From != nil || in.To != nil) {
		return nil, models.NewValidationError("Period not supported",
			models.FieldError{Field: "startDate", Message: "only pickups and environmental reports accept a period"})
	}

	var data interface{}
	switch in.Type {
	case ReportOverview:
		data, err = s.Overview(ctx, p, community)
	case ReportPickups:
		data, err = s.pickupStats(ctx, store.PickupFilter{Community: community, From: in.From, To: in.To})
	case ReportIssues:
		data, err = s.IssueAnalytics(ctx, p, community)
	case ReportEnvironmental:
		var summary models.PickupSummary
		summary, err = s.store.Pickups.Summary(ctx, store.PickupFilter{Community: community, Status: models.PickupCompleted, From: in.From, To: in.To})
		if err == nil {
			data = impactOf(summary)
		}
	default:
		return nil, models.NewValidationError("Invalid report type",
			models.FieldError{Field: "type", Message: "must be overview, pickups, issues or environmental"})
	}
	if err != nil {
		return nil, err
	}

	report := &Report{
		ID:          uuid.NewString(),
		Type:        in.Type,
		Community:   community,
		From:        in.From,
		To:          in.To,
		GeneratedBy: p.UserID,
		GeneratedAt: s.now(),
		Data:        data,
	}
	eventData := map[string]interface{}{
		"id":          report.ID,
		"type":        report.Type,
		"generatedBy": p.UserID.Hex(),
	}
	if community != nil {
		eventData["communityId"] = community.Hex()
	}
	s.publish(ctx, "report.generated", eventData)
	return report, nil
}
