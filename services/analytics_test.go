package services

import (
	"context"
	"testing"
	"time"

	"wastewise-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completePickup books a pickup of the given waste type for user and has an
// admin complete it with weight kg.
func (f *fixture) completePickup(t *testing.T, user models.Principal, waste models.WasteType, weight float64) {
	t.Helper()
	in := f.pickupInput(f.now.Add(24 * time.Hour))
	in.WasteType = waste
	pickup, err := f.Pickups.Create(context.Background(), user, in)
	require.NoError(t, err)
	_, err = f.Pickups.Complete(context.Background(), f.admin(t), pickup.ID, models.Completion{ActualWeight: &weight})
	require.NoError(t, err)
}

func TestAnalyticsScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.addCommunity(t, "Riverside")
	f.completePickup(t, f.resident(t), models.WasteGeneral, 10)
	f.completePickup(t, f.addUser(t, models.RoleUser, &other), models.WasteGeneral, 30)

	_, err := f.Analytics.Overview(ctx, f.resident(t), nil)
	assertKind(t, err, models.KindForbidden)

	manager := f.addUser(t, models.RoleCommunityAdmin, idPtr(f.community))
	scoped, err := f.Analytics.Overview(ctx, manager, &other)
	require.NoError(t, err)
	assert.Equal(t, f.community, *scoped.Community)
	assert.Equal(t, int64(1), scoped.Pickups.Total)
	assert.Equal(t, 10.0, scoped.Pickups.CollectedWeight)

	all, err := f.Analytics.Overview(ctx, f.admin(t), nil)
	require.NoError(t, err)
	assert.Nil(t, all.Community)
	assert.Equal(t, int64(2), all.Pickups.Total)
	assert.Equal(t, int64(2), all.Communities)
	assert.Equal(t, 100.0, all.Pickups.CompletionRate)
}

func TestEnvironmentalImpact(t *testing.T) {
	f := newFixture(t)
	user := f.resident(t)
	f.completePickup(t, user, models.WasteRecyclable, 100)
	f.completePickup(t, user, models.WasteGeneral, 100)

	impact, err := f.Analytics.EnvironmentalImpact(context.Background(), f.admin(t), nil)
	require.NoError(t, err)
	assert.Equal(t, 200.0, impact.CollectedKg)
	assert.Equal(t, 100.0, impact.DivertedKg)
	assert.Equal(t, 100.0, impact.LandfillKg)
	assert.Equal(t, 50.0, impact.RecyclingRate)
	assert.Equal(t, 90.0, impact.CO2SavedKg)
	assert.Equal(t, 4.13, impact.TreesEquivalent)
}

func TestWasteTrends(t *testing.T) {
	f := newFixture(t)
	f.completePickup(t, f.resident(t), models.WasteOrganic, 20)

	trends, err := f.Analytics.WasteTrends(context.Background(), f.admin(t), nil, 0)
	require.NoError(t, err)
	assert.Equal(t, defaultTrendMonths, trends.Months)
	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), trends.From)
	require.Len(t, trends.Points, 1)
	assert.Equal(t, models.TrendPoint{Year: 2026, Month: 3, WasteType: models.WasteOrganic, Pickups: 1, Weight: 20}, trends.Points[0])

	capped, err := f.Analytics.WasteTrends(context.Background(), f.admin(t), nil, 100)
	require.NoError(t, err)
	assert.Equal(t, maxTrendMonths, capped.Months)
}

func TestIssueAnalytics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)
	first := f.report(t, f.resident(t))
	f.report(t, f.resident(t))
	_, err := f.Issues.Resolve(ctx, admin, first.ID, "done")
	require.NoError(t, err)

	out, err := f.Analytics.IssueAnalytics(ctx, admin, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Total)
	assert.Equal(t, int64(1), out.OpenIssues)
	assert.Equal(t, 50.0, out.ResolutionRate)
}

func TestGenerateReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)

	report, err := f.Analytics.GenerateReport(ctx, admin, ReportInput{Type: ReportEnvironmental})
	require.NoError(t, err)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, admin.UserID, report.GeneratedBy)
	assert.IsType(t, &EnvironmentalImpact{}, report.Data)
	assert.Equal(t, []string{"report.generated"}, f.events.Types())

	_, err = f.Analytics.GenerateReport(ctx, admin, ReportInput{Type: "weekly"})
	assertKind(t, err, models.KindValidation)

	from := f.now
	to := f.now.Add(-time.Hour)
	_, err = f.Analytics.GenerateReport(ctx, admin, ReportInput{From: &from, To: &to})
	assertKind(t, err, models.KindValidation)

	overview, err := f.Analytics.GenerateReport(ctx, admin, ReportInput{})
	require.NoError(t, err)
	assert.Equal(t, ReportOverview, overview.Type)
}

func TestGenerateReportPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)
	from := f.now.Add(-30 * 24 * time.Hour)
	to := f.now

	for _, kind := range []ReportType{ReportOverview, ReportIssues, ""} {
		_, err := f.Analytics.GenerateReport(ctx, admin, ReportInput{Type: kind, From: &from})
		assertKind(t, err, models.KindValidation)
	}

	for _, kind := range []ReportType{ReportPickups, ReportEnvironmental} {
		report, err := f.Analytics.GenerateReport(ctx, admin, ReportInput{Type: kind, From: &from, To: &to})
		require.NoError(t, err)
		assert.Equal(t, &from, report.From)
		assert.Equal(t, &to, report.To)
	}
}
