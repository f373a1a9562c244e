package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"wastewise-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestPageBounds(t *testing.T) {
	tests := []struct {
		name       string
		page       Page
		n          int
		start, end int
	}{
		{"first page", Page{Page: 1, Limit: 10}, 25, 0, 10},
		{"last partial page", Page{Page: 3, Limit: 10}, 25, 20, 25},
		{"past the end", Page{Page: 5, Limit: 10}, 25, 25, 25},
		{"no limit", Page{Page: 1}, 7, 0, 7},
		{"zero page treated as first", Page{Page: 0, Limit: 5}, 7, 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := tt.page.Bounds(tt.n)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestMemoryUsersUniqueEmail(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Users.Create(ctx, &models.User{Name: "Alice", Email: "alice@user.com"}))
	err := s.Users.Create(ctx, &models.User{Name: "Other", Email: "ALICE@user.com"})
	assert.ErrorIs(t, err, ErrDuplicate)

	found, err := s.Users.FindByEmail(ctx, "Alice@User.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice", found.Name)

	_, err = s.Users.FindByEmail(ctx, "nobody@user.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	user := &models.User{Name: "Alice", Email: "alice@user.com"}
	require.NoError(t, s.Users.Create(ctx, user))

	loaded, err := s.Users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	loaded.Name = "Mallory"

	again, err := s.Users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.Name)
}

func TestMemoryPickupFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	riverside := primitive.NewObjectID()
	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	for i, owner := range []primitive.ObjectID{alice, alice, bob} {
		p := models.Pickup{
			User:          owner,
			Community:     riverside,
			ScheduledDate: day.AddDate(0, 0, i),
			WasteType:     models.WasteRecyclable,
			Status:        models.PickupScheduled,
		}
		require.NoError(t, s.Pickups.Create(ctx, &p))
	}

	items, total, err := s.Pickups.List(ctx, PickupFilter{User: &alice}, Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, p := range items {
		assert.Equal(t, alice, p.User)
	}
	assert.True(t, items[0].ScheduledDate.After(items[1].ScheduledDate), "newest scheduled first")

	from := day.AddDate(0, 0, 1)
	count, err := s.Pickups.Count(ctx, PickupFilter{Community: &riverside, From: &from})
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestMemoryPickupSummary(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	add := func(status models.PickupStatus, waste models.WasteType, weight float64) {
		p := models.Pickup{Status: status, WasteType: waste, ActualWeight: weight, ScheduledDate: time.Now()}
		require.NoError(t, s.Pickups.Create(ctx, &p))
	}
	add(models.PickupCompleted, models.WasteRecyclable, 30)
	add(models.PickupCompleted, models.WasteGeneral, 70)
	add(models.PickupScheduled, models.WasteOrganic, 0)
	add(models.PickupCancelled, models.WasteGeneral, 0)

	summary, err := s.Pickups.Summary(ctx, PickupFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, summary.Total)
	assert.EqualValues(t, 2, summary.ByStatus[models.PickupCompleted])
	assert.Equal(t, 100.0, summary.CollectedWeight)
	assert.Equal(t, 30.0, summary.RecyclingRate())
	assert.Equal(t, 50.0, summary.CompletionRate())
}

func TestMemoryRouteFindAvailable(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	riverside := primitive.NewObjectID()
	tuesday := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	first := models.Route{
		Name:        "North loop",
		Communities: []primitive.ObjectID{riverside},
		Schedule:    models.RouteSchedule{Days: []string{"tuesday"}, StartTime: "08:00", EndTime: "12:00"},
		WasteTypes:  []models.WasteType{models.WasteRecyclable},
		Status:      models.RouteActive,
		CreatedAt:   tuesday.Add(-48 * time.Hour),
	}
	second := first
	second.Name = "South loop"
	second.CreatedAt = tuesday.Add(-24 * time.Hour)
	inactive := first
	inactive.Name = "Old loop"
	inactive.Status = models.RouteInactive
	inactive.CreatedAt = tuesday.Add(-72 * time.Hour)
	for _, r := range []models.Route{second, inactive, first} {
		r := r
		require.NoError(t, s.Routes.Create(ctx, &r))
	}

	route, err := s.Routes.FindAvailable(ctx, tuesday, models.WasteRecyclable, riverside)
	require.NoError(t, err)
	assert.Equal(t, "North loop", route.Name)

	_, err = s.Routes.FindAvailable(ctx, tuesday.AddDate(0, 0, 1), models.WasteRecyclable, riverside)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Routes.FindAvailable(ctx, tuesday, models.WasteHazardous, riverside)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryNotificationsMarkAllRead(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	for _, owner := range []primitive.ObjectID{alice, alice, bob} {
		n := models.Notification{User: owner, Type: models.NotificationSystem, Title: "hi"}
		require.NoError(t, s.Notifications.Create(ctx, &n))
	}

	changed, err := s.Notifications.MarkAllRead(ctx, alice, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 2, changed)

	unread, err := s.Notifications.CountUnread(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, unread)

	unread, err = s.Notifications.CountUnread(ctx, bob)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
}

func TestMemorySettingsDefaults(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	settings, err := s.Settings.GetSystem(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSystemSettings().MaxPickupsPerDay, settings.MaxPickupsPerDay)

	settings.MaxPickupsPerDay = 7
	require.NoError(t, s.Settings.SaveSystem(ctx, settings))

	reloaded, err := s.Settings.GetSystem(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, reloaded.MaxPickupsPerDay)
}

func TestMemorySequencerConcurrent(t *testing.T) {
	ctx := context.Background()
	seq := NewMemory().Sequences

	const workers = 50
	var wg sync.WaitGroup
	results := make(chan int64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := seq.Next(ctx, "issue:20260310")
			if err == nil {
				results <- n
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := map[int64]bool{}
	for n := range results {
		assert.False(t, seen[n], fmt.Sprintf("sequence %d handed out twice", n))
		seen[n] = true
	}
	assert.Len(t, seen, workers)

	other, err := seq.Next(ctx, "issue:20260311")
	require.NoError(t, err)
	assert.EqualValues(t, 1, other)
}
