package services

import (
	"context"
	"testing"
	"time"

	"wastewise-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)

	_, err := f.Settings.System(ctx, f.resident(t))
	assertKind(t, err, models.KindForbidden)

	defaults, err := f.Settings.System(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 3, defaults.MaxPickupsPerDay)

	_, err = f.Settings.UpdateSystem(ctx, admin, SystemSettingsUpdate{MaxPickupsPerDay: ptr(-1)})
	assertKind(t, err, models.KindValidation)

	updated, err := f.Settings.UpdateSystem(ctx, admin, SystemSettingsUpdate{
		MaxPickupsPerDay: ptr(1),
		WasteTypes:       []models.WasteType{models.WasteGeneral},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.MaxPickupsPerDay)
	assert.Equal(t, &admin.UserID, updated.UpdatedBy)
	assert.Equal(t, f.now, updated.UpdatedAt)
	assert.Equal(t, 24, updated.PickupCutoffHours)
	assert.Equal(t, []string{"settings.updated"}, f.events.Types())

	user := f.resident(t)
	in := f.pickupInput(f.now.Add(48 * time.Hour))
	in.WasteType = models.WasteOrganic
	_, err = f.Pickups.Create(ctx, user, in)
	assertKind(t, err, models.KindValidation)

	f.schedule(t, user)
	_, err = f.Pickups.Create(ctx, user, f.pickupInput(f.now.Add(24*time.Hour)))
	assertKind(t, err, models.KindConflict)

	info, err := f.Settings.AppInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "memory", info.Storage)
	assert.Equal(t, []models.WasteType{models.WasteGeneral}, info.WasteTypes)
	assert.Len(t, info.TimeSlots, 3)
}

func TestCommunitySchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manager := f.addUser(t, models.RoleCommunityAdmin, idPtr(f.community))
	schedule := map[models.WasteType]models.CollectionDay{
		models.WasteOrganic: {Days: []string{"wednesday"}, Time: "07:30"},
	}

	updated, err := f.Settings.UpdateCommunitySchedule(ctx, manager, f.community, schedule)
	require.NoError(t, err)
	assert.Equal(t, schedule, updated.Schedule)

	got, err := f.Settings.CommunitySchedule(ctx, f.admin(t), f.community)
	require.NoError(t, err)
	assert.Equal(t, schedule, got.Schedule)

	_, err = f.Settings.CommunitySchedule(ctx, f.resident(t), f.community)
	assertKind(t, err, models.KindForbidden)

	other := f.addCommunity(t, "Riverside")
	_, err = f.Settings.UpdateCommunitySchedule(ctx, manager, other, schedule)
	assertKind(t, err, models.KindForbidden)

	_, err = f.Settings.UpdateCommunitySchedule(ctx, manager, f.community,
		map[models.WasteType]models.CollectionDay{models.WasteOrganic: {Days: []string{"someday"}}})
	assertKind(t, err, models.KindValidation)
}

func TestUserPreferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.resident(t)

	prefs := models.NotificationPreferences{Email: false, SMS: true}
	updated, err := f.Settings.UpdateUserPreferences(ctx, user, prefs)
	require.NoError(t, err)
	assert.Equal(t, prefs, *updated)

	got, err := f.Settings.UserPreferences(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, prefs, *got)
}
