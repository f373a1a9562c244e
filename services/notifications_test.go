package services

import (
	"context"
	"sync"
	"testing"

	"wastewise-be/models"
	"wastewise-be/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type pushRecorder struct {
	mu    sync.Mutex
	users []string
}

func (r *pushRecorder) SendToUser(userID string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userID)
}

func TestNotificationsAreOwnedByTheirUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.resident(t)
	bob := f.resident(t)

	n, err := f.Notifications.create(ctx, alice.UserID, models.NotificationSystem, "Welcome", "Hello", nil, "")
	require.NoError(t, err)
	assert.Equal(t, models.PriorityMedium, n.Priority)

	_, err = f.Notifications.MarkRead(ctx, bob, n.ID)
	assertKind(t, err, models.KindNotFound)
	assertKind(t, f.Notifications.Delete(ctx, bob, n.ID), models.KindNotFound)

	read, err := f.Notifications.MarkRead(ctx, alice, n.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)
	assert.Equal(t, f.now, *read.ReadAt)

	require.NoError(t, f.Notifications.Delete(ctx, alice, n.ID))
	_, err = f.Notifications.MarkRead(ctx, alice, n.ID)
	assertKind(t, err, models.KindNotFound)
}

func TestNotificationListAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.resident(t)
	for _, kind := range []models.NotificationType{models.NotificationPickup, models.NotificationPickup, models.NotificationIssue} {
		_, err := f.Notifications.create(ctx, alice.UserID, kind, "t", "m", nil, models.PriorityLow)
		require.NoError(t, err)
	}

	list, err := f.Notifications.List(ctx, alice, NotificationQuery{Type: models.NotificationPickup, Page: store.Page{Page: 1, Limit: 10}})
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)
	assert.Equal(t, int64(3), list.Unread)

	marked, err := f.Notifications.MarkAllRead(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(3), marked)

	stats, err := f.Notifications.Stats(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(0), stats.Unread)
	assert.Equal(t, int64(2), stats.ByType[models.NotificationPickup])

	unread, err := f.Notifications.List(ctx, alice, NotificationQuery{UnreadOnly: true, Page: store.Page{Page: 1, Limit: 10}})
	require.NoError(t, err)
	assert.Empty(t, unread.Items)
}

func TestBroadcast(t *testing.T) {
	f := newFixture(t)
	push := &pushRecorder{}
	f.Notifications.notifier = push
	ctx := context.Background()
	admin := f.admin(t)
	alice := f.resident(t)
	bob := f.resident(t)
	f.addUser(t, models.RoleUser, idPtr(f.addCommunity(t, "Riverside")))

	_, err := f.Users.Deactivate(ctx, admin, bob.UserID)
	require.NoError(t, err)

	in := BroadcastInput{Target: TargetCommunity, Community: idPtr(f.community), Title: "Holiday", Message: "No pickups on Friday"}
	sent, err := f.Notifications.Broadcast(ctx, admin, in)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{alice.UserID.Hex()}, push.users)

	sent, err = f.Notifications.Broadcast(ctx, admin, BroadcastInput{Target: TargetAll, Title: "Hello", Message: "All"})
	require.NoError(t, err)
	assert.Equal(t, 3, sent)

	_, err = f.Notifications.Broadcast(ctx, alice, in)
	assertKind(t, err, models.KindForbidden)

	_, err = f.Notifications.Broadcast(ctx, admin, BroadcastInput{Target: TargetUser, User: idPtr(primitive.NewObjectID()), Title: "x", Message: "y"})
	assertKind(t, err, models.KindNotFound)

	_, err = f.Notifications.Broadcast(ctx, admin, BroadcastInput{Target: "planet", Title: "x", Message: "y"})
	assertKind(t, err, models.KindValidation)
	_, err = f.Notifications.Broadcast(ctx, admin, BroadcastInput{Target: TargetAll})
	assertKind(t, err, models.KindValidation)
}

func TestNotifyRespectsPreferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t)
	alice := f.resident(t)
	page := NotificationQuery{Page: store.Page{Page: 1, Limit: 10}}

	prefs := models.DefaultNotificationPreferences()
	prefs.IssueUpdates = false
	_, err := f.Settings.UpdateUserPreferences(ctx, alice, prefs)
	require.NoError(t, err)

	issue := f.report(t, alice)
	inProgress := models.IssueInProgress
	_, err = f.Issues.Update(ctx, admin, issue.ID, IssueUpdate{Status: &inProgress})
	require.NoError(t, err)

	list, err := f.Notifications.List(ctx, alice, page)
	require.NoError(t, err)
	assert.Empty(t, list.Items)

	pickup := f.schedule(t, alice)
	_, err = f.Pickups.Cancel(ctx, admin, pickup.ID, "Road closed")
	require.NoError(t, err)

	list, err = f.Notifications.List(ctx, alice, page)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, models.NotificationPickup, list.Items[0].Type)

	assert.True(t, prefs.Allows(models.NotificationAnnouncement))
	assert.False(t, prefs.Allows(models.NotificationIssue))
}
