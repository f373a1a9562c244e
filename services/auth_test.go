package services

import (
	"context"
	"testing"

	"wastewise-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registration(email string) RegisterInput {
	return RegisterInput{
		Name:      "Jane Doe",
		Email:     email,
		Password:  "secret123",
		Community: "Green Valley",
		Address:   "12 Elm Street",
	}
}

func TestRegisterDecidesRoleOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.Auth.Register(ctx, RegisterInput{Name: "Root", Email: "Root@Admin.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, res.User.Role)
	assert.Equal(t, "root@admin.com", res.User.Email)
	assert.Nil(t, res.User.Community)
	assert.NotEmpty(t, res.Token)

	res, err = f.Auth.Register(ctx, registration("jane@example.com"))
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, res.User.Role)
	require.NotNil(t, res.User.Community)
	assert.Equal(t, f.community, *res.User.Community)
	assert.NotEqual(t, "secret123", res.User.Password)

	community, err := f.store.Communities.FindByID(ctx, f.community)
	require.NoError(t, err)
	assert.Equal(t, int64(1), community.Stats.TotalUsers)
}

func TestRegisterCreatesUnknownCommunity(t *testing.T) {
	f := newFixture(t)
	in := registration("sam@example.com")
	in.Community = "Hill Top"

	res, err := f.Auth.Register(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, res.User.Community)

	created, err := f.store.Communities.FindByName(context.Background(), "hill top")
	require.NoError(t, err)
	assert.Equal(t, created.ID, *res.User.Community)
	assert.Equal(t, models.CommunityActive, created.Status)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.Auth.Register(ctx, RegisterInput{Name: "Jo", Email: "jo@example.com", Password: "secret123"})
	assertKind(t, err, models.KindValidation)
	appErr, _ := models.AsAppError(err)
	assert.ElementsMatch(t, []string{"community", "address"}, []string{appErr.Fields[0].Field, appErr.Fields[1].Field})

	_, err = f.Auth.Register(ctx, registration("jane@example.com"))
	require.NoError(t, err)
	_, err = f.Auth.Register(ctx, registration("JANE@example.com"))
	assertKind(t, err, models.KindDuplicate)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registered, err := f.Auth.Register(ctx, registration("jane@example.com"))
	require.NoError(t, err)

	_, err = f.Auth.Login(ctx, "jane@example.com", "wrong")
	assertKind(t, err, models.KindUnauthorized)
	_, err = f.Auth.Login(ctx, "nobody@example.com", "secret123")
	assertKind(t, err, models.KindUnauthorized)

	res, err := f.Auth.Login(ctx, " Jane@Example.com ", "secret123")
	require.NoError(t, err)
	require.NotNil(t, res.User.LastLogin)
	assert.Equal(t, f.now, *res.User.LastLogin)

	_, err = f.Users.Deactivate(ctx, f.admin(t), registered.User.ID)
	require.NoError(t, err)
	_, err = f.Auth.Login(ctx, "jane@example.com", "secret123")
	assertKind(t, err, models.KindUnauthorized)
	_, _, err = f.Auth.Authenticate(ctx, res.Token)
	assertKind(t, err, models.KindUnauthorized)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.Auth.Register(ctx, registration("jane@example.com"))
	require.NoError(t, err)

	user, claims, err := f.Auth.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, user.ID)

	require.NoError(t, f.Auth.Logout(ctx, claims))
	_, _, err = f.Auth.Authenticate(ctx, res.Token)
	assertKind(t, err, models.KindUnauthorized)

	other, err := f.Auth.Login(ctx, "jane@example.com", "secret123")
	require.NoError(t, err)
	_, _, err = f.Auth.Authenticate(ctx, other.Token)
	assert.NoError(t, err)

	_, _, err = f.Auth.Authenticate(ctx, "garbage")
	assertKind(t, err, models.KindUnauthorized)
}

func TestChangePasswordAndProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.Auth.Register(ctx, registration("jane@example.com"))
	require.NoError(t, err)
	p := res.User.Principal()

	assertKind(t, f.Auth.ChangePassword(ctx, p, "wrong", "newsecret"), models.KindValidation)
	require.NoError(t, f.Auth.ChangePassword(ctx, p, "secret123", "newsecret"))
	_, err = f.Auth.Login(ctx, "jane@example.com", "newsecret")
	assert.NoError(t, err)

	phone := "555-0100"
	updated, err := f.Auth.UpdateProfile(ctx, p, ProfileInput{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, updated.Phone)

	empty := " "
	_, err = f.Auth.UpdateProfile(ctx, p, ProfileInput{Name: &empty})
	assertKind(t, err, models.KindValidation)
}
