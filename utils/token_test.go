package utils

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	token, issued, err := m.GenerateToken("64b7f0c2a1b2c3d4e5f60718", "admin")
	require.NoError(t, err)

	claims, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "64b7f0c2a1b2c3d4e5f60718", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, issued.TokenID, claims.TokenID)
	assert.NotEmpty(t, claims.TokenID)
}

func TestTokensGetDistinctIDs(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	_, first, err := m.GenerateToken("u1", "user")
	require.NoError(t, err)
	_, second, err := m.GenerateToken("u1", "user")
	require.NoError(t, err)
	assert.NotEqual(t, first.TokenID, second.TokenID)
}

func TestParseTokenRejects(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	good, _, err := m.GenerateToken("u1", "user")
	require.NoError(t, err)

	expired, _, err := NewTokenManager("secret", -time.Minute).GenerateToken("u1", "user")
	require.NoError(t, err)

	otherSecret, _, err := NewTokenManager("other", time.Hour).GenerateToken("u1", "user")
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": "u1", "jti": "x"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"expired":      expired,
		"wrong secret": otherSecret,
		"none alg":     noneAlg,
		"truncated":    good[:len(good)-4],
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := m.ParseToken(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
