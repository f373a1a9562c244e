package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid authorization token")

// TokenClaims is what a signed access token asserts about its holder.
type TokenClaims struct {
	UserID    string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// TokenManager issues and verifies HS256 access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// GenerateToken signs a token for the user. Each token gets its own jti so
// it can be revoked on logout.
func (m *TokenManager) GenerateToken(userID, role string) (string, TokenClaims, error) {
	claims := TokenClaims{
		UserID:    userID,
		Role:      role,
		TokenID:   uuid.NewString(),
		ExpiresAt: time.Now().Add(m.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": claims.UserID,
		"role":    claims.Role,
		"jti":     claims.TokenID,
		"exp":     claims.ExpiresAt.Unix(),
	})

	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", TokenClaims{}, err
	}
	return tokenString, claims, nil
}

// ParseToken verifies the signature and expiry and returns the claims.
func (m *TokenManager) ParseToken(tokenString string) (TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return TokenClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, ErrInvalidToken
	}
	userID, _ := mapClaims["user_id"].(string)
	role, _ := mapClaims["role"].(string)
	tokenID, _ := mapClaims["jti"].(string)
	exp, _ := mapClaims["exp"].(float64)
	if userID == "" || tokenID == "" {
		return TokenClaims{}, fmt.Errorf("%w: missing claims", ErrInvalidToken)
	}
	return TokenClaims{
		UserID:    userID,
		Role:      role,
		TokenID:   tokenID,
		ExpiresAt: time.Unix(int64(exp), 0),
	}, nil
}
