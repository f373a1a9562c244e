package middlewares

import (
	"context"
	"net/http"
	"strings"

	"wastewise-be/models"
	"wastewise-be/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by AuthMiddleware.
const (
	PrincipalKey = "principal"
	UserKey      = "user"
	ClaimsKey    = "claims"
	UserIDKey    = "user_id"
)

// Authenticator resolves a bearer token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, utils.TokenClaims, error)
}

func AuthMiddleware(auth Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abort(c, http.StatusUnauthorized, "No authorization token provided")
			return
		}

		user, claims, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if appErr, ok := models.AsAppError(err); ok && appErr.Kind == models.KindUnauthorized {
				abort(c, http.StatusUnauthorized, appErr.Message)
				return
			}
			RequestLogger(c, logger).Error("authentication failed", zap.Error(err))
			abort(c, http.StatusInternalServerError, "Internal server error")
			return
		}

		c.Set(PrincipalKey, user.Principal())
		c.Set(UserKey, user)
		c.Set(ClaimsKey, claims)
		c.Set(UserIDKey, user.ID.Hex())
		c.Next()
	}
}

// bearerToken reads "Authorization: Bearer <token>". A bare token in the
// header is accepted too, and websocket clients that cannot set headers may
// pass it in the token query parameter.
func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header != "" {
		if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
			return strings.TrimSpace(header[7:])
		}
		return header
	}
	return c.Query("token")
}

// RequireRoles lets the request through only for the listed roles. It must
// run after AuthMiddleware.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "User not authenticated")
			return
		}
		for _, role := range roles {
			if p.Role == role {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "Access denied")
	}
}

func GetPrincipal(c *gin.Context) (models.Principal, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

func GetClaims(c *gin.Context) (utils.TokenClaims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return utils.TokenClaims{}, false
	}
	claims, ok := v.(utils.TokenClaims)
	return claims, ok
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, models.NewErrorResponse(message))
}
