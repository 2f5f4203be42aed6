package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/chronolog/internal/auth"
	"github.com/geocoder89/chronolog/internal/config"
	"github.com/geocoder89/chronolog/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep these interfaces small so tests can fake them easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type UserLoader interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type AuthMiddleware struct {
	jwt   TokenVerifier
	users UserLoader
}

func NewAuthMiddleware(jwt TokenVerifier, users UserLoader) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, users: users}
}

const (
	ctxUserIDKey = "auth.userID"
	ctxEmailKey  = "auth.email"
)

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Access token is required")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			abortUnauthorized(c, "Access token is required")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				abortUnauthorized(c, "Access token has expired")
			case errors.Is(err, auth.ErrWrongTokenType):
				abortUnauthorized(c, "Invalid token type")
			default:
				abortUnauthorized(c, "Invalid access token")
			}
			return
		}

		// The token may outlive the account; confirm the row still exists.
		cctx, cancel := config.WithTimeout(2 * time.Second)
		defer cancel()

		u, err := m.users.GetByID(cctx, claims.UserID)
		if err != nil {
			abortUnauthorized(c, "User not found")
			return
		}

		c.Set(ctxUserIDKey, u.ID)
		c.Set(ctxEmailKey, u.Email)

		c.Next()
	}
}

// Helpers so handlers don't need to know the magic keys.

// SetIdentity stashes the caller identity the way RequireAuth does.
// Useful when exercising handlers without the middleware.
func SetIdentity(c *gin.Context, userID, email string) {
	c.Set(ctxUserIDKey, userID)
	c.Set(ctxEmailKey, email)
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

func EmailFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxEmailKey)
	if !ok {
		return "", false
	}
	email, ok := v.(string)
	return email, ok
}
