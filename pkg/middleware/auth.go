package middleware

import (
	"context"
	"strings"

	"licenseguard/backend/pkg/cache"
	"licenseguard/backend/pkg/errors"
	"licenseguard/backend/pkg/jwt"
	"licenseguard/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserVerifier confirms that a token subject still refers to an existing account
type UserVerifier interface {
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
}

func notAuthenticated(message string) *errors.AppError {
	return errors.NewUnauthorizedError(errors.CodeNotAuthenticated, message)
}

// bearerToken reads the token from the Authorization header. WebSocket
// upgrades may pass it as ?token= because browsers cannot set headers there.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
			return strings.TrimSpace(header[7:])
		}
		return ""
	}

	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return c.Query("token")
	}
	return ""
}

// JWTAuthMiddleware checks that the request carries a valid JWT for an
// existing user and stores the user id under "userID"
func JWTAuthMiddleware(jwtService *jwt.Service, users UserVerifier, known *cache.Cache, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Error(notAuthenticated("Authentication required"))
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			log.Warn("Invalid JWT token", "error", err.Error())
			c.Error(notAuthenticated("Invalid or expired token"))
			c.Abort()
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			c.Error(notAuthenticated("Invalid or expired token"))
			c.Abort()
			return
		}

		if _, ok := known.Get(userID.String()); !ok {
			exists, err := users.UserExists(c.Request.Context(), userID)
			if err != nil {
				c.Error(err)
				c.Abort()
				return
			}
			if !exists {
				c.Error(notAuthenticated("Account no longer exists"))
				c.Abort()
				return
			}
			known.Set(userID.String(), true)
		}

		c.Set("claims", claims)
		c.Set("userID", userID)

		c.Next()
	}
}

// UserID returns the authenticated user id set by JWTAuthMiddleware
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get("userID")
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}
