package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"codepair/api/internal/identity"
	"codepair/api/internal/models"
)

const currentUserKey = "current_user"

type UserResolver interface {
	Resolve(ctx context.Context, externalID string) (models.User, error)
}

// Auth verifies the provider credential and attaches the resolved local
// user to the request context. Every protected handler downstream can
// assume the user exists locally.
func Auth(jwtSecret string, resolver UserResolver, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		externalID, err := identity.ParseToken(tokenStr, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		user, err := resolver.Resolve(c.Request.Context(), externalID)
		if err != nil {
			log.Error().Err(err).Str("external_id", externalID).Msg("identity resolution failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
			return
		}

		c.Set(currentUserKey, user)

		c.Next()
	}
}

// CurrentUser pulls the resolved user attached by Auth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	userVal, exists := c.Get(currentUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := userVal.(models.User)
	return user, ok
}
