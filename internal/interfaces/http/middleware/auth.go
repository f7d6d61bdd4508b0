// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hoodskool/hoodskool-backend/internal/pkg/auth"
)

const (
	contextKeyUserID    = "user_id"
	contextKeyUserEmail = "user_email"
)

// AuthMiddleware requires a valid ID token
func AuthMiddleware(verifier auth.TokenVerifier, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			return
		}

		tokenString := auth.ExtractTokenFromHeader(authHeader)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format",
			})
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), tokenString)
		if err != nil {
			logger.WithError(err).WithField("request_id", c.GetString(contextKeyRequestID)).Debug("Rejected ID token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		setIdentity(c, identity)
		c.Next()
	}
}

// OptionalAuthMiddleware sets the user when a valid token is present and
// otherwise lets the request through as a guest.
func OptionalAuthMiddleware(verifier auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if tokenString == "" {
			c.Next()
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), tokenString)
		if err != nil {
			c.Next()
			return
		}

		setIdentity(c, identity)
		c.Next()
	}
}

func setIdentity(c *gin.Context, identity auth.Identity) {
	c.Set(contextKeyUserID, identity.UID)
	if identity.Email != "" {
		c.Set(contextKeyUserEmail, identity.Email)
	}
}

// GetUserIDFromContext extracts the authenticated uid from gin context
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID := c.GetString(contextKeyUserID)
	return userID, userID != ""
}

// GetUserEmailFromContext extracts the user email from gin context
func GetUserEmailFromContext(c *gin.Context) (string, bool) {
	email := c.GetString(contextKeyUserEmail)
	return email, email != ""
}
