package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/kwentura-service/internal/events"
	"github.com/tesseract-hub/kwentura-service/internal/identity"
)

// ContextKeyCallerUID is the gin context key holding the verified caller UID
const ContextKeyCallerUID = "caller_uid"

// TokenVerifier verifies identity provider ID tokens
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*identity.Token, error)
}

// FirebaseAuth verifies an optional "Authorization: Bearer <idToken>" header.
// Requests without a header continue anonymously and each operation decides
// whether it needs a caller. A header that fails verification is rejected.
func FirebaseAuth(verifier TokenVerifier, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		tokenParts := strings.SplitN(authHeader, " ", 2)
		if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "Bearer") || strings.TrimSpace(tokenParts[1]) == "" {
			logger.Warn("Invalid authorization header format")
			abortUnauthenticated(c, "Authorization header must be in format: Bearer <token>")
			return
		}

		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(tokenParts[1]))
		if err != nil {
			logger.WithError(err).Warn("Invalid or expired token")
			abortUnauthenticated(c, "Invalid or expired token")
			return
		}

		c.Set(ContextKeyCallerUID, token.UID)
		// writes made while serving the request are attributed to the caller
		c.Request = c.Request.WithContext(events.WithActor(c.Request.Context(), token.UID))

		logger.WithField("uid", token.UID).Debug("Caller authenticated")
		c.Next()
	}
}

// CallerUID returns the verified caller UID, or "" for anonymous requests
func CallerUID(c *gin.Context) string {
	return c.GetString(ContextKeyCallerUID)
}

func abortUnauthenticated(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"status":  "UNAUTHENTICATED",
			"message": message,
		},
	})
}
