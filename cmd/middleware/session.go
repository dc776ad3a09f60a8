package middleware

import (
	"context"
	"strings"
	"time"

	"account-service/cmd/responses"
	"account-service/internal/apperr"
	"account-service/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	userKey      = "currentUser"
	bearerPrefix = "Bearer "
)

// Authenticator resolves a bearer token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Session rejects requests without a valid bearer token and stores the
// authenticated user on the context.
func Session(auth Authenticator, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			responses.HandleHttpError(c, apperr.ErrTokenMissing, "NOT_SESSION")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
		if token == "" {
			responses.HandleHttpError(c, apperr.ErrTokenMissing, "NOT_SESSION")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		user, err := auth.Authenticate(ctx, token)
		if err != nil {
			responses.HandleHttpError(c, err, "NOT_SESSION")
			return
		}
		SetCurrentUser(c, user)
		c.Next()
	}
}

func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(userKey, user)
}

// CurrentUser returns the user stored by Session.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}
