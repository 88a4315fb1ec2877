package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tally-ledger/backend/internal/httputil"
)

const (
	contextUserID = "tally-user-id"
	contextRole   = "tally-role"
)

var ErrForbidden = errors.New("you are not allowed to access this resource")

// Middleware rejects requests without a valid bearer token and stores the
// caller in the context.
func Middleware(t *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			httputil.AbortWithError(c, http.StatusUnauthorized, ErrInvalidToken)
			return
		}

		id, role, err := t.Parse(token)
		if err != nil {
			log.Debug().Str("request-id", requestid.Get(c)).Err(err).Msg("Auth")
			httputil.AbortWithError(c, http.StatusUnauthorized, ErrInvalidToken)
			return
		}

		c.Set(contextUserID, id)
		c.Set(contextRole, role)
		c.Next()
	}
}

// RequireRole rejects callers that do not have the role. It must run
// after Middleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(contextRole) != role {
			httputil.AbortWithError(c, http.StatusForbidden, ErrForbidden)
			return
		}
		c.Next()
	}
}

// UserID returns the ID of the authenticated caller.
func UserID(c *gin.Context) uuid.UUID {
	id, _ := c.Get(contextUserID)
	u, _ := id.(uuid.UUID)
	return u
}
