package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bot_license_panel/internal/logging"
)

// legacyIdentityParam lets simple clients pass their identity directly instead
// of going through the OAuth2 session flow. Both modes resolve to the same
// binary decision against the single configured admin id.
const legacyIdentityParam = "admin_id"

// Gate authorizes operator requests. One admin id, no roles; generalizing to a
// set-membership check would not change the external contract.
type Gate struct {
	adminID  string
	sessions *SessionManager
	logger   *logrus.Entry
}

// NewGate constructs a Gate for the configured admin identity.
func NewGate(adminID string, sessions *SessionManager, logger *logrus.Entry) *Gate {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Gate{
		adminID:  adminID,
		sessions: sessions,
		logger:   logger,
	}
}

// Identity resolves the caller's identity id, preferring the session cookie
// and falling back to the legacy query parameter. The empty string means
// unauthenticated.
func (g *Gate) Identity(c *gin.Context) string {
	if g == nil {
		return ""
	}

	if g.sessions != nil {
		if cookieValue, err := c.Cookie(SessionCookie); err == nil && cookieValue != "" {
			if session, err := g.sessions.Resolve(c.Request.Context(), cookieValue); err == nil {
				return session.IdentityID
			}
		}
	}

	return strings.TrimSpace(c.Query(legacyIdentityParam))
}

// Allowed reports whether the caller is the configured admin.
func (g *Gate) Allowed(c *gin.Context) bool {
	if g == nil || g.adminID == "" {
		return false
	}

	return g.Identity(c) == g.adminID
}

// Middleware rejects non-admin callers with 403 before any handler runs.
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.Allowed(c) {
			c.Next()
			return
		}

		g.logger.WithFields(logging.Fields{
			"event": "gate_denied",
			"path":  c.Request.URL.Path,
		}).Warn("operator request denied")

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}
