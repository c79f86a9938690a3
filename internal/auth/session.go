// Package auth implements the operator login flow: OAuth2 code exchange,
// Mongo-backed sessions, and the identity gate in front of the dashboard API.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bot_license_panel/internal/domain"
)

// SessionCookie is the cookie carrying the signed session id.
const SessionCookie = "panel_session"

const sessionCookieMaxAge = 7 * 24 * 60 * 60 // seconds, matches the store TTL

// SessionStore is the subset of session persistence the manager needs.
type SessionStore interface {
	Create(ctx context.Context, session domain.Session) (domain.Session, error)
	GetByID(ctx context.Context, sessionID string) (domain.Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// SessionManager issues and resolves operator sessions. The cookie value is
// "<session id>.<hmac>"; the HMAC keeps a tampered id from ever reaching the
// store lookup.
type SessionManager struct {
	store  SessionStore
	secret []byte
}

// NewSessionManager constructs a SessionManager signing cookies with secret.
func NewSessionManager(store SessionStore, secret string) (*SessionManager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session secret is required")
	}

	return &SessionManager{
		store:  store,
		secret: []byte(secret),
	}, nil
}

// Issue creates a session for the authenticated identity and returns the
// signed cookie value.
func (m *SessionManager) Issue(ctx context.Context, identityID, username string) (string, error) {
	if m == nil || m.store == nil {
		return "", errors.New("session manager is not initialized")
	}
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if identityID == "" {
		return "", errors.New("identity id is required")
	}

	session, err := m.store.Create(ctx, domain.Session{
		SessionID:  uuid.NewString(),
		IdentityID: identityID,
		Username:   username,
	})
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	return session.SessionID + "." + m.sign(session.SessionID), nil
}

// Resolve verifies the cookie signature and loads the session record. Returns
// domain.ErrNotFound for unknown, expired, or tampered values.
func (m *SessionManager) Resolve(ctx context.Context, cookieValue string) (domain.Session, error) {
	if m == nil || m.store == nil {
		return domain.Session{}, errors.New("session manager is not initialized")
	}
	if ctx == nil {
		return domain.Session{}, errors.New("context is required")
	}

	sessionID, signature, found := strings.Cut(cookieValue, ".")
	if !found || sessionID == "" {
		return domain.Session{}, domain.ErrNotFound
	}

	if !hmac.Equal([]byte(signature), []byte(m.sign(sessionID))) {
		return domain.Session{}, domain.ErrNotFound
	}

	return m.store.GetByID(ctx, sessionID)
}

// Revoke deletes the session behind the cookie value; unknown or malformed
// values are ignored.
func (m *SessionManager) Revoke(ctx context.Context, cookieValue string) error {
	if m == nil || m.store == nil {
		return errors.New("session manager is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	sessionID, _, found := strings.Cut(cookieValue, ".")
	if !found || sessionID == "" {
		return nil
	}

	return m.store.Delete(ctx, sessionID)
}

func (m *SessionManager) sign(sessionID string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(sessionID))
	return hex.EncodeToString(mac.Sum(nil))
}

// SetSessionCookie attaches the signed session cookie to the response.
func SetSessionCookie(c *gin.Context, value string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
