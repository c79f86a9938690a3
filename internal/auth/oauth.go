package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"bot_license_panel/internal/config"
	"bot_license_panel/internal/logging"
)

const (
	stateCookie       = "panel_oauth_state"
	stateCookieMaxAge = 10 * 60 // seconds

	identityTimeout = 10 * time.Second
)

// identity is the subset of the provider's user document the panel needs.
type identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Flow drives the operator login: authorize redirect, code exchange, identity
// fetch, and session establishment.
type Flow struct {
	oauth       oauth2.Config
	identityURL string
	client      *resty.Client
	sessions    *SessionManager
	logger      *logrus.Entry
}

// NewFlow builds the login flow from configuration.
func NewFlow(cfg config.Config, sessions *SessionManager, logger *logrus.Entry) (*Flow, error) {
	if sessions == nil {
		return nil, errors.New("session manager is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	return &Flow{
		oauth: oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  cfg.OAuthRedirectURI,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.OAuthAuthorizeURL,
				TokenURL: cfg.OAuthTokenURL,
			},
		},
		identityURL: cfg.OAuthIdentityURL,
		client:      resty.New().SetTimeout(identityTimeout),
		sessions:    sessions,
		logger:      logger,
	}, nil
}

// Register mounts the login endpoints on the /auth group.
func (f *Flow) Register(group *gin.RouterGroup) {
	group.GET("/login", f.handleLogin)
	group.GET("/callback", f.handleCallback)
	group.GET("/logout", f.handleLogout)
}

func (f *Flow) handleLogin(c *gin.Context) {
	state, err := newState()
	if err != nil {
		f.logger.WithField("event", "oauth_state_error").WithError(err).Error("failed to generate state")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   stateCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	c.Redirect(http.StatusFound, f.oauth.AuthCodeURL(state))
}

func (f *Flow) handleCallback(c *gin.Context) {
	stored, err := c.Cookie(stateCookie)
	if err != nil || stored == "" || c.Query("state") != stored {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state mismatch"})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	token, err := f.oauth.Exchange(c.Request.Context(), code)
	if err != nil {
		f.logger.WithField("event", "oauth_exchange_error").WithError(err).Error("code exchange failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "token exchange failed"})
		return
	}

	who, err := f.fetchIdentity(c, token.AccessToken)
	if err != nil {
		f.logger.WithField("event", "oauth_identity_error").WithError(err).Error("identity fetch failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "identity fetch failed"})
		return
	}

	cookieValue, err := f.sessions.Issue(c.Request.Context(), who.ID, who.Username)
	if err != nil {
		f.logger.WithField("event", "session_issue_error").WithError(err).Error("session creation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	SetSessionCookie(c, cookieValue)

	f.logger.WithFields(logging.Fields{
		"event":       "operator_login",
		"identity_id": who.ID,
	}).Info("operator logged in")

	c.Redirect(http.StatusFound, "/")
}

func (f *Flow) handleLogout(c *gin.Context) {
	if cookieValue, err := c.Cookie(SessionCookie); err == nil {
		if err := f.sessions.Revoke(c.Request.Context(), cookieValue); err != nil {
			f.logger.WithField("event", "session_revoke_error").WithError(err).Warn("session revoke failed")
		}
	}

	ClearSessionCookie(c)
	c.Redirect(http.StatusFound, "/auth/login")
}

func (f *Flow) fetchIdentity(c *gin.Context, accessToken string) (identity, error) {
	var who identity

	resp, err := f.client.R().
		SetContext(c.Request.Context()).
		SetAuthToken(accessToken).
		SetResult(&who).
		Get(f.identityURL)
	if err != nil {
		return identity{}, fmt.Errorf("fetch identity: %w", err)
	}
	if resp.IsError() {
		return identity{}, fmt.Errorf("fetch identity: unexpected status %d", resp.StatusCode())
	}
	if who.ID == "" {
		return identity{}, errors.New("fetch identity: empty id")
	}

	return who, nil
}

func newState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
