// Package httpapi hosts the panel's HTTP surface: the registration/polling
// API consumed by bot clients and the identity-gated operator dashboard API.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bot_license_panel/internal/auth"
	"bot_license_panel/internal/domain"
	"bot_license_panel/internal/logging"
)

const readHeaderTimeout = 5 * time.Second

// BotStore is the persistence surface the handlers need.
type BotStore interface {
	Create(ctx context.Context, record domain.BotRecord) (domain.BotRecord, error)
	GetByToken(ctx context.Context, token string) (domain.BotRecord, error)
	List(ctx context.Context) ([]domain.BotRecord, error)
	ReplaceServers(ctx context.Context, token string, servers []domain.HostedServer) error
	SetApproved(ctx context.Context, token string, approved bool) error
	SetPassword(ctx context.Context, token string, enabled bool, password string) error
	ClearForceRestart(ctx context.Context, token string) error
}

// Notifier delivers the best-effort stop/restart signal.
type Notifier interface {
	Notify(ctx context.Context, callbackURL string) error
}

// Alerter pushes optional operator alerts; implementations must be best-effort.
type Alerter interface {
	BotRegistered(ctx context.Context, clientName, token string)
	StopRequested(ctx context.Context, clientName, outcome string)
}

// Server wires the gin router and owns the underlying HTTP server.
type Server struct {
	bots     BotStore
	notifier Notifier
	alerts   Alerter
	gate     *auth.Gate
	flow     *auth.Flow
	logger   *logrus.Entry

	server *http.Server
}

// Option customizes optional collaborators.
type Option func(*Server)

// WithAlerter attaches the operator alert channel.
func WithAlerter(alerts Alerter) Option {
	return func(s *Server) {
		s.alerts = alerts
	}
}

// NewServer constructs the API server listening on the provided port.
func NewServer(port int, bots BotStore, notifier Notifier, gate *auth.Gate, flow *auth.Flow, logger *logrus.Entry, opts ...Option) (*Server, error) {
	if bots == nil {
		return nil, errors.New("bot store is required")
	}
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if gate == nil {
		return nil, errors.New("identity gate is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	srv := &Server{
		bots:     bots,
		notifier: notifier,
		gate:     gate,
		flow:     flow,
		logger:   logger,
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return srv, nil
}

// Router builds the gin handler tree.
func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/", s.handleRoot)

	if s.flow != nil {
		s.flow.Register(router.Group("/auth"))
	}

	api := router.Group("/api")
	api.POST("/register-bot", s.handleRegister)
	api.POST("/update-servers", s.handleReportServers)
	api.GET("/check-activation", s.handlePollActivation)
	api.POST("/check-activation-reset", s.handleAcknowledgeRestart)

	dashboard := router.Group("/dashboard", s.gate.Middleware())
	dashboard.GET("", s.handleListBots)
	dashboard.GET("/bot/:token", s.handleGetBot)
	dashboard.POST("/approve", s.handleApprove)
	dashboard.POST("/unapprove", s.handleUnapprove)
	dashboard.POST("/password", s.handleSetPassword)
	dashboard.POST("/stop-bot", s.handleStopBot)

	return router
}

// ListenAndServe starts the API server and blocks until shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.WithFields(logging.Fields{
		"event": "api_listen",
		"addr":  s.server.Addr,
	}).Info("starting api server")

	if err := s.server.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			s.logger.WithField("event", "api_stopped").Info("api server stopped")
			return nil
		}

		return fmt.Errorf("api server listen: %w", err)
	}

	s.logger.WithField("event", "api_stopped").Info("api server stopped")
	return nil
}

// Shutdown gracefully stops the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.WithFields(logging.Fields{
			"event":    "http_request",
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request handled")
	}
}
