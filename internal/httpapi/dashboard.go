package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bot_license_panel/internal/domain"
	"bot_license_panel/internal/logging"
	"bot_license_panel/internal/notify"
)

// handleRoot serves the bot list for an authenticated operator and redirects
// everyone else into the login flow, mirroring a dashboard landing page.
func (s *Server) handleRoot(c *gin.Context) {
	if !s.gate.Allowed(c) {
		c.Redirect(http.StatusFound, "/auth/login")
		return
	}

	s.handleListBots(c)
}

func (s *Server) handleListBots(c *gin.Context) {
	records, err := s.bots.List(c.Request.Context())
	if err != nil {
		s.logger.WithField("event", "list_bots_error").WithError(err).Error("bot listing failed")
		errorResponse(c, http.StatusInternalServerError, "server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"bots": records})
}

func (s *Server) handleGetBot(c *gin.Context) {
	record, err := s.bots.GetByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WithField("event", "get_bot_error").WithError(err).Error("bot lookup failed")
		}
		storeError(c, err, http.StatusNotFound, "bot not found")
		return
	}

	c.JSON(http.StatusOK, record)
}

func (s *Server) handleApprove(c *gin.Context) {
	s.setApproval(c, true, "bot approved")
}

func (s *Server) handleUnapprove(c *gin.Context) {
	s.setApproval(c, false, "bot unapproved")
}

func (s *Server) setApproval(c *gin.Context, approved bool, message string) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.bots.SetApproved(c.Request.Context(), req.Token, approved); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WithField("event", "approval_error").WithError(err).Error("approval update failed")
		}
		storeError(c, err, http.StatusNotFound, "bot not found")
		return
	}

	s.logger.WithFields(logging.Fields{
		"event":    "approval_changed",
		"token":    req.Token,
		"approved": approved,
	}).Info(message)

	messageResponse(c, http.StatusOK, message)
}

// handleSetPassword updates the per-bot password policy. The force-restart
// flag always goes up with it: the running bot only applies the new policy
// after restarting, so the restart request is part of the operation. A
// best-effort kill call nudges a reachable bot immediately; an unreachable
// one still sees forceRestart on its next poll.
func (s *Server) handleSetPassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	if err := s.bots.SetPassword(ctx, req.Token, *req.Enable, req.Password); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WithField("event", "password_error").WithError(err).Error("password update failed")
		}
		storeError(c, err, http.StatusNotFound, "bot not found")
		return
	}

	record, err := s.bots.GetByToken(ctx, req.Token)
	if err != nil {
		storeError(c, err, http.StatusNotFound, "bot not found")
		return
	}

	advisory := s.notifyBot(c, record)

	s.logger.WithFields(logging.Fields{
		"event":   "password_changed",
		"token":   req.Token,
		"enabled": *req.Enable,
		"notify":  advisory,
	}).Info("password policy updated")

	c.JSON(http.StatusOK, gin.H{"message": "password policy updated", "notify": advisory})
}

// handleStopBot requests a remote stop. The notification is advisory: the
// operator's request succeeds whether or not the bot could be reached.
func (s *Server) handleStopBot(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := s.bots.GetByToken(c.Request.Context(), req.Token)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WithField("event", "stop_bot_error").WithError(err).Error("bot lookup failed")
		}
		storeError(c, err, http.StatusNotFound, "bot not found")
		return
	}

	advisory := s.notifyBot(c, record)

	s.logger.WithFields(logging.Fields{
		"event":       "stop_requested",
		"token":       record.Token,
		"client_name": record.ClientName,
		"notify":      advisory,
	}).Info("stop signal requested")

	if s.alerts != nil {
		s.alerts.StopRequested(c.Request.Context(), record.ClientName, advisory)
	}

	c.JSON(http.StatusOK, gin.H{"message": "stop requested", "notify": advisory})
}

func (s *Server) notifyBot(c *gin.Context, record domain.BotRecord) string {
	err := s.notifier.Notify(c.Request.Context(), record.CallbackURL)
	switch {
	case err == nil:
		return NotifySent
	case errors.Is(err, notify.ErrNoEndpoint):
		return NotifyNoEndpoint
	default:
		return NotifyFailed
	}
}
