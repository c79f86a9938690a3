package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bot_license_panel/internal/domain"
	"bot_license_panel/internal/logging"
)

// handleRegister creates the bot record; the bot starts unapproved and polls
// until the operator acts.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := s.bots.Create(c.Request.Context(), domain.BotRecord{
		Token:       req.Token,
		ClientName:  req.ClientName,
		Servers:     toHostedServers(req.Servers),
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateToken) {
			errorResponse(c, http.StatusBadRequest, "bot already registered")
			return
		}

		s.logger.WithField("event", "register_error").WithError(err).Error("bot registration failed")
		errorResponse(c, http.StatusInternalServerError, "server error")
		return
	}

	s.logger.WithFields(logging.Fields{
		"event":       "bot_registered",
		"token":       created.Token,
		"client_name": created.ClientName,
	}).Info("registered new bot")

	if s.alerts != nil {
		s.alerts.BotRegistered(c.Request.Context(), created.ClientName, created.Token)
	}

	messageResponse(c, http.StatusCreated, "bot registered, awaiting approval")
}

// handleReportServers wholesale-replaces the hosted-server list. Unknown
// tokens answer 400, matching what registered clients expect from this path.
func (s *Server) handleReportServers(c *gin.Context) {
	var req reportServersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.bots.ReplaceServers(c.Request.Context(), req.Token, toHostedServers(req.Servers))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WithField("event", "report_servers_error").WithError(err).Error("server report failed")
		}
		storeError(c, err, http.StatusBadRequest, "bot not registered")
		return
	}

	messageResponse(c, http.StatusOK, "servers updated")
}

// handlePollActivation returns the activation/policy snapshot. An unknown
// token yields {"approved":false} and nothing else, indistinguishable from a
// registered-but-unapproved bot, so tokens cannot be enumerated.
func (s *Server) handlePollActivation(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusOK, activationResponse{})
		return
	}

	record, err := s.bots.GetByToken(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WithField("event", "poll_error").WithError(err).Error("activation poll failed")
			errorResponse(c, http.StatusInternalServerError, "server error")
			return
		}

		c.JSON(http.StatusOK, activationResponse{})
		return
	}

	c.JSON(http.StatusOK, activationResponse{
		Approved:        record.Approved,
		PasswordEnabled: record.PasswordEnabled,
		Password:        record.Password,
		ForceRestart:    record.ForceRestart,
	})
}

// handleAcknowledgeRestart clears the one-shot restart flag after the bot has
// acted on it. Clearing is always this explicit call, never a side effect of
// a poll.
func (s *Server) handleAcknowledgeRestart(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.bots.ClearForceRestart(c.Request.Context(), req.Token); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WithField("event", "restart_ack_error").WithError(err).Error("restart acknowledge failed")
		}
		storeError(c, err, http.StatusNotFound, "bot not found")
		return
	}

	s.logger.WithFields(logging.Fields{
		"event": "restart_acknowledged",
		"token": req.Token,
	}).Info("force restart cleared")

	messageResponse(c, http.StatusOK, "restart acknowledged")
}
