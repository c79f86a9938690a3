package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bot_license_panel/internal/domain"
)

// Notify advisory values reported to the operator after stop/restart attempts.
const (
	NotifySent       = "sent"
	NotifyFailed     = "failed"
	NotifyNoEndpoint = "no reachable endpoint"
)

type serverPayload struct {
	ID                    string `json:"id" binding:"required"`
	Name                  string `json:"name"`
	InviteLink            string `json:"inviteLink"`
	HasElevatedPermission bool   `json:"hasElevatedPermission"`
}

type registerRequest struct {
	Token       string          `json:"token" binding:"required"`
	ClientName  string          `json:"client_name" binding:"required"`
	Servers     []serverPayload `json:"servers"`
	CallbackURL string          `json:"callbackURL"`
}

type reportServersRequest struct {
	Token   string          `json:"token" binding:"required"`
	Servers []serverPayload `json:"servers"`
}

type tokenRequest struct {
	Token string `json:"token" binding:"required"`
}

type passwordRequest struct {
	Token    string `json:"token" binding:"required"`
	Enable   *bool  `json:"enable" binding:"required"`
	Password string `json:"password"`
}

// activationResponse is the polling contract. Every field except approved is
// omitted when false/empty so an unknown token and a known-but-unapproved bot
// produce byte-identical bodies.
type activationResponse struct {
	Approved        bool   `json:"approved"`
	PasswordEnabled bool   `json:"passwordEnabled,omitempty"`
	Password        string `json:"password,omitempty"`
	ForceRestart    bool   `json:"forceRestart,omitempty"`
}

func toHostedServers(payloads []serverPayload) []domain.HostedServer {
	servers := make([]domain.HostedServer, 0, len(payloads))
	for _, p := range payloads {
		servers = append(servers, domain.HostedServer{
			ID:                    p.ID,
			Name:                  p.Name,
			InviteLink:            p.InviteLink,
			HasElevatedPermission: p.HasElevatedPermission,
		})
	}
	return servers
}

func messageResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// storeError maps repository failures to the wire contract. notFoundStatus
// varies per endpoint: the bot-facing report call answers 400 where the
// operator API answers 404.
func storeError(c *gin.Context, err error, notFoundStatus int, notFoundMessage string) {
	if errors.Is(err, domain.ErrNotFound) {
		errorResponse(c, notFoundStatus, notFoundMessage)
		return
	}

	errorResponse(c, http.StatusInternalServerError, "server error")
}
