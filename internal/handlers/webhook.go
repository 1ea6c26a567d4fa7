package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thrivewell/wellness-backend/internal/pkg/apierr"
	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/services"
	"github.com/thrivewell/wellness-backend/internal/types"
)

const webhookSecretHeader = "X-Webhook-Secret"

type WebhookHandler struct {
	log          *logger.Logger
	lifecycleSvc services.LifecycleService
	secret       string
}

func NewWebhookHandler(log *logger.Logger, lifecycleSvc services.LifecycleService, secret string) *WebhookHandler {
	return &WebhookHandler{
		log:          log.With("handler", "WebhookHandler"),
		lifecycleSvc: lifecycleSvc,
		secret:       secret,
	}
}

type packetStatusRequest struct {
	ClientID    *uuid.UUID         `json:"clientId"`
	ClientEmail string             `json:"clientEmail"`
	PacketType  types.PacketType   `json:"packetType"`
	Status      types.PacketStatus `json:"status"`
	DocURL      string             `json:"docUrl"`
	Error       string             `json:"error"`
}

// POST /webhooks/packet-status
// Authenticated by shared secret, not by session: the caller is the external
// generation worker. The comparison is constant-time.
func (h *WebhookHandler) PacketStatus(c *gin.Context) {
	if !h.authorized(c) {
		h.log.Warn("Webhook rejected: bad or missing secret", "remote_addr", c.ClientIP())
		RespondError(c, http.StatusUnauthorized, apierr.CodeUnauthorized, nil)
		return
	}

	var req packetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	// Exactly one client reference is allowed.
	hasID := req.ClientID != nil && *req.ClientID != uuid.Nil
	hasEmail := req.ClientEmail != ""
	if hasID == hasEmail {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, errClientRef)
		return
	}

	result, err := h.lifecycleSvc.HandleCallback(c.Request.Context(), services.CallbackInput{
		ClientID:    req.ClientID,
		ClientEmail: req.ClientEmail,
		PacketType:  req.PacketType,
		Status:      req.Status,
		DocURL:      req.DocURL,
		Error:       req.Error,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"packet": result.Packet})
}

func (h *WebhookHandler) authorized(c *gin.Context) bool {
	if h.secret == "" {
		return false
	}
	got := c.GetHeader(webhookSecretHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}

var errClientRef = apierr.Validation("exactly one of clientId or clientEmail required")
