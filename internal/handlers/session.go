package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thrivewell/wellness-backend/internal/pkg/apierr"
	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/services"
)

type SessionHandler struct {
	log     *logger.Logger
	authSvc services.AuthService
}

func NewSessionHandler(log *logger.Logger, authSvc services.AuthService) *SessionHandler {
	return &SessionHandler{
		log:     log.With("handler", "SessionHandler"),
		authSvc: authSvc,
	}
}

type startSessionRequest struct {
	Email string `json:"email"`
}

// POST /api/session
// Anonymous entrypoint: the intake form starts from an email address alone.
func (h *SessionHandler) Start(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	result, err := h.authSvc.StartSession(c.Request.Context(), req.Email)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"token":     result.Token,
		"client_id": result.ClientID,
	})
}
