package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thrivewell/wellness-backend/internal/pkg/apierr"
	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/requestdata"
	"github.com/thrivewell/wellness-backend/internal/services"
	"github.com/thrivewell/wellness-backend/internal/types"
)

type PacketHandler struct {
	log          *logger.Logger
	lifecycleSvc services.LifecycleService
}

func NewPacketHandler(log *logger.Logger, lifecycleSvc services.LifecycleService) *PacketHandler {
	return &PacketHandler{
		log:          log.With("handler", "PacketHandler"),
		lifecycleSvc: lifecycleSvc,
	}
}

// GET /api/packets
// A client's own packets.
func (h *PacketHandler) ListMine(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.ClientID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, apierr.CodeUnauthorized, nil)
		return
	}
	packets, err := h.lifecycleSvc.ListForClient(c.Request.Context(), rd.ClientID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"packets": packets})
}

// GET /api/admin/packets?clientId=
func (h *PacketHandler) ListForClient(c *gin.Context) {
	clientID, err := uuid.Parse(c.Query("clientId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	packets, err := h.lifecycleSvc.ListForClient(c.Request.Context(), clientID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"packets": packets})
}

type editPacketRequest struct {
	Content      map[string]any      `json:"content"`
	TargetStatus *types.PacketStatus `json:"target_status"`
}

// PATCH /api/admin/packets/:id
func (h *PacketHandler) Edit(c *gin.Context) {
	packetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	var req editPacketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	result, err := h.lifecycleSvc.Edit(c.Request.Context(), packetID, services.EditInput{
		Content:      req.Content,
		TargetStatus: req.TargetStatus,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	resp := gin.H{"packet": result.Packet}
	// Side-effect outcomes are reported only when this edit triggered them.
	if result.PDFAttempted {
		resp["pdf_regenerated"] = result.PDFErr == nil
	}
	if result.NotifyAttempted {
		resp["client_notified"] = result.NotifyErr == nil
	}
	RespondOK(c, resp)
}

// POST /api/admin/packets/:id/send
func (h *PacketHandler) Send(c *gin.Context) {
	packetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	result, err := h.lifecycleSvc.Send(c.Request.Context(), packetID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"packet":          result.Packet,
		"client_notified": result.NotifyErr == nil,
	})
}

// DELETE /api/admin/packets/:id
func (h *PacketHandler) Delete(c *gin.Context) {
	packetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	result, err := h.lifecycleSvc.Delete(c.Request.Context(), packetID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"deleted":          true,
		"artifact_removed": result.ArtifactErr == nil,
	})
}
