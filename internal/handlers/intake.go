package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thrivewell/wellness-backend/internal/pkg/apierr"
	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/services"
	"github.com/thrivewell/wellness-backend/internal/types"
)

type IntakeHandler struct {
	log          *logger.Logger
	progressSvc  services.ProgressService
	submitSvc    services.SubmissionService
	analyticsSvc services.AnalyticsService
}

func NewIntakeHandler(
	log *logger.Logger,
	progressSvc services.ProgressService,
	submitSvc services.SubmissionService,
	analyticsSvc services.AnalyticsService,
) *IntakeHandler {
	return &IntakeHandler{
		log:          log.With("handler", "IntakeHandler"),
		progressSvc:  progressSvc,
		submitSvc:    submitSvc,
		analyticsSvc: analyticsSvc,
	}
}

type saveProgressRequest struct {
	PathID         string               `json:"path_id"`
	CurrentStep    int                  `json:"current_step"`
	TotalSteps     int                  `json:"total_steps"`
	Answers        map[string]any       `json:"answers"`
	IsComplete     bool                 `json:"is_complete"`
	FirstName      string               `json:"first_name"`
	LastName       string               `json:"last_name"`
	Classification types.Classification `json:"classification"`
}

// POST /api/intake/progress
func (h *IntakeHandler) SaveProgress(c *gin.Context) {
	var req saveProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	progress, err := h.progressSvc.Save(c.Request.Context(), services.SaveProgressInput{
		PathID:         req.PathID,
		CurrentStep:    req.CurrentStep,
		TotalSteps:     req.TotalSteps,
		Answers:        req.Answers,
		IsComplete:     req.IsComplete,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Classification: req.Classification,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"progress": progress})
}

// GET /api/intake/progress
func (h *IntakeHandler) GetProgress(c *gin.Context) {
	progress, err := h.progressSvc.Load(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	if progress == nil {
		c.JSON(http.StatusOK, gin.H{"progress": nil})
		return
	}
	RespondOK(c, gin.H{"progress": progress})
}

type abandonRequest struct {
	Classification types.Classification `json:"classification"`
	DropOffStep    *int                 `json:"drop_off_step"`
}

// POST /api/intake/abandon
// Fired from the leave-page beacon; closing an already-closed funnel is a
// no-op, so the endpoint always returns 200 for a well-formed request.
func (h *IntakeHandler) Abandon(c *gin.Context) {
	var req abandonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	record, err := h.analyticsSvc.Close(c.Request.Context(), req.Classification, services.OutcomeAbandoned, req.DropOffStep)
	if err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	RespondOK(c, gin.H{"closed": record != nil})
}

type submitRequest struct {
	Classification types.Classification `json:"classification"`
	Responses      map[string]any       `json:"responses"`
}

// POST /api/intake/submit
func (h *IntakeHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, err)
		return
	}
	result, err := h.submitSvc.Submit(c.Request.Context(), services.SubmitInput{
		Classification: req.Classification,
		Responses:      req.Responses,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"client":  result.Client,
		"packets": result.Packets,
	})
}
