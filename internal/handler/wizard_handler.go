package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelanceos/internal/service/wizard"
)

type WizardHandler struct {
	wizard *wizard.Service
	logger *zap.Logger
}

func NewWizardHandler(svc *wizard.Service, logger *zap.Logger) *WizardHandler {
	return &WizardHandler{wizard: svc, logger: logger}
}

// draftView adds the badge colour the summary step renders.
func draftView(d *wizard.Draft) gin.H {
	h := gin.H{"draft": d}
	if d.RiskAnalysis != nil {
		h["risk_badge_color"] = wizard.RiskBadgeColor(d.RiskAnalysis.PredictedRisk)
	}
	return h
}

func (h *WizardHandler) respondDraft(c *gin.Context, d *wizard.Draft, err error) {
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, draftView(d))
}

// Start handles POST /wizard
func (h *WizardHandler) Start(c *gin.Context) {
	var req struct {
		ClientID string `json:"client_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, "invalid request")
		return
	}
	d, err := h.wizard.Start(c.Request.Context(), req.ClientID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, draftView(d))
}

// Get handles GET /wizard/:id
func (h *WizardHandler) Get(c *gin.Context) {
	d, err := h.wizard.Get(c.Request.Context(), c.Param("id"))
	h.respondDraft(c, d, err)
}

// UpdateStep handles PATCH /wizard/:id/steps/:step
func (h *WizardHandler) UpdateStep(c *gin.Context) {
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		badRequest(c, "invalid step")
		return
	}
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil || patch == nil {
		badRequest(c, "body must be a JSON object")
		return
	}
	d, err := h.wizard.UpdateStep(c.Request.Context(), c.Param("id"), step, patch)
	h.respondDraft(c, d, err)
}

// Next handles POST /wizard/:id/next
func (h *WizardHandler) Next(c *gin.Context) {
	d, err := h.wizard.Next(c.Request.Context(), c.Param("id"))
	h.respondDraft(c, d, err)
}

// Previous handles POST /wizard/:id/previous
func (h *WizardHandler) Previous(c *gin.Context) {
	d, err := h.wizard.Previous(c.Request.Context(), c.Param("id"))
	h.respondDraft(c, d, err)
}

// AnalyzeRisk handles POST /wizard/:id/analyze-risk
func (h *WizardHandler) AnalyzeRisk(c *gin.Context) {
	d, err := h.wizard.AnalyzeRisk(c.Request.Context(), c.Param("id"))
	h.respondDraft(c, d, err)
}

// SuggestTasks handles POST /wizard/:id/suggest-tasks
func (h *WizardHandler) SuggestTasks(c *gin.Context) {
	d, err := h.wizard.SuggestTasks(c.Request.Context(), c.Param("id"))
	h.respondDraft(c, d, err)
}

// Complete handles POST /wizard/:id/complete
func (h *WizardHandler) Complete(c *gin.Context) {
	res, err := h.wizard.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// SuggestedTasks handles GET /projects/:id/suggested-tasks
func (h *WizardHandler) SuggestedTasks(c *gin.Context) {
	tasks, err := h.wizard.SuggestedTasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project_id": c.Param("id"), "tasks": tasks})
}

// AcceptSuggestedTasks handles POST /projects/:id/suggested-tasks/accept
func (h *WizardHandler) AcceptSuggestedTasks(c *gin.Context) {
	var req struct {
		Titles []string `json:"titles"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, "invalid request")
		return
	}
	n, err := h.wizard.AcceptSuggestedTasks(c.Request.Context(), c.Param("id"), req.Titles)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "accepted": n})
}
