package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelanceos/internal/service/upload"
	"freelanceos/pkg/llm"
	"freelanceos/pkg/metrics"
)

// IntegrationHandler exposes the raw model call and file upload.
type IntegrationHandler struct {
	llm     llm.Invoker
	uploads *upload.Service
	logger  *zap.Logger
}

func NewIntegrationHandler(inv llm.Invoker, uploads *upload.Service, logger *zap.Logger) *IntegrationHandler {
	return &IntegrationHandler{llm: inv, uploads: uploads, logger: logger}
}

// InvokeLLM handles POST /llm/invoke
func (h *IntegrationHandler) InvokeLLM(c *gin.Context) {
	var req llm.Request
	if err := c.ShouldBindJSON(&req); err != nil || req.Prompt == "" {
		badRequest(c, "prompt is required")
		return
	}
	resp, err := h.llm.Invoke(c.Request.Context(), req)
	if err != nil {
		metrics.IncrementAIAction("invoke", "error")
		respondError(c, h.logger, err)
		return
	}
	metrics.IncrementAIAction("invoke", "ok")
	if len(req.ResponseJSONSchema) > 0 && len(resp.JSON) > 0 {
		c.Data(http.StatusOK, "application/json; charset=utf-8", resp.JSON)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": resp.Text})
}

// UploadFile handles POST /files (multipart field "file").
func (h *IntegrationHandler) UploadFile(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "unreadable file")
		return
	}
	defer f.Close()

	res, err := h.uploads.Save(c.Request.Context(), fh.Filename, f)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
