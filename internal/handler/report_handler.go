package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelanceos/internal/model"
	"freelanceos/internal/service/report"
)

type ReportHandler struct {
	reports *report.Service
	logger  *zap.Logger
}

func NewReportHandler(svc *report.Service, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: svc, logger: logger}
}

// Dashboard handles GET /reports/dashboard?months=6
func (h *ReportHandler) Dashboard(c *gin.Context) {
	months, err := strconv.Atoi(c.DefaultQuery("months", "0"))
	if err != nil || months < 0 || months > 36 {
		badRequest(c, "months must be between 0 and 36")
		return
	}
	d, err := h.reports.Dashboard(c.Request.Context(), months)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Save handles POST /reports
func (h *ReportHandler) Save(c *gin.Context) {
	var r model.Report
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, "invalid request")
		return
	}
	saved, err := h.reports.SaveReport(c.Request.Context(), &r)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// Preview handles POST /reports/preview
func (h *ReportHandler) Preview(c *gin.Context) {
	var r model.Report
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, "invalid request")
		return
	}
	p, err := h.reports.Preview(c.Request.Context(), &r)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
