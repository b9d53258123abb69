package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelanceos/internal/model"
	"freelanceos/internal/service/task"
)

type TaskHandler struct {
	tasks  *task.Service
	logger *zap.Logger
}

func NewTaskHandler(svc *task.Service, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: svc, logger: logger}
}

// List handles GET /tasks?view=list|board|timeline with the board filters.
// Timeline takes from/to (YYYY-MM-DD) and defaults to the next 30 days.
func (h *TaskHandler) List(c *gin.Context) {
	var f task.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, "invalid filter")
		return
	}
	tasks, err := h.tasks.Load(c.Request.Context(), f, c.DefaultQuery("sort", "created_date"), c.Query("desc") == "true")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	switch c.DefaultQuery("view", "list") {
	case "list":
		c.JSON(http.StatusOK, gin.H{"tasks": tasks})
	case "board":
		c.JSON(http.StatusOK, gin.H{"columns": task.Board(tasks)})
	case "timeline":
		from := time.Now().UTC()
		if v := c.Query("from"); v != "" {
			t, ok := model.ParseDate(v)
			if !ok {
				badRequest(c, "invalid from date")
				return
			}
			from = t
		}
		to := from.AddDate(0, 0, 30)
		if v := c.Query("to"); v != "" {
			t, ok := model.ParseDate(v)
			if !ok || !t.After(from) {
				badRequest(c, "invalid to date")
				return
			}
			to = t
		}
		c.JSON(http.StatusOK, gin.H{
			"from": model.FormatDate(from),
			"to":   model.FormatDate(to),
			"bars": task.Timeline(tasks, from, to),
		})
	default:
		badRequest(c, "view must be list, board or timeline")
	}
}

// Move handles POST /tasks/:id/move
func (h *TaskHandler) Move(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	t, err := h.tasks.Move(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Toggle handles POST /tasks/:id/toggle
func (h *TaskHandler) Toggle(c *gin.Context) {
	t, err := h.tasks.ToggleComplete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// AIPrioritize handles POST /tasks/ai-prioritize
func (h *TaskHandler) AIPrioritize(c *gin.Context) {
	var f task.Filter
	if err := c.ShouldBindJSON(&f); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, "invalid filter")
		return
	}
	res, err := h.tasks.AIPrioritize(c.Request.Context(), f)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
