package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelanceos/pkg/outbox"
)

// OutboxReplayer is satisfied by *outbox.ReplayService.
type OutboxReplayer interface {
	ReplayEvent(ctx context.Context, eventID int64) error
	ReplayFailedEvents(ctx context.Context, limit int) (int, error)
	FailedEvents(ctx context.Context, limit int) ([]*outbox.Event, error)
}

type AdminHandler struct {
	replayService OutboxReplayer
	logger        *zap.Logger
}

func NewAdminHandler(replayService OutboxReplayer, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		replayService: replayService,
		logger:        logger,
	}
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		return 100
	}
	return limit
}

// ReplayOutboxEvent handles POST /admin/outbox/replay?id=xxx
func (h *AdminHandler) ReplayOutboxEvent(c *gin.Context) {
	idStr := c.Query("id")
	if idStr == "" {
		badRequest(c, "missing id parameter")
		return
	}
	eventID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		badRequest(c, "invalid id parameter")
		return
	}

	if err := h.replayService.ReplayEvent(c.Request.Context(), eventID); err != nil {
		h.logger.Error("Failed to replay event", zap.Int64("event_id", eventID), zap.Error(err))
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "replayed", "event_id": eventID})
}

// ReplayFailedEvents handles POST /admin/outbox/replay-failed?limit=100
func (h *AdminHandler) ReplayFailedEvents(c *gin.Context) {
	limit := queryLimit(c)
	successCount, err := h.replayService.ReplayFailedEvents(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "completed",
		"success_count": successCount,
		"limit":         limit,
	})
}

// FailedEvents handles GET /admin/outbox/failed?limit=100
func (h *AdminHandler) FailedEvents(c *gin.Context) {
	events, err := h.replayService.FailedEvents(c.Request.Context(), queryLimit(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
