package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelanceos/internal/model"
	"freelanceos/internal/service/inbox"
)

type InboxHandler struct {
	inbox  *inbox.Service
	logger *zap.Logger
}

func NewInboxHandler(svc *inbox.Service, logger *zap.Logger) *InboxHandler {
	return &InboxHandler{inbox: svc, logger: logger}
}

// List handles GET /inbox?search=&channel=&client_id=&status=&flagged=true
func (h *InboxHandler) List(c *gin.Context) {
	var f inbox.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, "invalid filter")
		return
	}
	messages, counts, err := h.inbox.Load(c.Request.Context(), f)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages, "counts": counts})
}

func (h *InboxHandler) action(c *gin.Context, fn func(*gin.Context, string) (*model.Message, error)) {
	m, err := fn(c, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// Flag handles POST /inbox/:id/flag
func (h *InboxHandler) Flag(c *gin.Context) {
	h.action(c, func(c *gin.Context, id string) (*model.Message, error) {
		return h.inbox.Flag(c.Request.Context(), id)
	})
}

// Archive handles POST /inbox/:id/archive
func (h *InboxHandler) Archive(c *gin.Context) {
	h.action(c, func(c *gin.Context, id string) (*model.Message, error) {
		return h.inbox.Archive(c.Request.Context(), id)
	})
}

// MarkRead handles POST /inbox/:id/read
func (h *InboxHandler) MarkRead(c *gin.Context) {
	h.action(c, func(c *gin.Context, id string) (*model.Message, error) {
		return h.inbox.MarkRead(c.Request.Context(), id)
	})
}

// Reply handles POST /inbox/:id/reply
func (h *InboxHandler) Reply(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	m, err := h.inbox.Reply(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// SuggestReplies handles POST /inbox/:id/suggest-replies
func (h *InboxHandler) SuggestReplies(c *gin.Context) {
	var opts inbox.ReplyOptions
	if err := c.ShouldBindJSON(&opts); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, "invalid request")
		return
	}
	res, err := h.inbox.SuggestReplies(c.Request.Context(), c.Param("id"), opts)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Analyze handles POST /inbox/:id/analyze
func (h *InboxHandler) Analyze(c *gin.Context) {
	h.action(c, func(c *gin.Context, id string) (*model.Message, error) {
		return h.inbox.AnalyzeMessage(c.Request.Context(), id)
	})
}
