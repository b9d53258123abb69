package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelanceos/internal/model"
	"freelanceos/internal/service/assistant"
)

type AssistantHandler struct {
	assistant *assistant.Service
	logger    *zap.Logger
}

func NewAssistantHandler(svc *assistant.Service, logger *zap.Logger) *AssistantHandler {
	return &AssistantHandler{assistant: svc, logger: logger}
}

// Create handles POST /conversations
func (h *AssistantHandler) Create(c *gin.Context) {
	var req struct {
		AgentName string         `json:"agent_name"`
		Metadata  map[string]any `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, "invalid request")
		return
	}
	conv, err := h.assistant.CreateConversation(c.Request.Context(), req.AgentName, req.Metadata)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

// List handles GET /conversations?agent_name=
func (h *AssistantHandler) List(c *gin.Context) {
	convs, err := h.assistant.ListConversations(c.Request.Context(), c.Query("agent_name"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// Get handles GET /conversations/:id
func (h *AssistantHandler) Get(c *gin.Context) {
	conv, err := h.assistant.GetConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// AddMessage handles POST /conversations/:id/messages
func (h *AssistantHandler) AddMessage(c *gin.Context) {
	var msg model.ConversationMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		badRequest(c, "invalid request")
		return
	}
	conv, err := h.assistant.AddMessage(c.Request.Context(), c.Param("id"), msg)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// Stream handles GET /conversations/:id/stream. Every stored conversation
// state is sent as a "conversation" server-sent event until the client leaves.
func (h *AssistantHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	conv, err := h.assistant.GetConversation(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	updates, err := h.assistant.Subscribe(ctx, conv.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent("conversation", conv)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case next, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("conversation", next)
			return true
		}
	})
}

// WhatsApp handles GET /assistant/whatsapp?agent_name=
func (h *AssistantHandler) WhatsApp(c *gin.Context) {
	link, err := h.assistant.WhatsAppConnectURL(c.Query("agent_name"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": link})
}
