package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelanceos/internal/service/entity"
)

// EntityHandler exposes the generic CRUD surface for every registered entity type.
type EntityHandler struct {
	registry *entity.Registry
	logger   *zap.Logger
}

func NewEntityHandler(registry *entity.Registry, logger *zap.Logger) *EntityHandler {
	return &EntityHandler{registry: registry, logger: logger}
}

func (h *EntityHandler) resource(c *gin.Context) (entity.Resource, bool) {
	res, err := h.registry.Resource(c.Param("type"))
	if err != nil {
		respondError(c, h.logger, err)
		return nil, false
	}
	return res, true
}

// List handles GET /entities/:type?q={json}&sort=-field&limit=n
func (h *EntityHandler) List(c *gin.Context) {
	res, ok := h.resource(c)
	if !ok {
		return
	}

	var query map[string]any
	if q := c.Query("q"); q != "" {
		if err := json.Unmarshal([]byte(q), &query); err != nil {
			badRequest(c, "q must be a JSON object")
			return
		}
	}
	limit := 0
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			badRequest(c, "invalid limit")
			return
		}
		limit = n
	}

	items, err := res.List(c.Request.Context(), query, c.Query("sort"), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Get handles GET /entities/:type/:id
func (h *EntityHandler) Get(c *gin.Context) {
	res, ok := h.resource(c)
	if !ok {
		return
	}
	item, err := res.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Create handles POST /entities/:type
func (h *EntityHandler) Create(c *gin.Context) {
	res, ok := h.resource(c)
	if !ok {
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, "invalid request")
		return
	}
	item, err := res.Create(c.Request.Context(), body)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// Update handles PATCH /entities/:type/:id with a partial document.
func (h *EntityHandler) Update(c *gin.Context) {
	res, ok := h.resource(c)
	if !ok {
		return
	}
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil || patch == nil {
		badRequest(c, "body must be a JSON object")
		return
	}
	item, err := res.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Delete handles DELETE /entities/:type/:id
func (h *EntityHandler) Delete(c *gin.Context) {
	res, ok := h.resource(c)
	if !ok {
		return
	}
	if err := res.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
