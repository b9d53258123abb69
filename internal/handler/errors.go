package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelanceos/internal/repository"
	"freelanceos/internal/service/assistant"
	"freelanceos/internal/service/auth"
	"freelanceos/internal/service/entity"
	"freelanceos/internal/service/inbox"
	"freelanceos/internal/service/report"
	"freelanceos/internal/service/task"
	"freelanceos/internal/service/upload"
	"freelanceos/internal/service/wizard"
	"freelanceos/pkg/circuitbreaker"
	"freelanceos/pkg/llm"
	"freelanceos/pkg/logger"
	"freelanceos/pkg/outbox"
	"freelanceos/pkg/rbac"
)

// StatusFor maps service errors to HTTP status codes.
func StatusFor(err error) int {
	var denied *rbac.PermissionDeniedError
	var scope *rbac.ScopeMismatchError
	switch {
	case errors.As(err, &denied), errors.As(err, &scope),
		errors.Is(err, assistant.ErrConversationOwner):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, wizard.ErrDraftNotFound),
		errors.Is(err, wizard.ErrNoSuggestions),
		errors.Is(err, entity.ErrUnknownType),
		errors.Is(err, outbox.ErrEventNotFound),
		errors.Is(err, assistant.ErrWhatsAppDisabled):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrValidation),
		errors.Is(err, repository.ErrInvalidQuery),
		errors.Is(err, wizard.ErrStepInvalid),
		errors.Is(err, task.ErrInvalidStatus),
		errors.Is(err, inbox.ErrEmptyReply),
		errors.Is(err, inbox.ErrInvalidMode),
		errors.Is(err, report.ErrInvalidReport),
		errors.Is(err, assistant.ErrInvalidMessage),
		errors.Is(err, upload.ErrEmpty),
		errors.Is(err, auth.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrEmailTaken), errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, upload.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, llm.ErrInvalidResponse):
		return http.StatusBadGateway
	case errors.Is(err, llm.ErrUnavailable), errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": ...}; 5xx details are logged, not returned.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logger.WithTrace(c.Request.Context(), log).Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
