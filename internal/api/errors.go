package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sahaj/internal/analysis"
	"sahaj/internal/chat"
	"sahaj/internal/models"
	"sahaj/internal/session"
	"sahaj/internal/templates"
	"sahaj/internal/worker"
	"sahaj/internal/workspace"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrUnsupportedFileType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, analysis.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, models.ErrUnknownLanguage),
		errors.Is(err, chat.ErrEmptyQuery),
		models.IsEncodingError(err):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrGeolocation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, worker.ErrDispatcherBusy):
		return http.StatusTooManyRequests
	case errors.Is(err, session.ErrInFlight),
		errors.Is(err, session.ErrNoDocument),
		errors.Is(err, workspace.ErrNoAnalysis),
		errors.Is(err, chat.ErrListening),
		errors.Is(err, chat.ErrNotListening):
		return http.StatusConflict
	case errors.Is(err, workspace.ErrNotFound),
		errors.Is(err, workspace.ErrClosed),
		errors.Is(err, chat.ErrClosed),
		errors.Is(err, templates.ErrNotFound):
		return http.StatusNotFound
	case models.IsGatewayError(err):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, worker.ErrDispatcherClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("api", "request failed", map[string]interface{}{
			"path":       c.FullPath(),
			"request_id": c.GetString(requestIDKey),
			"error":      err,
		})
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
