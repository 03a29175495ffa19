package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/llm-bench/engine/internal/storage"
	"github.com/llm-bench/engine/pkg/models"
)

// statusFor maps the sentinel error taxonomy to an HTTP status code.
// storage.ErrNotFound is folded into the same NotFound bucket (404); any
// error not in the taxonomy falls through to 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrBadInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), ErrorResponse{
		Error:     err.Error(),
		RequestID: c.GetString("request_id"),
	})
}
