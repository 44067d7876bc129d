package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hamza/scanhub/internal/orchestrator"
	"github.com/hamza/scanhub/internal/params"
	"github.com/hamza/scanhub/internal/registry"
	"github.com/hamza/scanhub/internal/runs"
	"github.com/hamza/scanhub/internal/scope"
	"github.com/hamza/scanhub/internal/storage"
)

// apiResponse is the common envelope every JSON endpoint returns.
type apiResponse struct {
	Code    int         `json:"code"`
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respond(c *gin.Context, code int, data interface{}) {
	c.JSON(code, apiResponse{Code: code, Status: "success", Data: data})
}

func respondMessage(c *gin.Context, code int, message string) {
	c.JSON(code, apiResponse{Code: code, Status: "success", Message: message})
}

// respondError maps domain errors onto HTTP status codes and wraps them in
// the envelope.
func respondError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, scope.ErrOutOfScope):
		code = http.StatusForbidden
	case errors.Is(err, scope.ErrUnsafeTarget),
		errors.Is(err, params.ErrInvalidParams),
		errors.Is(err, registry.ErrUnknownTool),
		errors.Is(err, orchestrator.ErrUnknownObjective):
		code = http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrScanActive),
		errors.Is(err, orchestrator.ErrNotStartable),
		errors.Is(err, orchestrator.ErrNotCancellable),
		errors.Is(err, orchestrator.ErrSessionActive),
		errors.Is(err, runs.ErrNotRunning),
		errors.Is(err, runs.ErrRunActive):
		code = http.StatusConflict
	}
	c.JSON(code, apiResponse{Code: code, Status: "failed", Error: err.Error()})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, apiResponse{
		Code:   http.StatusBadRequest,
		Status: "failed",
		Error:  err.Error(),
	})
}
