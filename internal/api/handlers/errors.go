package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"signal-controller-go/internal/logging"
	"signal-controller-go/internal/models"
	"signal-controller-go/internal/services/storage"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error" example:"no active session"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrUnknownLane), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrNoActiveSession), errors.Is(err, models.ErrSessionActive):
		return http.StatusConflict
	case errors.Is(err, models.ErrNoVideo), errors.Is(err, models.ErrInvalidFrame):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.Error(c).Err(err).Msg("Request failed")
	} else {
		logging.Debug(c).Err(err).Int("status", status).Msg("Request rejected")
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
