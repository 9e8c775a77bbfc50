package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	ControllerID string
	Version      string
	active       func() bool
	messaging    func() bool
}

func NewHealthHandler(controllerID, version string, active func() bool) *HealthHandler {
	return &HealthHandler{ControllerID: controllerID, Version: version, active: active}
}

// WithMessaging reports the NATS connection in health checks
func (h *HealthHandler) WithMessaging(connected func() bool) *HealthHandler {
	h.messaging = connected
	return h
}

type HealthResponse struct {
	Status       string `json:"status" example:"healthy"`
	ControllerID string `json:"controller_id" example:"controller-1"`
	Messaging    string `json:"messaging,omitempty" example:"connected"`
}

type ControllerInfoResponse struct {
	ControllerID  string   `json:"controller_id" example:"controller-1"`
	Status        string   `json:"status" example:"running"`
	Version       string   `json:"version" example:"1.0.0"`
	SessionActive bool     `json:"session_active"`
	Lanes         []string `json:"lanes"`
	Capabilities  []string `json:"capabilities"`
}

// @Summary Health check
// @Description Check if the controller is healthy and responsive. Status is "degraded" while NATS is disconnected.
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:       "healthy",
		ControllerID: h.ControllerID,
	}
	if h.messaging != nil {
		resp.Messaging = "connected"
		if !h.messaging() {
			resp.Messaging = "disconnected"
			resp.Status = "degraded"
		}
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Controller information
// @Description Get basic controller information and capabilities
// @Tags health
// @Produce json
// @Success 200 {object} ControllerInfoResponse
// @Router / [get]
func (h *HealthHandler) ControllerInfo(c *gin.Context) {
	active := false
	if h.active != nil {
		active = h.active()
	}
	c.JSON(http.StatusOK, ControllerInfoResponse{
		ControllerID:  h.ControllerID,
		Status:        "running",
		Version:       h.Version,
		SessionActive: active,
		Lanes:         []string{"lane1", "lane2", "lane3", "lane4"},
		Capabilities: []string{
			"density_signal_timing",
			"emergency_override",
			"traffic_reports",
		},
	})
}
