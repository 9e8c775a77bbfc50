package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// SystemHandler handles system-related endpoints
type SystemHandler struct {
	ControllerID string
	started      time.Time
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(controllerID string) *SystemHandler {
	return &SystemHandler{
		ControllerID: controllerID,
		started:      time.Now(),
	}
}

// @Summary Get system stats
// @Description Get process statistics of the controller
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system/stats [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats": gin.H{
			"controller_id":  h.ControllerID,
			"uptime_seconds": int64(time.Since(h.started).Seconds()),
			"memory_mb":      m.Alloc / 1024 / 1024,
			"cpu_cores":      runtime.NumCPU(),
			"goroutines":     runtime.NumGoroutine(),
			"go_version":     runtime.Version(),
		},
		"timestamp": time.Now().Unix(),
	})
}
