package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"signal-controller-go/internal/models"
)

// Streamer writes a live MJPEG stream of one lane
type Streamer interface {
	StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request, laneID models.LaneID)
}

// PreviewHandler serves per-lane MJPEG previews
type PreviewHandler struct {
	streamer Streamer
}

// NewPreviewHandler creates a preview handler. A nil streamer means previews
// are disabled.
func NewPreviewHandler(streamer Streamer) *PreviewHandler {
	return &PreviewHandler{streamer: streamer}
}

// @Summary Lane preview
// @Description MJPEG stream of the frames the lane feed is reading. Frames only advance while the lane is green.
// @Tags lanes
// @Produce multipart/x-mixed-replace
// @Param id path string true "Lane id or direction"
// @Success 200 {string} string "MJPEG stream"
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /lanes/{id}/preview [get]
func (h *PreviewHandler) Stream(c *gin.Context) {
	laneID, err := models.ParseLaneID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if h.streamer == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "previews are disabled"})
		return
	}
	h.streamer.StreamMJPEGHTTP(c.Writer, c.Request, laneID)
}
