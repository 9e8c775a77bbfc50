package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"signal-controller-go/internal/logging"
	"signal-controller-go/internal/models"
	"signal-controller-go/internal/services/simulation"
)

// SessionController is the part of the simulation controller the API drives
type SessionController interface {
	Start(videos map[models.LaneID]string) (models.Snapshot, error)
	Stop(ctx context.Context) (models.Snapshot, error)
	Pause() (models.Snapshot, error)
	Resume() (models.Snapshot, error)
	Snapshot() (models.Snapshot, error)
	TriggerEmergency(laneID models.LaneID, source string) (models.EmergencyEvent, error)
}

// SessionHandler handles session lifecycle and lane endpoints
type SessionHandler struct {
	ctrl          SessionController
	defaultVideos map[models.LaneID]string
	stopTimeout   time.Duration
}

// NewSessionHandler creates a session handler. defaultVideos are used when a
// start request names no videos.
func NewSessionHandler(ctrl SessionController, defaultVideos map[models.LaneID]string, stopTimeout time.Duration) *SessionHandler {
	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}
	return &SessionHandler{ctrl: ctrl, defaultVideos: defaultVideos, stopTimeout: stopTimeout}
}

// StartSessionRequest maps lanes to video paths or stream URLs.
// Keys may be lane ids ("lane1") or directions ("north").
type StartSessionRequest struct {
	Videos map[string]string `json:"videos" example:"north:/videos/north.mp4"`
}

// @Summary Start a session
// @Description Start a new analysis session. At least one lane needs a video; configured defaults are used when the body names none.
// @Tags session
// @Accept json
// @Produce json
// @Param request body StartSessionRequest false "Lane videos"
// @Success 201 {object} models.Snapshot
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /session [post]
func (h *SessionHandler) Start(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	videos := make(map[models.LaneID]string, len(req.Videos))
	for key, uri := range req.Videos {
		id, err := models.ParseLaneID(key)
		if err != nil {
			respondError(c, err)
			return
		}
		videos[id] = uri
	}
	if len(videos) == 0 {
		for id, uri := range h.defaultVideos {
			videos[id] = uri
		}
	}

	snap, err := h.ctrl.Start(videos)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Set(string(logging.CtxSessionID), snap.SessionID)
	logging.Info(c).Int("lanes", len(videos)).Msg("Session started via API")
	c.JSON(http.StatusCreated, snap)
}

// @Summary Stop the session
// @Description Stop the active session and archive its final snapshot
// @Tags session
// @Produce json
// @Success 200 {object} models.Snapshot
// @Failure 409 {object} ErrorResponse
// @Router /session [delete]
func (h *SessionHandler) Stop(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.stopTimeout)
	defer cancel()

	snap, err := h.ctrl.Stop(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// @Summary Pause the session
// @Tags session
// @Produce json
// @Success 200 {object} models.Snapshot
// @Failure 409 {object} ErrorResponse
// @Router /session/pause [post]
func (h *SessionHandler) Pause(c *gin.Context) {
	h.respondSnapshot(c, h.ctrl.Pause)
}

// @Summary Resume the session
// @Tags session
// @Produce json
// @Success 200 {object} models.Snapshot
// @Failure 409 {object} ErrorResponse
// @Router /session/resume [post]
func (h *SessionHandler) Resume(c *gin.Context) {
	h.respondSnapshot(c, h.ctrl.Resume)
}

// @Summary Current snapshot
// @Description Snapshot of the active session, or the final snapshot of the last finished one
// @Tags session
// @Produce json
// @Success 200 {object} models.Snapshot
// @Failure 409 {object} ErrorResponse
// @Router /session/snapshot [get]
func (h *SessionHandler) Snapshot(c *gin.Context) {
	h.respondSnapshot(c, h.ctrl.Snapshot)
}

func (h *SessionHandler) respondSnapshot(c *gin.Context, fn func() (models.Snapshot, error)) {
	snap, err := fn()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// @Summary Get one lane
// @Tags lanes
// @Produce json
// @Param id path string true "Lane id or direction"
// @Success 200 {object} models.LaneState
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /lanes/{id} [get]
func (h *SessionHandler) Lane(c *gin.Context) {
	id, err := models.ParseLaneID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	snap, err := h.ctrl.Snapshot()
	if err != nil {
		respondError(c, err)
		return
	}
	lane, _ := snap.Lane(id)
	c.JSON(http.StatusOK, lane)
}

// @Summary Trigger an emergency override
// @Description Force a lane green for the emergency hold window
// @Tags lanes
// @Produce json
// @Param id path string true "Lane id or direction"
// @Success 202 {object} models.EmergencyEvent
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /lanes/{id}/emergency [post]
func (h *SessionHandler) TriggerEmergency(c *gin.Context) {
	id, err := models.ParseLaneID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	event, err := h.ctrl.TriggerEmergency(id, simulation.SourceManual)
	if err != nil {
		respondError(c, err)
		return
	}
	logging.Warn(c).Str("lane_id", id.String()).Msg("Emergency override triggered via API")
	c.JSON(http.StatusAccepted, event)
}
