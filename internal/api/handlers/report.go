package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"signal-controller-go/internal/models"
	"signal-controller-go/internal/services/report"
	"signal-controller-go/internal/services/storage"
)

// SnapshotSource provides the snapshot reports are rendered from
type SnapshotSource interface {
	Snapshot() (models.Snapshot, error)
}

// SessionArchive reads archived sessions
type SessionArchive interface {
	ListSessions(ctx context.Context, limit int) ([]storage.SessionRecord, error)
	GetSession(ctx context.Context, id string) (storage.SessionRecord, error)
}

// ReportHandler renders reports and charts
type ReportHandler struct {
	source  SnapshotSource
	archive SessionArchive
	now     func() time.Time
}

// NewReportHandler creates a report handler. archive may be nil.
func NewReportHandler(source SnapshotSource, archive SessionArchive) *ReportHandler {
	return &ReportHandler{source: source, archive: archive, now: time.Now}
}

// snapshot resolves the report subject: an archived session when ?session=
// is given, otherwise the current or last session.
func (h *ReportHandler) snapshot(c *gin.Context) (models.Snapshot, bool) {
	if id := c.Query("session"); id != "" {
		if h.archive == nil {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "session archive unavailable"})
			return models.Snapshot{}, false
		}
		rec, err := h.archive.GetSession(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return models.Snapshot{}, false
		}
		if rec.Snapshot == nil {
			respondError(c, fmt.Errorf("session %s has no stored snapshot: %w", id, storage.ErrNotFound))
			return models.Snapshot{}, false
		}
		return *rec.Snapshot, true
	}

	snap, err := h.source.Snapshot()
	if err != nil {
		respondError(c, err)
		return models.Snapshot{}, false
	}
	return snap, true
}

func (h *ReportHandler) fileName(snap models.Snapshot, ext string) string {
	id := snap.SessionID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("traffic-report-%s-%s.%s", id, h.now().Format("20060102-150405"), ext)
}

// @Summary Report summary
// @Description Derived report metrics as JSON
// @Tags reports
// @Produce json
// @Param session query string false "Archived session id"
// @Success 200 {object} report.Summary
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /reports/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report.Summarize(snap))
}

// @Summary Text report
// @Tags reports
// @Produce plain
// @Param session query string false "Archived session id"
// @Success 200 {string} string
// @Failure 409 {object} ErrorResponse
// @Router /reports/text [get]
func (h *ReportHandler) Text(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.WriteText(&buf, report.Summarize(snap), h.now()); err != nil {
		respondError(c, err)
		return
	}
	h.attach(c, "text/plain; charset=utf-8", h.fileName(snap, "txt"), buf.Bytes())
}

// @Summary CSV report
// @Tags reports
// @Produce text/csv
// @Param session query string false "Archived session id"
// @Success 200 {string} string
// @Failure 409 {object} ErrorResponse
// @Router /reports/csv [get]
func (h *ReportHandler) CSV(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, report.Summarize(snap)); err != nil {
		respondError(c, err)
		return
	}
	h.attach(c, "text/csv; charset=utf-8", h.fileName(snap, "csv"), buf.Bytes())
}

// @Summary Interactive charts
// @Description Density trends and lane comparison as an HTML page
// @Tags reports
// @Produce html
// @Param session query string false "Archived session id"
// @Success 200 {string} string
// @Failure 409 {object} ErrorResponse
// @Router /reports/chart [get]
func (h *ReportHandler) Chart(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.RenderCharts(&buf, snap); err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// @Summary Density plot
// @Description Lane density history as a PNG image
// @Tags reports
// @Produce png
// @Param session query string false "Archived session id"
// @Success 200 {file} binary
// @Failure 409 {object} ErrorResponse
// @Router /reports/plot.png [get]
func (h *ReportHandler) Plot(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.WriteDensityPlot(&buf, snap); err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (h *ReportHandler) attach(c *gin.Context, contentType, name string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, body)
}

// @Summary Archived sessions
// @Description Most recent finished sessions, newest first
// @Tags reports
// @Produce json
// @Param limit query int false "Maximum rows" default(50)
// @Success 200 {array} storage.SessionRecord
// @Failure 503 {object} ErrorResponse
// @Router /reports/sessions [get]
func (h *ReportHandler) Sessions(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "session archive unavailable"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
		return
	}
	recs, err := h.archive.ListSessions(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

// @Summary Archived session
// @Description One archived session including its final snapshot
// @Tags reports
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} storage.SessionRecord
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /reports/sessions/{id} [get]
func (h *ReportHandler) Session(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "session archive unavailable"})
		return
	}
	rec, err := h.archive.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
