package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-controller-go/internal/models"
	"signal-controller-go/internal/services/simulation"
	"signal-controller-go/internal/services/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeController struct {
	mu       sync.Mutex
	active   bool
	snap     models.Snapshot
	started  map[models.LaneID]string
	triggers []models.LaneID
	startErr error
}

func newFakeController() *fakeController {
	return &fakeController{snap: sampleSnapshot()}
}

func (f *fakeController) Start(videos map[models.LaneID]string) (models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return models.Snapshot{}, f.startErr
	}
	if len(videos) == 0 {
		return models.Snapshot{}, models.ErrNoVideo
	}
	if f.active {
		return models.Snapshot{}, models.ErrSessionActive
	}
	f.active = true
	f.started = videos
	return f.snap, nil
}

func (f *fakeController) Stop(context.Context) (models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.active {
		return models.Snapshot{}, models.ErrNoActiveSession
	}
	f.active = false
	return f.snap, nil
}

func (f *fakeController) setPaused(p bool) (models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.active {
		return models.Snapshot{}, models.ErrNoActiveSession
	}
	f.snap.Paused = p
	return f.snap, nil
}

func (f *fakeController) Pause() (models.Snapshot, error)  { return f.setPaused(true) }
func (f *fakeController) Resume() (models.Snapshot, error) { return f.setPaused(false) }

func (f *fakeController) Snapshot() (models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.active {
		return models.Snapshot{}, models.ErrNoActiveSession
	}
	return f.snap, nil
}

func (f *fakeController) TriggerEmergency(laneID models.LaneID, source string) (models.EmergencyEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.active {
		return models.EmergencyEvent{}, models.ErrNoActiveSession
	}
	f.triggers = append(f.triggers, laneID)
	return models.EmergencyEvent{SessionID: f.snap.SessionID, LaneID: laneID, Active: true, Source: source}, nil
}

type fakeArchive struct {
	records map[string]storage.SessionRecord
}

func (a *fakeArchive) ListSessions(_ context.Context, limit int) ([]storage.SessionRecord, error) {
	out := []storage.SessionRecord{}
	for _, r := range a.records {
		if len(out) == limit {
			break
		}
		r.Snapshot = nil
		out = append(out, r)
	}
	return out, nil
}

func (a *fakeArchive) GetSession(_ context.Context, id string) (storage.SessionRecord, error) {
	r, ok := a.records[id]
	if !ok {
		return storage.SessionRecord{}, fmt.Errorf("%s: %w", id, storage.ErrNotFound)
	}
	return r, nil
}

func sampleSnapshot() models.Snapshot {
	return models.Snapshot{
		SessionID:  "0123456789abcdef",
		Tick:       12,
		TotalTicks: 50,
		Lanes: []models.LaneState{
			{ID: models.LaneNorth, Name: "North Lane", Signal: models.SignalGreen, TimerSeconds: 4, Density: 40, DensityHistory: []float64{30, 40}, HasVideo: true},
			{ID: models.LaneSouth, Name: "South Lane", Signal: models.SignalRed, TimerSeconds: 8, Density: 30, DensityHistory: []float64{30}},
			{ID: models.LaneEast, Name: "East Lane", Signal: models.SignalYellow, TimerSeconds: 1, Density: 25, DensityHistory: []float64{25}},
			{ID: models.LaneWest, Name: "West Lane", Signal: models.SignalRed, TimerSeconds: 2, Density: 35, DensityHistory: []float64{35}},
		},
		Statistics: models.Statistics{AvgDensity: 35, PeakDensity: 40, TotalVehicles: 11, CycleSwitches: 2},
	}
}

type testRouter struct {
	*gin.Engine
	ctrl    *fakeController
	archive *fakeArchive
}

func newTestRouter(defaults map[models.LaneID]string) *testRouter {
	ctrl := newFakeController()
	snap := sampleSnapshot()
	snap.SessionID = "archived-1"
	snap.Complete = true
	archive := &fakeArchive{records: map[string]storage.SessionRecord{
		"archived-1": {SessionID: "archived-1", Reason: "completed", Complete: true, Statistics: snap.Statistics, Snapshot: &snap},
	}}

	sh := NewSessionHandler(ctrl, defaults, time.Second)
	rh := NewReportHandler(ctrl, archive)
	rh.now = func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC) }
	hh := NewHealthHandler("controller-1", "1.0.0", func() bool { return ctrl.active })

	r := gin.New()
	r.GET("/", hh.ControllerInfo)
	r.GET("/health", hh.HealthCheck)
	r.POST("/session", sh.Start)
	r.DELETE("/session", sh.Stop)
	r.POST("/session/pause", sh.Pause)
	r.POST("/session/resume", sh.Resume)
	r.GET("/session/snapshot", sh.Snapshot)
	r.GET("/lanes/:id", sh.Lane)
	r.POST("/lanes/:id/emergency", sh.TriggerEmergency)
	r.GET("/reports/summary", rh.Summary)
	r.GET("/reports/text", rh.Text)
	r.GET("/reports/csv", rh.CSV)
	r.GET("/reports/chart", rh.Chart)
	r.GET("/reports/plot.png", rh.Plot)
	r.GET("/reports/sessions", rh.Sessions)
	r.GET("/reports/sessions/:id", rh.Session)
	return &testRouter{Engine: r, ctrl: ctrl, archive: archive}
}

func (r *testRouter) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e.Error
}

func TestStatusFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("lane %q: %w", "x", models.ErrUnknownLane), http.StatusNotFound},
		{models.ErrNoActiveSession, http.StatusConflict},
		{models.ErrSessionActive, http.StatusConflict},
		{models.ErrNoVideo, http.StatusBadRequest},
		{storage.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("open video: boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()
	r := newTestRouter(nil)

	w := r.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","controller_id":"controller-1"}`, w.Body.String())

	w = r.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info ControllerInfoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.False(t, info.SessionActive)
	assert.Len(t, info.Lanes, 4)
}

func TestHealth_ReportsMessaging(t *testing.T) {
	t.Parallel()
	connected := true
	h := NewHealthHandler("controller-1", "1.0.0", nil).WithMessaging(func() bool { return connected })
	r := gin.New()
	r.GET("/health", h.HealthCheck)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status":"healthy","controller_id":"controller-1","messaging":"connected"}`, w.Body.String())

	connected = false
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"degraded","controller_id":"controller-1","messaging":"disconnected"}`, w.Body.String())
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()
	r := newTestRouter(nil)

	w := r.do(http.MethodGet, "/session/snapshot", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = r.do(http.MethodPost, "/session", `{"videos":{"north":"n.mp4","lane3":"e.mp4"}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, map[models.LaneID]string{models.LaneNorth: "n.mp4", models.LaneEast: "e.mp4"}, r.ctrl.started)

	w = r.do(http.MethodPost, "/session", `{"videos":{"north":"n.mp4"}}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, models.ErrSessionActive.Error(), decodeError(t, w))

	w = r.do(http.MethodPost, "/session/pause", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.True(t, snap.Paused)

	w = r.do(http.MethodPost, "/session/resume", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.False(t, snap.Paused)

	w = r.do(http.MethodGet, "/session/snapshot", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = r.do(http.MethodDelete, "/session", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = r.do(http.MethodDelete, "/session", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStartSession_Validation(t *testing.T) {
	t.Parallel()

	t.Run("unknown lane key", func(t *testing.T) {
		t.Parallel()
		w := newTestRouter(nil).do(http.MethodPost, "/session", `{"videos":{"northeast":"x.mp4"}}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		w := newTestRouter(nil).do(http.MethodPost, "/session", `{"videos":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no videos and no defaults", func(t *testing.T) {
		t.Parallel()
		w := newTestRouter(nil).do(http.MethodPost, "/session", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, models.ErrNoVideo.Error(), decodeError(t, w))
	})

	t.Run("empty body uses configured defaults", func(t *testing.T) {
		t.Parallel()
		r := newTestRouter(map[models.LaneID]string{models.LaneWest: "w.mp4"})
		w := r.do(http.MethodPost, "/session", "")
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, map[models.LaneID]string{models.LaneWest: "w.mp4"}, r.ctrl.started)
	})

	t.Run("controller failure", func(t *testing.T) {
		t.Parallel()
		r := newTestRouter(nil)
		r.ctrl.startErr = fmt.Errorf("open video for lane1: cannot decode")
		w := r.do(http.MethodPost, "/session", `{"videos":{"north":"n.mp4"}}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestLaneEndpoints(t *testing.T) {
	t.Parallel()
	r := newTestRouter(nil)

	w := r.do(http.MethodPost, "/lanes/south/emergency", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	require.Equal(t, http.StatusCreated, r.do(http.MethodPost, "/session", `{"videos":{"north":"n.mp4"}}`).Code)

	w = r.do(http.MethodPost, "/lanes/south/emergency", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	var ev models.EmergencyEvent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ev))
	assert.Equal(t, models.LaneSouth, ev.LaneID)
	assert.Equal(t, simulation.SourceManual, ev.Source)
	assert.Equal(t, []models.LaneID{models.LaneSouth}, r.ctrl.triggers)

	w = r.do(http.MethodPost, "/lanes/lane9/emergency", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = r.do(http.MethodGet, "/lanes/lane3", "")
	require.Equal(t, http.StatusOK, w.Code)
	var lane models.LaneState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lane))
	assert.Equal(t, models.SignalYellow, lane.Signal)
}

func TestReports(t *testing.T) {
	t.Parallel()
	r := newTestRouter(nil)

	w := r.do(http.MethodGet, "/reports/text", "")
	assert.Equal(t, http.StatusConflict, w.Code, "no session yet")

	require.Equal(t, http.StatusCreated, r.do(http.MethodPost, "/session", `{"videos":{"north":"n.mp4"}}`).Code)

	t.Run("summary", func(t *testing.T) {
		w := r.do(http.MethodGet, "/reports/summary", "")
		require.Equal(t, http.StatusOK, w.Code)
		var s map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
		assert.EqualValues(t, 65, s["efficiencyScore"])
		assert.Equal(t, "low", s["congestion"])
	})

	t.Run("text", func(t *testing.T) {
		w := r.do(http.MethodGet, "/reports/text", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "traffic-report-01234567-20240301-080000.txt")
		assert.Contains(t, w.Body.String(), "System Status: IN PROGRESS")
	})

	t.Run("csv", func(t *testing.T) {
		w := r.do(http.MethodGet, "/reports/csv", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
		assert.True(t, strings.HasPrefix(w.Body.String(), "Lane,Average Density (%)"))
	})

	t.Run("chart", func(t *testing.T) {
		w := r.do(http.MethodGet, "/reports/chart", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Lane Comparison")
	})

	t.Run("plot", func(t *testing.T) {
		w := r.do(http.MethodGet, "/reports/plot.png", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	})

	t.Run("archived session report", func(t *testing.T) {
		w := r.do(http.MethodGet, "/reports/text?session=archived-1", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Session: archived-1")
		assert.Contains(t, w.Body.String(), "System Status: ANALYSIS COMPLETE")

		w = r.do(http.MethodGet, "/reports/text?session=missing", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestArchiveEndpoints(t *testing.T) {
	t.Parallel()
	r := newTestRouter(nil)

	w := r.do(http.MethodGet, "/reports/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	var recs []storage.SessionRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Nil(t, recs[0].Snapshot)

	w = r.do(http.MethodGet, "/reports/sessions?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = r.do(http.MethodGet, "/reports/sessions/archived-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rec storage.SessionRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	require.NotNil(t, rec.Snapshot)
	assert.True(t, rec.Snapshot.Complete)

	w = r.do(http.MethodGet, "/reports/sessions/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestArchiveUnavailable(t *testing.T) {
	t.Parallel()
	h := NewReportHandler(newFakeController(), nil)
	r := gin.New()
	r.GET("/reports/sessions", h.Sessions)
	r.GET("/reports/text", h.Text)

	for _, path := range []string{"/reports/sessions", "/reports/text?session=x"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
}

type recordingStreamer struct {
	lanes []models.LaneID
}

func (s *recordingStreamer) StreamMJPEGHTTP(w http.ResponseWriter, _ *http.Request, laneID models.LaneID) {
	s.lanes = append(s.lanes, laneID)
	w.WriteHeader(http.StatusOK)
}

func TestPreview(t *testing.T) {
	t.Parallel()

	t.Run("streams known lanes", func(t *testing.T) {
		t.Parallel()
		streamer := &recordingStreamer{}
		r := gin.New()
		r.GET("/lanes/:id/preview", NewPreviewHandler(streamer).Stream)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/lanes/east/preview", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/lanes/lane7/preview", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, []models.LaneID{models.LaneEast}, streamer.lanes)
	})

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()
		r := gin.New()
		r.GET("/lanes/:id/preview", NewPreviewHandler(nil).Stream)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/lanes/north/preview", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "previews are disabled", decodeError(t, w))
	})
}
