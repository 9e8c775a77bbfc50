package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"signal-controller-go/internal/config"
	"signal-controller-go/internal/models"
	"signal-controller-go/internal/timeutil"
)

const gatePollInterval = 100 * time.Millisecond

// FrameSource yields decoded frames of one lane video
type FrameSource interface {
	Read(ctx context.Context) (*models.PixelBuffer, error)
	Close() error
}

// SourceOpener opens the video of a lane
type SourceOpener func(laneID models.LaneID, uri string) (FrameSource, error)

// Publisher receives every committed snapshot and emergency event
type Publisher interface {
	PublishSnapshot(snap models.Snapshot)
	PublishEmergency(event models.EmergencyEvent)
}

// FrameObserver receives every decoded frame of a lane feed
type FrameObserver interface {
	ObserveFrame(laneID models.LaneID, buf *models.PixelBuffer)
}

// Archive stores the final snapshot of a finished session
type Archive interface {
	SaveSession(ctx context.Context, snap models.Snapshot, reason string) error
}

// run is one started session with its goroutines
type run struct {
	sess   *Session
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Controller owns the active session, its tick loop and lane feeds
type Controller struct {
	cfg    *config.Config
	clock  timeutil.Clock
	open   SourceOpener
	logger zerolog.Logger

	mu         sync.Mutex
	current    *run
	last       *models.Snapshot
	publishers []Publisher
	observers  []FrameObserver
	archive    Archive
}

// NewController creates a controller. open may be nil when no lane video can be opened.
func NewController(cfg *config.Config, clock timeutil.Clock, open SourceOpener, logger zerolog.Logger) *Controller {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Controller{
		cfg:    cfg,
		clock:  clock,
		open:   open,
		logger: logger,
	}
}

// AddPublisher registers a snapshot/event consumer
func (c *Controller) AddPublisher(p Publisher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishers = append(c.publishers, p)
}

// AddFrameObserver registers a consumer of raw lane frames
func (c *Controller) AddFrameObserver(o FrameObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// SetArchive sets where finished sessions are stored
func (c *Controller) SetArchive(a Archive) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.archive = a
}

func (c *Controller) sessionConfig() SessionConfig {
	return SessionConfig{
		TotalTicks:            c.cfg.TotalTicks,
		TickStep:              time.Second,
		YellowSeconds:         c.cfg.YellowSeconds,
		RedSeconds:            c.cfg.RedSeconds,
		EmergencyGreenSeconds: c.cfg.EmergencyGreenSeconds,
		EmergencyHold:         c.cfg.EmergencyHold,
		HistorySize:           c.cfg.HistorySize,
	}
}

// Start opens the given lane videos and starts a new session. At least one
// lane must have a video.
func (c *Controller) Start(videos map[models.LaneID]string) (models.Snapshot, error) {
	hasVideo := make(map[models.LaneID]bool)
	for id, uri := range videos {
		if !id.IsValid() {
			return models.Snapshot{}, fmt.Errorf("lane %q: %w", string(id), models.ErrUnknownLane)
		}
		if uri != "" {
			hasVideo[id] = true
		}
	}
	if len(hasVideo) == 0 {
		return models.Snapshot{}, models.ErrNoVideo
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return models.Snapshot{}, models.ErrSessionActive
	}

	sources := make(map[models.LaneID]FrameSource, len(hasVideo))
	if c.open != nil {
		for _, id := range models.AllLanes {
			if !hasVideo[id] {
				continue
			}
			src, err := c.open(id, videos[id])
			if err != nil {
				for _, s := range sources {
					s.Close()
				}
				return models.Snapshot{}, fmt.Errorf("open video for %s: %w", id, err)
			}
			sources[id] = src
		}
	}

	id := uuid.NewString()
	sess := NewSession(id, c.sessionConfig(), hasVideo, c.clock.Now(), c.logger)
	ctx, cancel := context.WithCancel(context.Background())
	r := &run{sess: sess, cancel: cancel}
	c.current = r
	c.last = nil

	r.wg.Add(1)
	go c.runTicks(ctx, r)

	for laneID, src := range sources {
		r.wg.Add(1)
		go c.runFeed(ctx, r, laneID, src)
	}

	c.logger.Info().
		Str("session_id", id).
		Int("lanes_with_video", len(hasVideo)).
		Int("total_ticks", c.cfg.TotalTicks).
		Msg("Session started")

	return sess.Snapshot(), nil
}

// Pause stops the clock; lane feeds idle until Resume
func (c *Controller) Pause() (models.Snapshot, error) {
	return c.setPaused(true)
}

// Resume restarts the clock after Pause
func (c *Controller) Resume() (models.Snapshot, error) {
	return c.setPaused(false)
}

func (c *Controller) setPaused(paused bool) (models.Snapshot, error) {
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()

	if r == nil {
		return models.Snapshot{}, models.ErrNoActiveSession
	}
	r.sess.SetPaused(paused)
	c.logger.Info().Str("session_id", r.sess.ID()).Bool("paused", paused).Msg("Session pause state changed")
	return r.sess.Snapshot(), nil
}

// Stop tears down the active session and archives its final snapshot
func (c *Controller) Stop(ctx context.Context) (models.Snapshot, error) {
	c.mu.Lock()
	r := c.current
	c.current = nil
	c.mu.Unlock()

	if r == nil {
		return models.Snapshot{}, models.ErrNoActiveSession
	}

	r.cancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		c.logger.Warn().Str("session_id", r.sess.ID()).Msg("Timed out waiting for session goroutines")
	}

	return c.finish(ctx, r, "stopped"), nil
}

// finish closes the session, remembers its last snapshot and archives it
func (c *Controller) finish(ctx context.Context, r *run, reason string) models.Snapshot {
	snap := r.sess.Snapshot()
	r.sess.Close()

	c.mu.Lock()
	c.last = &snap
	archive := c.archive
	c.mu.Unlock()

	if archive != nil {
		if err := archive.SaveSession(ctx, snap, reason); err != nil {
			c.logger.Error().Err(err).Str("session_id", snap.SessionID).Msg("Failed to archive session")
		}
	}

	c.logger.Info().
		Str("session_id", snap.SessionID).
		Str("reason", reason).
		Int("tick", snap.Tick).
		Int("cycle_switches", snap.Statistics.CycleSwitches).
		Int("emergency_overrides", snap.Statistics.EmergencyOverrides).
		Msg("Session finished")
	return snap
}

// TriggerEmergency forces a lane green on the active session
func (c *Controller) TriggerEmergency(laneID models.LaneID, source string) (models.EmergencyEvent, error) {
	if !laneID.IsValid() {
		return models.EmergencyEvent{}, fmt.Errorf("lane %q: %w", string(laneID), models.ErrUnknownLane)
	}

	c.mu.Lock()
	r := c.current
	c.mu.Unlock()

	if r == nil {
		return models.EmergencyEvent{}, models.ErrNoActiveSession
	}
	return c.trigger(r, laneID, source)
}

func (c *Controller) trigger(r *run, laneID models.LaneID, source string) (models.EmergencyEvent, error) {
	event, err := r.sess.TriggerEmergency(laneID, source)
	if err != nil {
		return models.EmergencyEvent{}, err
	}
	for _, p := range c.publisherList() {
		p.PublishEmergency(event)
	}
	return event, nil
}

// Snapshot returns the state of the active session, or the final state of the
// last finished one
func (c *Controller) Snapshot() (models.Snapshot, error) {
	c.mu.Lock()
	r := c.current
	last := c.last
	c.mu.Unlock()

	if r != nil {
		return r.sess.Snapshot(), nil
	}
	if last != nil {
		return *last, nil
	}
	return models.Snapshot{}, models.ErrNoActiveSession
}

// Active reports whether a session is running
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

func (c *Controller) publisherList() []Publisher {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Publisher(nil), c.publishers...)
}

func (c *Controller) runTicks(ctx context.Context, r *run) {
	defer r.wg.Done()
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error().Str("session_id", r.sess.ID()).Interface("panic", rec).Msg("Tick loop panic recovered")
		}
	}()

	interval := c.cfg.TickInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			res, err := r.sess.Tick()
			if err != nil {
				c.logger.Debug().Err(err).Str("session_id", r.sess.ID()).Msg("Tick loop stopping")
				return
			}
			if res.Snapshot.Paused {
				continue
			}

			pubs := c.publisherList()
			for _, ev := range res.Cleared {
				for _, p := range pubs {
					p.PublishEmergency(ev)
				}
			}
			for _, p := range pubs {
				p.PublishSnapshot(res.Snapshot)
			}

			if res.Snapshot.Complete {
				c.complete(r)
				return
			}
		}
	}
}

// complete ends a session that ran all of its ticks
func (c *Controller) complete(r *run) {
	c.mu.Lock()
	if c.current != r {
		// already stopped
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.mu.Unlock()

	r.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ShutdownTimeout)
	defer cancel()
	c.finish(ctx, r, "completed")
}

func (c *Controller) runFeed(ctx context.Context, r *run, laneID models.LaneID, src FrameSource) {
	defer r.wg.Done()
	defer src.Close()

	logger := c.logger.With().Str("session_id", r.sess.ID()).Str("lane_id", laneID.String()).Logger()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Interface("panic", rec).Msg("Lane feed panic recovered")
		}
	}()

	analyzer := NewLaneAnalyzer(laneID, c.cfg.SampleEvery)
	c.mu.Lock()
	observers := append([]FrameObserver(nil), c.observers...)
	c.mu.Unlock()
	sampling := true
	wasDetected := false

	for ctx.Err() == nil {
		lane, err := r.sess.Lane(laneID)
		if err != nil {
			return
		}

		open := lane.HasVideo && lane.Signal == models.SignalGreen && !r.sess.Paused()
		if !open {
			if sampling {
				analyzer.Interrupt()
				sampling = false
			}
			if !sleepCtx(ctx, gatePollInterval) {
				return
			}
			continue
		}
		sampling = true

		buf, err := src.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				logger.Debug().Err(err).Msg("Lane feed ended")
				return
			}
			logger.Warn().Err(err).Msg("Failed to read frame")
			if !sleepCtx(ctx, c.cfg.PanicRestartDelay) {
				return
			}
			continue
		}

		for _, o := range observers {
			o.ObserveFrame(laneID, buf)
		}

		a, err := analyzer.Process(buf)
		if err != nil {
			logger.Debug().Err(err).Int64("frame_id", buf.FrameID).Msg("Frame rejected by classifier")
			continue
		}
		if !a.Sampled {
			continue
		}

		if err := r.sess.ApplyDensity(laneID, a.Reading.SmoothedDensity); err != nil {
			if errors.Is(err, models.ErrNoActiveSession) {
				return
			}
			logger.Warn().Err(err).Msg("Failed to apply density")
		}

		detected := a.Signal.Detected
		if detected && !wasDetected {
			logger.Warn().
				Float64("red_ratio", a.Emergency.RedRatio).
				Float64("blue_ratio", a.Emergency.BlueRatio).
				Float64("white_ratio", a.Emergency.WhiteRatio).
				Int("frames", a.Signal.ConsecutiveFrames).
				Bool("auto_emergency", c.cfg.AutoEmergency).
				Msg("Emergency vehicle detected")
			if c.cfg.AutoEmergency {
				if _, err := c.trigger(r, laneID, SourceDetection); err != nil {
					logger.Warn().Err(err).Msg("Automatic emergency trigger failed")
				}
			}
		}
		wasDetected = detected
	}
}

// Shutdown stops any running session
func (c *Controller) Shutdown(ctx context.Context) error {
	if _, err := c.Stop(ctx); err != nil && !errors.Is(err, models.ErrNoActiveSession) {
		return err
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = gatePollInterval
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
