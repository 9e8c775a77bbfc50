// Package simulation drives the four lane signals on a shared clock.
//
// A Session holds the authoritative lane and statistics state of one run.
// Every tick reads the committed state, computes all lanes from it and
// commits the result once under the session lock. Density feeds and
// emergency triggers mutate the same state under the same lock.
package simulation

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"signal-controller-go/internal/models"
	"signal-controller-go/internal/services/signal"
	"signal-controller-go/internal/services/statistics"
)

// Emergency trigger sources
const (
	SourceManual    = "manual"
	SourceDetection = "detection"
	SourceCommand   = "command"
	SourceExpiry    = "expiry"
)

// SessionConfig holds the timing of one session
type SessionConfig struct {
	TotalTicks            int
	TickStep              time.Duration // simulated time per tick
	YellowSeconds         int
	RedSeconds            int
	EmergencyGreenSeconds int
	EmergencyHold         time.Duration
	HistorySize           int
}

// DefaultSessionConfig returns the reference timing
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TotalTicks:            50,
		TickStep:              time.Second,
		YellowSeconds:         signal.DefaultYellowSeconds,
		RedSeconds:            signal.DefaultRedSeconds,
		EmergencyGreenSeconds: signal.DefaultEmergencySeconds,
		EmergencyHold:         10 * time.Second,
		HistorySize:           50,
	}
}

// TickResult is returned by Session.Tick
type TickResult struct {
	Snapshot models.Snapshot
	// Cleared holds the overrides that expired during this tick
	Cleared []models.EmergencyEvent
}

// Session is one bounded simulation run
type Session struct {
	mu sync.RWMutex

	id        string
	cfg       SessionConfig
	lanes     []models.LaneState
	stats     *statistics.Aggregator
	overrides *signal.OverrideQueue

	tick    int
	now     time.Time // logical clock, advanced by TickStep per tick
	started time.Time
	paused  bool
	closed  bool

	transition func(models.LaneState) signal.Outcome
	logger     zerolog.Logger
}

// NewSession seeds the four lanes. hasVideo marks lanes with a feed; lanes
// without one stay frozen and are excluded from statistics.
func NewSession(id string, cfg SessionConfig, hasVideo map[models.LaneID]bool, start time.Time, logger zerolog.Logger) *Session {
	lanes := signal.SeedLanes(hasVideo)
	for i := range lanes {
		if cfg.YellowSeconds > 0 {
			lanes[i].YellowDuration = cfg.YellowSeconds
		}
		if cfg.RedSeconds > 0 {
			lanes[i].RedDuration = cfg.RedSeconds
		}
	}
	if cfg.TickStep <= 0 {
		cfg.TickStep = time.Second
	}
	if cfg.EmergencyGreenSeconds <= 0 {
		cfg.EmergencyGreenSeconds = signal.DefaultEmergencySeconds
	}

	s := &Session{
		id:         id,
		cfg:        cfg,
		lanes:      lanes,
		stats:      statistics.NewAggregator(),
		overrides:  signal.NewOverrideQueue(),
		now:        start,
		started:    start,
		transition: signal.Transition,
		logger:     logger.With().Str("session_id", id).Logger(),
	}
	return s
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// Tick advances every lane by one step and commits once
func (s *Session) Tick() (TickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return TickResult{}, models.ErrNoActiveSession
	}
	if s.paused || s.completeLocked() {
		return TickResult{Snapshot: s.snapshotLocked()}, nil
	}

	s.tick++
	s.now = s.now.Add(s.cfg.TickStep)

	expired := make(map[models.LaneID]bool)
	for _, ov := range s.overrides.PopExpired(s.now) {
		expired[ov.LaneID] = true
	}

	prior := s.lanes
	next := make([]models.LaneState, len(prior))
	cycles := 0
	var cleared []models.EmergencyEvent

	for i, lane := range prior {
		if expired[lane.ID] {
			next[i] = signal.ClearOverride(lane)
			cleared = append(cleared, models.EmergencyEvent{
				SessionID: s.id,
				LaneID:    lane.ID,
				LaneName:  lane.Name,
				Active:    false,
				Source:    SourceExpiry,
				Timestamp: s.now,
			})
			s.logger.Info().Str("lane_id", lane.ID.String()).Int("green_duration", next[i].GreenDuration).Msg("Emergency cleared")
			continue
		}

		out := s.safeTransition(lane)
		next[i] = out.State
		if out.Cycled {
			cycles++
		}
	}

	s.stats.AddCycles(cycles)
	s.stats.Tick(prior)
	s.lanes = next

	return TickResult{Snapshot: s.snapshotLocked(), Cleared: cleared}, nil
}

func (s *Session) safeTransition(old models.LaneState) (out signal.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Interface("panic", r).
				Str("lane_id", old.ID.String()).
				Int("tick", s.tick).
				Msg("Lane transition panicked, keeping prior state")
			out = signal.Outcome{State: old.Clone()}
		}
	}()
	return s.transition(old)
}

// TriggerEmergency forces a lane to green and (re)schedules its auto-clear.
// Re-triggering an active lane restarts the hold window and counts again.
// A session that has run all of its ticks no longer ages overrides, so it
// refuses new ones.
func (s *Session) TriggerEmergency(laneID models.LaneID, source string) (models.EmergencyEvent, error) {
	idx, err := laneID.Index()
	if err != nil {
		return models.EmergencyEvent{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.completeLocked() {
		return models.EmergencyEvent{}, models.ErrNoActiveSession
	}

	_, refreshed := s.overrides.Schedule(laneID, s.now, s.cfg.EmergencyHold)
	s.lanes[idx] = signal.ApplyOverride(s.lanes[idx], s.cfg.EmergencyGreenSeconds)
	s.stats.AddEmergencyOverride()

	s.logger.Warn().
		Str("lane_id", laneID.String()).
		Str("source", source).
		Bool("refreshed", refreshed).
		Msg("Emergency override triggered")

	return models.EmergencyEvent{
		SessionID: s.id,
		LaneID:    laneID,
		LaneName:  s.lanes[idx].Name,
		Active:    true,
		Source:    source,
		Timestamp: s.now,
	}, nil
}

// ApplyDensity records a smoothed density reading for a lane
func (s *Session) ApplyDensity(laneID models.LaneID, density float64) error {
	idx, err := laneID.Index()
	if err != nil {
		return err
	}
	if density < 0 || density > 100 {
		return fmt.Errorf("density %.2f out of range for lane %s", density, laneID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return models.ErrNoActiveSession
	}
	s.lanes[idx].PushDensity(density, s.cfg.HistorySize)
	return nil
}

// Lane returns a copy of the committed state of one lane
func (s *Session) Lane(laneID models.LaneID) (models.LaneState, error) {
	idx, err := laneID.Index()
	if err != nil {
		return models.LaneState{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return models.LaneState{}, models.ErrNoActiveSession
	}
	return s.lanes[idx].Clone(), nil
}

// SetPaused freezes or resumes ticking
func (s *Session) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
}

// Paused reports whether ticking is frozen
func (s *Session) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

// Complete reports whether the session has run all of its ticks
func (s *Session) Complete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completeLocked()
}

func (s *Session) completeLocked() bool {
	return s.cfg.TotalTicks > 0 && s.tick >= s.cfg.TotalTicks
}

// Snapshot returns a deep copy of the committed state
func (s *Session) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() models.Snapshot {
	lanes := make([]models.LaneState, len(s.lanes))
	for i, l := range s.lanes {
		lanes[i] = l.Clone()
	}
	return models.Snapshot{
		SessionID:  s.id,
		Tick:       s.tick,
		TotalTicks: s.cfg.TotalTicks,
		Complete:   s.completeLocked(),
		Paused:     s.paused,
		Lanes:      lanes,
		Statistics: s.stats.Stats(),
		Timestamp:  s.now,
	}
}

// Close tears the session down and cancels every pending auto-clear. Later
// mutations return ErrNoActiveSession. Close is idempotent.
func (s *Session) Close() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0
	}
	s.closed = true
	n := s.overrides.Clear()
	s.logger.Info().Int("tick", s.tick).Int("cancelled_overrides", n).Msg("Session closed")
	return n
}

// Elapsed returns the simulated time since the session started
func (s *Session) Elapsed() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now.Sub(s.started)
}
