package simulation

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-controller-go/internal/models"
	"signal-controller-go/internal/services/signal"
)

var sessionStart = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func allVideo() map[models.LaneID]bool {
	return map[models.LaneID]bool{
		models.LaneNorth: true,
		models.LaneSouth: true,
		models.LaneEast:  true,
		models.LaneWest:  true,
	}
}

func newTestSession(t *testing.T, hasVideo map[models.LaneID]bool) *Session {
	t.Helper()
	return NewSession("test-session", DefaultSessionConfig(), hasVideo, sessionStart, zerolog.Nop())
}

func tickN(t *testing.T, s *Session, n int) TickResult {
	t.Helper()
	var res TickResult
	for i := 0; i < n; i++ {
		var err error
		res, err = s.Tick()
		require.NoError(t, err)
	}
	return res
}

func laneOf(t *testing.T, snap models.Snapshot, id models.LaneID) models.LaneState {
	t.Helper()
	l, ok := snap.Lane(id)
	require.True(t, ok)
	return l
}

func TestSession_InitialState(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, allVideo())
	snap := s.Snapshot()

	assert.Equal(t, "test-session", snap.SessionID)
	assert.Zero(t, snap.Tick)
	assert.Equal(t, 50, snap.TotalTicks)
	assert.False(t, snap.Complete)
	assert.Equal(t, models.Statistics{}, snap.Statistics)
	require.Len(t, snap.Lanes, 4)
	assert.Equal(t, models.SignalRed, laneOf(t, snap, models.LaneWest).Signal)
	assert.Equal(t, 5, laneOf(t, snap, models.LaneWest).TimerSeconds)
}

func TestSession_RedExpiresToDensityGreen(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, allVideo())
	require.NoError(t, s.ApplyDensity(models.LaneWest, 50))

	res := tickN(t, s, 4)
	west := laneOf(t, res.Snapshot, models.LaneWest)
	assert.Equal(t, models.SignalRed, west.Signal)
	assert.Equal(t, 1, west.TimerSeconds)
	assert.Zero(t, res.Snapshot.Statistics.CycleSwitches)

	res = tickN(t, s, 1)
	west = laneOf(t, res.Snapshot, models.LaneWest)
	assert.Equal(t, models.SignalGreen, west.Signal)
	assert.Equal(t, 20, west.GreenDuration)
	assert.Equal(t, 20, west.TimerSeconds)
	assert.Equal(t, 1, res.Snapshot.Statistics.CycleSwitches)
}

func TestSession_CycleCountsOnlyRedToGreen(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, allVideo())

	// tick 3: east yellow->red; tick 5: west red->green; tick 10: south red->green;
	// tick 15: north green->yellow and east red->green
	res := tickN(t, s, 3)
	assert.Equal(t, models.SignalRed, laneOf(t, res.Snapshot, models.LaneEast).Signal)
	assert.Zero(t, res.Snapshot.Statistics.CycleSwitches)

	res = tickN(t, s, 2)
	assert.Equal(t, 1, res.Snapshot.Statistics.CycleSwitches)

	res = tickN(t, s, 5)
	assert.Equal(t, 2, res.Snapshot.Statistics.CycleSwitches)

	res = tickN(t, s, 5)
	assert.Equal(t, models.SignalYellow, laneOf(t, res.Snapshot, models.LaneNorth).Signal)
	assert.Equal(t, models.SignalGreen, laneOf(t, res.Snapshot, models.LaneEast).Signal)
	assert.Equal(t, 3, res.Snapshot.Statistics.CycleSwitches)
}

func TestSession_EmergencyFreezeAndAutoClear(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, allVideo())

	ev, err := s.TriggerEmergency(models.LaneSouth, SourceManual)
	require.NoError(t, err)
	assert.True(t, ev.Active)
	assert.Equal(t, "South Lane", ev.LaneName)
	assert.Equal(t, SourceManual, ev.Source)

	snap := s.Snapshot()
	south := laneOf(t, snap, models.LaneSouth)
	assert.True(t, south.HasEmergency)
	assert.Equal(t, models.SignalGreen, south.Signal)
	assert.Equal(t, 30, south.TimerSeconds)
	assert.Equal(t, 30, south.GreenDuration)
	assert.Equal(t, 1, snap.Statistics.EmergencyOverrides)

	for i := 1; i < 10; i++ {
		res := tickN(t, s, 1)
		south = laneOf(t, res.Snapshot, models.LaneSouth)
		require.True(t, south.HasEmergency, "tick %d", i)
		require.Equal(t, 30, south.TimerSeconds, "tick %d", i)
		require.Empty(t, res.Cleared)
	}

	res := tickN(t, s, 1)
	south = laneOf(t, res.Snapshot, models.LaneSouth)
	assert.False(t, south.HasEmergency)
	assert.Equal(t, models.SignalGreen, south.Signal)
	assert.Equal(t, 16, south.GreenDuration) // round(10 + 30/100*20)
	assert.Equal(t, 16, south.TimerSeconds)
	require.Len(t, res.Cleared, 1)
	assert.Equal(t, models.LaneSouth, res.Cleared[0].LaneID)
	assert.False(t, res.Cleared[0].Active)
	assert.Equal(t, SourceExpiry, res.Cleared[0].Source)

	res = tickN(t, s, 1)
	assert.Equal(t, 15, laneOf(t, res.Snapshot, models.LaneSouth).TimerSeconds)
	assert.Equal(t, 1, res.Snapshot.Statistics.EmergencyOverrides)
}

func TestSession_RetriggerResetsWindow(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, allVideo())

	_, err := s.TriggerEmergency(models.LaneEast, SourceManual)
	require.NoError(t, err)
	tickN(t, s, 5)
	_, err = s.TriggerEmergency(models.LaneEast, SourceManual)
	require.NoError(t, err)

	res := tickN(t, s, 5)
	east := laneOf(t, res.Snapshot, models.LaneEast)
	assert.True(t, east.HasEmergency, "stale clear must not fire after retrigger")
	assert.Empty(t, res.Cleared)
	assert.Equal(t, 2, res.Snapshot.Statistics.EmergencyOverrides)

	res = tickN(t, s, 5)
	assert.False(t, laneOf(t, res.Snapshot, models.LaneEast).HasEmergency)
	assert.Len(t, res.Cleared, 1)
}

func TestSession_LanesWithoutVideo(t *testing.T) {
	t.Parallel()

	t.Run("all lanes without video keep statistics", func(t *testing.T) {
		t.Parallel()
		s := newTestSession(t, nil)
		before := s.Snapshot()
		res := tickN(t, s, 20)
		assert.Equal(t, models.Statistics{}, res.Snapshot.Statistics)
		assert.Empty(t, cmp.Diff(before.Lanes, res.Snapshot.Lanes))
	})

	t.Run("only lanes with video count", func(t *testing.T) {
		t.Parallel()
		s := newTestSession(t, map[models.LaneID]bool{models.LaneNorth: true})
		res := tickN(t, s, 1)
		assert.Equal(t, 20.0, res.Snapshot.Statistics.AvgDensity)
		assert.Equal(t, 20.0, res.Snapshot.Statistics.PeakDensity)
		assert.Equal(t, 6, res.Snapshot.Statistics.TotalVehicles)
		assert.Equal(t, 10, laneOf(t, res.Snapshot, models.LaneSouth).TimerSeconds)
	})
}

func TestSession_PeakDensityIsMonotone(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, allVideo())

	densities := []float64{90, 10, 60, 5, 95, 40}
	peak := 0.0
	for _, d := range densities {
		require.NoError(t, s.ApplyDensity(models.LaneNorth, d))
		res := tickN(t, s, 1)
		require.GreaterOrEqual(t, res.Snapshot.Statistics.PeakDensity, peak)
		peak = res.Snapshot.Statistics.PeakDensity
	}
	assert.Equal(t, 95.0, peak)
}

func TestSession_DensityHistoryIsBounded(t *testing.T) {
	t.Parallel()
	cfg := DefaultSessionConfig()
	cfg.HistorySize = 3
	s := NewSession("bounded", cfg, allVideo(), sessionStart, zerolog.Nop())

	for _, d := range []float64{41, 42, 43, 44} {
		require.NoError(t, s.ApplyDensity(models.LaneNorth, d))
	}
	north, err := s.Lane(models.LaneNorth)
	require.NoError(t, err)
	assert.Equal(t, []float64{42, 43, 44}, north.DensityHistory)
	assert.Equal(t, 44.0, north.Density)

	assert.Error(t, s.ApplyDensity(models.LaneNorth, 120))
}

func TestSession_SnapshotIsACopy(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, allVideo())
	snap := s.Snapshot()
	snap.Lanes[0].DensityHistory[0] = 99
	snap.Lanes[0].Signal = models.SignalRed

	fresh := s.Snapshot()
	assert.Equal(t, 20.0, fresh.Lanes[0].DensityHistory[0])
	assert.Equal(t, models.SignalGreen, fresh.Lanes[0].Signal)
}

func TestSession_PausedTickIsNoop(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, allVideo())
	tickN(t, s, 2)
	s.SetPaused(true)
	before := s.Snapshot()

	res := tickN(t, s, 5)
	assert.Empty(t, cmp.Diff(before, res.Snapshot))
	assert.True(t, res.Snapshot.Paused)

	s.SetPaused(false)
	res = tickN(t, s, 1)
	assert.Equal(t, 3, res.Snapshot.Tick)
}

func TestSession_Completion(t *testing.T) {
	t.Parallel()
	cfg := DefaultSessionConfig()
	cfg.TotalTicks = 3
	s := NewSession("short", cfg, allVideo(), sessionStart, zerolog.Nop())

	res := tickN(t, s, 3)
	assert.True(t, res.Snapshot.Complete)
	assert.True(t, s.Complete())

	again := tickN(t, s, 1)
	assert.Equal(t, 3, again.Snapshot.Tick)
	assert.Empty(t, cmp.Diff(res.Snapshot, again.Snapshot))
}

func TestSession_CompletedSessionRefusesTriggers(t *testing.T) {
	t.Parallel()
	cfg := DefaultSessionConfig()
	cfg.TotalTicks = 2
	s := NewSession("finished", cfg, allVideo(), sessionStart, zerolog.Nop())
	tickN(t, s, 2)
	require.True(t, s.Complete())

	_, err := s.TriggerEmergency(models.LaneSouth, SourceManual)
	assert.ErrorIs(t, err, models.ErrNoActiveSession)

	res := tickN(t, s, 15)
	assert.True(t, res.Snapshot.Complete)
	assert.False(t, laneOf(t, res.Snapshot, models.LaneSouth).HasEmergency)
	assert.Zero(t, res.Snapshot.Statistics.EmergencyOverrides)
}

func TestSession_CloseCancelsOverrides(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, allVideo())
	_, err := s.TriggerEmergency(models.LaneNorth, SourceManual)
	require.NoError(t, err)
	_, err = s.TriggerEmergency(models.LaneWest, SourceManual)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Close())
	assert.Zero(t, s.Close())

	_, err = s.Tick()
	assert.ErrorIs(t, err, models.ErrNoActiveSession)
	_, err = s.TriggerEmergency(models.LaneNorth, SourceManual)
	assert.ErrorIs(t, err, models.ErrNoActiveSession)
	assert.ErrorIs(t, s.ApplyDensity(models.LaneNorth, 50), models.ErrNoActiveSession)
	_, err = s.Lane(models.LaneNorth)
	assert.ErrorIs(t, err, models.ErrNoActiveSession)
}

func TestSession_UnknownLane(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, allVideo())
	_, err := s.TriggerEmergency(models.LaneID("lane9"), SourceManual)
	assert.ErrorIs(t, err, models.ErrUnknownLane)
	assert.ErrorIs(t, s.ApplyDensity("north-east", 10), models.ErrUnknownLane)
	assert.Zero(t, s.Snapshot().Statistics.EmergencyOverrides)
}

func TestSession_LanePanicIsIsolated(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, allVideo())
	s.transition = func(l models.LaneState) signal.Outcome {
		if l.ID == models.LaneEast {
			panic("corrupt lane")
		}
		return signal.Transition(l)
	}

	before := s.Snapshot()
	res := tickN(t, s, 1)

	assert.Equal(t, laneOf(t, before, models.LaneEast), laneOf(t, res.Snapshot, models.LaneEast))
	assert.Equal(t, 14, laneOf(t, res.Snapshot, models.LaneNorth).TimerSeconds)
	assert.Equal(t, 9, laneOf(t, res.Snapshot, models.LaneSouth).TimerSeconds)
	assert.Equal(t, 4, laneOf(t, res.Snapshot, models.LaneWest).TimerSeconds)
}

func TestSession_TickUsesPriorState(t *testing.T) {
	t.Parallel()
	s := newTestSession(t, allVideo())
	require.NoError(t, s.ApplyDensity(models.LaneNorth, 80))

	res := tickN(t, s, 1)
	// statistics see the committed densities at the start of the tick
	assert.InDelta(t, (80.0+30+25+35)/4, res.Snapshot.Statistics.AvgDensity, 1e-9)
	assert.Equal(t, sessionStart.Add(time.Second), res.Snapshot.Timestamp)
	assert.Equal(t, time.Second, s.Elapsed())
}
