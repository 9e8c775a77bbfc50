// Package signal implements the per-lane signal state machine. Every function
// here is pure: it takes a LaneState value and returns the next one, so the
// simulation can compute all four lanes from one snapshot and commit once.
package signal

import (
	"math"

	"signal-controller-go/internal/models"
)

const (
	minGreenSeconds  = 10
	greenSpanSeconds = 20

	DefaultGreenSeconds     = 15
	DefaultYellowSeconds    = 3
	DefaultRedSeconds       = 12
	DefaultEmergencySeconds = 30
)

// GreenDuration maps density linearly onto 10..30 seconds of green
func GreenDuration(density float64) int {
	return int(math.Round(minGreenSeconds + (density/100)*greenSpanSeconds))
}

// Outcome is the result of advancing one lane by one tick
type Outcome struct {
	State models.LaneState
	// Cycled is true only for a red to green transition
	Cycled bool
	// Skipped is true when the lane has no video feed and was left untouched
	Skipped bool
}

// Transition advances a lane by one tick
func Transition(old models.LaneState) Outcome {
	next := old.Clone()

	if !next.HasVideo {
		return Outcome{State: next, Skipped: true}
	}

	if next.HasEmergency {
		next.Signal = models.SignalGreen
		return Outcome{State: next}
	}

	next.TimerSeconds--
	if next.TimerSeconds > 0 {
		return Outcome{State: next}
	}

	cycled := false
	switch next.Signal {
	case models.SignalGreen:
		next.Signal = models.SignalYellow
		next.TimerSeconds = next.YellowDuration
	case models.SignalYellow:
		next.Signal = models.SignalRed
		next.TimerSeconds = next.RedDuration
	case models.SignalRed:
		next.Signal = models.SignalGreen
		next.GreenDuration = GreenDuration(next.Density)
		next.TimerSeconds = next.GreenDuration
		cycled = true
	}

	if next.TimerSeconds < 0 {
		next.TimerSeconds = 0
	}
	return Outcome{State: next, Cycled: cycled}
}

// ApplyOverride forces a lane to an emergency green
func ApplyOverride(old models.LaneState, emergencyGreen int) models.LaneState {
	next := old.Clone()
	next.HasEmergency = true
	next.Signal = models.SignalGreen
	next.TimerSeconds = emergencyGreen
	next.GreenDuration = emergencyGreen
	return next
}

// ClearOverride releases an emergency and restarts green from current density
func ClearOverride(old models.LaneState) models.LaneState {
	next := old.Clone()
	next.HasEmergency = false
	next.GreenDuration = GreenDuration(next.Density)
	next.TimerSeconds = next.GreenDuration
	return next
}

// SeedLanes returns the initial lane records; hasVideo marks which lanes have a feed
func SeedLanes(hasVideo map[models.LaneID]bool) []models.LaneState {
	seeds := []struct {
		id      models.LaneID
		name    string
		density float64
		signal  models.SignalColor
		timer   int
	}{
		{models.LaneNorth, "North Lane", 20, models.SignalGreen, 15},
		{models.LaneSouth, "South Lane", 30, models.SignalRed, 10},
		{models.LaneEast, "East Lane", 25, models.SignalYellow, 3},
		{models.LaneWest, "West Lane", 35, models.SignalRed, 5},
	}

	lanes := make([]models.LaneState, 0, len(seeds))
	for _, s := range seeds {
		lanes = append(lanes, models.LaneState{
			ID:             s.id,
			Name:           s.name,
			Signal:         s.signal,
			TimerSeconds:   s.timer,
			GreenDuration:  DefaultGreenSeconds,
			YellowDuration: DefaultYellowSeconds,
			RedDuration:    DefaultRedSeconds,
			Density:        s.density,
			DensityHistory: []float64{s.density},
			HasVideo:       hasVideo[s.id],
		})
	}
	return lanes
}
