package models

import (
	"fmt"
	"time"
)

// LaneID identifies one of the four approaches of the intersection
type LaneID string

const (
	LaneNorth LaneID = "lane1"
	LaneSouth LaneID = "lane2"
	LaneEast  LaneID = "lane3"
	LaneWest  LaneID = "lane4"
)

// AllLanes lists the fixed lane set in display order
var AllLanes = []LaneID{LaneNorth, LaneSouth, LaneEast, LaneWest}

// String returns the string representation of LaneID
func (id LaneID) String() string {
	return string(id)
}

// IsValid checks if the lane id belongs to the fixed lane set
func (id LaneID) IsValid() bool {
	switch id {
	case LaneNorth, LaneSouth, LaneEast, LaneWest:
		return true
	default:
		return false
	}
}

// Index returns the position of the lane in AllLanes
func (id LaneID) Index() (int, error) {
	for i, l := range AllLanes {
		if l == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("lane %q: %w", string(id), ErrUnknownLane)
}

// ParseLaneID accepts either a lane id ("lane1") or a direction ("north")
func ParseLaneID(s string) (LaneID, error) {
	switch s {
	case "lane1", "north":
		return LaneNorth, nil
	case "lane2", "south":
		return LaneSouth, nil
	case "lane3", "east":
		return LaneEast, nil
	case "lane4", "west":
		return LaneWest, nil
	}
	return "", fmt.Errorf("lane %q: %w", s, ErrUnknownLane)
}

// SignalColor represents the lamp currently lit on a lane
type SignalColor string

const (
	SignalGreen  SignalColor = "green"
	SignalYellow SignalColor = "yellow"
	SignalRed    SignalColor = "red"
)

// String returns the string representation of SignalColor
func (s SignalColor) String() string {
	return string(s)
}

// IsValid checks if the signal color is valid
func (s SignalColor) IsValid() bool {
	switch s {
	case SignalGreen, SignalYellow, SignalRed:
		return true
	default:
		return false
	}
}

// LaneState is the authoritative per-lane record. It is a value type: the
// simulation copies it, computes the next state and commits the copy.
type LaneState struct {
	ID   LaneID `json:"id"`
	Name string `json:"name"`

	Signal       SignalColor `json:"signal"`
	TimerSeconds int         `json:"timerSeconds"`

	GreenDuration  int `json:"greenDuration"`
	YellowDuration int `json:"yellowDuration"`
	RedDuration    int `json:"redDuration"`

	Density        float64   `json:"density"`
	DensityHistory []float64 `json:"densityHistory"`

	HasEmergency bool `json:"hasEmergency"`
	HasVideo     bool `json:"hasVideo"`
}

// Clone returns a deep copy so history slices are never shared between snapshots
func (l LaneState) Clone() LaneState {
	out := l
	out.DensityHistory = append([]float64(nil), l.DensityHistory...)
	return out
}

// PushDensity records a new density and appends it to the bounded history,
// evicting the oldest samples once capacity is reached.
func (l *LaneState) PushDensity(density float64, capacity int) {
	l.Density = density
	l.DensityHistory = append(l.DensityHistory, density)
	if capacity > 0 && len(l.DensityHistory) > capacity {
		l.DensityHistory = append([]float64(nil), l.DensityHistory[len(l.DensityHistory)-capacity:]...)
	}
}

// EmergencyOverride is an active forced-green record for one lane
type EmergencyOverride struct {
	LaneID      LaneID    `json:"laneId"`
	ActivatedAt time.Time `json:"activatedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Statistics aggregates cross-lane metrics for a session
type Statistics struct {
	AvgDensity         float64 `json:"avgDensity"`
	PeakDensity        float64 `json:"peakDensity"`
	TotalVehicles      int     `json:"totalVehicles"`
	CycleSwitches      int     `json:"cycleSwitches"`
	EmergencyOverrides int     `json:"emergencyOverrides"`
}

// Snapshot is the read-only view exported once per tick
type Snapshot struct {
	SessionID  string      `json:"sessionId"`
	Tick       int         `json:"tick"`
	TotalTicks int         `json:"totalTicks"`
	Complete   bool        `json:"complete"`
	Paused     bool        `json:"paused"`
	Lanes      []LaneState `json:"lanes"`
	Statistics Statistics  `json:"statistics"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Lane returns the lane with the given id from the snapshot
func (s Snapshot) Lane(id LaneID) (LaneState, bool) {
	for _, l := range s.Lanes {
		if l.ID == id {
			return l, true
		}
	}
	return LaneState{}, false
}

// EmergencyEvent is published whenever an override starts or clears
type EmergencyEvent struct {
	SessionID string    `json:"sessionId"`
	LaneID    LaneID    `json:"laneId"`
	LaneName  string    `json:"laneName"`
	Active    bool      `json:"active"`
	Source    string    `json:"source"` // manual, detection, command or expiry
	Timestamp time.Time `json:"timestamp"`
}
