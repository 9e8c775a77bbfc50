// Package statistics accumulates cross-lane metrics once per simulation tick.
package statistics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"signal-controller-go/internal/models"
)

// VehicleDensityRatio converts a density percentage into an approximate vehicle count
const VehicleDensityRatio = 3.5

// Aggregator owns the Statistics of one session. Cycle and emergency counters
// are bumped by the session; density figures are recomputed by Tick.
type Aggregator struct {
	stats models.Statistics
}

// NewAggregator creates an aggregator with zeroed statistics
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Tick recomputes density statistics from the lanes that have video. When no
// lane has video the previous values are kept.
func (a *Aggregator) Tick(lanes []models.LaneState) models.Statistics {
	densities := make([]float64, 0, len(lanes))
	for _, l := range lanes {
		if l.HasVideo {
			densities = append(densities, l.Density)
		}
	}
	if len(densities) == 0 {
		return a.stats
	}

	a.stats.AvgDensity = stat.Mean(densities, nil)
	a.stats.PeakDensity = math.Max(a.stats.PeakDensity, floats.Max(densities))

	vehicles := 0
	for _, d := range densities {
		vehicles += EstimateVehicles(d)
	}
	a.stats.TotalVehicles = vehicles
	return a.stats
}

// EstimateVehicles returns round(density/3.5)
func EstimateVehicles(density float64) int {
	return int(math.Round(density / VehicleDensityRatio))
}

// AddCycles records completed red to green transitions
func (a *Aggregator) AddCycles(n int) {
	if n > 0 {
		a.stats.CycleSwitches += n
	}
}

// AddEmergencyOverride records one emergency trigger
func (a *Aggregator) AddEmergencyOverride() {
	a.stats.EmergencyOverrides++
}

// Stats returns the current statistics
func (a *Aggregator) Stats() models.Statistics {
	return a.stats
}
