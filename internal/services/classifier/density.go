package classifier

import (
	"time"

	"signal-controller-go/internal/models"
)

const (
	darkBrightness    = 130.0
	occupiedDarkRatio = 0.3
	densityScale      = 200.0

	// MinDensity and MaxDensity bound every raw reading so downstream timer
	// math never sees an empty or saturated lane.
	MinDensity = 5.0
	MaxDensity = 95.0

	// SmoothingWeight is the weight of the new raw reading in the EWMA
	SmoothingWeight = 0.3

	// InitialSmoothedDensity is the prior of a feed's first reading
	InitialSmoothedDensity = 40.0
)

// DensityClassifier estimates lane occupancy from dark-pixel coverage of a grid
type DensityClassifier struct {
	now func() time.Time
}

// NewDensityClassifier creates a density classifier
func NewDensityClassifier() *DensityClassifier {
	return &DensityClassifier{now: time.Now}
}

// Classify computes a raw density for the frame and blends it into the prior
// smoothed value. An invalid buffer yields ErrInvalidFrame and no reading.
func (dc *DensityClassifier) Classify(buf *models.PixelBuffer, priorSmoothed float64) (models.DensityReading, error) {
	if err := buf.Validate(); err != nil {
		return models.DensityReading{}, err
	}

	occupied := 0
	dark := 0
	walkCells(buf,
		func(r, g, b int) {
			if float64(r+g+b)/3 < darkBrightness {
				dark++
			}
		},
		func(samples int) {
			if float64(dark)/float64(max(samples, 1)) > occupiedDarkRatio {
				occupied++
			}
			dark = 0
		},
	)

	raw := RawDensity(occupied)
	ts := buf.Timestamp
	if ts.IsZero() {
		ts = dc.now()
	}

	return models.DensityReading{
		RawDensity:      raw,
		SmoothedDensity: Smooth(priorSmoothed, raw),
		OccupiedCells:   occupied,
		Timestamp:       ts,
	}, nil
}

// RawDensity converts an occupied cell count into a clamped percentage
func RawDensity(occupiedCells int) float64 {
	ratio := float64(occupiedCells) / (GridSize * GridSize)
	return clamp(ratio*densityScale, MinDensity, MaxDensity)
}

// Smooth applies the exponentially weighted moving average
func Smooth(prior, raw float64) float64 {
	return prior*(1-SmoothingWeight) + raw*SmoothingWeight
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
