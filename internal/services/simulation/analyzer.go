package simulation

import (
	"signal-controller-go/internal/models"
	"signal-controller-go/internal/services/classifier"
)

// Analysis is the outcome of feeding one decoded frame to a LaneAnalyzer
type Analysis struct {
	Sampled   bool
	Reading   models.DensityReading
	Emergency models.EmergencyMatch
	Signal    models.EmergencySignal
}

// LaneAnalyzer classifies every Nth frame of one lane's video and carries the
// lane's smoothed density between readings. It is owned by a single feed
// goroutine.
type LaneAnalyzer struct {
	laneID      models.LaneID
	sampleEvery int64
	frames      int64
	smoothed    float64

	density   *classifier.DensityClassifier
	emergency *classifier.EmergencyClassifier
	debouncer *classifier.EmergencyDebouncer
}

// NewLaneAnalyzer creates an analyzer that classifies one frame out of sampleEvery
func NewLaneAnalyzer(laneID models.LaneID, sampleEvery int) *LaneAnalyzer {
	if sampleEvery < 1 {
		sampleEvery = 1
	}
	return &LaneAnalyzer{
		laneID:      laneID,
		sampleEvery: int64(sampleEvery),
		smoothed:    classifier.InitialSmoothedDensity,
		density:     classifier.NewDensityClassifier(),
		emergency:   classifier.NewEmergencyClassifier(),
		debouncer:   classifier.NewEmergencyDebouncer(laneID),
	}
}

// Process counts the frame and classifies it when it falls on the sampling
// cadence. An invalid frame returns ErrInvalidFrame and leaves the smoothed
// density and the debouncer untouched.
func (a *LaneAnalyzer) Process(buf *models.PixelBuffer) (Analysis, error) {
	a.frames++
	if a.frames%a.sampleEvery != 0 {
		return Analysis{}, nil
	}

	reading, err := a.density.Classify(buf, a.smoothed)
	if err != nil {
		return Analysis{}, err
	}
	reading.LaneID = a.laneID

	match, err := a.emergency.Classify(buf)
	if err != nil {
		return Analysis{}, err
	}
	a.smoothed = reading.SmoothedDensity

	return Analysis{
		Sampled:   true,
		Reading:   reading,
		Emergency: match,
		Signal:    a.debouncer.Observe(match.Matched),
	}, nil
}

// Interrupt is called when sampling pauses; frames across a pause are not consecutive
func (a *LaneAnalyzer) Interrupt() {
	a.debouncer.Reset()
}
