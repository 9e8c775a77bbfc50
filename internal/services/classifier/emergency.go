package classifier

import (
	"signal-controller-go/internal/models"
)

const (
	lightMinChannel = 150
	lightDominance  = 1.4
	whiteMinChannel = 200

	lightRatioThreshold = 0.05
	whiteRatioThreshold = 0.15

	// ConfirmFrames is the number of consecutive matching frames required
	// before a detection is reported
	ConfirmFrames = 3
)

// EmergencyClassifier looks for a colored beacon (red or blue) together with a
// pale vehicle body in a single frame
type EmergencyClassifier struct{}

// NewEmergencyClassifier creates an emergency classifier
func NewEmergencyClassifier() *EmergencyClassifier {
	return &EmergencyClassifier{}
}

// Classify computes color ratios over the sampled pixels of the frame
func (ec *EmergencyClassifier) Classify(buf *models.PixelBuffer) (models.EmergencyMatch, error) {
	if err := buf.Validate(); err != nil {
		return models.EmergencyMatch{}, err
	}

	var red, blue, white, total int
	walkCells(buf, func(r, g, b int) {
		fr, fg, fb := float64(r), float64(g), float64(b)
		if r > lightMinChannel && fr > fg*lightDominance && fr > fb*lightDominance {
			red++
		}
		if b > lightMinChannel && fb > fr*lightDominance && fb > fg*lightDominance {
			blue++
		}
		if r > whiteMinChannel && g > whiteMinChannel && b > whiteMinChannel {
			white++
		}
		total++
	}, nil)

	if total == 0 {
		return models.EmergencyMatch{}, nil
	}

	m := models.EmergencyMatch{
		RedRatio:   float64(red) / float64(total),
		BlueRatio:  float64(blue) / float64(total),
		WhiteRatio: float64(white) / float64(total),
	}
	m.Matched = (m.RedRatio > lightRatioThreshold || m.BlueRatio > lightRatioThreshold) &&
		m.WhiteRatio > whiteRatioThreshold
	return m, nil
}

// EmergencyDebouncer confirms single-frame matches over consecutive frames.
// It is owned by one lane feed and is not safe for concurrent use.
type EmergencyDebouncer struct {
	laneID      models.LaneID
	consecutive int
}

// NewEmergencyDebouncer creates a debouncer for a lane
func NewEmergencyDebouncer(laneID models.LaneID) *EmergencyDebouncer {
	return &EmergencyDebouncer{laneID: laneID}
}

// Observe records one frame result. A miss resets the counter to zero.
func (d *EmergencyDebouncer) Observe(matched bool) models.EmergencySignal {
	if matched {
		d.consecutive++
	} else {
		d.consecutive = 0
	}
	return models.EmergencySignal{
		LaneID:            d.laneID,
		Detected:          d.consecutive >= ConfirmFrames,
		ConsecutiveFrames: d.consecutive,
	}
}

// Reset clears the counter
func (d *EmergencyDebouncer) Reset() {
	d.consecutive = 0
}
