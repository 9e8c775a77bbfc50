package models

import (
	"image"
	"image/draw"
	"time"
)

// PixelBuffer is an RGBA snapshot of one processed frame.
// Pix holds 4 bytes per pixel, row-major, without row padding.
type PixelBuffer struct {
	Width     int
	Height    int
	Pix       []byte
	FrameID   int64
	Timestamp time.Time
}

// Validate reports ErrInvalidFrame for empty or inconsistent buffers
func (b *PixelBuffer) Validate() error {
	if b == nil || b.Width <= 0 || b.Height <= 0 {
		return ErrInvalidFrame
	}
	if len(b.Pix) != b.Width*b.Height*4 {
		return ErrInvalidFrame
	}
	return nil
}

// RGB returns the color channels at (x, y)
func (b *PixelBuffer) RGB(x, y int) (r, g, bl int) {
	i := (y*b.Width + x) * 4
	return int(b.Pix[i]), int(b.Pix[i+1]), int(b.Pix[i+2])
}

// PixelBufferFromImage copies any image into a tightly packed RGBA buffer
func PixelBufferFromImage(img image.Image) *PixelBuffer {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return &PixelBuffer{
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Pix:       rgba.Pix,
		Timestamp: time.Now(),
	}
}

// DensityReading is produced once per sampled frame
type DensityReading struct {
	LaneID          LaneID    `json:"laneId"`
	RawDensity      float64   `json:"rawDensity"`
	SmoothedDensity float64   `json:"smoothedDensity"`
	OccupiedCells   int       `json:"occupiedCells"`
	Timestamp       time.Time `json:"timestamp"`
}

// EmergencyMatch is the single-frame result of the color heuristics
type EmergencyMatch struct {
	RedRatio   float64 `json:"redRatio"`
	BlueRatio  float64 `json:"blueRatio"`
	WhiteRatio float64 `json:"whiteRatio"`
	Matched    bool    `json:"matched"`
}

// EmergencySignal is the debounced detection state of a lane
type EmergencySignal struct {
	LaneID            LaneID `json:"laneId"`
	Detected          bool   `json:"detected"`
	ConsecutiveFrames int    `json:"consecutiveFrames"`
}
