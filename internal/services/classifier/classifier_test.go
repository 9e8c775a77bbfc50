package classifier

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-controller-go/internal/models"
)

const (
	testWidth  = 200
	testHeight = 150
)

// bandFrame paints horizontal bands; rows at or beyond the last band keep fill.
func bandFrame(fill color.RGBA, bands ...band) *models.PixelBuffer {
	img := image.NewRGBA(image.Rect(0, 0, testWidth, testHeight))
	for y := 0; y < testHeight; y++ {
		c := fill
		for _, b := range bands {
			if y >= b.from && y < b.to {
				c = b.color
			}
		}
		for x := 0; x < testWidth; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return models.PixelBufferFromImage(img)
}

type band struct {
	from, to int
	color    color.RGBA
}

func leftColumnsFrame(darkUntilX int) *models.PixelBuffer {
	img := image.NewRGBA(image.Rect(0, 0, testWidth, testHeight))
	for y := 0; y < testHeight; y++ {
		for x := 0; x < testWidth; x++ {
			if x < darkUntilX {
				img.SetRGBA(x, y, color.RGBA{R: 20, G: 20, B: 20, A: 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{R: 180, G: 180, B: 180, A: 255})
			}
		}
	}
	return models.PixelBufferFromImage(img)
}

var (
	black = color.RGBA{A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gray  = color.RGBA{R: 100, G: 100, B: 100, A: 255}
	red   = color.RGBA{R: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
)

func TestDensityClassifier_Bounds(t *testing.T) {
	t.Parallel()
	dc := NewDensityClassifier()

	t.Run("fully dark frame is capped", func(t *testing.T) {
		t.Parallel()
		r, err := dc.Classify(bandFrame(black), 40)
		require.NoError(t, err)
		assert.Equal(t, 400, r.OccupiedCells)
		assert.Equal(t, MaxDensity, r.RawDensity)
		assert.InDelta(t, 56.5, r.SmoothedDensity, 1e-9)
	})

	t.Run("empty road is floored", func(t *testing.T) {
		t.Parallel()
		r, err := dc.Classify(bandFrame(white), 40)
		require.NoError(t, err)
		assert.Equal(t, 0, r.OccupiedCells)
		assert.Equal(t, MinDensity, r.RawDensity)
		assert.InDelta(t, 29.5, r.SmoothedDensity, 1e-9)
	})

	t.Run("quarter occupancy scales by 200", func(t *testing.T) {
		t.Parallel()
		r, err := dc.Classify(leftColumnsFrame(50), 50)
		require.NoError(t, err)
		assert.Equal(t, 100, r.OccupiedCells)
		assert.InDelta(t, 50.0, r.RawDensity, 1e-9)
		assert.InDelta(t, 50.0, r.SmoothedDensity, 1e-9)
	})
}

func TestRawDensity_NeverDegenerate(t *testing.T) {
	t.Parallel()
	for cells := 0; cells <= GridSize*GridSize; cells++ {
		d := RawDensity(cells)
		require.GreaterOrEqual(t, d, MinDensity, "cells=%d", cells)
		require.LessOrEqual(t, d, MaxDensity, "cells=%d", cells)
		require.NotEqual(t, 0.0, d)
		require.NotEqual(t, 100.0, d)
	}
}

func TestSmooth_IsConvexCombination(t *testing.T) {
	t.Parallel()
	for prior := 0.0; prior <= 100; prior += 7.5 {
		for raw := MinDensity; raw <= MaxDensity; raw += 4.5 {
			s := Smooth(prior, raw)
			lo, hi := math.Min(prior, raw), math.Max(prior, raw)
			assert.GreaterOrEqual(t, s, lo-1e-9)
			assert.LessOrEqual(t, s, hi+1e-9)
		}
	}
}

func TestClassifiers_InvalidFrame(t *testing.T) {
	t.Parallel()
	cases := map[string]*models.PixelBuffer{
		"nil":        nil,
		"zero size":  {Width: 0, Height: 10, Pix: nil},
		"short pix":  {Width: 4, Height: 4, Pix: make([]byte, 10)},
		"negative":   {Width: -1, Height: 2, Pix: make([]byte, 8)},
		"empty data": {Width: 2, Height: 2},
	}
	dc := NewDensityClassifier()
	ec := NewEmergencyClassifier()
	for name, buf := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := dc.Classify(buf, 40)
			assert.ErrorIs(t, err, models.ErrInvalidFrame)
			_, err = ec.Classify(buf)
			assert.ErrorIs(t, err, models.ErrInvalidFrame)
		})
	}
}

func TestDensityClassifier_TinyFrame(t *testing.T) {
	t.Parallel()
	buf := &models.PixelBuffer{Width: 1, Height: 1, Pix: []byte{0, 0, 0, 255}}
	r, err := NewDensityClassifier().Classify(buf, 40)
	require.NoError(t, err)
	assert.Equal(t, MaxDensity, r.RawDensity)
}

func TestEmergencyClassifier_Ratios(t *testing.T) {
	t.Parallel()
	ec := NewEmergencyClassifier()

	t.Run("red beacon on white body", func(t *testing.T) {
		t.Parallel()
		m, err := ec.Classify(bandFrame(gray, band{0, 75, white}, band{75, 105, red}))
		require.NoError(t, err)
		assert.InDelta(t, 0.5, m.WhiteRatio, 1e-9)
		assert.InDelta(t, 0.2, m.RedRatio, 1e-9)
		assert.Zero(t, m.BlueRatio)
		assert.True(t, m.Matched)
	})

	t.Run("blue beacon on white body", func(t *testing.T) {
		t.Parallel()
		m, err := ec.Classify(bandFrame(gray, band{0, 75, white}, band{75, 105, blue}))
		require.NoError(t, err)
		assert.InDelta(t, 0.2, m.BlueRatio, 1e-9)
		assert.True(t, m.Matched)
	})

	t.Run("white body without beacon", func(t *testing.T) {
		t.Parallel()
		m, err := ec.Classify(bandFrame(gray, band{0, 75, white}))
		require.NoError(t, err)
		assert.False(t, m.Matched)
	})

	t.Run("beacon without white body", func(t *testing.T) {
		t.Parallel()
		m, err := ec.Classify(bandFrame(gray, band{75, 105, red}))
		require.NoError(t, err)
		assert.Zero(t, m.WhiteRatio)
		assert.False(t, m.Matched)
	})
}

func TestEmergencyDebouncer(t *testing.T) {
	t.Parallel()

	t.Run("confirms on third consecutive frame", func(t *testing.T) {
		t.Parallel()
		d := NewEmergencyDebouncer(models.LaneNorth)
		assert.False(t, d.Observe(true).Detected)
		assert.False(t, d.Observe(true).Detected)
		s := d.Observe(true)
		assert.True(t, s.Detected)
		assert.Equal(t, 3, s.ConsecutiveFrames)
		assert.Equal(t, models.LaneNorth, s.LaneID)
		assert.True(t, d.Observe(true).Detected)
	})

	t.Run("miss resets counter", func(t *testing.T) {
		t.Parallel()
		d := NewEmergencyDebouncer(models.LaneEast)
		d.Observe(true)
		d.Observe(true)
		s := d.Observe(false)
		assert.Equal(t, 0, s.ConsecutiveFrames)
		assert.False(t, d.Observe(true).Detected)
		assert.False(t, d.Observe(true).Detected)
		assert.True(t, d.Observe(true).Detected)
	})

	t.Run("reset", func(t *testing.T) {
		t.Parallel()
		d := NewEmergencyDebouncer(models.LaneWest)
		d.Observe(true)
		d.Observe(true)
		d.Reset()
		assert.False(t, d.Observe(true).Detected)
	})
}
