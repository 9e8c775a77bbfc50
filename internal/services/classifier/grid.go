// Package classifier turns sampled video frames into lane density estimates
// and emergency-vehicle signals. Both classifiers are color/brightness
// heuristics over a coarse grid, not object detectors.
package classifier

import (
	"math"

	"signal-controller-go/internal/models"
)

const (
	// GridSize is the number of cells along each axis of the frame
	GridSize = 20
	// SampleStride samples every Nth pixel in both axes inside a cell
	SampleStride = 3
)

// walkCells visits every sampled pixel, cell by cell, in row-major cell order.
// onPixel sees each sampled pixel; onCell is called once per cell with the
// number of pixels sampled in it (zero for cells smaller than one pixel).
func walkCells(buf *models.PixelBuffer, onPixel func(r, g, b int), onCell func(samples int)) {
	cellWidth := float64(buf.Width) / GridSize
	cellHeight := float64(buf.Height) / GridSize

	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			startX := int(math.Floor(float64(col) * cellWidth))
			startY := int(math.Floor(float64(row) * cellHeight))
			endX := float64(startX) + cellWidth
			endY := float64(startY) + cellHeight

			samples := 0
			for y := startY; float64(y) < endY && y < buf.Height; y += SampleStride {
				for x := startX; float64(x) < endX && x < buf.Width; x += SampleStride {
					r, g, b := buf.RGB(x, y)
					if onPixel != nil {
						onPixel(r, g, b)
					}
					samples++
				}
			}
			if onCell != nil {
				onCell(samples)
			}
		}
	}
}
