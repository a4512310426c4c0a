package grid

import (
	"math"

	"folio/internal/domain"
)

const (
	Columns     = domain.GridColumns
	RowHeight   = 30.0   // px per grid row
	Width       = 1200.0 // container width in px
	ColumnWidth = Width / Columns
)

// PixelRect is the on-screen box of a cell.
type PixelRect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ToPixels converts a cell rectangle to pixels.
func ToPixels(it domain.GridLayoutItem) PixelRect {
	return PixelRect{
		Left:   float64(it.X) * ColumnWidth,
		Top:    float64(it.Y) * RowHeight,
		Width:  float64(it.W) * ColumnWidth,
		Height: float64(it.H) * RowHeight,
	}
}

// snap rounds a pixel distance to the nearest whole number of units.
func snap(px, unit float64) int {
	return int(math.Round(px / unit))
}

// CellDelta converts a pointer displacement in pixels to whole grid cells.
func CellDelta(dx, dy float64) (cols, rows int) {
	return snap(dx, ColumnWidth), snap(dy, RowHeight)
}

// Clamp pulls an entry back onto the grid: origin non-negative, size at
// least one cell, width no more than the grid and x+w within it.
func Clamp(it domain.GridLayoutItem) domain.GridLayoutItem {
	if it.W < 1 {
		it.W = 1
	}
	if it.W > Columns {
		it.W = Columns
	}
	if it.H < 1 {
		it.H = 1
	}
	if it.X < 0 {
		it.X = 0
	}
	if it.X+it.W > Columns {
		it.X = Columns - it.W
	}
	if it.Y < 0 {
		it.Y = 0
	}
	return it
}
