package domain

import (
	"fmt"
	"sort"
)

// GridColumns is the fixed column count of the layout grid.
const GridColumns = 12

// GridLayoutItem places one block on the grid. I doubles as the block id
// and the entry's own identity.
type GridLayoutItem struct {
	I string `json:"i"`
	X int    `json:"x"`
	Y int    `json:"y"`
	W int    `json:"w"`
	H int    `json:"h"`

	// Static is derived from the view mode and never persisted.
	Static bool `json:"-"`
}

// Bottom is the first row below the entry.
func (it GridLayoutItem) Bottom() int { return it.Y + it.H }

// Layout is an ordered list of grid placements.
type Layout []GridLayoutItem

// Clone returns a copy that shares nothing with l.
func (l Layout) Clone() Layout {
	if l == nil {
		return nil
	}
	out := make(Layout, len(l))
	copy(out, l)
	return out
}

// ReadingOrder returns a copy sorted by y then x. Ties keep their input
// order, so repeated calls on the same input give the same result.
func (l Layout) ReadingOrder() Layout {
	out := l.Clone()
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Y != out[b].Y {
			return out[a].Y < out[b].Y
		}
		return out[a].X < out[b].X
	})
	return out
}

// MinY is the smallest y over all entries, 0 for an empty layout.
func (l Layout) MinY() int {
	if len(l) == 0 {
		return 0
	}
	minY := l[0].Y
	for _, it := range l[1:] {
		if it.Y < minY {
			minY = it.Y
		}
	}
	return minY
}

// Normalized returns a copy shifted up so the topmost entry sits on row 0.
// Relative order and row groupings are preserved; applying it twice is a no-op.
func (l Layout) Normalized() Layout {
	out := l.Clone()
	minY := out.MinY()
	if minY <= 0 {
		return out
	}
	for i := range out {
		out[i].Y -= minY
	}
	return out
}

// Bottom is max(y+h) over all entries, 0 for an empty layout.
func (l Layout) Bottom() int {
	maxY := 0
	for _, it := range l {
		if b := it.Bottom(); b > maxY {
			maxY = b
		}
	}
	return maxY
}

// WithStatic returns a copy with every entry's Static flag set to static.
func (l Layout) WithStatic(static bool) Layout {
	out := l.Clone()
	for i := range out {
		out[i].Static = static
	}
	return out
}

// Find returns the entry placing block id.
func (l Layout) Find(id string) (GridLayoutItem, bool) {
	for _, it := range l {
		if it.I == id {
			return it, true
		}
	}
	return GridLayoutItem{}, false
}

// Without returns a copy with every entry referencing id removed.
func (l Layout) Without(id string) Layout {
	out := make(Layout, 0, len(l))
	for _, it := range l {
		if it.I != id {
			out = append(out, it)
		}
	}
	return out
}

// IDs lists the block ids in layout order.
func (l Layout) IDs() []string {
	ids := make([]string, len(l))
	for i, it := range l {
		ids[i] = it.I
	}
	return ids
}

// Validate checks the placement invariants a layout coming from a client
// must satisfy: unique ids, non-negative origin, positive size.
// x+w > GridColumns is tolerated; the grid engine clamps it in editable mode.
func (l Layout) Validate() error {
	seen := make(map[string]bool, len(l))
	for _, it := range l {
		if it.I == "" {
			return fmt.Errorf("%w: entry without id", ErrInvalidLayout)
		}
		if seen[it.I] {
			return fmt.Errorf("%w: duplicate entry %q", ErrInvalidLayout, it.I)
		}
		seen[it.I] = true
		if it.X < 0 || it.Y < 0 {
			return fmt.Errorf("%w: entry %q has negative origin", ErrInvalidLayout, it.I)
		}
		if it.W < 1 || it.H < 1 {
			return fmt.Errorf("%w: entry %q has empty size", ErrInvalidLayout, it.I)
		}
		if it.X >= GridColumns {
			return fmt.Errorf("%w: entry %q starts past column %d", ErrInvalidLayout, it.I, GridColumns-1)
		}
	}
	return nil
}

// Dangling lists layout entries whose block is missing from blocks.
func (l Layout) Dangling(blocks Blocks) []string {
	var out []string
	for _, it := range l {
		if _, ok := blocks[it.I]; !ok {
			out = append(out, it.I)
		}
	}
	return out
}
