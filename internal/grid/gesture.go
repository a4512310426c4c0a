package grid

import (
	"fmt"
	"math"

	"folio/internal/domain"
)

// DragThreshold is how far (px) the pointer must travel before a press
// becomes a drag or resize instead of a click.
const DragThreshold = 5.0

type GestureState int

const (
	Idle GestureState = iota
	Pressed
	Dragging
	Resizing
)

func (s GestureState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pressed:
		return "pressed"
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	}
	return fmt.Sprintf("GestureState(%d)", int(s))
}

type OutcomeKind string

const (
	OutcomeNone   OutcomeKind = "none"
	OutcomeSelect OutcomeKind = "select"
	OutcomeMove   OutcomeKind = "move"
	OutcomeResize OutcomeKind = "resize"
)

// Outcome is what a finished gesture means for the layout.
type Outcome struct {
	Kind OutcomeKind `json:"kind"`
	// DX/DY are the gesture's displacement in whole cells (move: origin,
	// resize: size).
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// Select reports whether the gesture was a click.
func (o Outcome) Select() bool { return o.Kind == OutcomeSelect }

// Gesture tracks one press/move/release cycle on a cell. The zero value is
// idle and ready for use.
type Gesture struct {
	state    GestureState
	onHandle bool
	startX   float64
	startY   float64
	lastX    float64
	lastY    float64
}

// State returns the current state.
func (g *Gesture) State() GestureState { return g.state }

// Press starts a gesture at (x, y). onHandle marks a press on the resize
// handle. A press while another gesture is active restarts it.
func (g *Gesture) Press(x, y float64, onHandle bool) {
	*g = Gesture{state: Pressed, onHandle: onHandle, startX: x, startY: y, lastX: x, lastY: y}
}

// Move records pointer movement. Once the pointer is DragThreshold away from
// the press point, pressed is promoted to dragging or resizing; it never
// goes back.
func (g *Gesture) Move(x, y float64) GestureState {
	if g.state == Idle {
		return Idle
	}
	g.lastX, g.lastY = x, y
	if g.state == Pressed && math.Hypot(x-g.startX, y-g.startY) >= DragThreshold {
		if g.onHandle {
			g.state = Resizing
		} else {
			g.state = Dragging
		}
	}
	return g.state
}

// Release ends the gesture and resets to idle. Only a release straight from
// pressed selects the block.
func (g *Gesture) Release() Outcome {
	defer func() { *g = Gesture{} }()
	dx, dy := CellDelta(g.lastX-g.startX, g.lastY-g.startY)
	switch g.state {
	case Pressed:
		return Outcome{Kind: OutcomeSelect}
	case Dragging:
		return Outcome{Kind: OutcomeMove, DX: dx, DY: dy}
	case Resizing:
		return Outcome{Kind: OutcomeResize, DX: dx, DY: dy}
	}
	return Outcome{Kind: OutcomeNone}
}

// Cancel drops the gesture without an outcome.
func (g *Gesture) Cancel() { *g = Gesture{} }

// ApplyGesture applies a move or resize outcome to entry id and returns the
// complete replacement layout. Select and none outcomes return an unchanged
// copy. The touched entry is clamped onto the grid; others are left as is.
func ApplyGesture(layout domain.Layout, id string, o Outcome) (domain.Layout, error) {
	out := layout.Clone()
	idx := -1
	for i, it := range out {
		if it.I == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("apply gesture: %w: %s", domain.ErrBlockNotFound, id)
	}
	it := out[idx]
	switch o.Kind {
	case OutcomeMove:
		it.X += o.DX
		it.Y += o.DY
	case OutcomeResize:
		it.W += o.DX
		it.H += o.DY
		// a resize keeps its origin, so overflow is taken off the width
		if it.X+it.W > Columns {
			it.W = Columns - it.X
		}
	default:
		return out, nil
	}
	out[idx] = Clamp(it)
	return out, nil
}
