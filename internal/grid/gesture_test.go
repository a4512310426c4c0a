package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/domain"
)

func TestGesture_ClickSelects(t *testing.T) {
	var g Gesture
	g.Press(100, 100, false)
	assert.Equal(t, Pressed, g.Move(102, 101))
	out := g.Release()
	assert.True(t, out.Select())
	assert.Equal(t, Idle, g.State())
}

func TestGesture_DragDoesNotSelect(t *testing.T) {
	var g Gesture
	g.Press(0, 0, false)
	assert.Equal(t, Dragging, g.Move(10, 0))
	// coming back inside the threshold does not demote the gesture
	assert.Equal(t, Dragging, g.Move(1, 0))
	out := g.Release()
	assert.False(t, out.Select())
	assert.Equal(t, OutcomeMove, out.Kind)
}

func TestGesture_ResizeFromHandle(t *testing.T) {
	var g Gesture
	g.Press(600, 120, true)
	assert.Equal(t, Pressed, g.State())
	g.Move(700, 180)
	assert.Equal(t, Resizing, g.State())
	out := g.Release()
	assert.Equal(t, Outcome{Kind: OutcomeResize, DX: 1, DY: 2}, out)
}

func TestGesture_IdleIgnoresMoves(t *testing.T) {
	var g Gesture
	assert.Equal(t, Idle, g.Move(50, 50))
	assert.Equal(t, OutcomeNone, g.Release().Kind)
}

func TestGesture_Cancel(t *testing.T) {
	var g Gesture
	g.Press(0, 0, false)
	g.Move(300, 0)
	g.Cancel()
	assert.Equal(t, Idle, g.State())
	assert.Equal(t, OutcomeNone, g.Release().Kind)
}

func TestGesture_ThresholdBoundary(t *testing.T) {
	var g Gesture
	g.Press(0, 0, false)
	assert.Equal(t, Pressed, g.Move(3, 3.9))
	assert.Equal(t, Dragging, g.Move(3, 4))
}

func TestCellDelta(t *testing.T) {
	dc, dr := CellDelta(149, -46)
	assert.Equal(t, 1, dc)
	assert.Equal(t, -2, dr)
}

func TestApplyGesture(t *testing.T) {
	base := domain.Layout{
		{I: "a", X: 0, Y: 0, W: 4, H: 4},
		{I: "b", X: 4, Y: 0, W: 4, H: 4},
	}
	tests := []struct {
		name string
		id   string
		out  Outcome
		want domain.GridLayoutItem
	}{
		{"move", "a", Outcome{Kind: OutcomeMove, DX: 2, DY: 3}, domain.GridLayoutItem{I: "a", X: 2, Y: 3, W: 4, H: 4}},
		{"move clamps right edge", "b", Outcome{Kind: OutcomeMove, DX: 10}, domain.GridLayoutItem{I: "b", X: 8, Y: 0, W: 4, H: 4}},
		{"move clamps top", "a", Outcome{Kind: OutcomeMove, DY: -9}, domain.GridLayoutItem{I: "a", X: 0, Y: 0, W: 4, H: 4}},
		{"resize", "a", Outcome{Kind: OutcomeResize, DX: 2, DY: -1}, domain.GridLayoutItem{I: "a", X: 0, Y: 0, W: 6, H: 3}},
		{"resize keeps origin", "b", Outcome{Kind: OutcomeResize, DX: 20}, domain.GridLayoutItem{I: "b", X: 4, Y: 0, W: 8, H: 4}},
		{"resize min size", "a", Outcome{Kind: OutcomeResize, DX: -10, DY: -10}, domain.GridLayoutItem{I: "a", X: 0, Y: 0, W: 1, H: 1}},
		{"select is a no-op", "a", Outcome{Kind: OutcomeSelect}, base[0]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyGesture(base, tt.id, tt.out)
			require.NoError(t, err)
			require.Len(t, got, len(base))
			it, ok := got.Find(tt.id)
			require.True(t, ok)
			assert.Equal(t, tt.want, it)
		})
	}
	assert.Equal(t, 0, base[0].X, "source layout untouched")
}

func TestApplyGesture_UnknownID(t *testing.T) {
	_, err := ApplyGesture(domain.Layout{{I: "a", W: 1, H: 1}}, "zzz", Outcome{Kind: OutcomeMove})
	assert.ErrorIs(t, err, domain.ErrBlockNotFound)
}

func TestClamp(t *testing.T) {
	assert.Equal(t,
		domain.GridLayoutItem{I: "x", X: 0, Y: 0, W: 12, H: 1},
		Clamp(domain.GridLayoutItem{I: "x", X: -3, Y: -1, W: 40, H: 0}))
}
