// Package grid renders positioned content blocks, either as an editable
// 12-column grid or as a linear reading flow, and turns pointer gestures on
// the editable grid back into layout replacements.
package grid

import (
	"fmt"
	"html/template"
	"io"

	"github.com/charmbracelet/log"

	"folio/internal/domain"
)

type Mode string

const (
	ModeEditable Mode = "editable"
	ModeRead     Mode = "read"
)

// ParseMode accepts "editable"/"edit" and "read".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "editable", "edit":
		return ModeEditable, nil
	case "read", "":
		return ModeRead, nil
	}
	return "", fmt.Errorf("unknown render mode %q", s)
}

// Cell is one rendered block.
type Cell struct {
	ID      string                `json:"id"`
	Type    domain.BlockType      `json:"type,omitempty"`
	Title   string                `json:"title,omitempty"`
	Item    domain.GridLayoutItem `json:"item"`
	Pixels  *PixelRect            `json:"pixels,omitempty"` // editable mode only
	Static  bool                  `json:"static"`
	Missing bool                  `json:"missing,omitempty"`
	Body    Fragment              `json:"body"`
}

// View is the result of rendering a note. In editable mode Cells follow the
// layout order and carry grid geometry; in read mode they are in reading
// order and flow vertically.
type View struct {
	Mode      Mode          `json:"mode"`
	Columns   int           `json:"columns"`
	RowHeight float64       `json:"rowHeight"`
	Width     float64       `json:"width"`
	Rows      int           `json:"rows"`
	Layout    domain.Layout `json:"layout"`
	Cells     []Cell        `json:"cells"`
}

// Empty reports whether the view renders nothing.
func (v View) Empty() bool { return len(v.Cells) == 0 }

// Engine renders layouts. It is safe for concurrent use.
type Engine struct {
	registry *Registry
	logger   *log.Logger
}

// NewEngine creates an engine. A nil registry means DefaultRegistry; a nil
// logger discards integrity warnings.
func NewEngine(registry *Registry, logger *log.Logger) *Engine {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{registry: registry, logger: logger.WithPrefix("grid")}
}

// Render turns (layout, blocks) into a view. It never fails: integrity defects
// become placeholders (editable) or are skipped (read), and are logged.
func (e *Engine) Render(layout domain.Layout, blocks domain.Blocks, mode Mode) View {
	if mode == ModeEditable {
		return e.renderEditable(layout, blocks)
	}
	return e.renderRead(layout, blocks)
}

// RenderNote renders a note in either content shape. Markup notes have no
// grid, so both modes produce a single markup cell.
func (e *Engine) RenderNote(n *domain.StudyNote, mode Mode) View {
	if !n.IsMarkup() {
		return e.Render(n.Layout, n.Blocks, mode)
	}
	return View{
		Mode:      mode,
		Columns:   Columns,
		RowHeight: RowHeight,
		Width:     Width,
		Layout:    domain.Layout{},
		Cells: []Cell{{
			ID:     n.ID,
			Static: true,
			Body:   Fragment{Kind: FragmentMarkup, HTML: template.HTML(n.Markup)},
		}},
	}
}

func (e *Engine) renderEditable(layout domain.Layout, blocks domain.Blocks) View {
	normalized := layout.WithStatic(false).Normalized()
	v := e.newView(ModeEditable, normalized)
	for _, it := range normalized {
		shown := Clamp(it)
		px := ToPixels(shown)
		cell := Cell{ID: it.I, Item: shown, Pixels: &px}

		b, ok := blocks[it.I]
		if !ok {
			e.logger.Warn("layout entry references missing block", "block", it.I)
			cell.Missing = true
			cell.Title = "block.files"
			cell.Body = placeholder(PlaceholderMissing)
			v.Cells = append(v.Cells, cell)
			continue
		}
		cell.Type = b.Type
		cell.Title = string(b.Type) + ".files"
		cell.Body = e.renderBlock(b)
		v.Cells = append(v.Cells, cell)
	}
	return v
}

func (e *Engine) renderRead(layout domain.Layout, blocks domain.Blocks) View {
	normalized := layout.WithStatic(true).Normalized()
	v := e.newView(ModeRead, normalized)
	for _, it := range normalized.ReadingOrder() {
		b, ok := blocks[it.I]
		if !ok {
			e.logger.Debug("skipping layout entry without block", "block", it.I)
			continue
		}
		v.Cells = append(v.Cells, Cell{
			ID:     it.I,
			Type:   b.Type,
			Item:   it,
			Static: true,
			Body:   e.renderBlock(b),
		})
	}
	return v
}

func (e *Engine) renderBlock(b domain.ContentBlock) Fragment {
	f, ok := e.registry.Render(b)
	if !ok {
		e.logger.Warn("unknown block type", "block", b.ID, "type", b.Type)
	}
	if _, rejected := b.Style.Scalars(); len(rejected) > 0 {
		e.logger.Debug("dropping non-scalar style keys", "block", b.ID, "keys", rejected)
	}
	return f
}

func (e *Engine) newView(mode Mode, layout domain.Layout) View {
	if layout == nil {
		layout = domain.Layout{}
	}
	return View{
		Mode:      mode,
		Columns:   Columns,
		RowHeight: RowHeight,
		Width:     Width,
		Rows:      layout.Bottom(),
		Layout:    layout,
		Cells:     []Cell{},
	}
}
