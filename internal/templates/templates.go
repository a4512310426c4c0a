// Package templates holds the closed catalog of starter layouts a new post
// can be seeded with.
package templates

import (
	"fmt"

	"folio/internal/domain"
)

// slot is one placeholder rectangle of a template, named for its role.
type slot struct {
	name       string
	x, y, w, h int
}

// Template is a named preset layout.
type Template struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	slots []slot
}

// Slots returns how many blocks the template creates.
func (t Template) Slots() int { return len(t.slots) }

const (
	SingleColumn   = "single-column"
	TwoColumns     = "two-columns"
	ThreeColumns   = "three-columns"
	SidebarContent = "sidebar-content"
	FeaturedGrid   = "featured-grid"
	Custom         = "custom"
)

var catalog = []Template{
	{ID: SingleColumn, Name: "1 Coluna", slots: []slot{
		{"block", 0, 0, 12, 4},
		{"block", 0, 4, 12, 4},
	}},
	{ID: TwoColumns, Name: "2 Colunas", slots: []slot{
		{"block", 0, 0, 6, 6},
		{"block", 6, 0, 6, 6},
	}},
	{ID: ThreeColumns, Name: "3 Colunas", slots: []slot{
		{"block", 0, 0, 4, 6},
		{"block", 4, 0, 4, 6},
		{"block", 8, 0, 4, 6},
	}},
	{ID: SidebarContent, Name: "Sidebar + Conteúdo", slots: []slot{
		{"sidebar", 0, 0, 4, 12},
		{"content", 4, 0, 8, 4},
		{"content", 4, 4, 8, 4},
		{"content", 4, 8, 8, 4},
	}},
	{ID: FeaturedGrid, Name: "Destaque + 3 Cols", slots: []slot{
		{"featured", 0, 0, 12, 6},
		{"col", 0, 6, 4, 4},
		{"col", 4, 6, 4, 4},
		{"col", 8, 6, 4, 4},
	}},
	{ID: Custom, Name: "Personalizado"},
}

// List returns the catalog in display order.
func List() []Template {
	out := make([]Template, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a template by id.
func Lookup(id string) (Template, error) {
	for _, t := range catalog {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("%w: %q", domain.ErrUnknownTemplate, id)
}

// Generator produces fresh (layout, blocks) pairs from the catalog.
type Generator struct {
	ids domain.IDSource
}

// NewGenerator creates a Generator drawing block ids from ids.
func NewGenerator(ids domain.IDSource) *Generator {
	return &Generator{ids: ids}
}

// Generate builds the template's layout with one empty text block per slot.
// Ids are minted on every call and never reused across calls.
func (g *Generator) Generate(id string) (domain.Layout, domain.Blocks, error) {
	t, err := Lookup(id)
	if err != nil {
		return nil, nil, err
	}
	layout := make(domain.Layout, 0, len(t.slots))
	blocks := make(domain.Blocks, len(t.slots))
	for _, s := range t.slots {
		blockID := g.ids.NewID(s.name)
		layout = append(layout, domain.GridLayoutItem{I: blockID, X: s.x, Y: s.y, W: s.w, H: s.h})
		blocks[blockID] = domain.ContentBlock{ID: blockID, Type: domain.BlockTypeText}
	}
	return layout, blocks, nil
}
