package domain

import "fmt"

type BlockType string

const (
	BlockTypeText     BlockType = "text"
	BlockTypeMarkdown BlockType = "markdown"
	BlockTypeCode     BlockType = "code"
	BlockTypeImage    BlockType = "image"
)

// Valid reports whether t is one of the known block types.
func (t BlockType) Valid() bool {
	switch t {
	case BlockTypeText, BlockTypeMarkdown, BlockTypeCode, BlockTypeImage:
		return true
	}
	return false
}

// ContentBlock is a single unit of content placed on the grid by a layout entry.
type ContentBlock struct {
	ID       string    `json:"id"`
	Type     BlockType `json:"type"`
	Content  string    `json:"content"`            // markdown/plain text, source code or image URL
	Language string    `json:"language,omitempty"` // code blocks only
	Style    StyleBag  `json:"style,omitempty"`
}

// NewBlock builds a block with empty content. Only the type tag is validated.
func NewBlock(id string, t BlockType) (ContentBlock, error) {
	if id == "" {
		return ContentBlock{}, fmt.Errorf("new block: %w", ErrEmptyBlockID)
	}
	if !t.Valid() {
		return ContentBlock{}, fmt.Errorf("new block %s: %w: %q", id, ErrUnknownBlockType, t)
	}
	return ContentBlock{ID: id, Type: t}, nil
}

// Blocks maps block id to block.
type Blocks map[string]ContentBlock

// Clone returns a shallow copy of the map (blocks are values).
func (b Blocks) Clone() Blocks {
	out := make(Blocks, len(b))
	for k, v := range b {
		v.Style = v.Style.Clone()
		out[k] = v
	}
	return out
}
