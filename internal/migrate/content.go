package migrate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"folio/internal/domain"
)

// storedContent is the union of every object shape the content column holds.
type storedContent struct {
	HTML     *string         `json:"html"`
	Layout   json.RawMessage `json:"layout"`
	Blocks   json.RawMessage `json:"blocks"`
	ImageURL string          `json:"image_url"`
}

type gridPayload struct {
	Layout   domain.Layout `json:"layout"`
	Blocks   domain.Blocks `json:"blocks"`
	ImageURL string        `json:"image_url,omitempty"`
}

type markupPayload struct {
	HTML     string `json:"html"`
	ImageURL string `json:"image_url,omitempty"`
}

// Decode reads a stored content value into the tagged union:
//
//	"<p>..</p>"                 -> markup
//	{"html": "..."}             -> markup
//	{"layout": [], "blocks": {}} -> grid
//	null / absent / ""          -> empty grid
func Decode(raw json.RawMessage) (domain.Content, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return domain.GridContent(nil, nil), nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return domain.Content{}, fmt.Errorf("%w: content string: %v", domain.ErrInvalidDocument, err)
		}
		if s == "" {
			return domain.GridContent(nil, nil), nil
		}
		return domain.MarkupContent(s), nil
	case '{':
	default:
		return domain.Content{}, fmt.Errorf("%w: content must be a string or an object", domain.ErrInvalidDocument)
	}

	var sc storedContent
	if err := json.Unmarshal(raw, &sc); err != nil {
		return domain.Content{}, fmt.Errorf("%w: content object: %v", domain.ErrInvalidDocument, err)
	}

	if sc.HTML != nil {
		c := domain.MarkupContent(*sc.HTML)
		if *sc.HTML == "" {
			c = domain.GridContent(nil, nil)
		}
		c.ImageURL = sc.ImageURL
		return c, nil
	}

	var layout domain.Layout
	if len(sc.Layout) > 0 && !bytes.Equal(sc.Layout, []byte("null")) {
		if err := json.Unmarshal(sc.Layout, &layout); err != nil {
			return domain.Content{}, fmt.Errorf("%w: layout: %v", domain.ErrInvalidDocument, err)
		}
	}
	var blocks domain.Blocks
	if len(sc.Blocks) > 0 && !bytes.Equal(sc.Blocks, []byte("null")) {
		if err := json.Unmarshal(sc.Blocks, &blocks); err != nil {
			return domain.Content{}, fmt.Errorf("%w: blocks: %v", domain.ErrInvalidDocument, err)
		}
	}
	// older documents keyed blocks without repeating the id inside the value
	for id, b := range blocks {
		if b.ID == "" {
			b.ID = id
			blocks[id] = b
		}
	}

	c := domain.GridContent(layout, blocks)
	c.ImageURL = sc.ImageURL
	return c, nil
}

// Encode serializes content for storage. Grid content keeps its legacy object
// shape; markup is written as {"html": ...}.
func Encode(c domain.Content) (json.RawMessage, error) {
	var v any
	switch c.Kind {
	case domain.ContentMarkup:
		v = markupPayload{HTML: c.Markup, ImageURL: c.ImageURL}
	default:
		layout, blocks := c.Layout, c.Blocks
		if layout == nil {
			layout = domain.Layout{}
		}
		if blocks == nil {
			blocks = domain.Blocks{}
		}
		v = gridPayload{Layout: layout, Blocks: blocks, ImageURL: c.ImageURL}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	return data, nil
}

// Normalize turns a stored document into a note holding one canonical
// content shape, applying load-time defaults. The document is not modified.
func Normalize(doc *domain.Document) (*domain.StudyNote, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrInvalidDocument)
	}
	content, err := Decode(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", doc.ID, err)
	}

	status := doc.Status
	if status == "" {
		status = domain.StatusDraft
	}
	if !status.Valid() {
		return nil, fmt.Errorf("normalize %s: %w: status %q", doc.ID, domain.ErrInvalidDocument, status)
	}
	category := doc.Category
	if category == "" {
		category = domain.DefaultCategory
	}

	note := &domain.StudyNote{
		ID:          doc.ID,
		Slug:        doc.Slug,
		Title:       doc.Title,
		Subtitle:    doc.Subtitle,
		Description: doc.Description,
		Category:    category,
		Tags:        domain.NormalizeTags(doc.Tags),
		ImageURL:    content.ImageURL,
		PinPosition: doc.PinPosition,
		Status:      status,
		PublishAt:   doc.PublishAt,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
	if content.Kind == domain.ContentMarkup {
		note.Markup = content.Markup
		note.Layout = domain.Layout{}
		note.Blocks = domain.Blocks{}
	} else {
		note.Layout = content.Layout
		note.Blocks = content.Blocks
	}
	return note.Clone(), nil
}

// NoteContent extracts the tagged content of a note.
func NoteContent(n *domain.StudyNote) domain.Content {
	var c domain.Content
	if n.IsMarkup() {
		c = domain.MarkupContent(n.Markup)
	} else {
		c = domain.GridContent(n.Layout, n.Blocks)
	}
	c.ImageURL = n.ImageURL
	return c
}

// ToDocument serializes a note into its storage shape.
func ToDocument(n *domain.StudyNote) (*domain.Document, error) {
	content, err := Encode(NoteContent(n))
	if err != nil {
		return nil, err
	}
	doc := &domain.Document{
		ID:          n.ID,
		Slug:        n.Slug,
		Title:       n.Title,
		Subtitle:    n.Subtitle,
		Description: n.Description,
		Category:    n.Category,
		Tags:        domain.NormalizeTags(n.Tags),
		Status:      n.Status,
		Content:     content,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
	if n.PinPosition != nil {
		p := *n.PinPosition
		doc.PinPosition = &p
	}
	if n.PublishAt != nil {
		t := *n.PublishAt
		doc.PublishAt = &t
	}
	return doc, nil
}
