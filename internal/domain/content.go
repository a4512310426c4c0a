package domain

// ContentKind tags which shape a post's content is in.
type ContentKind string

const (
	ContentGrid   ContentKind = "grid"
	ContentMarkup ContentKind = "markup"
)

// Content is the canonical in-memory form of a post body after load.
// Exactly one of (Layout, Blocks) or Markup is meaningful, selected by Kind.
type Content struct {
	Kind     ContentKind
	Layout   Layout
	Blocks   Blocks
	Markup   string
	ImageURL string
}

// GridContent wraps a layout and block map.
func GridContent(layout Layout, blocks Blocks) Content {
	if blocks == nil {
		blocks = Blocks{}
	}
	if layout == nil {
		layout = Layout{}
	}
	return Content{Kind: ContentGrid, Layout: layout, Blocks: blocks}
}

// MarkupContent wraps serialized markup.
func MarkupContent(markup string) Content {
	return Content{Kind: ContentMarkup, Markup: markup}
}
