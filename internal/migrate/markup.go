// Package migrate converts stored post content between its two shapes:
// positioned grid blocks and a single serialized markup document.
package migrate

import (
	"html"
	"strings"

	"folio/internal/domain"
)

// FragmentSeparator joins the per-block fragments of a converted document.
const FragmentSeparator = "\n"

// ToMarkup linearizes a grid into one markup document. Entries are visited in
// reading order (row, then column); entries whose block is missing are skipped.
// The result depends only on the inputs.
func ToMarkup(layout domain.Layout, blocks domain.Blocks) string {
	ordered := layout.ReadingOrder()
	parts := make([]string, 0, len(ordered))
	for _, it := range ordered {
		b, ok := blocks[it.I]
		if !ok {
			continue
		}
		parts = append(parts, Fragment(b))
	}
	return strings.Join(parts, FragmentSeparator)
}

// Fragment renders one block as a markup fragment.
func Fragment(b domain.ContentBlock) string {
	switch b.Type {
	case domain.BlockTypeCode:
		lang := b.Language
		if lang == "" {
			lang = "text"
		}
		return `<pre><code class="language-` + html.EscapeString(lang) + `">` +
			html.EscapeString(b.Content) + `</code></pre>`
	case domain.BlockTypeImage:
		return `<img src="` + html.EscapeString(b.Content) + `" alt="">`
	default:
		return "<p>" + html.EscapeString(b.Content) + "</p>"
	}
}

// AsMarkup returns the markup form of c, converting grid content on the fly.
func AsMarkup(c domain.Content) string {
	if c.Kind == domain.ContentMarkup {
		return c.Markup
	}
	return ToMarkup(c.Layout, c.Blocks)
}
