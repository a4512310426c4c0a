package grid

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"sort"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"folio/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Block renderers: one strategy per block type
// ─────────────────────────────────────────────────────────────

const (
	PlaceholderEmptyText   = "Empty text block..."
	PlaceholderImage       = "[Image Block]"
	PlaceholderUnknownType = "Unknown block type"
	PlaceholderMissing     = "Block data missing"
)

type FragmentKind string

const (
	FragmentText        FragmentKind = "text"
	FragmentCode        FragmentKind = "code"
	FragmentImage       FragmentKind = "image"
	FragmentMarkup      FragmentKind = "markup"
	FragmentPlaceholder FragmentKind = "placeholder"
)

// Fragment is the rendered body of one block.
type Fragment struct {
	Kind        FragmentKind  `json:"kind"`
	HTML        template.HTML `json:"html"`
	Placeholder string        `json:"placeholder,omitempty"`
	Language    string        `json:"language,omitempty"` // code label
	Style       template.CSS  `json:"style,omitempty"`    // inline css from the block's style bag
}

func placeholder(msg string) Fragment {
	return Fragment{
		Kind:        FragmentPlaceholder,
		HTML:        template.HTML(`<span class="placeholder">` + html.EscapeString(msg) + `</span>`),
		Placeholder: msg,
	}
}

// BlockRenderer renders blocks of one type. Renderers never fail: malformed
// content yields a placeholder fragment.
type BlockRenderer interface {
	BlockType() domain.BlockType
	Render(b domain.ContentBlock) Fragment
}

// Registry maps block types to renderers.
type Registry struct {
	mu        sync.RWMutex
	renderers map[domain.BlockType]BlockRenderer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{renderers: make(map[domain.BlockType]BlockRenderer)}
}

// DefaultRegistry registers the built-in renderers for every known block type.
func DefaultRegistry() *Registry {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	r := NewRegistry()
	r.Register(markdownRenderer{t: domain.BlockTypeText, md: md})
	r.Register(markdownRenderer{t: domain.BlockTypeMarkdown, md: md})
	r.Register(codeRenderer{})
	r.Register(imageRenderer{})
	return r
}

// Register adds a renderer. Panics on duplicate registration.
func (r *Registry) Register(br BlockRenderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := br.BlockType()
	if _, exists := r.renderers[t]; exists {
		panic(fmt.Sprintf("grid registry: duplicate renderer for block type %q", t))
	}
	r.renderers[t] = br
}

// Lookup returns the renderer for t.
func (r *Registry) Lookup(t domain.BlockType) (BlockRenderer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	br, ok := r.renderers[t]
	return br, ok
}

// Render dispatches b to its renderer, or returns the unknown-type placeholder.
func (r *Registry) Render(b domain.ContentBlock) (Fragment, bool) {
	br, ok := r.Lookup(b.Type)
	if !ok {
		return placeholder(PlaceholderUnknownType), false
	}
	f := br.Render(b)
	f.Style = inlineStyle(b.Style)
	return f, true
}

// inlineStyle flattens the scalar entries of a style bag into a css string.
// Keys or values that could escape the declaration are dropped.
func inlineStyle(bag domain.StyleBag) template.CSS {
	vals, _ := bag.Scalars()
	if len(vals) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vals))
	for k, val := range vals {
		if strings.ContainsAny(k+val, ";:{}<>\"\\") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%s: %s;", k, vals[k])
	}
	return template.CSS(sb.String())
}

// markdownRenderer serves text and markdown blocks; both are markdown.
type markdownRenderer struct {
	t  domain.BlockType
	md goldmark.Markdown
}

func (m markdownRenderer) BlockType() domain.BlockType { return m.t }

func (m markdownRenderer) Render(b domain.ContentBlock) Fragment {
	if strings.TrimSpace(b.Content) == "" {
		return placeholder(PlaceholderEmptyText)
	}
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(b.Content), &buf); err != nil {
		// fall back to escaped plain text
		return Fragment{Kind: FragmentText, HTML: template.HTML("<p>" + html.EscapeString(b.Content) + "</p>")}
	}
	return Fragment{Kind: FragmentText, HTML: template.HTML(buf.String())}
}

type codeRenderer struct{}

func (codeRenderer) BlockType() domain.BlockType { return domain.BlockTypeCode }

func (codeRenderer) Render(b domain.ContentBlock) Fragment {
	lang := b.Language
	if lang == "" {
		lang = "text"
	}
	return Fragment{
		Kind: FragmentCode,
		HTML: template.HTML(`<pre><code class="language-` + html.EscapeString(lang) + `">` +
			html.EscapeString(b.Content) + `</code></pre>`),
		Language: lang,
	}
}

type imageRenderer struct{}

func (imageRenderer) BlockType() domain.BlockType { return domain.BlockTypeImage }

// Render treats anything starting with "http" as a URL.
func (imageRenderer) Render(b domain.ContentBlock) Fragment {
	if !strings.HasPrefix(b.Content, "http") {
		return placeholder(PlaceholderImage)
	}
	return Fragment{
		Kind: FragmentImage,
		HTML: template.HTML(`<img src="` + html.EscapeString(b.Content) + `" alt="" style="max-width: 100%;">`),
	}
}
