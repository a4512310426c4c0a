package domain

import (
	"fmt"
	"sort"
	"time"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Valid reports whether s is a known publication status.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// DefaultCategory is applied on load when a stored post has no category.
const DefaultCategory = "geral"

// StudyNote is an authored post. After load it holds exactly one of two
// content shapes: grid (Layout + Blocks) or markup (Markup non-empty).
type StudyNote struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Subtitle    string     `json:"subtitle,omitempty"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Tags        []string   `json:"tags"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	PinPosition *int       `json:"pinPosition"`
	Status      Status     `json:"status"`
	PublishAt   *time.Time `json:"publishAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Layout Layout `json:"layout"`
	Blocks Blocks `json:"blocks"`
	Markup string `json:"markup,omitempty"`
}

// IsMarkup reports whether the note carries serialized markup instead of grid blocks.
func (n *StudyNote) IsMarkup() bool {
	return n.Markup != ""
}

// Clone deep-copies the mutable parts of the note.
func (n *StudyNote) Clone() *StudyNote {
	c := *n
	c.Tags = append([]string(nil), n.Tags...)
	c.Layout = n.Layout.Clone()
	c.Blocks = n.Blocks.Clone()
	if n.PinPosition != nil {
		p := *n.PinPosition
		c.PinPosition = &p
	}
	if n.PublishAt != nil {
		t := *n.PublishAt
		c.PublishAt = &t
	}
	return &c
}

// NormalizeTags trims duplicates and empty entries. Tags are a set, so the
// result is sorted to keep serialization stable.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}
