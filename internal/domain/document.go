package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Document is the storage shape of a post. Content is kept raw because it
// comes in three flavours: a markup string, {html, image_url} or the legacy
// {layout, blocks, image_url} object. The migrate package decodes it.
type Document struct {
	ID          string          `json:"id"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Subtitle    string          `json:"subtitle,omitempty"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Tags        []string        `json:"tags"`
	Status      Status          `json:"status"`
	Content     json.RawMessage `json:"content"`
	PinPosition *int            `json:"pin_position,omitempty"`
	PublishAt   *time.Time      `json:"publish_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PostPatch is a partial update; nil fields are left untouched.
type PostPatch struct {
	Slug        *string
	Title       *string
	Subtitle    *string
	Description *string
	Category    *string
	Tags        *[]string
	Status      *Status
	Content     *json.RawMessage
	PinPosition **int
	PublishAt   **time.Time
	UpdatedAt   *time.Time // defaults to now
}

// PatchFrom builds a patch that overwrites every mutable field of doc.
func PatchFrom(doc *Document) PostPatch {
	tags := append([]string(nil), doc.Tags...)
	content := doc.Content
	pin := doc.PinPosition
	publishAt := doc.PublishAt
	updated := doc.UpdatedAt
	return PostPatch{
		Slug:        &doc.Slug,
		Title:       &doc.Title,
		Subtitle:    &doc.Subtitle,
		Description: &doc.Description,
		Category:    &doc.Category,
		Tags:        &tags,
		Status:      &doc.Status,
		Content:     &content,
		PinPosition: &pin,
		PublishAt:   &publishAt,
		UpdatedAt:   &updated,
	}
}

// Apply writes the non-nil patch fields into doc and stamps UpdatedAt.
func (p PostPatch) Apply(doc *Document, now time.Time) {
	if p.Slug != nil {
		doc.Slug = *p.Slug
	}
	if p.Title != nil {
		doc.Title = *p.Title
	}
	if p.Subtitle != nil {
		doc.Subtitle = *p.Subtitle
	}
	if p.Description != nil {
		doc.Description = *p.Description
	}
	if p.Category != nil {
		doc.Category = *p.Category
	}
	if p.Tags != nil {
		doc.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.Status != nil {
		doc.Status = *p.Status
	}
	if p.Content != nil {
		doc.Content = append(json.RawMessage(nil), (*p.Content)...)
	}
	if p.PinPosition != nil {
		doc.PinPosition = *p.PinPosition
	}
	if p.PublishAt != nil {
		doc.PublishAt = *p.PublishAt
	}
	doc.UpdatedAt = now
	if p.UpdatedAt != nil && !p.UpdatedAt.IsZero() {
		doc.UpdatedAt = *p.UpdatedAt
	}
}

// PostStore is the document store the posts live in. Implementations exist
// for SQLite, Postgres, MySQL, MongoDB and memory.
type PostStore interface {
	GetByID(ctx context.Context, id string) (*Document, error)
	GetBySlug(ctx context.Context, slug string) (*Document, error)
	// ListPublished returns published posts, newest first. limit <= 0 means no limit.
	ListPublished(ctx context.Context, limit int) ([]Document, error)
	// ListAll returns every post regardless of status, newest first.
	ListAll(ctx context.Context) ([]Document, error)
	// Insert stores doc, generating an id and timestamps when missing.
	Insert(ctx context.Context, doc *Document) (*Document, error)
	Update(ctx context.Context, id string, patch PostPatch) error
	Delete(ctx context.Context, id string) error
}
