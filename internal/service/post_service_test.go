package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/cache"
	"folio/internal/domain"
	"folio/internal/grid"
	"folio/internal/service"
	"folio/internal/storage"
)

type postFixture struct {
	store *storage.MemoryStore
	cache *cache.MemoryCache
	em    *service.MockEmitter
	svc   *service.PostService
	now   time.Time
}

func newPostFixture(t *testing.T) *postFixture {
	t.Helper()
	f := &postFixture{
		store: storage.NewMemoryStore(),
		cache: cache.NewMemoryCache(),
		em:    &service.MockEmitter{},
		now:   fixedNow,
	}
	f.svc = service.NewPostService(f.store, service.PostServiceOptions{
		Cache:   f.cache,
		Emitter: f.em,
		Logger:  quietLogger(),
		Clock:   func() time.Time { return f.now },
	})
	return f
}

func (f *postFixture) insert(t *testing.T, doc domain.Document) *domain.Document {
	t.Helper()
	if doc.Status == "" {
		doc.Status = domain.StatusPublished
	}
	if doc.Content == nil {
		doc.Content = json.RawMessage(`{"layout":[{"i":"a","x":0,"y":0,"w":12,"h":2}],"blocks":{"a":{"id":"a","type":"text","content":"hello"}}}`)
	}
	created, err := f.store.Insert(context.Background(), &doc)
	require.NoError(t, err)
	return created
}

func ptr[T any](v T) *T { return &v }

func TestPostService_ListPublishedPinnedFirst(t *testing.T) {
	f := newPostFixture(t)
	base := fixedNow.Add(-24 * time.Hour)
	f.insert(t, domain.Document{Slug: "old", CreatedAt: base})
	f.insert(t, domain.Document{Slug: "pin-2", CreatedAt: base.Add(time.Hour), PinPosition: ptr(2)})
	f.insert(t, domain.Document{Slug: "new", CreatedAt: base.Add(3 * time.Hour)})
	f.insert(t, domain.Document{Slug: "pin-1", CreatedAt: base.Add(2 * time.Hour), PinPosition: ptr(1)})
	f.insert(t, domain.Document{Slug: "draft", CreatedAt: base.Add(4 * time.Hour), Status: domain.StatusDraft})
	f.insert(t, domain.Document{Slug: "broken", CreatedAt: base.Add(5 * time.Hour), Content: json.RawMessage(`42`)})

	notes, err := f.svc.ListPublished(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"pin-1", "pin-2", "new", "old"}, slugs(notes))

	limited, err := f.svc.ListPublished(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"pin-1", "pin-2", "new"}, slugs(limited))
}

func TestPostService_ListAllIncludesDrafts(t *testing.T) {
	f := newPostFixture(t)
	f.insert(t, domain.Document{Slug: "a", CreatedAt: fixedNow.Add(-time.Hour)})
	f.insert(t, domain.Document{Slug: "b", CreatedAt: fixedNow, Status: domain.StatusDraft})

	notes, err := f.svc.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, slugs(notes))
}

func TestPostService_GetPublishedHidesDrafts(t *testing.T) {
	f := newPostFixture(t)
	f.insert(t, domain.Document{Slug: "live"})
	f.insert(t, domain.Document{Slug: "wip", Status: domain.StatusDraft})
	ctx := context.Background()

	n, err := f.svc.GetPublished(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "hello", n.Blocks["a"].Content)

	_, err = f.svc.GetPublished(ctx, "wip")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.GetPublished(ctx, "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)

	n, err = f.svc.GetBySlug(ctx, "wip")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, n.Status)
}

func TestPostService_ReadHTMLIsCached(t *testing.T) {
	f := newPostFixture(t)
	doc := f.insert(t, domain.Document{Slug: "cached"})
	ctx := context.Background()

	n, err := f.svc.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	first, err := f.svc.ReadHTML(ctx, n)
	require.NoError(t, err)
	assert.Contains(t, first, "hello")
	assert.Equal(t, 1, f.cache.Len())

	second, err := f.svc.ReadHTML(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.cache.Len())

	// a newer updatedAt is a different cache entry
	n.UpdatedAt = n.UpdatedAt.Add(time.Second)
	_, err = f.svc.ReadHTML(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, 2, f.cache.Len())
}

func TestPostService_RenderAndMarkup(t *testing.T) {
	f := newPostFixture(t)
	f.insert(t, domain.Document{Slug: "legacy", Content: json.RawMessage(`"<h1>Old</h1>"`)})
	f.insert(t, domain.Document{Slug: "grid"})
	ctx := context.Background()

	legacy, err := f.svc.GetBySlug(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, "<h1>Old</h1>", f.svc.Markup(legacy))
	view := f.svc.Render(legacy, grid.ModeRead)
	require.Len(t, view.Cells, 1)
	assert.Equal(t, grid.FragmentMarkup, view.Cells[0].Body.Kind)

	g, err := f.svc.GetBySlug(ctx, "grid")
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", f.svc.Markup(g))
	edit := f.svc.Render(g, grid.ModeEditable)
	require.Len(t, edit.Cells, 1)
	require.NotNil(t, edit.Cells[0].Pixels)
}

func TestPostService_Delete(t *testing.T) {
	f := newPostFixture(t)
	doc := f.insert(t, domain.Document{Slug: "gone"})
	ctx := context.Background()

	require.NoError(t, f.svc.Delete(ctx, doc.ID))
	_, err := f.svc.GetByID(ctx, doc.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, []string{service.EventPostDeleted}, f.em.Names())

	require.ErrorIs(t, f.svc.Delete(ctx, doc.ID), domain.ErrNotFound)

	other := f.insert(t, domain.Document{Slug: "stays"})
	f.store.FailNext = errors.New("disk full")
	err = f.svc.Delete(ctx, other.ID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestPostService_PublishDue(t *testing.T) {
	f := newPostFixture(t)
	past := fixedNow.Add(-time.Minute)
	future := fixedNow.Add(time.Hour)
	due := f.insert(t, domain.Document{Slug: "due", Status: domain.StatusDraft, PublishAt: &past})
	f.insert(t, domain.Document{Slug: "later", Status: domain.StatusDraft, PublishAt: &future})
	f.insert(t, domain.Document{Slug: "unscheduled", Status: domain.StatusDraft})
	ctx := context.Background()

	ids, err := f.svc.PublishDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{due.ID}, ids)

	n, err := f.svc.GetByID(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, n.Status)
	assert.Nil(t, n.PublishAt)
	assert.Equal(t, []string{service.EventPostPublished}, f.em.Names())

	later, err := f.svc.GetBySlug(ctx, "later")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, later.Status)

	ids, err = f.svc.PublishDue(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids, "already published drafts are not touched again")
}

func TestPostService_Upsert(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	created, err := f.svc.Upsert(ctx, &domain.Document{
		Title:   "Introdução ao Go",
		Content: json.RawMessage(`{"html":"<p>v1</p>"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "introducao-ao-go", created.Slug)
	assert.Equal(t, domain.StatusDraft, created.Status)
	assert.Equal(t, "<p>v1</p>", created.Markup)

	updated, err := f.svc.Upsert(ctx, &domain.Document{
		Slug:    "introducao-ao-go",
		Title:   "Introdução ao Go",
		Status:  domain.StatusPublished,
		Content: json.RawMessage(`"<p>v2</p>"`),
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "<p>v2</p>", updated.Markup)
	assert.Equal(t, domain.StatusPublished, updated.Status)

	all, err := f.store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = f.svc.Upsert(ctx, &domain.Document{Title: "bad", Content: json.RawMessage(`[1]`)})
	require.ErrorIs(t, err, domain.ErrInvalidDocument)
	_, err = f.svc.Upsert(ctx, &domain.Document{})
	require.ErrorIs(t, err, domain.ErrInvalidDocument)
}

func TestPostService_UpsertReimport(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()
	stamped := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	first, err := f.svc.Upsert(ctx, &domain.Document{
		Slug:      "reimport",
		Title:     "Reimport",
		Status:    domain.StatusPublished,
		Content:   json.RawMessage(`"<p>v1</p>"`),
		UpdatedAt: stamped,
	})
	require.NoError(t, err)
	assert.True(t, first.UpdatedAt.Equal(stamped))
	html, err := f.svc.ReadHTML(ctx, first)
	require.NoError(t, err)
	assert.Contains(t, html, "v1")

	// same file, no status: nothing moves
	same, err := f.svc.Upsert(ctx, &domain.Document{
		Slug:      "reimport",
		Title:     "Reimport",
		Content:   json.RawMessage(`{"html":"<p>v1</p>"}`),
		UpdatedAt: stamped,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, same.Status)
	assert.True(t, same.UpdatedAt.Equal(stamped))

	// edited body, stale updated_at, no status
	edited, err := f.svc.Upsert(ctx, &domain.Document{
		Slug:      "reimport",
		Title:     "Reimport",
		Content:   json.RawMessage(`"<p>v2</p>"`),
		UpdatedAt: stamped,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, edited.ID)
	assert.Equal(t, domain.StatusPublished, edited.Status, "missing status keeps the stored one")
	assert.True(t, edited.UpdatedAt.After(stamped), "content change moves updatedAt")

	html, err = f.svc.ReadHTML(ctx, edited)
	require.NoError(t, err)
	assert.Contains(t, html, "v2")
	assert.NotContains(t, html, "v1")

	// an explicit status still wins
	drafted, err := f.svc.Upsert(ctx, &domain.Document{
		Slug:    "reimport",
		Title:   "Reimport",
		Status:  domain.StatusDraft,
		Content: json.RawMessage(`"<p>v2</p>"`),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, drafted.Status)
}

func TestPostService_MigrateToMarkup(t *testing.T) {
	ctx := context.Background()
	f := newPostFixture(t)
	gridPost := f.insert(t, domain.Document{Slug: "grid", Title: "Grid"})
	f.insert(t, domain.Document{Slug: "markup", Title: "Markup", Content: json.RawMessage(`"<p>done</p>"`)})
	f.insert(t, domain.Document{Slug: "empty", Title: "Empty", Content: json.RawMessage(`{"layout":[],"blocks":{}}`)})

	ids, err := f.svc.MigrateToMarkup(ctx, nil, true)
	require.NoError(t, err)
	assert.Equal(t, []string{gridPost.ID}, ids)
	n, err := f.svc.GetBySlug(ctx, "grid")
	require.NoError(t, err)
	assert.False(t, n.IsMarkup(), "dry run must not write")

	ids, err = f.svc.MigrateToMarkup(ctx, []string{"grid"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{gridPost.ID}, ids)

	n, err = f.svc.GetBySlug(ctx, "grid")
	require.NoError(t, err)
	assert.True(t, n.IsMarkup())
	assert.Equal(t, "<p>hello</p>", n.Markup)

	ids, err = f.svc.MigrateToMarkup(ctx, nil, false)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = f.svc.MigrateToMarkup(ctx, []string{"missing"}, false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func slugs(notes []*domain.StudyNote) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Slug
	}
	return out
}
