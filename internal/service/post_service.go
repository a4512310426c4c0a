package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"folio/internal/cache"
	"folio/internal/domain"
	"folio/internal/grid"
	"folio/internal/migrate"
)

// ─────────────────────────────────────────────────────────────
// Post Service: read side, publishing and deletion
// ─────────────────────────────────────────────────────────────

// PostService serves stored posts: listing, loading with normalization,
// rendering (with a cache for read views), publishing and deletion.
type PostService struct {
	store   domain.PostStore
	engine  *grid.Engine
	cache   cache.Cache
	ttl     time.Duration
	emitter EventEmitter
	logger  *log.Logger
	now     func() time.Time
}

// PostServiceOptions configures NewPostService. Zero values pick defaults.
type PostServiceOptions struct {
	Engine   *grid.Engine
	Cache    cache.Cache
	CacheTTL time.Duration
	Emitter  EventEmitter
	Logger   *log.Logger
	Clock    func() time.Time
}

// NewPostService creates a PostService over store.
func NewPostService(store domain.PostStore, opts PostServiceOptions) *PostService {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Engine == nil {
		opts.Engine = grid.NewEngine(nil, opts.Logger)
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if opts.Emitter == nil {
		opts.Emitter = LogEmitter{Logger: opts.Logger}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &PostService{
		store:   store,
		engine:  opts.Engine,
		cache:   opts.Cache,
		ttl:     opts.CacheTTL,
		emitter: opts.Emitter,
		logger:  opts.Logger.WithPrefix("posts"),
		now:     opts.Clock,
	}
}

// Engine exposes the grid engine the service renders with.
func (s *PostService) Engine() *grid.Engine { return s.engine }

// normalizeAll converts documents to notes, skipping (and logging) any that
// cannot be decoded so one bad row does not hide the others.
func (s *PostService) normalizeAll(docs []domain.Document) []*domain.StudyNote {
	notes := make([]*domain.StudyNote, 0, len(docs))
	for i := range docs {
		n, err := migrate.Normalize(&docs[i])
		if err != nil {
			s.logger.Warn("skipping undecodable post", "post", docs[i].ID, "err", err)
			continue
		}
		notes = append(notes, n)
	}
	return notes
}

// ListPublished returns published posts: pinned ones first by pin position,
// then the rest newest first. limit <= 0 means all.
func (s *PostService) ListPublished(ctx context.Context, limit int) ([]*domain.StudyNote, error) {
	docs, err := s.store.ListPublished(ctx, 0)
	if err != nil {
		s.logger.Error("list published failed", "err", err)
		return nil, fmt.Errorf("list published: %w", err)
	}
	notes := s.normalizeAll(docs)
	sort.SliceStable(notes, func(a, b int) bool {
		pa, pb := notes[a].PinPosition, notes[b].PinPosition
		switch {
		case pa != nil && pb != nil:
			return *pa < *pb
		case pa != nil:
			return true
		default:
			return false
		}
	})
	if limit > 0 && len(notes) > limit {
		notes = notes[:limit]
	}
	return notes, nil
}

// ListAll returns every post regardless of status, newest first.
func (s *PostService) ListAll(ctx context.Context) ([]*domain.StudyNote, error) {
	docs, err := s.store.ListAll(ctx)
	if err != nil {
		s.logger.Error("list all failed", "err", err)
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return s.normalizeAll(docs), nil
}

// GetBySlug loads and normalizes a post.
func (s *PostService) GetBySlug(ctx context.Context, slug string) (*domain.StudyNote, error) {
	doc, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get post %q: %w", slug, err)
	}
	return migrate.Normalize(doc)
}

// GetByID loads and normalizes a post.
func (s *PostService) GetByID(ctx context.Context, id string) (*domain.StudyNote, error) {
	doc, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	return migrate.Normalize(doc)
}

// GetPublished loads a post by slug and hides drafts.
func (s *PostService) GetPublished(ctx context.Context, slug string) (*domain.StudyNote, error) {
	n, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if n.Status != domain.StatusPublished {
		return nil, fmt.Errorf("get post %q: %w", slug, domain.ErrNotFound)
	}
	return n, nil
}

// Render renders a note in the given mode.
func (s *PostService) Render(n *domain.StudyNote, mode grid.Mode) grid.View {
	return s.engine.RenderNote(n, mode)
}

// ReadHTML returns the read-mode HTML of n, served from the cache while
// the post is unchanged. Cache failures only cost a re-render.
func (s *PostService) ReadHTML(ctx context.Context, n *domain.StudyNote) (string, error) {
	key := cache.Key("read", n.ID, n.UpdatedAt.UnixNano())
	if data, hit, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("cache get failed", "post", n.ID, "err", err)
	} else if hit {
		return string(data), nil
	}

	out, err := s.engine.RenderNote(n, grid.ModeRead).HTML()
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, key, []byte(out), s.ttl); err != nil {
		s.logger.Warn("cache set failed", "post", n.ID, "err", err)
	}
	return out, nil
}

// Markup returns the post body as one markup document, converting grid
// content on the fly.
func (s *PostService) Markup(n *domain.StudyNote) string {
	return migrate.AsMarkup(migrate.NoteContent(n))
}

// Delete removes a post.
func (s *PostService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("delete failed", "post", id, "err", err)
		}
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	s.logger.Info("post deleted", "post", id)
	s.emitter.Emit(ctx, EventPostDeleted, id)
	return nil
}

// Publish marks a post published and clears its schedule.
func (s *PostService) Publish(ctx context.Context, id string) error {
	status := domain.StatusPublished
	var noSchedule *time.Time
	if err := s.store.Update(ctx, id, domain.PostPatch{Status: &status, PublishAt: &noSchedule}); err != nil {
		return fmt.Errorf("publish %s: %w", id, err)
	}
	s.emitter.Emit(ctx, EventPostPublished, id)
	return nil
}

// PublishDue publishes every draft whose publishAt is at or before now and
// returns the ids it published. Failures on single posts are logged and
// skipped.
func (s *PostService) PublishDue(ctx context.Context) ([]string, error) {
	docs, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("publish due: %w", err)
	}
	now := s.now()
	var published []string
	for _, d := range docs {
		if d.Status != domain.StatusDraft || d.PublishAt == nil || d.PublishAt.After(now) {
			continue
		}
		if err := s.Publish(ctx, d.ID); err != nil {
			s.logger.Error("scheduled publish failed", "post", d.ID, "err", err)
			continue
		}
		s.logger.Info("published scheduled post", "post", d.ID, "slug", d.Slug)
		published = append(published, d.ID)
	}
	return published, nil
}

// Upsert stores doc by slug: an existing post with the same slug is
// overwritten, otherwise a new one is inserted. The document is normalized
// first so malformed ones are rejected before touching the store, and what
// gets written is the canonical shape. A document without a status keeps the
// stored one.
func (s *PostService) Upsert(ctx context.Context, doc *domain.Document) (*domain.StudyNote, error) {
	if doc.Slug == "" {
		doc.Slug = Slugify(doc.Title)
	}
	if doc.Slug == "" {
		return nil, fmt.Errorf("upsert: %w: missing slug and title", domain.ErrInvalidDocument)
	}
	keepStatus := doc.Status == ""
	note, err := migrate.Normalize(doc)
	if err != nil {
		return nil, fmt.Errorf("upsert %q: %w", doc.Slug, err)
	}
	canon, err := migrate.ToDocument(note)
	if err != nil {
		return nil, fmt.Errorf("upsert %q: %w", doc.Slug, err)
	}

	existing, err := s.store.GetBySlug(ctx, canon.Slug)
	switch {
	case err == nil:
		patch := domain.PatchFrom(canon)
		if keepStatus {
			patch.Status = nil
		}
		if canon.UpdatedAt.IsZero() || !sameContent(existing, canon) {
			patch.UpdatedAt = nil
		}
		if err := s.store.Update(ctx, existing.ID, patch); err != nil {
			return nil, fmt.Errorf("upsert %q: %w", canon.Slug, err)
		}
		return s.GetByID(ctx, existing.ID)
	case errors.Is(err, domain.ErrNotFound):
		created, err := s.store.Insert(ctx, canon)
		if err != nil {
			return nil, fmt.Errorf("upsert %q: %w", canon.Slug, err)
		}
		return migrate.Normalize(created)
	default:
		return nil, fmt.Errorf("upsert %q: %w", canon.Slug, err)
	}
}

// sameContent reports whether stored already holds canon's content once
// both are in canonical form. Rendered HTML is cached by updatedAt, so a
// content change must move it.
func sameContent(stored, canon *domain.Document) bool {
	n, err := migrate.Normalize(stored)
	if err != nil {
		return false
	}
	doc, err := migrate.ToDocument(n)
	if err != nil {
		return false
	}
	return bytes.Equal(doc.Content, canon.Content)
}

// MigrateToMarkup rewrites grid posts into the markup representation and
// returns the ids it converted. With slugs set only those posts are
// considered; dryRun reports without writing. Posts without any block are
// left alone since they would convert to empty markup.
func (s *PostService) MigrateToMarkup(ctx context.Context, slugs []string, dryRun bool) ([]string, error) {
	var docs []domain.Document
	if len(slugs) == 0 {
		all, err := s.store.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		docs = all
	} else {
		for _, slug := range slugs {
			d, err := s.store.GetBySlug(ctx, slug)
			if err != nil {
				return nil, fmt.Errorf("migrate %q: %w", slug, err)
			}
			docs = append(docs, *d)
		}
	}

	var converted []string
	for _, n := range s.normalizeAll(docs) {
		if n.IsMarkup() || len(n.Layout) == 0 {
			continue
		}
		markup := migrate.ToMarkup(n.Layout, n.Blocks)
		if markup == "" {
			continue
		}
		if dryRun {
			converted = append(converted, n.ID)
			continue
		}
		n.Markup = markup
		n.Layout, n.Blocks = nil, nil
		doc, err := migrate.ToDocument(n)
		if err != nil {
			return converted, fmt.Errorf("migrate %q: %w", n.Slug, err)
		}
		if err := s.store.Update(ctx, n.ID, domain.PostPatch{Content: &doc.Content}); err != nil {
			s.logger.Error("migrate failed", "post", n.ID, "err", err)
			return converted, fmt.Errorf("migrate %q: %w", n.Slug, err)
		}
		s.logger.Info("migrated to markup", "post", n.ID, "slug", n.Slug)
		converted = append(converted, n.ID)
	}
	return converted, nil
}
