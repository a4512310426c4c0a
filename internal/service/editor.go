package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"folio/internal/domain"
	"folio/internal/grid"
	"folio/internal/migrate"
	"folio/internal/templates"
)

// ─────────────────────────────────────────────────────────────
// Editor Session: the in-memory draft of one post
// ─────────────────────────────────────────────────────────────

const (
	DefaultTitle       = "Nova Nota de Estudo"
	DefaultDescription = "Descrição da sua nota..."
	DefaultNewCategory = "general"

	// size of blocks created by AddBlock, in grid cells
	NewBlockWidth  = 4
	NewBlockHeight = 4
)

// DefaultBlockContent is the placeholder payload AddBlock gives each type.
func DefaultBlockContent(t domain.BlockType) string {
	switch t {
	case domain.BlockTypeCode:
		return `console.log("Hello")`
	case domain.BlockTypeImage:
		return "https://placehold.co/600x400"
	default:
		return "Novo bloco de texto"
	}
}

// NewDraft returns the blank note a new editor starts from.
func NewDraft() *domain.StudyNote {
	return &domain.StudyNote{
		Title:       DefaultTitle,
		Slug:        Slugify(DefaultTitle),
		Description: DefaultDescription,
		Category:    DefaultNewCategory,
		Tags:        []string{},
		Status:      domain.StatusDraft,
		Layout:      domain.Layout{},
		Blocks:      domain.Blocks{},
	}
}

// SessionDeps are the collaborators an EditorSession works with.
type SessionDeps struct {
	Store     domain.PostStore
	IDs       domain.IDSource
	Templates *templates.Generator
	Emitter   EventEmitter
	Logger    *log.Logger
	Clock     func() time.Time

	// saves is shared by all sessions of a registry so shutdown can wait on it
	saves *saveGuard
}

func (d SessionDeps) withDefaults() SessionDeps {
	if d.IDs == nil {
		d.IDs = domain.NewULIDSource()
	}
	if d.Templates == nil {
		d.Templates = templates.NewGenerator(d.IDs)
	}
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	if d.Emitter == nil {
		d.Emitter = LogEmitter{Logger: d.Logger}
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.saves == nil {
		d.saves = &saveGuard{}
	}
	return d
}

// EditorSession owns the mutable draft of one note. Every mutation keeps
// the layout and block map consistent; no call leaves one referencing a
// block the other lacks unless it was stored that way.
type EditorSession struct {
	id   string
	deps SessionDeps

	mu            sync.Mutex
	note          *domain.StudyNote
	selected      string
	revision      uint64
	savedRevision uint64
	history       history

	saves *saveGuard
}

// NewEditorSession wraps note (which is cloned) in a session with id sid.
func NewEditorSession(sid string, note *domain.StudyNote, deps SessionDeps) *EditorSession {
	if note == nil {
		note = NewDraft()
	}
	deps = deps.withDefaults()
	return &EditorSession{
		id:    sid,
		deps:  deps,
		note:  note.Clone(),
		saves: deps.saves,
	}
}

func (s *EditorSession) ID() string { return s.id }

// Note returns a copy of the current draft.
func (s *EditorSession) Note() *domain.StudyNote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.note.Clone()
}

// Selected returns the id of the selected block, "" when none.
func (s *EditorSession) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Dirty reports whether the draft changed since the last successful save.
func (s *EditorSession) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision != s.savedRevision
}

// Saving reports whether a save is in flight.
func (s *EditorSession) Saving() bool {
	return s.saves.Busy(s.id)
}

// mutate runs fn under the session lock and bumps the revision on success.
func (s *EditorSession) mutate(fn func(n *domain.StudyNote) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.note.Clone()
	if err := fn(s.note); err != nil {
		s.note = before
		return err
	}
	s.history.record(before)
	s.revision++
	return nil
}

// mutateGrid is mutate for operations that need grid content.
func (s *EditorSession) mutateGrid(fn func(n *domain.StudyNote) error) error {
	return s.mutate(func(n *domain.StudyNote) error {
		if n.IsMarkup() {
			return domain.ErrMarkupContent
		}
		if n.Blocks == nil {
			n.Blocks = domain.Blocks{}
		}
		return fn(n)
	})
}

// ── Blocks ─────────────────────────────────────────────────

// AddBlock creates a block of type t with placeholder content and places it
// at x=0 on the first free row below everything else.
func (s *EditorSession) AddBlock(t domain.BlockType) (domain.ContentBlock, domain.GridLayoutItem, error) {
	var (
		block domain.ContentBlock
		item  domain.GridLayoutItem
	)
	err := s.mutateGrid(func(n *domain.StudyNote) error {
		id := s.deps.IDs.NewID("block")
		for _, exists := n.Blocks[id]; exists; _, exists = n.Blocks[id] {
			id = s.deps.IDs.NewID("block")
		}
		b, err := domain.NewBlock(id, t)
		if err != nil {
			return err
		}
		b.Content = DefaultBlockContent(t)
		item = domain.GridLayoutItem{I: id, X: 0, Y: n.Layout.Bottom(), W: NewBlockWidth, H: NewBlockHeight}
		n.Blocks[id] = b
		n.Layout = append(n.Layout, item)
		block = b
		return nil
	})
	if err != nil {
		return domain.ContentBlock{}, domain.GridLayoutItem{}, fmt.Errorf("add block: %w", err)
	}
	return block, item, nil
}

func (s *EditorSession) updateBlock(id string, fn func(b *domain.ContentBlock)) error {
	return s.mutateGrid(func(n *domain.StudyNote) error {
		b, ok := n.Blocks[id]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrBlockNotFound, id)
		}
		fn(&b)
		n.Blocks[id] = b
		return nil
	})
}

// UpdateBlockContent replaces the payload of block id.
func (s *EditorSession) UpdateBlockContent(id, content string) error {
	return s.updateBlock(id, func(b *domain.ContentBlock) { b.Content = content })
}

// UpdateBlockLanguage replaces the language tag of block id.
func (s *EditorSession) UpdateBlockLanguage(id, language string) error {
	return s.updateBlock(id, func(b *domain.ContentBlock) { b.Language = language })
}

// UpdateBlockStyle replaces the style bag of block id.
func (s *EditorSession) UpdateBlockStyle(id string, style domain.StyleBag) error {
	return s.updateBlock(id, func(b *domain.ContentBlock) { b.Style = style.Clone() })
}

// DeleteBlock removes the block and every layout entry placing it in one
// step. A dangling layout entry with no block can be deleted the same way.
func (s *EditorSession) DeleteBlock(id string) error {
	return s.mutateGrid(func(n *domain.StudyNote) error {
		_, inBlocks := n.Blocks[id]
		_, inLayout := n.Layout.Find(id)
		if !inBlocks && !inLayout {
			return fmt.Errorf("%w: %s", domain.ErrBlockNotFound, id)
		}
		delete(n.Blocks, id)
		n.Layout = n.Layout.Without(id)
		if s.selected == id {
			s.selected = ""
		}
		return nil
	})
}

// Select marks block id as the one under property editing; "" clears it.
func (s *EditorSession) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		if _, ok := s.note.Blocks[id]; !ok {
			return fmt.Errorf("select: %w: %s", domain.ErrBlockNotFound, id)
		}
	}
	s.selected = id
	return nil
}

// ── History ────────────────────────────────────────────────

// Undo restores the draft as it was before the last mutation. The stored
// identity of the post (id and timestamps) is kept so a later save still
// updates the same post.
func (s *EditorSession) Undo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.history.canUndo() {
		return domain.ErrNothingToUndo
	}
	s.restore(s.history.stepBack(s.note))
	return nil
}

// Redo reapplies the last undone mutation.
func (s *EditorSession) Redo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.history.canRedo() {
		return domain.ErrNothingToRedo
	}
	s.restore(s.history.stepForward(s.note))
	return nil
}

// CanUndo and CanRedo report whether history is available in each direction.
func (s *EditorSession) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.canUndo()
}

func (s *EditorSession) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.canRedo()
}

// restore swaps in snapshot; callers hold s.mu.
func (s *EditorSession) restore(snapshot *domain.StudyNote) {
	snapshot.ID = s.note.ID
	snapshot.CreatedAt = s.note.CreatedAt
	snapshot.UpdatedAt = s.note.UpdatedAt
	s.note = snapshot
	if _, ok := s.note.Blocks[s.selected]; !ok {
		s.selected = ""
	}
	s.revision++
}

// ── Layout ─────────────────────────────────────────────────

// ReplaceLayout stores layout verbatim as the new arrangement. It may only
// place blocks the note already knows.
func (s *EditorSession) ReplaceLayout(layout domain.Layout) error {
	if err := layout.Validate(); err != nil {
		return err
	}
	return s.mutateGrid(func(n *domain.StudyNote) error {
		for _, it := range layout {
			_, inBlocks := n.Blocks[it.I]
			_, inLayout := n.Layout.Find(it.I)
			if !inBlocks && !inLayout {
				return fmt.Errorf("%w: unknown block %q", domain.ErrInvalidLayout, it.I)
			}
		}
		n.Layout = layout.WithStatic(false)
		if n.Layout == nil {
			n.Layout = domain.Layout{}
		}
		return nil
	})
}

// ApplyGesture feeds a finished pointer gesture on block id back into the
// draft: a click selects, a drag or resize replaces the layout.
func (s *EditorSession) ApplyGesture(id string, o grid.Outcome) error {
	switch o.Kind {
	case grid.OutcomeSelect:
		return s.Select(id)
	case grid.OutcomeMove, grid.OutcomeResize:
		return s.mutateGrid(func(n *domain.StudyNote) error {
			next, err := grid.ApplyGesture(n.Layout, id, o)
			if err != nil {
				return err
			}
			n.Layout = next
			return nil
		})
	}
	return nil
}

// ApplyTemplate discards the current content and seeds the draft from
// template id. Confirming the loss is the caller's job.
func (s *EditorSession) ApplyTemplate(id string) error {
	layout, blocks, err := s.deps.Templates.Generate(id)
	if err != nil {
		s.deps.Logger.Warn("template rejected", "session", s.id, "template", id, "err", err)
		return err
	}
	return s.mutate(func(n *domain.StudyNote) error {
		n.Layout = layout
		n.Blocks = blocks
		n.Markup = ""
		s.selected = ""
		return nil
	})
}

// SetMarkup switches the draft to the serialized markup shape, dropping
// any grid content. Empty markup switches back to an empty grid.
func (s *EditorSession) SetMarkup(markup string) error {
	return s.mutate(func(n *domain.StudyNote) error {
		n.Markup = markup
		n.Layout = domain.Layout{}
		n.Blocks = domain.Blocks{}
		s.selected = ""
		return nil
	})
}

// ConvertToMarkup linearizes the current grid into markup.
func (s *EditorSession) ConvertToMarkup() error {
	return s.mutateGrid(func(n *domain.StudyNote) error {
		n.Markup = migrate.ToMarkup(n.Layout, n.Blocks)
		n.Layout = domain.Layout{}
		n.Blocks = domain.Blocks{}
		s.selected = ""
		return nil
	})
}

// ── Descriptive fields ─────────────────────────────────────

// MetaPatch changes descriptive fields; nil fields are left alone.
type MetaPatch struct {
	Title          *string    `json:"title,omitempty"`
	Slug           *string    `json:"slug,omitempty"`
	Subtitle       *string    `json:"subtitle,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Category       *string    `json:"category,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	ImageURL       *string    `json:"imageUrl,omitempty"`
	Status         *string    `json:"status,omitempty"`
	PinPosition    *int       `json:"pinPosition,omitempty"`
	ClearPin       bool       `json:"clearPin,omitempty"`
	PublishAt      *time.Time `json:"publishAt,omitempty"`
	ClearPublishAt bool       `json:"clearPublishAt,omitempty"`
}

// UpdateMeta applies p atomically: an invalid status rejects the whole patch.
func (s *EditorSession) UpdateMeta(p MetaPatch) error {
	var status domain.Status
	if p.Status != nil {
		st, err := domain.ParseStatus(*p.Status)
		if err != nil {
			return err
		}
		status = st
	}
	return s.mutate(func(n *domain.StudyNote) error {
		if p.Title != nil {
			n.Title = *p.Title
		}
		if p.Slug != nil {
			n.Slug = Slugify(*p.Slug)
		}
		if p.Subtitle != nil {
			n.Subtitle = *p.Subtitle
		}
		if p.Description != nil {
			n.Description = *p.Description
		}
		if p.Category != nil {
			n.Category = *p.Category
		}
		if p.Tags != nil {
			n.Tags = domain.NormalizeTags(p.Tags)
		}
		if p.ImageURL != nil {
			n.ImageURL = *p.ImageURL
		}
		if p.Status != nil {
			n.Status = status
		}
		if p.ClearPin {
			n.PinPosition = nil
		} else if p.PinPosition != nil {
			pin := *p.PinPosition
			n.PinPosition = &pin
		}
		if p.ClearPublishAt {
			n.PublishAt = nil
		} else if p.PublishAt != nil {
			at := p.PublishAt.UTC()
			n.PublishAt = &at
		}
		return nil
	})
}

func (s *EditorSession) SetTitle(v string) error       { return s.UpdateMeta(MetaPatch{Title: &v}) }
func (s *EditorSession) SetSlug(v string) error        { return s.UpdateMeta(MetaPatch{Slug: &v}) }
func (s *EditorSession) SetSubtitle(v string) error    { return s.UpdateMeta(MetaPatch{Subtitle: &v}) }
func (s *EditorSession) SetDescription(v string) error { return s.UpdateMeta(MetaPatch{Description: &v}) }
func (s *EditorSession) SetCategory(v string) error    { return s.UpdateMeta(MetaPatch{Category: &v}) }
func (s *EditorSession) SetImageURL(v string) error    { return s.UpdateMeta(MetaPatch{ImageURL: &v}) }

// SetTags replaces the tag set; duplicates collapse and order is not kept.
func (s *EditorSession) SetTags(tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	return s.UpdateMeta(MetaPatch{Tags: tags})
}

func (s *EditorSession) SetStatus(st domain.Status) error {
	v := string(st)
	return s.UpdateMeta(MetaPatch{Status: &v})
}

// SetPublishAt schedules the draft for publishing; nil unschedules it.
func (s *EditorSession) SetPublishAt(at *time.Time) error {
	if at == nil {
		return s.UpdateMeta(MetaPatch{ClearPublishAt: true})
	}
	return s.UpdateMeta(MetaPatch{PublishAt: at})
}

// SetPinPosition pins the post in the published listing; nil unpins it.
func (s *EditorSession) SetPinPosition(pin *int) error {
	if pin == nil {
		return s.UpdateMeta(MetaPatch{ClearPin: true})
	}
	return s.UpdateMeta(MetaPatch{PinPosition: pin})
}

// ── Save ───────────────────────────────────────────────────

// Save writes the draft through the store: insert on first save, full
// update afterwards. On success the draft learns its id and timestamps;
// on failure nothing in the session changes. A second Save while one is in
// flight fails with ErrSaveInProgress.
func (s *EditorSession) Save(ctx context.Context) (*domain.StudyNote, error) {
	if !s.saves.TryLock(s.id) {
		return nil, domain.ErrSaveInProgress
	}
	defer s.saves.Unlock(s.id)

	s.mu.Lock()
	draft := s.note.Clone()
	rev := s.revision
	s.mu.Unlock()

	now := s.deps.Clock().UTC()
	if draft.Slug == "" {
		draft.Slug = Slugify(draft.Title)
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}
	draft.UpdatedAt = now

	doc, err := migrate.ToDocument(draft)
	if err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}

	if draft.ID == "" {
		created, err := s.deps.Store.Insert(ctx, doc)
		if err != nil {
			s.deps.Logger.Error("save failed", "session", s.id, "op", "insert", "err", err)
			return nil, fmt.Errorf("save: %w", err)
		}
		draft.ID = created.ID
		draft.CreatedAt = created.CreatedAt
		draft.UpdatedAt = created.UpdatedAt
	} else if err := s.deps.Store.Update(ctx, draft.ID, domain.PatchFrom(doc)); err != nil {
		s.deps.Logger.Error("save failed", "session", s.id, "op", "update", "post", draft.ID, "err", err)
		return nil, fmt.Errorf("save: %w", err)
	}

	s.mu.Lock()
	s.note.ID = draft.ID
	if s.note.Slug == "" {
		s.note.Slug = draft.Slug
	}
	s.note.CreatedAt = draft.CreatedAt
	s.note.UpdatedAt = draft.UpdatedAt
	s.savedRevision = rev
	s.mu.Unlock()

	s.deps.Logger.Info("post saved", "session", s.id, "post", draft.ID, "slug", draft.Slug)
	s.deps.Emitter.Emit(ctx, EventPostSaved, draft.ID)
	return draft, nil
}
