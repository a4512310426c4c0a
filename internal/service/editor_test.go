package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/domain"
	"folio/internal/grid"
	"folio/internal/migrate"
	"folio/internal/service"
	"folio/internal/storage"
	"folio/internal/templates"
)

// seqIDs hands out block-1, block-2, ...
type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%d", prefix, s.n)
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newDeps(store domain.PostStore, em *service.MockEmitter) service.SessionDeps {
	ids := &seqIDs{}
	return service.SessionDeps{
		Store:     store,
		IDs:       ids,
		Templates: templates.NewGenerator(ids),
		Emitter:   em,
		Logger:    quietLogger(),
		Clock:     func() time.Time { return fixedNow },
	}
}

func gridNote(layout domain.Layout, blocks domain.Blocks) *domain.StudyNote {
	n := service.NewDraft()
	n.Layout = layout
	n.Blocks = blocks
	return n
}

func textBlock(id, content string) domain.ContentBlock {
	return domain.ContentBlock{ID: id, Type: domain.BlockTypeText, Content: content}
}

func TestNewDraft_Defaults(t *testing.T) {
	n := service.NewDraft()
	assert.Equal(t, "Nova Nota de Estudo", n.Title)
	assert.Equal(t, "nova-nota-de-estudo", n.Slug)
	assert.Equal(t, "Descrição da sua nota...", n.Description)
	assert.Equal(t, "general", n.Category)
	assert.Equal(t, domain.StatusDraft, n.Status)
	assert.Empty(t, n.Layout)
	assert.Empty(t, n.Blocks)
	assert.Empty(t, n.ID)
}

func TestEditor_AddBlockOnEmptyNote(t *testing.T) {
	tests := []struct {
		typ     domain.BlockType
		content string
	}{
		{domain.BlockTypeText, "Novo bloco de texto"},
		{domain.BlockTypeMarkdown, "Novo bloco de texto"},
		{domain.BlockTypeCode, `console.log("Hello")`},
		{domain.BlockTypeImage, "https://placehold.co/600x400"},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			s := service.NewEditorSession("s", nil, newDeps(storage.NewMemoryStore(), &service.MockEmitter{}))

			b, it, err := s.AddBlock(tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.content, b.Content)
			assert.Equal(t, tt.typ, b.Type)
			assert.Equal(t, domain.GridLayoutItem{I: b.ID, X: 0, Y: 0, W: 4, H: 4}, it)

			n := s.Note()
			assert.Contains(t, n.Blocks, b.ID)
			assert.Equal(t, domain.Layout{it}, n.Layout)
			assert.True(t, s.Dirty())
		})
	}
}

func TestEditor_AddBlockBelowLowestRow(t *testing.T) {
	note := gridNote(
		domain.Layout{{I: "a", X: 0, Y: 0, W: 6, H: 4}, {I: "b", X: 6, Y: 2, W: 6, H: 6}},
		domain.Blocks{"a": textBlock("a", "A"), "b": textBlock("b", "B")},
	)
	s := service.NewEditorSession("s", note, newDeps(storage.NewMemoryStore(), &service.MockEmitter{}))

	b, it, err := s.AddBlock(domain.BlockTypeCode)
	require.NoError(t, err)
	assert.Equal(t, 0, it.X)
	assert.Equal(t, 8, it.Y)
	assert.NotContains(t, []string{"a", "b"}, b.ID)

	_, it2, err := s.AddBlock(domain.BlockTypeText)
	require.NoError(t, err)
	assert.Equal(t, 12, it2.Y)
}

func TestEditor_AddBlockSkipsTakenIDs(t *testing.T) {
	note := gridNote(domain.Layout{{I: "block-1", W: 4, H: 4}}, domain.Blocks{"block-1": textBlock("block-1", "x")})
	s := service.NewEditorSession("s", note, newDeps(storage.NewMemoryStore(), &service.MockEmitter{}))

	b, _, err := s.AddBlock(domain.BlockTypeText)
	require.NoError(t, err)
	assert.Equal(t, "block-2", b.ID)
	assert.Len(t, s.Note().Blocks, 2)
}

func TestEditor_AddBlockUnknownType(t *testing.T) {
	s := service.NewEditorSession("s", nil, newDeps(storage.NewMemoryStore(), &service.MockEmitter{}))
	_, _, err := s.AddBlock("video")
	require.ErrorIs(t, err, domain.ErrUnknownBlockType)
	assert.Empty(t, s.Note().Layout)
	assert.False(t, s.Dirty())
}

func TestEditor_UpdateBlock(t *testing.T) {
	s := service.NewEditorSession("s", nil, newDeps(storage.NewMemoryStore(), &service.MockEmitter{}))
	b, _, err := s.AddBlock(domain.BlockTypeCode)
	require.NoError(t, err)

	require.NoError(t, s.UpdateBlockContent(b.ID, "fmt.Println(1)"))
	require.NoError(t, s.UpdateBlockLanguage(b.ID, "go"))
	require.NoError(t, s.UpdateBlockStyle(b.ID, domain.StyleBag{"color": "red"}))

	got := s.Note().Blocks[b.ID]
	assert.Equal(t, "fmt.Println(1)", got.Content)
	assert.Equal(t, "go", got.Language)
	assert.Equal(t, "red", got.Style["color"])

	err = s.UpdateBlockContent("nope", "x")
	require.ErrorIs(t, err, domain.ErrBlockNotFound)
	err = s.UpdateBlockLanguage("nope", "x")
	require.ErrorIs(t, err, domain.ErrBlockNotFound)
}

func TestEditor_DeleteBlockKeepsLayoutAndBlocksConsistent(t *testing.T) {
	note := gridNote(
		domain.Layout{{I: "a", W: 6, H: 4}, {I: "b", X: 6, W: 6, H: 4}, {I: "ghost", Y: 4, W: 12, H: 2}},
		domain.Blocks{"a": textBlock("a", "A"), "b": textBlock("b", "B")},
	)
	s := service.NewEditorSession("s", note, newDeps(storage.NewMemoryStore(), &service.MockEmitter{}))
	require.NoError(t, s.Select("a"))

	require.NoError(t, s.DeleteBlock("a"))
	n := s.Note()
	assert.NotContains(t, n.Blocks, "a")
	_, inLayout := n.Layout.Find("a")
	assert.False(t, inLayout)
	assert.Empty(t, s.Selected(), "selection of deleted block is cleared")

	// dangling entries can be removed too
	require.NoError(t, s.DeleteBlock("ghost"))
	assert.Equal(t, []string{"b"}, s.Note().Layout.IDs())

	err := s.DeleteBlock("a")
	require.ErrorIs(t, err, domain.ErrBlockNotFound)
}

func TestEditor_Select(t *testing.T) {
	note := gridNote(domain.Layout{{I: "a", W: 6, H: 4}}, domain.Blocks{"a": textBlock("a", "A")})
	s := service.NewEditorSession("s", note, newDeps(storage.NewMemoryStore(), &service.MockEmitter{}))

	require.NoError(t, s.Select("a"))
	assert.Equal(t, "a", s.Selected())
	require.ErrorIs(t, s.Select("zzz"), domain.ErrBlockNotFound)
	assert.Equal(t, "a", s.Selected())
	require.NoError(t, s.Select(""))
	assert.Empty(t, s.Selected())
	assert.False(t, s.Dirty(), "selection is not a content change")
}

func TestEditor_ReplaceLayout(t *testing.T) {
	note := gridNote(
		domain.Layout{{I: "a", W: 6, H: 4}, {I: "b", X: 6, W: 6, H: 4}},
		domain.Blocks{"a": textBlock("a", "A"), "b": textBlock("b", "B")},
	)
	s := service.NewEditorSession("s", note, newDeps(storage.NewMemoryStore(), &service.MockEmitter{}))

	next := domain.Layout{{I: "b", X: 0, Y: 0, W: 12, H: 2, Static: true}, {I: "a", X: 0, Y: 2, W: 12, H: 4}}
	require.NoError(t, s.ReplaceLayout(next))
	got := s.Note().Layout
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].I)
	assert.False(t, got[0].Static)

	err := s.ReplaceLayout(domain.Layout{{I: "new", W: 1, H: 1}})
	require.ErrorIs(t, err, domain.ErrInvalidLayout)

	err = s.ReplaceLayout(domain.Layout{{I: "a", W: 1, H: 1}, {I: "a", W: 1, H: 1}})
	require.ErrorIs(t, err, domain.ErrInvalidLayout)
	assert.Equal(t, got, s.Note().Layout)
}

func TestEditor_ApplyGesture(t *testing.T) {
	note := gridNote(domain.Layout{{I: "a", X: 0, Y: 0, W: 4, H: 4}}, domain.Blocks{"a": textBlock("a", "A")})
	s := service.NewEditorSession("s", note, newDeps(storage.NewMemoryStore(), &service.MockEmitter{}))

	var g grid.Gesture
	g.Press(10, 10, false)
	g.Move(11, 11)
	require.NoError(t, s.ApplyGesture("a", g.Release()))
	assert.Equal(t, "a", s.Selected())
	assert.False(t, s.Dirty())

	g.Press(10, 10, false)
	g.Move(210, 70)
	require.NoError(t, s.ApplyGesture("a", g.Release()))
	it, ok := s.Note().Layout.Find("a")
	require.True(t, ok)
	assert.Equal(t, 2, it.X)
	assert.Equal(t, 2, it.Y)
	assert.True(t, s.Dirty())

	err := s.ApplyGesture("zzz", grid.Outcome{Kind: grid.OutcomeMove, DX: 1})
	require.ErrorIs(t, err, domain.ErrBlockNotFound)
}

func TestEditor_ApplyTemplate(t *testing.T) {
	note := gridNote(domain.Layout{{I: "old", W: 4, H: 4}}, domain.Blocks{"old": textBlock("old", "keep?")})
	s := service.NewEditorSession("s", note, newDeps(storage.NewMemoryStore(), &service.MockEmitter{}))
	require.NoError(t, s.Select("old"))

	require.NoError(t, s.ApplyTemplate(templates.TwoColumns))
	n := s.Note()
	require.Len(t, n.Layout, 2)
	require.Len(t, n.Blocks, 2)
	assert.NotContains(t, n.Blocks, "old")
	assert.Empty(t, n.Layout.Dangling(n.Blocks))
	assert.Empty(t, s.Selected())

	err := s.ApplyTemplate("five-columns")
	require.ErrorIs(t, err, domain.ErrUnknownTemplate)
	assert.Len(t, s.Note().Blocks, 2, "unknown template leaves content alone")

	require.NoError(t, s.ApplyTemplate(templates.Custom))
	assert.Empty(t, s.Note().Layout)
	assert.Empty(t, s.Note().Blocks)
}

func TestEditor_MarkupNotesRejectGridOps(t *testing.T) {
	note := service.NewDraft()
	note.Markup = "<p>legacy</p>"
	s := service.NewEditorSession("s", note, newDeps(storage.NewMemoryStore(), &service.MockEmitter{}))

	_, _, err := s.AddBlock(domain.BlockTypeText)
	require.ErrorIs(t, err, domain.ErrMarkupContent)
	require.ErrorIs(t, s.ReplaceLayout(domain.Layout{}), domain.ErrMarkupContent)
	require.ErrorIs(t, s.ConvertToMarkup(), domain.ErrMarkupContent)

	// a template turns it back into a grid note
	require.NoError(t, s.ApplyTemplate(templates.SingleColumn))
	assert.False(t, s.Note().IsMarkup())
}

func TestEditor_ConvertToMarkup(t *testing.T) {
	note := gridNote(
		domain.Layout{{I: "b", X: 6, W: 6, H: 4}, {I: "a", X: 0, W: 6, H: 4}},
		domain.Blocks{"a": textBlock("a", "first"), "b": textBlock("b", "second")},
	)
	s := service.NewEditorSession("s", note, newDeps(storage.NewMemoryStore(), &service.MockEmitter{}))

	require.NoError(t, s.ConvertToMarkup())
	n := s.Note()
	assert.Equal(t, "<p>first</p>\n<p>second</p>", n.Markup)
	assert.Empty(t, n.Blocks)

	require.NoError(t, s.SetMarkup(""))
	assert.False(t, s.Note().IsMarkup())
}

func TestEditor_UpdateMeta(t *testing.T) {
	s := service.NewEditorSession("s", nil, newDeps(storage.NewMemoryStore(), &service.MockEmitter{}))

	require.NoError(t, s.SetTitle("Guia de Go"))
	require.NoError(t, s.SetSlug("Guia de Go!"))
	require.NoError(t, s.SetSubtitle("concorrência"))
	require.NoError(t, s.SetDescription("d"))
	require.NoError(t, s.SetCategory("dev"))
	require.NoError(t, s.SetImageURL("https://x/y.png"))
	require.NoError(t, s.SetTags([]string{"go", "dev", "go", ""}))
	require.NoError(t, s.SetStatus(domain.StatusPublished))
	pin := 2
	require.NoError(t, s.SetPinPosition(&pin))
	at := fixedNow.Add(time.Hour)
	require.NoError(t, s.SetPublishAt(&at))

	n := s.Note()
	assert.Equal(t, "Guia de Go", n.Title)
	assert.Equal(t, "guia-de-go", n.Slug)
	assert.Equal(t, "concorrência", n.Subtitle)
	assert.Equal(t, "dev", n.Category)
	assert.Equal(t, "https://x/y.png", n.ImageURL)
	assert.ElementsMatch(t, []string{"go", "dev"}, n.Tags)
	assert.Equal(t, domain.StatusPublished, n.Status)
	require.NotNil(t, n.PinPosition)
	assert.Equal(t, 2, *n.PinPosition)
	require.NotNil(t, n.PublishAt)

	require.NoError(t, s.SetPinPosition(nil))
	require.NoError(t, s.SetPublishAt(nil))
	n = s.Note()
	assert.Nil(t, n.PinPosition)
	assert.Nil(t, n.PublishAt)
}

func TestEditor_UpdateMetaInvalidStatusIsAtomic(t *testing.T) {
	s := service.NewEditorSession("s", nil, newDeps(storage.NewMemoryStore(), &service.MockEmitter{}))
	title, status := "changed", "archived"

	err := s.UpdateMeta(service.MetaPatch{Title: &title, Status: &status})
	require.ErrorIs(t, err, domain.ErrInvalidStatus)
	assert.Equal(t, service.DefaultTitle, s.Note().Title)
	assert.False(t, s.Dirty())
}

// ── Save ───────────────────────────────────────────────────

func TestEditor_SaveInsertsThenUpdates(t *testing.T) {
	store := storage.NewMemoryStore()
	em := &service.MockEmitter{}
	s := service.NewEditorSession("s", nil, newDeps(store, em))
	b, _, err := s.AddBlock(domain.BlockTypeText)
	require.NoError(t, err)

	saved, err := s.Save(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	assert.Equal(t, saved.ID, s.Note().ID)
	assert.Equal(t, fixedNow, s.Note().CreatedAt)
	assert.False(t, s.Dirty())
	assert.Equal(t, []string{service.EventPostSaved}, em.Names())

	doc, err := store.GetByID(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "nova-nota-de-estudo", doc.Slug)
	loaded, err := migrate.Normalize(doc)
	require.NoError(t, err)
	assert.Equal(t, "Novo bloco de texto", loaded.Blocks[b.ID].Content)

	require.NoError(t, s.UpdateBlockContent(b.ID, "edited"))
	assert.True(t, s.Dirty())
	again, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, saved.ID, again.ID)

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1, "second save updates, never inserts")
	loaded, err = migrate.Normalize(&all[0])
	require.NoError(t, err)
	assert.Equal(t, "edited", loaded.Blocks[b.ID].Content)
}

func TestEditor_SaveFailureLeavesDraftUntouched(t *testing.T) {
	store := storage.NewMemoryStore()
	store.FailNext = errors.New("backend down")
	em := &service.MockEmitter{}
	s := service.NewEditorSession("s", nil, newDeps(store, em))
	_, _, err := s.AddBlock(domain.BlockTypeText)
	require.NoError(t, err)
	before := s.Note()

	_, err = s.Save(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend down")
	assert.Equal(t, before, s.Note())
	assert.True(t, s.Dirty())
	assert.Empty(t, em.Names())

	// retry succeeds without re-entering anything
	saved, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
}

func TestEditor_SaveSlugConflict(t *testing.T) {
	store := storage.NewMemoryStore()
	_, err := store.Insert(context.Background(), &domain.Document{Slug: "nova-nota-de-estudo", Title: "x", Status: domain.StatusDraft})
	require.NoError(t, err)

	s := service.NewEditorSession("s", nil, newDeps(store, &service.MockEmitter{}))
	_, err = s.Save(context.Background())
	require.ErrorIs(t, err, domain.ErrSlugTaken)
	assert.Empty(t, s.Note().ID)
}

// blockingStore holds Insert until released.
type blockingStore struct {
	*storage.MemoryStore
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) Insert(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	close(b.entered)
	<-b.release
	return b.MemoryStore.Insert(ctx, doc)
}

func TestEditor_SaveInProgress(t *testing.T) {
	store := &blockingStore{
		MemoryStore: storage.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	s := service.NewEditorSession("s", nil, newDeps(store, &service.MockEmitter{}))

	errc := make(chan error, 1)
	go func() {
		_, err := s.Save(context.Background())
		errc <- err
	}()
	<-store.entered
	assert.True(t, s.Saving())

	_, err := s.Save(context.Background())
	require.ErrorIs(t, err, domain.ErrSaveInProgress)

	close(store.release)
	require.NoError(t, <-errc)
	assert.False(t, s.Saving())
}

func TestEditor_EditsDuringSaveStayDirty(t *testing.T) {
	store := &blockingStore{
		MemoryStore: storage.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	s := service.NewEditorSession("s", nil, newDeps(store, &service.MockEmitter{}))

	errc := make(chan error, 1)
	go func() {
		_, err := s.Save(context.Background())
		errc <- err
	}()
	<-store.entered
	require.NoError(t, s.SetTitle("typed while saving"))
	close(store.release)
	require.NoError(t, <-errc)

	assert.True(t, s.Dirty())
	assert.Equal(t, "typed while saving", s.Note().Title)
	assert.NotEmpty(t, s.Note().ID)
}

func TestEditor_UndoRedo(t *testing.T) {
	s := service.NewEditorSession("s", nil, newDeps(storage.NewMemoryStore(), &service.MockEmitter{}))
	require.ErrorIs(t, s.Undo(), domain.ErrNothingToUndo)
	require.ErrorIs(t, s.Redo(), domain.ErrNothingToRedo)

	b, _, err := s.AddBlock(domain.BlockTypeText)
	require.NoError(t, err)
	require.NoError(t, s.UpdateBlockContent(b.ID, "edited"))
	require.NoError(t, s.Select(b.ID))
	assert.True(t, s.CanUndo())

	require.NoError(t, s.Undo())
	assert.Equal(t, "Novo bloco de texto", s.Note().Blocks[b.ID].Content)
	assert.Equal(t, b.ID, s.Selected())
	assert.True(t, s.CanRedo())

	require.NoError(t, s.Undo())
	n := s.Note()
	assert.Empty(t, n.Blocks)
	assert.Empty(t, n.Layout)
	assert.Empty(t, s.Selected(), "selection of a vanished block is cleared")
	assert.False(t, s.CanUndo())

	require.NoError(t, s.Redo())
	require.NoError(t, s.Redo())
	assert.Equal(t, "edited", s.Note().Blocks[b.ID].Content)
	require.ErrorIs(t, s.Redo(), domain.ErrNothingToRedo)

	// a new mutation drops the redo branch
	require.NoError(t, s.Undo())
	require.NoError(t, s.UpdateBlockLanguage(b.ID, "go"))
	assert.False(t, s.CanRedo())
}

func TestEditor_FailedMutationLeavesNoHistory(t *testing.T) {
	s := service.NewEditorSession("s", nil, newDeps(storage.NewMemoryStore(), &service.MockEmitter{}))
	require.Error(t, s.UpdateBlockContent("ghost", "x"))
	assert.False(t, s.CanUndo())
	assert.False(t, s.Dirty())
}

func TestEditor_UndoKeepsStoredIdentity(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	s := service.NewEditorSession("s", nil, newDeps(store, &service.MockEmitter{}))

	b, _, err := s.AddBlock(domain.BlockTypeText)
	require.NoError(t, err)
	saved, err := s.Save(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Undo())
	assert.Equal(t, saved.ID, s.Note().ID)
	assert.True(t, s.Dirty())

	_, err = s.Save(ctx)
	require.NoError(t, err)
	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1, "undo then save updates the same post")
	n, err := migrate.Normalize(&all[0])
	require.NoError(t, err)
	assert.NotContains(t, n.Blocks, b.ID)
}

func TestEditor_HistoryIsCapped(t *testing.T) {
	s := service.NewEditorSession("s", nil, newDeps(storage.NewMemoryStore(), &service.MockEmitter{}))
	b, _, err := s.AddBlock(domain.BlockTypeText)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		require.NoError(t, s.UpdateBlockContent(b.ID, fmt.Sprint(i)))
	}
	undone := 0
	for s.Undo() == nil {
		undone++
	}
	assert.Equal(t, 40, undone)
	assert.Equal(t, "9", s.Note().Blocks[b.ID].Content)
}
