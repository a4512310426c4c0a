package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"folio/internal/domain"
)

// MemoryStore is an in-process domain.PostStore. It backs tests and the
// `render` command when no database is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*memoryDoc
	seq  int
	now  func() time.Time

	// FailNext makes the next mutating call return this error.
	FailNext error
}

type memoryDoc struct {
	doc domain.Document
	seq int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*memoryDoc), now: time.Now}
}

// SetClock replaces the store's time source.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func cloneDoc(d domain.Document) domain.Document {
	d.Tags = append([]string{}, d.Tags...)
	d.Content = append([]byte(nil), d.Content...)
	if d.PinPosition != nil {
		p := *d.PinPosition
		d.PinPosition = &p
	}
	if d.PublishAt != nil {
		t := *d.PublishAt
		d.PublishAt = &t
	}
	return d
}

func (s *MemoryStore) takeFailure() error {
	err := s.FailNext
	s.FailNext = nil
	return err
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	md, ok := s.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	d := cloneDoc(md.doc)
	return &d, nil
}

func (s *MemoryStore) GetBySlug(_ context.Context, slug string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, md := range s.docs {
		if md.doc.Slug == slug {
			d := cloneDoc(md.doc)
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *MemoryStore) sorted(keep func(domain.Document) bool) []domain.Document {
	all := make([]*memoryDoc, 0, len(s.docs))
	for _, md := range s.docs {
		if keep(md.doc) {
			all = append(all, md)
		}
	}
	sort.Slice(all, func(a, b int) bool {
		ca, cb := all[a].doc.CreatedAt, all[b].doc.CreatedAt
		if !ca.Equal(cb) {
			return ca.After(cb)
		}
		return all[a].seq > all[b].seq
	})
	out := make([]domain.Document, len(all))
	for i, md := range all {
		out[i] = cloneDoc(md.doc)
	}
	return out
}

func (s *MemoryStore) ListPublished(_ context.Context, limit int) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.sorted(func(d domain.Document) bool { return d.Status == domain.StatusPublished })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListAll(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(domain.Document) bool { return true }), nil
}

func (s *MemoryStore) slugOwner(slug string) (string, bool) {
	for id, md := range s.docs {
		if md.doc.Slug == slug {
			return id, true
		}
	}
	return "", false
}

func (s *MemoryStore) Insert(_ context.Context, doc *domain.Document) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	d := cloneDoc(*doc)
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if _, exists := s.docs[d.ID]; exists {
		return nil, fmt.Errorf("insert post: duplicate id %s", d.ID)
	}
	if _, taken := s.slugOwner(d.Slug); taken {
		return nil, fmt.Errorf("insert post: %w: %q", domain.ErrSlugTaken, d.Slug)
	}
	now := s.now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}
	if d.Status == "" {
		d.Status = domain.StatusDraft
	}
	s.seq++
	s.docs[d.ID] = &memoryDoc{doc: d, seq: s.seq}
	out := cloneDoc(d)
	return &out, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, patch domain.PostPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	md, ok := s.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if patch.Slug != nil {
		if owner, taken := s.slugOwner(*patch.Slug); taken && owner != id {
			return fmt.Errorf("update post: %w: %q", domain.ErrSlugTaken, *patch.Slug)
		}
	}
	patch.Apply(&md.doc, s.now().UTC())
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	if _, ok := s.docs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

var _ domain.PostStore = (*MemoryStore)(nil)
