package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"folio/internal/domain"
	"folio/internal/migrate"
)

// ─────────────────────────────────────────────────────────────
// Session Registry: open editor sessions by id
// ─────────────────────────────────────────────────────────────

// SessionRegistry tracks the editor sessions the HTTP and MCP shells work on.
// Closing a session discards its unsaved changes.
type SessionRegistry struct {
	deps SessionDeps

	mu       sync.RWMutex
	sessions map[string]*EditorSession
}

// NewSessionRegistry creates an empty registry whose sessions share deps.
func NewSessionRegistry(deps SessionDeps) *SessionRegistry {
	return &SessionRegistry{
		deps:     deps.withDefaults(),
		sessions: make(map[string]*EditorSession),
	}
}

// OpenInput selects what a new session edits.
type OpenInput struct {
	PostID   string `json:"id,omitempty"`       // existing post to load
	Template string `json:"template,omitempty"` // seed a new draft from a template
}

// Open starts a session. With PostID the stored post is loaded and
// normalized; otherwise a blank draft is created, optionally seeded from
// Template.
func (r *SessionRegistry) Open(ctx context.Context, in OpenInput) (*EditorSession, error) {
	var note *domain.StudyNote
	if in.PostID != "" {
		doc, err := r.deps.Store.GetByID(ctx, in.PostID)
		if err != nil {
			return nil, fmt.Errorf("open session: %w", err)
		}
		note, err = migrate.Normalize(doc)
		if err != nil {
			return nil, fmt.Errorf("open session: %w", err)
		}
	}

	sess := NewEditorSession(uuid.New().String(), note, r.deps)
	if in.Template != "" {
		if err := sess.ApplyTemplate(in.Template); err != nil {
			return nil, fmt.Errorf("open session: %w", err)
		}
	}

	r.mu.Lock()
	r.sessions[sess.ID()] = sess
	r.mu.Unlock()

	r.deps.Logger.Debug("session opened", "session", sess.ID(), "post", in.PostID, "template", in.Template)
	r.deps.Emitter.Emit(ctx, EventSessionOpened, sess.ID())
	return sess, nil
}

// Get returns the session with id sid.
func (r *SessionRegistry) Get(sid string) (*EditorSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[sid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sid)
	}
	return sess, nil
}

// Close drops a session and its unsaved changes.
func (r *SessionRegistry) Close(ctx context.Context, sid string) error {
	r.mu.Lock()
	sess, ok := r.sessions[sid]
	delete(r.sessions, sid)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sid)
	}
	if sess.Dirty() {
		r.deps.Logger.Info("discarding unsaved changes", "session", sid)
	}
	r.deps.Emitter.Emit(ctx, EventSessionClosed, sid)
	return nil
}

// IDs lists open session ids in sorted order.
func (r *SessionRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// WaitSaves blocks until in-flight saves finish or ctx is done.
func (r *SessionRegistry) WaitSaves(ctx context.Context) {
	r.deps.saves.WaitAll(ctx)
}
