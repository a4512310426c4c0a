package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"folio/internal/domain"
	"folio/internal/grid"
	"folio/internal/service"
)

// SessionView is what every session endpoint answers with: the draft, its
// editable rendering and the editor state around it.
type SessionView struct {
	Session  string            `json:"session"`
	Note     *domain.StudyNote `json:"note"`
	View     grid.View         `json:"view"`
	Selected string            `json:"selected,omitempty"`
	Dirty    bool              `json:"dirty"`
	Saving   bool              `json:"saving"`
	CanUndo  bool              `json:"canUndo"`
	CanRedo  bool              `json:"canRedo"`
}

func (s *Server) sessionView(sess *service.EditorSession) SessionView {
	n := sess.Note()
	return SessionView{
		Session:  sess.ID(),
		Note:     n,
		View:     s.posts.Render(n, grid.ModeEditable),
		Selected: sess.Selected(),
		Dirty:    sess.Dirty(),
		Saving:   sess.Saving(),
		CanUndo:  sess.CanUndo(),
		CanRedo:  sess.CanRedo(),
	}
}

// withSession resolves {sid} and runs fn against it. fn's error is mapped to
// a status; on success the current session view is returned.
func (s *Server) withSession(fn func(w http.ResponseWriter, r *http.Request, sess *service.EditorSession) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Get(chi.URLParam(r, "sid"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if err := fn(w, r, sess); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s.sessionView(sess))
	}
}

func (s *Server) openSession(w http.ResponseWriter, r *http.Request) {
	var in service.OpenInput
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &in); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	sess, err := s.sessions.Open(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.sessionView(sess))
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(r.Context(), chi.URLParam(r, "sid")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(http.ResponseWriter, *http.Request, *service.EditorSession) error {
		return nil
	})(w, r)
}

type addBlockRequest struct {
	Type domain.BlockType `json:"type"`
}

func (s *Server) addBlock(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, sess *service.EditorSession) error {
		var in addBlockRequest
		if err := decodeJSON(w, r, &in); err != nil {
			return err
		}
		_, _, err := sess.AddBlock(in.Type)
		return err
	})(w, r)
}

type updateBlockRequest struct {
	Content  *string          `json:"content,omitempty"`
	Language *string          `json:"language,omitempty"`
	Style    *domain.StyleBag `json:"style,omitempty"`
}

func (s *Server) updateBlock(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, sess *service.EditorSession) error {
		var in updateBlockRequest
		if err := decodeJSON(w, r, &in); err != nil {
			return err
		}
		id := chi.URLParam(r, "bid")
		if in.Content == nil && in.Language == nil && in.Style == nil {
			return badRequest("nothing to update")
		}
		if in.Content != nil {
			if err := sess.UpdateBlockContent(id, *in.Content); err != nil {
				return err
			}
		}
		if in.Language != nil {
			if err := sess.UpdateBlockLanguage(id, *in.Language); err != nil {
				return err
			}
		}
		if in.Style != nil {
			if err := sess.UpdateBlockStyle(id, *in.Style); err != nil {
				return err
			}
		}
		return nil
	})(w, r)
}

func (s *Server) deleteBlock(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(_ http.ResponseWriter, r *http.Request, sess *service.EditorSession) error {
		return sess.DeleteBlock(chi.URLParam(r, "bid"))
	})(w, r)
}

func (s *Server) selectBlock(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(_ http.ResponseWriter, r *http.Request, sess *service.EditorSession) error {
		return sess.Select(chi.URLParam(r, "bid"))
	})(w, r)
}

func (s *Server) applyGesture(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, sess *service.EditorSession) error {
		var o grid.Outcome
		if err := decodeJSON(w, r, &o); err != nil {
			return err
		}
		return sess.ApplyGesture(chi.URLParam(r, "bid"), o)
	})(w, r)
}

func (s *Server) replaceLayout(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, sess *service.EditorSession) error {
		var layout domain.Layout
		if err := decodeJSON(w, r, &layout); err != nil {
			return err
		}
		if layout == nil {
			layout = domain.Layout{}
		}
		return sess.ReplaceLayout(layout)
	})(w, r)
}

type applyTemplateRequest struct {
	ID string `json:"id"`
}

func (s *Server) applyTemplate(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, sess *service.EditorSession) error {
		var in applyTemplateRequest
		if err := decodeJSON(w, r, &in); err != nil {
			return err
		}
		return sess.ApplyTemplate(in.ID)
	})(w, r)
}

func (s *Server) convertToMarkup(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(_ http.ResponseWriter, _ *http.Request, sess *service.EditorSession) error {
		return sess.ConvertToMarkup()
	})(w, r)
}

func (s *Server) updateMeta(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, sess *service.EditorSession) error {
		var p service.MetaPatch
		if err := decodeJSON(w, r, &p); err != nil {
			return err
		}
		return sess.UpdateMeta(p)
	})(w, r)
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(_ http.ResponseWriter, r *http.Request, sess *service.EditorSession) error {
		_, err := sess.Save(r.Context())
		return err
	})(w, r)
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(_ http.ResponseWriter, _ *http.Request, sess *service.EditorSession) error {
		return sess.Undo()
	})(w, r)
}

func (s *Server) redo(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(_ http.ResponseWriter, _ *http.Request, sess *service.EditorSession) error {
		return sess.Redo()
	})(w, r)
}
