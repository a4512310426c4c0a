package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"folio/internal/domain"
	"folio/internal/grid"
	"folio/internal/templates"
)

// PostView is a note together with its rendered view.
type PostView struct {
	Note *domain.StudyNote `json:"note"`
	View grid.View         `json:"view"`
}

// TemplateInfo describes one catalog entry.
type TemplateInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slots int    `json:"slots"`
}

func (s *Server) listPublished(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, badRequest("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	notes, err := s.posts.ListPublished(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	n, err := s.posts.GetPublished(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PostView{Note: n, View: s.posts.Render(n, grid.ModeRead)})
}

func (s *Server) getPostHTML(w http.ResponseWriter, r *http.Request) {
	n, err := s.posts.GetPublished(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.posts.ReadHTML(r.Context(), n)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(out))
}

func (s *Server) listTemplates(w http.ResponseWriter, _ *http.Request) {
	list := templates.List()
	out := make([]TemplateInfo, len(list))
	for i, t := range list {
		out[i] = TemplateInfo{ID: t.ID, Name: t.Name, Slots: t.Slots()}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listAll(w http.ResponseWriter, r *http.Request) {
	notes, err := s.posts.ListAll(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := s.posts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
