// Package httpapi exposes posts and editor sessions over HTTP. Public routes
// serve the published listing and read views; /api/admin routes drive editor
// sessions and require an authorized session.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"folio/internal/auth"
	"folio/internal/domain"
	"folio/internal/service"
)

// maxBodyBytes bounds request bodies; a post with many blocks stays well
// below it.
const maxBodyBytes = 4 << 20

// Server wires the HTTP routes to the services.
type Server struct {
	posts    *service.PostService
	sessions *service.SessionRegistry
	checker  auth.SessionChecker
	logger   *log.Logger
}

// New creates a Server. checker gates the admin routes.
func New(posts *service.PostService, sessions *service.SessionRegistry, checker auth.SessionChecker, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{posts: posts, sessions: sessions, checker: checker, logger: logger.WithPrefix("http")}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/posts", s.listPublished)
		r.Get("/posts/{slug}", s.getPost)
		r.Get("/posts/{slug}/html", s.getPostHTML)
		r.Get("/templates", s.listTemplates)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.Middleware(s.checker, func(w http.ResponseWriter, _ *http.Request, err error) {
				writeError(w, err)
			}))

			r.Get("/posts", s.listAll)
			r.Delete("/posts/{id}", s.deletePost)

			r.Post("/sessions", s.openSession)
			r.Route("/sessions/{sid}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Delete("/", s.closeSession)
				r.Post("/blocks", s.addBlock)
				r.Patch("/blocks/{bid}", s.updateBlock)
				r.Delete("/blocks/{bid}", s.deleteBlock)
				r.Post("/blocks/{bid}/select", s.selectBlock)
				r.Post("/blocks/{bid}/gesture", s.applyGesture)
				r.Put("/layout", s.replaceLayout)
				r.Post("/template", s.applyTemplate)
				r.Post("/markup", s.convertToMarkup)
				r.Patch("/meta", s.updateMeta)
				r.Post("/save", s.save)
				r.Post("/undo", s.undo)
				r.Post("/redo", s.redo)
			})
		})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
// and waits for in-flight saves.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.sessions.WaitSaves(shutdownCtx)
	s.logger.Info("stopped")
	return err
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"dur", time.Since(start).Round(time.Microsecond),
			"id", middleware.GetReqID(r.Context()),
		)
	})
}

// ── Responses ──────────────────────────────────────────────

// errBadRequest marks malformed input that never reached a service.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

type errorBody struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrBlockNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSaveInProgress),
		errors.Is(err, domain.ErrSlugTaken),
		errors.Is(err, domain.ErrNothingToUndo),
		errors.Is(err, domain.ErrNothingToRedo):
		return http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrInvalidLayout),
		errors.Is(err, domain.ErrInvalidDocument),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrUnknownTemplate),
		errors.Is(err, domain.ErrUnknownBlockType),
		errors.Is(err, domain.ErrEmptyBlockID),
		errors.Is(err, domain.ErrMarkupContent):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return badRequest("decode body: %v", err)
	}
	return nil
}

// fail logs server-side failures and writes the error response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if statusFor(err) == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeError(w, err)
}
