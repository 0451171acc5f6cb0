// Package httpapi exposes the translation service over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MimeLyc/doc-translator/internal/jobs"
	"github.com/MimeLyc/doc-translator/internal/service"
)

type Server struct {
	svc   *service.Service
	queue *jobs.Queue

	uiEnabled   bool
	uiStaticDir string

	streamInterval time.Duration

	router chi.Router
	server *http.Server
}

type Option func(*Server)

func WithUI(staticDir string, enabled bool) Option {
	return func(s *Server) {
		s.uiStaticDir = staticDir
		s.uiEnabled = enabled
	}
}

// WithStreamInterval sets how often the job stream pushes a snapshot.
func WithStreamInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.streamInterval = d
		}
	}
}

func NewServer(svc *service.Service, queue *jobs.Queue, opts ...Option) *Server {
	s := &Server{
		svc:            svc,
		queue:          queue,
		uiEnabled:      false,
		streamInterval: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/parse", s.handleParse)
		r.Post("/apply", s.handleApply)
		r.Post("/translate", s.handleTranslate)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.handleListJobs)
			r.Post("/", s.handleCreateJob)
			r.Get("/stream", s.handleJobStream)
			r.Get("/{id}", s.handleGetJob)
		})

		r.Route("/translations", func(r chi.Router) {
			r.Get("/", s.handleListTranslations)
			r.Delete("/", s.handleDeleteTranslations)
			r.Delete("/all", s.handleDeleteAllTranslations)
			r.Get("/export", s.handleExport)
			r.Post("/import", s.handleImport)
			r.Put("/{id}", s.handleUpdateTranslation)
			r.Get("/{id}/history", s.handleTranslationHistory)
		})

		r.Delete("/files/{id}", s.handleDeleteFile)
		r.Get("/stats", s.handleStats)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)
	})

	r.NotFound(s.handleStatic)
	s.router = r
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if !s.uiEnabled || s.uiStaticDir == "" || strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	rel := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	indexPath := filepath.Join(s.uiStaticDir, "index.html")

	if rel == "" || !strings.Contains(filepath.Base(rel), ".") {
		http.ServeFile(w, r, indexPath)
		return
	}

	filePath := filepath.Join(s.uiStaticDir, rel)
	if _, err := os.Stat(filePath); err != nil {
		// SPA fallback: non-existing static file path returns index
		http.ServeFile(w, r, indexPath)
		return
	}
	http.ServeFile(w, r, filePath)
}
