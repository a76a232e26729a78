package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/m-mizutani/virasto/pkg/usecase/assistant"
)

// AskMode selects how POST /ask answers.
type AskMode string

const (
	AskModeStream AskMode = "stream"
	AskModeSingle AskMode = "single"
)

const DefaultMaxUploadSize int64 = 32 << 20

type Server struct {
	mux *chi.Mux
	uc  *assistant.UseCase

	askMode       AskMode
	maxUploadSize int64
	corsOrigins   []string
}

type Option func(*Server)

func WithAskMode(mode AskMode) Option {
	return func(s *Server) {
		s.askMode = mode
	}
}

func WithMaxUploadSize(size int64) Option {
	return func(s *Server) {
		if size > 0 {
			s.maxUploadSize = size
		}
	}
}

func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// New builds the HTTP handler. Every route is served both at the root and
// under /api.
func New(uc *assistant.UseCase, opts ...Option) *Server {
	s := &Server{
		mux:           chi.NewRouter(),
		uc:            uc,
		askMode:       AskModeStream,
		maxUploadSize: DefaultMaxUploadSize,
		corsOrigins:   []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.Use(requestLogger)
	s.mux.Use(accessLog)
	s.mux.Use(recoverer)
	s.mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	s.mux.Get("/healthz", s.handleHealth)
	s.mux.Group(s.routes)
	s.mux.Route("/api", s.routes)

	return s
}

func (s *Server) routes(r chi.Router) {
	r.Post("/ask", s.handleAsk)
	r.Post("/upload-doc", s.handleUploadDoc)
	r.Get("/checklist/{id}", s.handleGetChecklist)

	r.Post("/check-form", s.handleCheckForm)
	r.Post("/auth", s.handleAuth)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// handleCheckForm is a placeholder kept for client compatibility.
func (s *Server) handleCheckForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Form checking endpoint implemented similar to upload-doc",
	})
}

// handleAuth is a stub. It issues a fixed token and nothing checks it.
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"token": "demo-token",
		"user":  "Student",
	})
}
