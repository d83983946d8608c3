package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/dgallion1/dotdoc/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP side of the remote document store. Each token owns one
// JSON file under the data directory.
type Server struct {
	router chi.Router
	log    *slog.Logger
	cfg    config.Config

	// mu serializes document access; every request loads and rewrites a
	// whole file.
	mu sync.Mutex
}

// NewServer creates and configures the HTTP server.
func NewServer(log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		log: log,
		cfg: cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(BodyLimit(s.cfg.MaxBodyBytes))

		r.With(TokenAuth(s.cfg.Tokens, tokenFromPath)).Get("/{token}", s.handleGet)
		r.With(TokenAuth(s.cfg.Tokens, tokenFromHeader)).Put("/", s.handlePut)
		r.With(TokenAuth(s.cfg.Tokens, tokenFromQuery)).Delete("/", s.handleDelete)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
