package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/hivemind/internal/ingest"
	"github.com/MikeSquared-Agency/hivemind/internal/memory"
	"github.com/MikeSquared-Agency/hivemind/internal/pairing"
)

// Ingester runs ingests. *ingest.Runner satisfies it.
type Ingester interface {
	Run(ctx context.Context, req ingest.Request) (*ingest.Summary, error)
	RunText(ctx context.Context, in pairing.TextInput) (string, error)
}

type Server struct {
	router   *chi.Mux
	port     int
	http     *http.Server
	ingester Ingester
	sink     memory.Sink
	backend  string
	logger   *slog.Logger
}

func NewServer(port int, apiToken, backend string, ing Ingester, sink memory.Sink, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		ingester: ing,
		sink:     sink,
		backend:  backend,
		logger:   logger,
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	router.Get("/health", s.health)
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Get("/hivemind/status", s.status)
		r.Post("/ingest", s.ingest)
		r.Post("/memories", s.addMemory)
		r.Get("/recall", s.recall)
	})

	return s
}

// Start serves until Shutdown, when it returns http.ErrServerClosed.
func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	body := map[string]string{
		"agent":  "hivemind",
		"sink":   s.backend,
		"status": "ok",
	}
	if err := s.sink.Ping(ctx); err != nil {
		body["status"] = "degraded"
		body["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeError(w http.ResponseWriter, status int, kind string, err error) {
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind})
}
