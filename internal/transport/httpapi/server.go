// Package httpapi exposes the memory store, chat, and review pipelines over
// HTTP. Callers authenticate with a static bearer token that resolves to an
// owner id; every route operates only on that owner's memories.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/recallion/recallion/internal/config"
	"github.com/recallion/recallion/pkg/log"
)

type Server struct {
	httpServer *http.Server
}

func NewServer(ctx context.Context, cfg *config.AppConfig, h *Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           NewRouter(cfg.AuthTokens, h),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext: func(net.Listener) context.Context {
				// Handlers inherit the process logger, not request deadlines.
				return log.FromCtx(ctx).WithContext(context.Background())
			},
		},
	}
}

// NewRouter builds the route table. Exposed separately from Server so tests
// can mount it without binding a listener.
func NewRouter(tokens map[string]string, h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(tokens))
		r.Post("/memories", h.handleCreateMemory)
		r.Get("/memories", h.handleListMemories)
		r.Patch("/memories/{id}", h.handlePatchMemory)
		r.Delete("/memories/{id}", h.handleDeleteMemory)
		r.Post("/memories/{id}/enrich", h.handleEnrichMemory)
		r.Post("/chat", h.handleChat)
		r.Post("/review", h.handleReview)
	})

	return r
}

func (s *Server) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Str("addr", s.httpServer.Addr).Msg("http api listening")
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.FromCtx(r.Context()).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}
