package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gameshub/internal/eventloop"
	"gameshub/internal/game"
	"gameshub/internal/hub"
	"gameshub/internal/storage"
	"gameshub/internal/surface"
)

const maxActionBody = 64 << 10

// Server is the HTTP server.
type Server struct {
	router chi.Router
	hub    *hub.Hub
	webFS  fs.FS
	log    *slog.Logger
}

// New creates a server with all routes.
// webFS should be the "web" subdirectory of the embedded filesystem.
func New(h *hub.Hub, webFS fs.FS, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		router: chi.NewRouter(),
		hub:    h,
		webFS:  webFS,
		log:    log,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Heartbeat("/health"))

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Get("/games", s.handleListGames)
			r.Post("/games/{id}/load", s.handleLoadGame)
			r.Delete("/games/active", s.handleUnloadGame)
			r.Get("/view", s.handleView)
			r.Post("/actions/{action}", s.handleAction)
			r.Get("/history", s.handleHistory)
		})
		r.Get("/ws", s.handleWebSocket)
	})

	// Static files
	r.Handle("/*", http.FileServer(http.FS(s.webFS)))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	c, err := s.hub.Games(r.Context())
	if err != nil {
		s.writeHubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleLoadGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.hub.Load(r.Context(), id); err != nil {
		s.writeHubError(w, err)
		return
	}
	c, err := s.hub.Games(r.Context())
	if err != nil {
		s.writeHubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUnloadGame(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.Unload(r.Context()); err != nil {
		s.writeHubError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	v, err := s.hub.View(r.Context())
	if err != nil {
		s.writeHubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxActionBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var payload json.RawMessage
	if len(body) > 0 {
		if !json.Valid(body) {
			writeError(w, http.StatusBadRequest, "payload must be JSON")
			return
		}
		payload = body
	}
	if err := s.hub.Dispatch(r.Context(), action, payload); err != nil {
		s.writeHubError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	rows, err := s.hub.History(r.Context(), limit)
	if err != nil {
		s.log.Error("list history", "err", err)
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	if rows == nil {
		rows = []storage.EventRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// writeHubError maps hub errors onto HTTP statuses.
func (s *Server) writeHubError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrInitialization):
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, surface.ErrNoHandler):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, eventloop.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "shutting down")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "hub busy")
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		// Handlers reject malformed payloads with their own errors.
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// requestLogger logs one line per request with slog.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}
