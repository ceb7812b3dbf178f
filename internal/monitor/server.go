// Package monitor exposes the read-only observation surface: a JSON
// API over the durable store and a websocket feed of thoughts as they
// are published.
package monitor

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/reverie-ai/reverie/internal/memory"
	"github.com/reverie-ai/reverie/internal/models"
	"github.com/reverie-ai/reverie/internal/observability"
)

const defaultRecentLimit = 50

// Server serves the monitor API. It only reads; all writes go through
// the engines.
type Server struct {
	store memory.Store
	feed  *Feed
	log   *slog.Logger
}

// NewServer builds a monitor over store. feed may be nil, in which
// case the websocket endpoint responds 404.
func NewServer(store memory.Store, feed *Feed) *Server {
	return &Server{
		store: store,
		feed:  feed,
		log:   observability.WithComponent("monitor"),
	}
}

// Router returns the HTTP handler for the monitor surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		api.Get("/agents", s.handleAgents)
		api.Get("/messages/recent", s.handleRecentMessages)
		api.Get("/stats", s.handleStats)
		api.Get("/conversations/{conversationID}", s.handleConversation)
		api.Get("/golden", s.handleGolden)
	})
	if s.feed != nil {
		r.Get("/ws", s.feed.HandleWS)
	}
	return r
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.store.Agents(r.Context())
	if err != nil {
		s.fail(w, "list agents", err)
		return
	}
	if agents == nil {
		agents = []models.Agent{}
	}
	s.respond(w, map[string]any{"agents": agents})
}

func (s *Server) handleRecentMessages(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	msgs, err := s.store.RecentMessages(r.Context(), limit)
	if err != nil {
		s.fail(w, "recent messages", err)
		return
	}
	if msgs == nil {
		msgs = []models.Thought{}
	}
	s.respond(w, map[string]any{"messages": msgs})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.fail(w, "stats", err)
		return
	}
	s.respond(w, stats)
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	msgs, err := s.store.Transcript(r.Context(), id)
	if err != nil {
		s.fail(w, "transcript", err)
		return
	}
	if len(msgs) == 0 {
		s.respondError(w, http.StatusNotFound, "conversation not found")
		return
	}
	s.respond(w, map[string]any{
		"conversation_id": id,
		"messages":        msgs,
	})
}

func (s *Server) handleGolden(w http.ResponseWriter, r *http.Request) {
	golden, err := s.store.Golden(r.Context())
	if err != nil {
		s.fail(w, "golden", err)
		return
	}
	if golden == nil {
		golden = []models.GoldenThought{}
	}
	s.respond(w, map[string]any{"golden": golden})
}

func (s *Server) respond(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("response encode failed", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	s.log.Error("store read failed", "op", op, "error", err)
	s.respondError(w, http.StatusInternalServerError, "storage unavailable")
}
