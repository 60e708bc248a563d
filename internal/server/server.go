// Package server exposes the HTTP control API: article listings, playback
// commands, forced refreshes, narration, and subscription management.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"newswatch/internal/model"
	"newswatch/internal/player"
	"newswatch/internal/store"
)

// refreshTimeout caps how long a forced refresh may hold the request open.
const refreshTimeout = 2 * time.Minute

// Coordinator is the pipeline surface the API reads from and commands.
type Coordinator interface {
	Articles() []model.Article
	Unseen() []model.Article
	CurrentArticle() (model.Article, bool)
	Index() int
	ForceRefresh(ctx context.Context)
}

// Player accepts playback commands.
type Player interface {
	Play()
	Pause()
	Stop()
	Next()
	Previous()
	State() player.State
}

// Narrator speaks the current articles.
type Narrator interface {
	Narrate(ctx context.Context, articles []model.Article) error
}

type Server struct {
	coord    Coordinator
	player   Player
	narrator Narrator // nil when no speaker is configured
	store    store.Store
	log      *slog.Logger
	router   chi.Router
}

func New(coord Coordinator, pl Player, nar Narrator, st store.Store, log *slog.Logger) *Server {
	s := &Server{
		coord:    coord,
		player:   pl,
		narrator: nar,
		store:    st,
		log:      log,
	}
	s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/articles", s.handleArticles)
		r.Get("/articles/unseen", s.handleUnseenArticles)

		r.Get("/player", s.handlePlayerStatus)
		r.Post("/player/play", s.playerAction(s.player.Play))
		r.Post("/player/pause", s.playerAction(s.player.Pause))
		r.Post("/player/stop", s.playerAction(s.player.Stop))
		r.Post("/player/next", s.playerAction(s.player.Next))
		r.Post("/player/previous", s.playerAction(s.player.Previous))

		r.Post("/refresh", s.handleRefresh)
		r.Post("/narrate", s.handleNarrate)

		r.Route("/feeds", func(r chi.Router) {
			r.Get("/", s.handleListFeeds)
			r.Post("/", s.handleCreateFeed)
			r.Patch("/{feedID}", s.handleUpdateFeed)
			r.Delete("/{feedID}", s.handleDeleteFeed)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleArticles(w http.ResponseWriter, _ *http.Request) {
	articles := s.coord.Articles()
	s.respondJSON(w, http.StatusOK, map[string]any{
		"articles": articles,
		"count":    len(articles),
	})
}

func (s *Server) handleUnseenArticles(w http.ResponseWriter, _ *http.Request) {
	articles := s.coord.Unseen()
	s.respondJSON(w, http.StatusOK, map[string]any{
		"articles": articles,
		"count":    len(articles),
	})
}

type playerStatus struct {
	State   player.State   `json:"state"`
	Index   int            `json:"index"`
	Total   int            `json:"total"`
	Article *model.Article `json:"article,omitempty"`
}

func (s *Server) playerStatus() playerStatus {
	status := playerStatus{
		State: s.player.State(),
		Index: s.coord.Index(),
		Total: len(s.coord.Articles()),
	}
	if article, ok := s.coord.CurrentArticle(); ok {
		status.Article = &article
	}
	return status
}

func (s *Server) handlePlayerStatus(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, s.playerStatus())
}

func (s *Server) playerAction(action func()) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		action()
		s.respondJSON(w, http.StatusOK, s.playerStatus())
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), refreshTimeout)
	defer cancel()

	s.coord.ForceRefresh(ctx)
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"articles": len(s.coord.Articles()),
	})
}

func (s *Server) handleNarrate(w http.ResponseWriter, _ *http.Request) {
	if s.narrator == nil {
		http.Error(w, "narration not configured", http.StatusServiceUnavailable)
		return
	}
	articles := s.coord.Articles()
	if len(articles) == 0 {
		s.respondJSON(w, http.StatusOK, map[string]any{"status": "idle", "articles": 0})
		return
	}

	// The bulletin outlives the request; errors surface in the log.
	go func() {
		if err := s.narrator.Narrate(context.Background(), articles); err != nil {
			s.log.Error("narrate bulletin", "error", err)
		}
	}()
	s.respondJSON(w, http.StatusAccepted, map[string]any{
		"status":   "narrating",
		"articles": len(articles),
	})
}

func (s *Server) handleListFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := s.store.ListFeeds(r.Context())
	if err != nil {
		s.log.Error("list feeds", "error", err)
		http.Error(w, "list feeds", http.StatusInternalServerError)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"feeds": feeds, "count": len(feeds)})
}

type createFeedRequest struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	MaxEntries int    `json:"max_entries"`
}

func (s *Server) handleCreateFeed(w http.ResponseWriter, r *http.Request) {
	var req createFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.URL == "" {
		http.Error(w, "name and url are required", http.StatusBadRequest)
		return
	}
	if req.MaxEntries < 0 {
		http.Error(w, "max_entries must not be negative", http.StatusBadRequest)
		return
	}

	feed := model.FeedSource{
		Name:       req.Name,
		URL:        req.URL,
		MaxEntries: req.MaxEntries,
		IsActive:   true,
	}
	if err := s.store.CreateFeed(r.Context(), &feed); err != nil {
		s.log.Error("create feed", "url", req.URL, "error", err)
		http.Error(w, "create feed", http.StatusInternalServerError)
		return
	}

	// Sources are loaded once at startup; the new subscription joins the
	// rotation on the next start.
	s.log.Info("feed subscription added", "feed", feed.Name, "id", feed.ID)
	s.respondJSON(w, http.StatusCreated, feed)
}

type updateFeedRequest struct {
	IsActive *bool `json:"is_active"`
}

func (s *Server) handleUpdateFeed(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "feedID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid feed id", http.StatusBadRequest)
		return
	}

	var req updateFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.IsActive == nil {
		http.Error(w, "is_active is required", http.StatusBadRequest)
		return
	}

	if err := s.store.SetFeedActive(r.Context(), id, *req.IsActive); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "feed not found", http.StatusNotFound)
			return
		}
		s.log.Error("update feed", "id", id, "error", err)
		http.Error(w, "update feed", http.StatusInternalServerError)
		return
	}

	feed, err := s.store.GetFeed(r.Context(), id)
	if err != nil {
		s.log.Error("reload feed", "id", id, "error", err)
		http.Error(w, "update feed", http.StatusInternalServerError)
		return
	}
	s.respondJSON(w, http.StatusOK, feed)
}

func (s *Server) handleDeleteFeed(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "feedID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid feed id", http.StatusBadRequest)
		return
	}

	if err := s.store.DeleteFeed(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "feed not found", http.StatusNotFound)
			return
		}
		s.log.Error("delete feed", "id", id, "error", err)
		http.Error(w, "delete feed", http.StatusInternalServerError)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", "error", err)
	}
}
