package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/orian/sqltelligence/models"
	"github.com/orian/sqltelligence/search"
)

// Server handles HTTP requests and coordinates between the parser,
// ClickHouse and the search history.
type Server struct {
	storage   models.Storage
	chConn    driver.Conn
	stats     *StatsExecutor
	searches  *SearchService
	limiter   *RateLimiter
	staticDir string
}

// NewServer wires a Server. storage may be nil to disable the history and
// chConn may be nil when ClickHouse is not available.
func NewServer(storage models.Storage, chConn driver.Conn, cfg *Config) *Server {
	s := &Server{
		storage:   storage,
		chConn:    chConn,
		searches:  NewSearchService(storage, search.NewSmartSearch(nil)),
		limiter:   NewRateLimiter(cfg.StatsRateLimit, cfg.StatsRateBurst),
		staticDir: cfg.StaticDir,
	}
	if chConn != nil {
		s.stats = NewStatsExecutor(chConn, cfg.StatsTable, cfg.MaxExecutionTimeMs())
	}
	return s
}

// Routes builds the chi router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Route("/api", func(r chi.Router) {
		// Smart search
		r.Post("/search/smart", s.handleSmartSearch)
		r.Get("/search/params", s.handleSearchParams)
		r.Get("/search/suggestions", s.handleSuggestions)

		// Search history
		r.Get("/search/history", s.handleGetHistory)
		r.Get("/search/history/by-tag", s.handleGetSearchesByTag)
		r.Route("/search/history/{searchId}", func(r chi.Router) {
			r.Get("/", s.handleGetSearch)
			r.Get("/tags", s.handleGetSearchTags)
			r.Post("/tags", s.handleAddTag)
			r.Post("/star", s.handleToggleStar)
		})
		r.Delete("/tags/{tagId}", s.handleDeleteTag)

		// Statistics
		r.With(s.limiter.Middleware).Get("/stats", s.handleStats)
		r.Get("/server/ping", s.handlePing)
	})

	if s.staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.staticDir)))
	}

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func (s *Server) handleSmartSearch(w http.ResponseWriter, r *http.Request) {
	var req search.SmartSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, s.searches.Search(req.Query))
}

func (s *Server) handleSearchParams(w http.ResponseWriter, r *http.Request) {
	resp := s.searches.smartSearch.Execute(search.SmartSearchRequest{Query: r.URL.Query().Get("query")})
	params := search.FiltersToURLParams(resp.Filters)

	writeJSON(w, map[string]interface{}{
		"filters":    resp.Filters,
		"confidence": resp.Confidence,
		"params":     params,
		"encoded":    search.EncodeURLParams(params),
	})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, models.DefaultSuggestions)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		http.Error(w, "clickhouse is not configured", http.StatusServiceUnavailable)
		return
	}

	filters := search.URLParamsToFilters(r.URL.Query())
	logComment := buildLogComment(hashQuery(r.URL.RawQuery))

	result, err := s.stats.Execute(r.Context(), filters, logComment)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"filters": filters,
		"result":  result,
	})
}

// requireHistory writes an error and returns false when the history is disabled.
func (s *Server) requireHistory(w http.ResponseWriter) bool {
	if s.storage == nil {
		http.Error(w, "search history is disabled", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}

	limit := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	history, err := s.storage.ListSearches(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, history)
}

func (s *Server) handleGetSearch(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	searchID := chi.URLParam(r, "searchId")

	saved, exists := s.storage.GetSearch(searchID)
	if !exists {
		http.Error(w, "search not found", http.StatusNotFound)
		return
	}

	tags, err := s.storage.GetSearchTags(searchID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	saved.Tags = tags

	writeJSON(w, saved)
}

func (s *Server) handleGetSearchTags(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	searchID := chi.URLParam(r, "searchId")

	tags, err := s.storage.GetSearchTags(searchID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, tags)
}

func (s *Server) handleAddTag(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	searchID := chi.URLParam(r, "searchId")

	var req struct {
		Tag string `json:"tag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tag, err := s.storage.AddTag(searchID, req.Tag)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, models.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, tag)
}

func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	tagID := chi.URLParam(r, "tagId")

	if err := s.storage.RemoveTag(tagID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleStar(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	searchID := chi.URLParam(r, "searchId")

	isStarred, err := s.storage.ToggleStarred(searchID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, models.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, map[string]bool{"starred": isStarred})
}

func (s *Server) handleGetSearchesByTag(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}

	tag := r.URL.Query().Get("tag")
	if tag == "" {
		http.Error(w, "tag required", http.StatusBadRequest)
		return
	}

	searches, err := s.storage.GetSearchesByTag(tag)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, searches)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"timestamp": time.Now().Unix(),
	}

	if s.chConn == nil {
		response["connected"] = false
		response["error"] = "clickhouse is not configured"
		writeJSON(w, response)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := s.chConn.Ping(ctx)
	response["connected"] = err == nil
	if err != nil {
		response["error"] = err.Error()
		log.Printf("ClickHouse ping failed: %v", err)
	}

	writeJSON(w, response)
}
