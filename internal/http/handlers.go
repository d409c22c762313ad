package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"natro/internal/crawl"
	"natro/internal/model"
)

const maxQueryLength = 500

type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	params := r.URL.Query()
	query := params.Get("q")
	if query == "" {
		query = params.Get("query")
	}
	if query == "" {
		writeError(w, http.StatusBadRequest, "Search query is required")
		return
	}
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "Search query too long")
		return
	}

	opts := model.SearchOptions{
		Page:        intParam(params, "page", 1),
		PerPage:     intParam(params, "per_page", 20),
		Language:    params.Get("language"),
		Domain:      params.Get("domain"),
		ContentType: model.ContentType(params.Get("type")),
	}

	response, err := s.search.Search(r.Context(), query, opts)
	if err != nil {
		s.logger.Error("search failed", "query", query, "err", err)
		writeError(w, http.StatusInternalServerError, "Search failed")
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	params := r.URL.Query()
	query := params.Get("q")
	if query == "" {
		query = params.Get("query")
	}
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query parameter is required")
		return
	}

	limit := intParam(params, "limit", 5)
	if limit > 10 {
		limit = 10
	}

	suggestions, err := s.suggest.Suggest(r.Context(), query, limit)
	if err != nil {
		s.logger.Warn("suggestions failed", "query", query, "err", err)
		suggestions = nil
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":       query,
		"suggestions": suggestions,
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	rawurl := r.URL.Query().Get("url")
	if rawurl == "" {
		writeError(w, http.StatusBadRequest, "url parameter is required")
		return
	}
	normalized, ok := crawl.NormalizeURL(rawurl, "")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid URL format")
		return
	}

	page, err := s.pages.GetPageByURL(r.Context(), normalized)
	if err != nil {
		s.logger.Error("page lookup failed", "url", normalized, "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if page == nil {
		writeError(w, http.StatusNotFound, "Page not indexed")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type addURLRequest struct {
	URL      string `json:"url"`
	Priority *int   `json:"priority"`
	Depth    int    `json:"depth"`
}

func (s *Server) handleAddURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req addURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}
	normalized, ok := crawl.NormalizeURL(req.URL, "")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid URL format")
		return
	}

	priority := 5
	if req.Priority != nil {
		priority = *req.Priority
	}

	item, err := s.frontier.Enqueue(r.Context(), normalized, priority, req.Depth)
	if err != nil {
		s.logger.Error("enqueue failed", "url", req.URL, "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func intParam(params url.Values, name string, fallback int) int {
	v := params.Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
