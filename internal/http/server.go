package http

import (
	"context"
	"log/slog"
	"net/http"

	"natro/internal/model"
)

// SearchService answers ranked queries.
type SearchService interface {
	Search(ctx context.Context, query string, opts model.SearchOptions) (*model.SearchResponse, error)
}

// SuggestService completes partial queries.
type SuggestService interface {
	Suggest(ctx context.Context, partial string, limit int) ([]string, error)
}

// FrontierService seeds URLs into the crawl queue.
type FrontierService interface {
	Enqueue(ctx context.Context, url string, priority, depth int) (*model.FrontierItem, error)
}

// PageService looks up indexed pages by their normalized URL.
type PageService interface {
	GetPageByURL(ctx context.Context, url string) (*model.IndexedPage, error)
}

type Server struct {
	router   *http.ServeMux
	search   SearchService
	suggest  SuggestService
	frontier FrontierService
	pages    PageService
	logger   *slog.Logger
}

func NewServer(search SearchService, suggest SuggestService, frontier FrontierService, pages PageService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	server := &Server{
		router:   http.NewServeMux(),
		search:   search,
		suggest:  suggest,
		frontier: frontier,
		pages:    pages,
		logger:   logger,
	}
	server.router.HandleFunc("/search", server.handleSearch)
	server.router.HandleFunc("/suggestions", server.handleSuggestions)
	server.router.HandleFunc("/pages", server.handlePage)
	server.router.HandleFunc("/crawl/add", server.handleAddURL)
	server.router.HandleFunc("/healthz", server.handleHealth)
	return server
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.router)
}
