package crawl

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"natro/internal/config"
	"natro/internal/model"
)

type fakeFrontier struct {
	mu        sync.Mutex
	items     []model.FrontierItem
	enqueued  []string
	completed []string
	failed    map[string]string
	permanent map[string]string
}

func newFakeFrontier(items ...model.FrontierItem) *fakeFrontier {
	return &fakeFrontier{
		items:     items,
		failed:    map[string]string{},
		permanent: map[string]string{},
	}
}

func (f *fakeFrontier) Enqueue(ctx context.Context, url string, priority, depth int) (*model.FrontierItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, url)
	return &model.FrontierItem{ID: url, URL: url, Priority: priority, Depth: depth}, nil
}

func (f *fakeFrontier) ClaimBatch(ctx context.Context, limit int) ([]model.FrontierItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.items) {
		limit = len(f.items)
	}
	batch := f.items[:limit]
	f.items = f.items[limit:]
	return batch, nil
}

func (f *fakeFrontier) Complete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeFrontier) Fail(ctx context.Context, id, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id] = message
	return nil
}

func (f *fakeFrontier) FailPermanent(ctx context.Context, id, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permanent[id] = message
	return nil
}

type fakePageWriter struct {
	mu         sync.Mutex
	pages      []*model.IndexedPage
	keywords   map[string][]model.Keyword
	links      map[string][]model.ParsedLink
	upsertErrs int
}

func newFakePageWriter() *fakePageWriter {
	return &fakePageWriter{
		keywords: map[string][]model.Keyword{},
		links:    map[string][]model.ParsedLink{},
	}
}

func (w *fakePageWriter) UpsertPage(ctx context.Context, page *model.IndexedPage) (*model.IndexedPage, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.upsertErrs > 0 {
		w.upsertErrs--
		return nil, errors.New("connection reset")
	}
	saved := *page
	saved.ID = page.URL
	w.pages = append(w.pages, &saved)
	return &saved, nil
}

func (w *fakePageWriter) ReplaceKeywords(ctx context.Context, pageID string, keywords []model.Keyword) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.keywords[pageID] = keywords
	return nil
}

func (w *fakePageWriter) InsertLinks(ctx context.Context, pageID string, links []model.ParsedLink) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.links[pageID] = links
	return nil
}

func (w *fakePageWriter) SaveInsights(ctx context.Context, pageID string, analysis *model.ContentAnalysis) error {
	return nil
}

func testConfig() config.Config {
	return config.Config{
		UserAgent:         "NatroBot/1.0 (test)",
		FetchTimeout:      2 * time.Second,
		CrawlDelay:        time.Millisecond,
		MaxDepth:          3,
		MaxPagesPerDomain: 100,
		BatchSize:         10,
		Workers:           2,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRunOnce_IndexesAndReseeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html lang="en"><head><title>Home</title></head>
			<body><p>welcome to the test site</p>
			<a href="/a">A</a><a href="/b">B</a>
			<a href="https://elsewhere.example/x">Out</a></body></html>`))
	}))
	defer srv.Close()

	frontier := newFakeFrontier(model.FrontierItem{ID: "item-1", URL: srv.URL, Depth: 0})
	pages := newFakePageWriter()
	cfg := testConfig()
	orch := NewOrchestrator(frontier, pages, NewFetcher(cfg.FetchTimeout, cfg.UserAgent, nil, nil), nil, cfg, discardLogger())

	n, err := orch.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("indexed = %d, want 1", n)
	}
	if len(frontier.completed) != 1 || frontier.completed[0] != "item-1" {
		t.Errorf("completed = %v", frontier.completed)
	}
	if len(pages.pages) != 1 {
		t.Fatalf("pages saved = %d, want 1", len(pages.pages))
	}
	page := pages.pages[0]
	if page.Title != "Home" {
		t.Errorf("title = %q", page.Title)
	}
	if page.WordCount == 0 {
		t.Error("word count not set")
	}
	// Internal links come back at depth+1; the external one does not.
	if len(frontier.enqueued) != 2 {
		t.Errorf("enqueued = %v, want the two internal links", frontier.enqueued)
	}
}

func TestRunOnce_EmptyFrontier(t *testing.T) {
	frontier := newFakeFrontier()
	cfg := testConfig()
	orch := NewOrchestrator(frontier, newFakePageWriter(), NewFetcher(cfg.FetchTimeout, cfg.UserAgent, nil, nil), nil, cfg, discardLogger())

	n, err := orch.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("indexed = %d, want 0", n)
	}
}

func TestProcessItem_FetchFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	frontier := newFakeFrontier(model.FrontierItem{ID: "item-1", URL: srv.URL})
	cfg := testConfig()
	orch := NewOrchestrator(frontier, newFakePageWriter(), NewFetcher(cfg.FetchTimeout, cfg.UserAgent, nil, nil), nil, cfg, discardLogger())

	if n, _ := orch.RunOnce(context.Background()); n != 0 {
		t.Fatalf("indexed = %d, want 0", n)
	}
	if _, ok := frontier.failed["item-1"]; !ok {
		t.Errorf("expected retryable failure, got failed=%v permanent=%v", frontier.failed, frontier.permanent)
	}
	if _, ok := frontier.permanent["item-1"]; ok {
		t.Error("fetch failure must not be permanent")
	}
}

func TestProcessItem_PolicyFailuresArePermanent(t *testing.T) {
	frontier := newFakeFrontier(
		model.FrontierItem{ID: "bad-url", URL: "not a url"},
		model.FrontierItem{ID: "blocked", URL: "https://www.facebook.com/x"},
	)
	cfg := testConfig()
	orch := NewOrchestrator(frontier, newFakePageWriter(),
		NewFetcher(cfg.FetchTimeout, cfg.UserAgent, nil, []string{"facebook.com"}), nil, cfg, discardLogger())

	if n, _ := orch.RunOnce(context.Background()); n != 0 {
		t.Fatalf("indexed = %d, want 0", n)
	}
	if frontier.permanent["bad-url"] != "invalid URL" {
		t.Errorf("bad-url: %v", frontier.permanent)
	}
	if frontier.permanent["blocked"] != "URL not allowed" {
		t.Errorf("blocked: %v", frontier.permanent)
	}
	if len(frontier.failed) != 0 {
		t.Errorf("policy failures must not be retryable: %v", frontier.failed)
	}
}

func TestReseed_StopsAtMaxDepth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Deep</title></head>
			<body><p>bottom of the tree</p><a href="/deeper">More</a></body></html>`))
	}))
	defer srv.Close()

	cfg := testConfig()
	frontier := newFakeFrontier(model.FrontierItem{ID: "item-1", URL: srv.URL, Depth: cfg.MaxDepth})
	orch := NewOrchestrator(frontier, newFakePageWriter(), NewFetcher(cfg.FetchTimeout, cfg.UserAgent, nil, nil), nil, cfg, discardLogger())

	if n, _ := orch.RunOnce(context.Background()); n != 1 {
		t.Fatal("page at max depth should still be indexed")
	}
	if len(frontier.enqueued) != 0 {
		t.Errorf("links past max depth enqueued: %v", frontier.enqueued)
	}
}

func TestProcessItem_DomainCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>P</title></head><body><p>text</p></body></html>`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxPagesPerDomain = 1
	frontier := newFakeFrontier(
		model.FrontierItem{ID: "first", URL: srv.URL + "/one"},
		model.FrontierItem{ID: "second", URL: srv.URL + "/two"},
	)
	cfg.Workers = 1
	orch := NewOrchestrator(frontier, newFakePageWriter(), NewFetcher(cfg.FetchTimeout, cfg.UserAgent, nil, nil), nil, cfg, discardLogger())

	n, err := orch.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("indexed = %d, want 1", n)
	}
	if frontier.permanent["second"] != "domain page limit reached" {
		t.Errorf("second item: failed=%v permanent=%v", frontier.failed, frontier.permanent)
	}
}

func TestProcessItem_FailedSaveFreesDomainSlot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>P</title></head><body><p>text</p></body></html>`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxPagesPerDomain = 1
	cfg.Workers = 1
	frontier := newFakeFrontier(
		model.FrontierItem{ID: "first", URL: srv.URL + "/one"},
		model.FrontierItem{ID: "second", URL: srv.URL + "/two"},
	)
	pages := newFakePageWriter()
	pages.upsertErrs = 1
	orch := NewOrchestrator(frontier, pages, NewFetcher(cfg.FetchTimeout, cfg.UserAgent, nil, nil), nil, cfg, discardLogger())

	n, err := orch.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("indexed = %d, want 1", n)
	}
	if frontier.failed["first"] != "save failed" {
		t.Errorf("first item: failed=%v permanent=%v", frontier.failed, frontier.permanent)
	}
	// The first item's save failure must hand its slot back: the second
	// same-domain item still fits under the cap of one.
	if msg, ok := frontier.permanent["second"]; ok {
		t.Errorf("second item rejected: %q", msg)
	}
	if len(pages.pages) != 1 {
		t.Errorf("pages saved = %d, want 1", len(pages.pages))
	}
}

func TestProcessItem_SameDomainFetchesAreSpaced(t *testing.T) {
	var mu sync.Mutex
	var hits []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, time.Now())
		mu.Unlock()
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>P</title></head><body><p>text</p></body></html>`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.CrawlDelay = 200 * time.Millisecond
	cfg.Workers = 2
	frontier := newFakeFrontier(
		model.FrontierItem{ID: "first", URL: srv.URL + "/one"},
		model.FrontierItem{ID: "second", URL: srv.URL + "/two"},
	)
	orch := NewOrchestrator(frontier, newFakePageWriter(), NewFetcher(cfg.FetchTimeout, cfg.UserAgent, nil, nil), nil, cfg, discardLogger())

	n, err := orch.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("indexed = %d, want 2", n)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(hits) != 2 {
		t.Fatalf("fetches = %d, want 2", len(hits))
	}
	if gap := hits[1].Sub(hits[0]); gap < cfg.CrawlDelay {
		t.Errorf("same-domain fetches %v apart, want at least %v", gap, cfg.CrawlDelay)
	}
}

func TestSeed(t *testing.T) {
	frontier := newFakeFrontier()
	cfg := testConfig()
	orch := NewOrchestrator(frontier, newFakePageWriter(), NewFetcher(cfg.FetchTimeout, cfg.UserAgent, nil, nil), nil, cfg, discardLogger())

	err := orch.Seed(context.Background(), []string{"https://example.com/start#top", "not a url"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frontier.enqueued) != 1 || frontier.enqueued[0] != "https://example.com/start" {
		t.Errorf("enqueued = %v", frontier.enqueued)
	}
}
