package crawl

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"natro/internal/config"
	"natro/internal/model"
)

// reseedLimit caps how many internal links a single page feeds back into the
// frontier.
const reseedLimit = 20

const reseedPriority = 5

// Frontier is the durable work queue the orchestrator drains and reseeds.
type Frontier interface {
	Enqueue(ctx context.Context, url string, priority, depth int) (*model.FrontierItem, error)
	ClaimBatch(ctx context.Context, limit int) ([]model.FrontierItem, error)
	Complete(ctx context.Context, id string) error
	Fail(ctx context.Context, id, message string) error
	FailPermanent(ctx context.Context, id, message string) error
}

// PageWriter persists crawl output.
type PageWriter interface {
	UpsertPage(ctx context.Context, page *model.IndexedPage) (*model.IndexedPage, error)
	ReplaceKeywords(ctx context.Context, pageID string, keywords []model.Keyword) error
	InsertLinks(ctx context.Context, pageID string, links []model.ParsedLink) error
	SaveInsights(ctx context.Context, pageID string, analysis *model.ContentAnalysis) error
}

// Orchestrator drives the claim -> fetch -> parse -> index -> persist ->
// reseed pipeline. Per-domain page counts and politeness limiters are
// process-local; a multi-instance deployment would need them in shared
// storage.
type Orchestrator struct {
	frontier   Frontier
	pages      PageWriter
	fetcher    *Fetcher
	classifier Classifier
	logger     *slog.Logger

	batchSize         int
	workers           int
	maxDepth          int
	maxPagesPerDomain int
	crawlDelay        time.Duration
	pollDelay         time.Duration
	idleBackoff       time.Duration

	mu           sync.Mutex
	domainCounts map[string]int
	limiters     map[string]*rate.Limiter
}

func NewOrchestrator(frontier Frontier, pages PageWriter, fetcher *Fetcher, classifier Classifier, cfg config.Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		frontier:          frontier,
		pages:             pages,
		fetcher:           fetcher,
		classifier:        classifier,
		logger:            logger,
		batchSize:         cfg.BatchSize,
		workers:           cfg.Workers,
		maxDepth:          cfg.MaxDepth,
		maxPagesPerDomain: cfg.MaxPagesPerDomain,
		crawlDelay:        cfg.CrawlDelay,
		pollDelay:         cfg.PollDelay,
		idleBackoff:       cfg.IdleBackoff,
		domainCounts:      make(map[string]int),
		limiters:          make(map[string]*rate.Limiter),
	}
}

// Seed normalizes and enqueues starting URLs at top priority.
func (o *Orchestrator) Seed(ctx context.Context, urls []string) error {
	for _, raw := range urls {
		normalized, ok := NormalizeURL(raw, "")
		if !ok {
			o.logger.Warn("skipping invalid seed URL", "url", raw)
			continue
		}
		if _, err := o.frontier.Enqueue(ctx, normalized, 10, 0); err != nil {
			return err
		}
		o.logger.Info("seeded URL", "url", normalized)
	}
	return nil
}

// Run polls the frontier until ctx is cancelled. Batch failures are logged
// and backed off, never propagated.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("crawler started",
		"batch_size", o.batchSize, "workers", o.workers,
		"max_depth", o.maxDepth, "crawl_delay", o.crawlDelay)

	for {
		if ctx.Err() != nil {
			o.logger.Info("crawler stopped")
			return nil
		}

		processed, err := o.RunOnce(ctx)
		switch {
		case err != nil:
			o.logger.Error("batch failed", "err", err)
			sleepCtx(ctx, o.pollDelay)
		case processed == 0:
			o.logger.Info("frontier empty, backing off")
			sleepCtx(ctx, o.idleBackoff)
		default:
			sleepCtx(ctx, o.pollDelay)
		}
	}
}

// RunOnce claims and processes a single batch, returning the number of
// successfully indexed pages. Exposed so one bounded batch can run
// deterministically.
func (o *Orchestrator) RunOnce(ctx context.Context) (int, error) {
	items, err := o.frontier.ClaimBatch(ctx, o.batchSize)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	var succeeded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for _, item := range items {
		g.Go(func() error {
			if o.processItem(gctx, item) {
				succeeded.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	o.logger.Info("batch complete", "claimed", len(items), "indexed", succeeded.Load())
	return int(succeeded.Load()), nil
}

// processItem runs the per-item state machine. Every failure path ends in a
// frontier transition; nothing escapes to the batch loop.
func (o *Orchestrator) processItem(ctx context.Context, item model.FrontierItem) bool {
	normalized, ok := NormalizeURL(item.URL, "")
	if !ok {
		o.failPermanent(ctx, item, "invalid URL")
		return false
	}
	if !o.fetcher.IsAllowed(normalized) {
		o.failPermanent(ctx, item, "URL not allowed")
		return false
	}

	u, err := url.Parse(normalized)
	if err != nil {
		o.failPermanent(ctx, item, "invalid URL")
		return false
	}
	domain := u.Hostname()

	// Reserve the domain slot up front so concurrent workers cannot
	// overshoot the cap; released again unless the page actually lands in
	// the index.
	if !o.reserveDomainSlot(domain) {
		o.failPermanent(ctx, item, "domain page limit reached")
		return false
	}
	indexed := false
	defer func() {
		if !indexed {
			o.releaseDomainSlot(domain)
		}
	}()

	if err := o.limiterFor(domain).Wait(ctx); err != nil {
		o.fail(ctx, item, "crawl cancelled")
		return false
	}

	html, err := o.fetcher.Fetch(ctx, normalized)
	if err != nil {
		o.logger.Warn("fetch failed", "url", normalized, "err", err)
		o.fail(ctx, item, err.Error())
		return false
	}

	parsed, err := Parse(html, normalized)
	if err != nil {
		o.logger.Warn("parse failed", "url", normalized, "err", err)
		o.fail(ctx, item, "parse failed: "+err.Error())
		return false
	}

	contentType := DetectContentType(html, normalized)
	media := ExtractMediaMetadata(html, contentType)
	keywords := ExtractKeywords(parsed.Content, parsed.Title, parsed.Description)
	wordCount := WordCount(parsed.Content)

	var analysis *model.ContentAnalysis
	if o.classifier != nil && parsed.Title != "" && parsed.Content != "" {
		analysis, err = o.classifier.Analyze(ctx, parsed.Title, parsed.Content, normalized)
		if err != nil {
			o.logger.Warn("enrichment failed, indexing without it", "url", normalized, "err", err)
			analysis = nil
		}
	}

	page := &model.IndexedPage{
		URL:           normalized,
		Title:         parsed.Title,
		Description:   parsed.Description,
		Content:       parsed.Content,
		Language:      parsed.Language,
		FaviconURL:    parsed.Favicon,
		Domain:        domain,
		Path:          u.Path,
		WordCount:     wordCount,
		ContentType:   contentType,
		PublishedDate: media.PublishedDate,
		Author:        media.Author,
		ImageURL:      media.ImageURL,
		VideoURL:      media.VideoURL,
		VideoDuration: media.VideoDuration,
		ImageWidth:    media.ImageWidth,
		ImageHeight:   media.ImageHeight,
		ThumbnailURL:  media.ThumbnailURL,
	}
	if analysis != nil {
		page.Category = analysis.Category
		page.AISummary = analysis.Summary
		page.AITags = analysis.Tags
	}

	saved, err := o.pages.UpsertPage(ctx, page)
	if err != nil {
		o.logger.Error("save failed", "url", normalized, "err", err)
		o.fail(ctx, item, "save failed")
		return false
	}
	if err := o.pages.ReplaceKeywords(ctx, saved.ID, keywords); err != nil {
		o.logger.Error("keyword save failed", "url", normalized, "err", err)
		o.fail(ctx, item, "save failed")
		return false
	}
	if err := o.pages.InsertLinks(ctx, saved.ID, parsed.Links); err != nil {
		o.logger.Error("link save failed", "url", normalized, "err", err)
		o.fail(ctx, item, "save failed")
		return false
	}
	indexed = true
	if analysis != nil {
		if err := o.pages.SaveInsights(ctx, saved.ID, analysis); err != nil {
			o.logger.Warn("insight save failed", "url", normalized, "err", err)
		}
	}

	o.reseed(ctx, item, parsed.Links)

	if err := o.frontier.Complete(ctx, item.ID); err != nil {
		o.logger.Error("complete failed", "id", item.ID, "err", err)
		return false
	}
	o.logger.Info("indexed", "url", normalized, "type", contentType, "words", wordCount)
	return true
}

// reseed enqueues newly discovered internal links one level deeper. External
// links are recorded on the page but never auto-enqueued.
func (o *Orchestrator) reseed(ctx context.Context, item model.FrontierItem, links []model.ParsedLink) {
	if item.Depth >= o.maxDepth {
		return
	}
	enqueued := 0
	for _, link := range links {
		if link.Type != model.LinkInternal {
			continue
		}
		if enqueued == reseedLimit {
			break
		}
		normalized, ok := NormalizeURL(link.URL, "")
		if !ok {
			continue
		}
		if _, err := o.frontier.Enqueue(ctx, normalized, reseedPriority, item.Depth+1); err != nil {
			o.logger.Warn("enqueue failed", "url", normalized, "err", err)
			continue
		}
		enqueued++
	}
}

func (o *Orchestrator) reserveDomainSlot(domain string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.domainCounts[domain] >= o.maxPagesPerDomain {
		return false
	}
	o.domainCounts[domain]++
	return true
}

func (o *Orchestrator) releaseDomainSlot(domain string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.domainCounts[domain] > 0 {
		o.domainCounts[domain]--
	}
}

func (o *Orchestrator) limiterFor(domain string) *rate.Limiter {
	o.mu.Lock()
	defer o.mu.Unlock()
	limiter, ok := o.limiters[domain]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(o.crawlDelay), 1)
		o.limiters[domain] = limiter
	}
	return limiter
}

func (o *Orchestrator) fail(ctx context.Context, item model.FrontierItem, message string) {
	if err := o.frontier.Fail(ctx, item.ID, message); err != nil {
		o.logger.Error("fail transition failed", "id", item.ID, "err", err)
	}
}

func (o *Orchestrator) failPermanent(ctx context.Context, item model.FrontierItem, message string) {
	if err := o.frontier.FailPermanent(ctx, item.ID, message); err != nil {
		o.logger.Error("fail transition failed", "id", item.ID, "err", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
