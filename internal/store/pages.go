package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"natro/internal/model"
)

const pageColumns = `id, url, title, description, content, language, favicon_url, domain, path,
	page_rank, word_count, content_type, published_date, author, image_url, video_url,
	video_duration, image_width, image_height, thumbnail_url, category, ai_summary, ai_tags,
	status, crawled_at, last_indexed_at, updated_at`

const upsertPageSQL = `
INSERT INTO indexed_pages
    (url, title, description, content, language, favicon_url, domain, path, word_count,
     content_type, published_date, author, image_url, video_url, video_duration,
     image_width, image_height, thumbnail_url, category, ai_summary, ai_tags)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
ON CONFLICT (url) DO UPDATE SET
    title = EXCLUDED.title,
    description = EXCLUDED.description,
    content = EXCLUDED.content,
    language = EXCLUDED.language,
    favicon_url = EXCLUDED.favicon_url,
    domain = EXCLUDED.domain,
    path = EXCLUDED.path,
    word_count = EXCLUDED.word_count,
    content_type = EXCLUDED.content_type,
    published_date = EXCLUDED.published_date,
    author = EXCLUDED.author,
    image_url = EXCLUDED.image_url,
    video_url = EXCLUDED.video_url,
    video_duration = EXCLUDED.video_duration,
    image_width = EXCLUDED.image_width,
    image_height = EXCLUDED.image_height,
    thumbnail_url = EXCLUDED.thumbnail_url,
    category = EXCLUDED.category,
    ai_summary = EXCLUDED.ai_summary,
    ai_tags = EXCLUDED.ai_tags,
    status = 'active',
    last_indexed_at = NOW(),
    updated_at = NOW()
RETURNING ` + pageColumns

// UpsertPage writes a crawled page keyed by its normalized URL. Re-crawls
// overwrite content fields in place; page_rank is owned by the offline
// authority job and is deliberately not touched here.
func (s *Store) UpsertPage(ctx context.Context, page *model.IndexedPage) (*model.IndexedPage, error) {
	lang := page.Language
	if lang == "" {
		lang = "en"
	}
	ct := page.ContentType
	if ct == "" {
		ct = model.ContentWeb
	}
	row := s.pool.QueryRow(ctx, upsertPageSQL,
		page.URL,
		textOrNull(page.Title),
		textOrNull(page.Description),
		textOrNull(page.Content),
		lang,
		textOrNull(page.FaviconURL),
		textOrNull(page.Domain),
		textOrNull(page.Path),
		page.WordCount,
		string(ct),
		timestamptzOrNull(page.PublishedDate),
		textOrNull(page.Author),
		textOrNull(page.ImageURL),
		textOrNull(page.VideoURL),
		int4OrNull(page.VideoDuration),
		int4OrNull(page.ImageWidth),
		int4OrNull(page.ImageHeight),
		textOrNull(page.ThumbnailURL),
		textOrNull(page.Category),
		textOrNull(page.AISummary),
		page.AITags,
	)
	return scanPage(row)
}

func (s *Store) GetPageByURL(ctx context.Context, url string) (*model.IndexedPage, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pageColumns+` FROM indexed_pages WHERE url = $1`, url)
	page, err := scanPage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return page, err
}

// ReplaceKeywords swaps the keyword set for a page. Delete-then-insert in one
// transaction: a re-crawl fully replaces the set, never merges into it.
func (s *Store) ReplaceKeywords(ctx context.Context, pageID string, keywords []model.Keyword) error {
	pid, err := parseUUID(pageID)
	if err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM page_keywords WHERE page_id = $1`, pid); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, kw := range keywords {
		batch.Queue(`INSERT INTO page_keywords (page_id, keyword, frequency, relevance_score) VALUES ($1, $2, $3, $4)`,
			pid, kw.Term, kw.Frequency, kw.Relevance)
	}
	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert keyword %d: %w", i, err)
		}
	}
	br.Close()
	return tx.Commit(ctx)
}

func (s *Store) InsertLinks(ctx context.Context, pageID string, links []model.ParsedLink) error {
	if len(links) == 0 {
		return nil
	}
	pid, err := parseUUID(pageID)
	if err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, link := range links {
		batch.Queue(`
			INSERT INTO page_links (source_page_id, target_url, anchor_text, link_type)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT DO NOTHING`,
			pid, link.URL, textOrNull(link.AnchorText), string(link.Type))
	}
	br := s.pool.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert link %d: %w", i, err)
		}
	}
	return br.Close()
}

func (s *Store) SaveInsights(ctx context.Context, pageID string, analysis *model.ContentAnalysis) error {
	pid, err := parseUUID(pageID)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO content_insights (page_id, summary, sentiment, topics, entities, quality_score, spam_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		pid, textOrNull(analysis.Summary), textOrNull(analysis.Sentiment),
		analysis.Topics, analysis.Entities, analysis.QualityScore, analysis.SpamScore)
	return err
}

const ftsExpr = `to_tsvector('english', coalesce(title,'') || ' ' || coalesce(description,'') || ' ' || coalesce(content,''))`

// SearchPages runs the full-text candidate retrieval: active pages matching
// every query term, ordered by the store's own text rank. News retrieval
// orders by publish date ahead of text rank.
func (s *Store) SearchPages(ctx context.Context, terms []string, opts model.SearchOptions, limit, offset int) ([]model.IndexedPage, error) {
	where, params := searchPredicate(terms, opts)

	order := "ORDER BY rank DESC, page_rank DESC, last_indexed_at DESC"
	if opts.ContentType == model.ContentNews {
		order = "ORDER BY published_date DESC NULLS LAST, rank DESC, page_rank DESC"
	}

	params = append(params, limit, offset)
	sql := fmt.Sprintf(`SELECT %s, ts_rank(%s, to_tsquery('english', $1)) AS rank
		FROM indexed_pages %s %s LIMIT $%d OFFSET $%d`,
		pageColumns, ftsExpr, where, order, len(params)-1, len(params))

	rows, err := s.pool.Query(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []model.IndexedPage
	for rows.Next() {
		page, err := scanPageWithRank(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *page)
	}
	return pages, rows.Err()
}

// CountPages runs the exact count over the same filtered predicate as
// SearchPages, independent of the over-fetch window.
func (s *Store) CountPages(ctx context.Context, terms []string, opts model.SearchOptions) (int, error) {
	where, params := searchPredicate(terms, opts)
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM indexed_pages `+where, params...).Scan(&count)
	return count, err
}

func searchPredicate(terms []string, opts model.SearchOptions) (string, []any) {
	tsQuery := strings.Join(terms, " & ")
	where := `WHERE status = 'active' AND ` + ftsExpr + ` @@ to_tsquery('english', $1)`
	params := []any{tsQuery}

	if opts.ContentType != "" {
		params = append(params, string(opts.ContentType))
		where += fmt.Sprintf(" AND content_type = $%d", len(params))
	}
	if opts.Language != "" {
		params = append(params, opts.Language)
		where += fmt.Sprintf(" AND language = $%d", len(params))
	}
	if opts.Domain != "" {
		params = append(params, opts.Domain)
		where += fmt.Sprintf(" AND domain = $%d", len(params))
	}
	return where, params
}

// KeywordPrefix returns distinct indexed keywords starting with prefix, in
// lexical order. Feeds the suggestion backfill.
func (s *Store) KeywordPrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT keyword FROM page_keywords WHERE keyword LIKE $1 ORDER BY keyword LIMIT $2`,
		prefix+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, err
		}
		out = append(out, kw)
	}
	return out, rows.Err()
}

func (s *Store) LogSearch(ctx context.Context, query string, resultsCount, pageNumber int, responseTimeMs int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO search_queries (query, results_count, page_number, response_time_ms)
		VALUES ($1, $2, $3, $4)`,
		query, resultsCount, pageNumber, responseTimeMs)
	return err
}

// LinkEdge is one directed edge of the link graph, keyed by URL.
type LinkEdge struct {
	Source string
	Target string
}

func (s *Store) ListPageURLs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT url FROM indexed_pages WHERE status = 'active'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

func (s *Store) ListLinkEdges(ctx context.Context) ([]LinkEdge, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.url, l.target_url
		FROM page_links l
		JOIN indexed_pages p ON p.id = l.source_page_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []LinkEdge
	for rows.Next() {
		var e LinkEdge
		if err := rows.Scan(&e.Source, &e.Target); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *Store) UpdatePageRanks(ctx context.Context, ranks map[string]float64) error {
	if len(ranks) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for url, rank := range ranks {
		batch.Queue(`UPDATE indexed_pages SET page_rank = $2, updated_at = NOW() WHERE url = $1`, url, rank)
	}
	br := s.pool.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("update rank %d: %w", i, err)
		}
	}
	return br.Close()
}

func scanPage(row pgx.Row) (*model.IndexedPage, error) {
	return scanPageFields(row, false)
}

func scanPageWithRank(row pgx.Row) (*model.IndexedPage, error) {
	return scanPageFields(row, true)
}

func scanPageFields(row pgx.Row, withRank bool) (*model.IndexedPage, error) {
	var (
		id            pgtype.UUID
		title         pgtype.Text
		description   pgtype.Text
		content       pgtype.Text
		faviconURL    pgtype.Text
		domain        pgtype.Text
		path          pgtype.Text
		publishedDate pgtype.Timestamptz
		author        pgtype.Text
		imageURL      pgtype.Text
		videoURL      pgtype.Text
		videoDuration pgtype.Int4
		imageWidth    pgtype.Int4
		imageHeight   pgtype.Int4
		thumbnailURL  pgtype.Text
		category      pgtype.Text
		aiSummary     pgtype.Text
		rank          float64
		page          model.IndexedPage
	)
	dest := []any{
		&id, &page.URL, &title, &description, &content, &page.Language, &faviconURL, &domain, &path,
		&page.PageRank, &page.WordCount, &page.ContentType, &publishedDate, &author, &imageURL, &videoURL,
		&videoDuration, &imageWidth, &imageHeight, &thumbnailURL, &category, &aiSummary, &page.AITags,
		&page.Status, &page.CrawledAt, &page.LastIndexedAt, &page.UpdatedAt,
	}
	if withRank {
		dest = append(dest, &rank)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	page.ID = uuid.UUID(id.Bytes).String()
	page.Title = title.String
	page.Description = description.String
	page.Content = content.String
	page.FaviconURL = faviconURL.String
	page.Domain = domain.String
	page.Path = path.String
	if publishedDate.Valid {
		t := publishedDate.Time
		page.PublishedDate = &t
	}
	page.Author = author.String
	page.ImageURL = imageURL.String
	page.VideoURL = videoURL.String
	page.VideoDuration = int(videoDuration.Int32)
	page.ImageWidth = int(imageWidth.Int32)
	page.ImageHeight = int(imageHeight.Int32)
	page.ThumbnailURL = thumbnailURL.String
	page.Category = category.String
	page.AISummary = aiSummary.String
	return &page, nil
}
