package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if err := RunSchema(ctx, pool, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// RunSchema executes schema SQL (e.g. CREATE TABLE). Safe to call multiple times since the schema uses IF NOT EXISTS.
func RunSchema(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	_, err := pool.Exec(ctx, schema)
	return err
}

func (s *Store) Close() {
	s.pool.Close()
}

const schemaSQL = `CREATE TABLE IF NOT EXISTS crawler_queue (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    url TEXT UNIQUE NOT NULL,
    priority INT NOT NULL DEFAULT 5,
    depth INT NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'pending',
    error_message TEXT,
    retry_count INT NOT NULL DEFAULT 0,
    scheduled_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    processed_at TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_queue_pending ON crawler_queue (priority DESC, scheduled_at ASC) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS indexed_pages (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    url TEXT UNIQUE NOT NULL,
    title TEXT,
    description TEXT,
    content TEXT,
    language TEXT NOT NULL DEFAULT 'en',
    favicon_url TEXT,
    domain TEXT,
    path TEXT,
    page_rank DOUBLE PRECISION NOT NULL DEFAULT 0,
    word_count INT NOT NULL DEFAULT 0,
    content_type TEXT NOT NULL DEFAULT 'web',
    published_date TIMESTAMP WITH TIME ZONE,
    author TEXT,
    image_url TEXT,
    video_url TEXT,
    video_duration INT,
    image_width INT,
    image_height INT,
    thumbnail_url TEXT,
    category TEXT,
    ai_summary TEXT,
    ai_tags TEXT[],
    status TEXT NOT NULL DEFAULT 'active',
    crawled_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    last_indexed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_pages_fts ON indexed_pages USING GIN (
    to_tsvector('english', coalesce(title,'') || ' ' || coalesce(description,'') || ' ' || coalesce(content,''))
);
CREATE INDEX IF NOT EXISTS idx_pages_domain ON indexed_pages (domain);

CREATE TABLE IF NOT EXISTS page_keywords (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    page_id UUID NOT NULL REFERENCES indexed_pages(id) ON DELETE CASCADE,
    keyword TEXT NOT NULL,
    frequency INT NOT NULL DEFAULT 0,
    relevance_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_keywords_term ON page_keywords (keyword);

CREATE TABLE IF NOT EXISTS page_links (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    source_page_id UUID NOT NULL REFERENCES indexed_pages(id) ON DELETE CASCADE,
    target_url TEXT NOT NULL,
    anchor_text TEXT,
    link_type TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    UNIQUE (source_page_id, target_url)
);

CREATE TABLE IF NOT EXISTS content_insights (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    page_id UUID NOT NULL REFERENCES indexed_pages(id) ON DELETE CASCADE,
    summary TEXT,
    sentiment TEXT,
    topics TEXT[],
    entities TEXT[],
    quality_score DOUBLE PRECISION,
    spam_score DOUBLE PRECISION,
    processed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS search_queries (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    query TEXT NOT NULL,
    results_count INT NOT NULL DEFAULT 0,
    page_number INT NOT NULL DEFAULT 1,
    response_time_ms INT,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);`
