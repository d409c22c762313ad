package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"natro/internal/model"
)

const frontierColumns = `id, url, priority, depth, status, error_message, retry_count, scheduled_at, processed_at, created_at`

const enqueueSQL = `
INSERT INTO crawler_queue (url, priority, depth)
VALUES ($1, $2, $3)
ON CONFLICT (url) DO UPDATE SET
    priority = GREATEST(crawler_queue.priority, EXCLUDED.priority)
RETURNING ` + frontierColumns

// Enqueue inserts a URL into the frontier. Re-discovery of a known URL only
// raises its priority; status and retry state are left untouched.
func (s *Store) Enqueue(ctx context.Context, url string, priority, depth int) (*model.FrontierItem, error) {
	row := s.pool.QueryRow(ctx, enqueueSQL, url, priority, depth)
	return scanFrontierItem(row)
}

const claimSQL = `
UPDATE crawler_queue
SET status = 'processing', processed_at = NOW()
WHERE id IN (
    SELECT id FROM crawler_queue
    WHERE status = 'pending' AND retry_count < $2
    ORDER BY priority DESC, scheduled_at ASC
    LIMIT $1
    FOR UPDATE SKIP LOCKED
)
RETURNING ` + frontierColumns

// ClaimBatch flips up to limit pending items to processing and returns them.
// SKIP LOCKED keeps concurrent claimants from ever receiving the same row.
func (s *Store) ClaimBatch(ctx context.Context, limit int) ([]model.FrontierItem, error) {
	rows, err := s.pool.Query(ctx, claimSQL, limit, model.MaxRetries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.FrontierItem
	for rows.Next() {
		item, err := scanFrontierItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *Store) Complete(ctx context.Context, id string) error {
	pid, err := parseUUID(id)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE crawler_queue SET status = 'completed', processed_at = NOW() WHERE id = $1`, pid)
	return err
}

// Fail records a transient failure. The item goes back to pending while
// retry budget remains, terminal failed otherwise.
func (s *Store) Fail(ctx context.Context, id, message string) error {
	pid, err := parseUUID(id)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE crawler_queue SET
			status = CASE WHEN retry_count + 1 >= $3 THEN 'failed' ELSE 'pending' END,
			error_message = $2,
			retry_count = retry_count + 1,
			processed_at = NOW()
		WHERE id = $1`, pid, message, model.MaxRetries)
	return err
}

// FailPermanent marks an item terminally failed regardless of remaining
// budget. Used for input and policy failures that retrying cannot cure.
func (s *Store) FailPermanent(ctx context.Context, id, message string) error {
	pid, err := parseUUID(id)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE crawler_queue SET
			status = 'failed',
			error_message = $2,
			retry_count = GREATEST(retry_count, $3),
			processed_at = NOW()
		WHERE id = $1`, pid, message, model.MaxRetries)
	return err
}

func scanFrontierItem(row pgx.Row) (*model.FrontierItem, error) {
	var (
		id          pgtype.UUID
		errMsg      pgtype.Text
		processedAt pgtype.Timestamptz
		item        model.FrontierItem
	)
	err := row.Scan(&id, &item.URL, &item.Priority, &item.Depth, &item.Status,
		&errMsg, &item.RetryCount, &item.ScheduledAt, &processedAt, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	item.ID = uuid.UUID(id.Bytes).String()
	if errMsg.Valid {
		item.ErrorMessage = errMsg.String
	}
	if processedAt.Valid {
		t := processedAt.Time
		item.ProcessedAt = &t
	}
	return &item, nil
}

func parseUUID(s string) (pgtype.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: u, Valid: true}, nil
}

func textOrNull(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func int4OrNull(n int) pgtype.Int4 {
	return pgtype.Int4{Int32: int32(n), Valid: n != 0}
}

func timestamptzOrNull(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}
