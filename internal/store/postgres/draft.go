package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"ontodraft/internal/store"
)

func (c *Client) CreateDraft(ctx context.Context, title string, baseSnapshotID int64) (*store.Draft, error) {
	query := `
INSERT INTO drafts (id, title, status, base_snapshot_id)
VALUES ($1, $2, $3, $4)
RETURNING id, title, status, base_snapshot_id, rebase_status, rebase_snapshot_id, pull_request_url, created_at, updated_at
`

	row := c.pool.QueryRow(ctx, query, uuid.New(), title, string(store.StatusDraft), baseSnapshotID)
	draft, err := scanDraft(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("creating draft: %w", err)
	}
	return draft, nil
}

func (c *Client) GetDraft(ctx context.Context, id uuid.UUID) (*store.Draft, error) {
	query := `
SELECT id, title, status, base_snapshot_id, rebase_status, rebase_snapshot_id, pull_request_url, created_at, updated_at
FROM drafts
WHERE id = $1
`

	row := c.pool.QueryRow(ctx, query, id)
	draft, err := scanDraft(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting draft: %w", err)
	}
	return draft, nil
}

func (c *Client) ListDrafts(ctx context.Context, status store.DraftStatus) ([]store.Draft, error) {
	query := `
SELECT id, title, status, base_snapshot_id, rebase_status, rebase_snapshot_id, pull_request_url, created_at, updated_at
FROM drafts
WHERE $1 = '' OR status = $1
ORDER BY created_at DESC
`

	rows, err := c.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("listing drafts: %w", err)
	}
	defer rows.Close()

	var drafts []store.Draft
	for rows.Next() {
		draft, err := scanDraft(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning draft: %w", err)
		}
		drafts = append(drafts, *draft)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating draft rows: %w", err)
	}
	return drafts, nil
}

// TransitionDraft is a compare-and-set on status: zero rows updated means the
// draft was not in the expected source status.
func (c *Client) TransitionDraft(ctx context.Context, id uuid.UUID, from, to store.DraftStatus) error {
	query := `
UPDATE drafts
SET status = $3, updated_at = now()
WHERE id = $1 AND status = $2
`

	tag, err := c.pool.Exec(ctx, query, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("transitioning draft: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrStatusConflict
	}
	return nil
}

func (c *Client) SetPullRequestURL(ctx context.Context, id uuid.UUID, url string) error {
	query := `UPDATE drafts SET pull_request_url = $2, updated_at = now() WHERE id = $1`

	if _, err := c.pool.Exec(ctx, query, id, url); err != nil {
		return fmt.Errorf("setting pull request url: %w", err)
	}
	return nil
}

func (c *Client) SetRebaseOutcome(ctx context.Context, id uuid.UUID, status store.RebaseStatus, snapshotID int64) error {
	query := `
UPDATE drafts
SET rebase_status = $2, rebase_snapshot_id = $3, updated_at = now()
WHERE id = $1
`

	if _, err := c.pool.Exec(ctx, query, id, string(status), snapshotID); err != nil {
		return fmt.Errorf("setting rebase outcome: %w", err)
	}
	return nil
}

// AcquireDraftLock takes a session-level advisory lock keyed on the draft id.
// The lock is held on a dedicated connection until release is called.
func (c *Client) AcquireDraftLock(ctx context.Context, id uuid.UUID) (func(), error) {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtextextended($1, 0))`, id.String()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquiring draft lock: %w", err)
	}

	release := func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock(hashtextextended($1, 0))`, id.String())
		conn.Release()
	}
	return release, nil
}

func scanDraft(scan func(...any) error) (*store.Draft, error) {
	var d store.Draft
	var status, rebaseStatus string
	err := scan(
		&d.ID,
		&d.Title,
		&status,
		&d.BaseSnapshotID,
		&rebaseStatus,
		&d.RebaseSnapshotID,
		&d.PullRequestURL,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Status = store.DraftStatus(status)
	d.RebaseStatus = store.RebaseStatus(rebaseStatus)
	return &d, nil
}
