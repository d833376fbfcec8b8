package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ontodraft/internal/store"
)

const draftColumns = `id, title, status, base_snapshot_id, rebase_status, rebase_snapshot_id, pull_request_url, created_at, updated_at`

func (c *Client) CreateDraft(ctx context.Context, title string, baseSnapshotID int64) (*store.Draft, error) {
	id := uuid.New()
	ts := now()

	query := `
INSERT INTO drafts (id, title, status, base_snapshot_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
`
	_, err := c.db.ExecContext(ctx, query,
		id.String(), title, string(store.StatusDraft), baseSnapshotID, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("creating draft: %w", err)
	}

	return c.GetDraft(ctx, id)
}

func (c *Client) GetDraft(ctx context.Context, id uuid.UUID) (*store.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE id = ?`

	draft, err := scanDraft(c.db.QueryRowContext(ctx, query, id.String()).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting draft: %w", err)
	}
	return draft, nil
}

func (c *Client) ListDrafts(ctx context.Context, status store.DraftStatus) ([]store.Draft, error) {
	query := `
SELECT ` + draftColumns + `
FROM drafts
WHERE ? = '' OR status = ?
ORDER BY created_at DESC
`

	rows, err := c.db.QueryContext(ctx, query, string(status), string(status))
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
	query := `UPDATE drafts SET status = ?, updated_at = ? WHERE id = ? AND status = ?`

	result, err := c.db.ExecContext(ctx, query, string(to), now(), id.String(), string(from))
	if err != nil {
		return fmt.Errorf("transitioning draft: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("counting transitioned drafts: %w", err)
	}
	if affected == 0 {
		return store.ErrStatusConflict
	}
	return nil
}

func (c *Client) SetPullRequestURL(ctx context.Context, id uuid.UUID, url string) error {
	query := `UPDATE drafts SET pull_request_url = ?, updated_at = ? WHERE id = ?`

	if _, err := c.db.ExecContext(ctx, query, url, now(), id.String()); err != nil {
		return fmt.Errorf("setting pull request url: %w", err)
	}
	return nil
}

func (c *Client) SetRebaseOutcome(ctx context.Context, id uuid.UUID, status store.RebaseStatus, snapshotID int64) error {
	query := `UPDATE drafts SET rebase_status = ?, rebase_snapshot_id = ?, updated_at = ? WHERE id = ?`

	if _, err := c.db.ExecContext(ctx, query, string(status), snapshotID, now(), id.String()); err != nil {
		return fmt.Errorf("setting rebase outcome: %w", err)
	}
	return nil
}

func scanDraft(scan func(...any) error) (*store.Draft, error) {
	var d store.Draft
	var id, status, rebaseStatus, createdAt, updatedAt string
	err := scan(
		&id,
		&d.Title,
		&status,
		&d.BaseSnapshotID,
		&rebaseStatus,
		&d.RebaseSnapshotID,
		&d.PullRequestURL,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parsing draft id: %w", err)
	}
	d.ID = parsed
	d.Status = store.DraftStatus(status)
	d.RebaseStatus = store.RebaseStatus(rebaseStatus)
	if d.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing draft created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing draft updated_at: %w", err)
	}
	return &d, nil
}
