package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ontodraft/internal/store"
)

func (c *Client) CurrentSnapshot(ctx context.Context) (*store.Snapshot, error) {
	query := `
SELECT id, ref, created_at
FROM snapshots
ORDER BY id DESC
LIMIT 1
`

	snap, err := scanSnapshot(c.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting current snapshot: %w", err)
	}
	return snap, nil
}

func (c *Client) RecordSnapshot(ctx context.Context, ref string) (*store.Snapshot, error) {
	result, err := c.db.ExecContext(ctx,
		`INSERT INTO snapshots (ref, created_at) VALUES (?, ?)`, ref, now())
	if err != nil {
		return nil, fmt.Errorf("recording snapshot: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading snapshot id: %w", err)
	}

	snap, err := scanSnapshot(c.db.QueryRowContext(ctx,
		`SELECT id, ref, created_at FROM snapshots WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("getting recorded snapshot: %w", err)
	}
	return snap, nil
}

func scanSnapshot(row *sql.Row) (*store.Snapshot, error) {
	var snap store.Snapshot
	var createdAt string
	if err := row.Scan(&snap.ID, &snap.Ref, &createdAt); err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot timestamp: %w", err)
	}
	snap.CreatedAt = ts
	return &snap, nil
}
