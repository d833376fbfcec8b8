package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ontodraft/internal/store"
)

func (c *Client) CurrentSnapshot(ctx context.Context) (*store.Snapshot, error) {
	query := `
SELECT id, ref, created_at
FROM snapshots
ORDER BY id DESC
LIMIT 1
`

	var snap store.Snapshot
	err := c.pool.QueryRow(ctx, query).Scan(&snap.ID, &snap.Ref, &snap.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting current snapshot: %w", err)
	}
	return &snap, nil
}

func (c *Client) RecordSnapshot(ctx context.Context, ref string) (*store.Snapshot, error) {
	query := `
INSERT INTO snapshots (ref)
VALUES ($1)
RETURNING id, ref, created_at
`

	var snap store.Snapshot
	err := c.pool.QueryRow(ctx, query, ref).Scan(&snap.ID, &snap.Ref, &snap.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("recording snapshot: %w", err)
	}
	return &snap, nil
}
