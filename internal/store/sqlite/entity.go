package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ontodraft/internal/entity"
	"ontodraft/internal/store"
)

func (c *Client) UpsertEntity(ctx context.Context, e store.EntityInput) error {
	docJSON, err := json.Marshal(e.Document)
	if err != nil {
		return fmt.Errorf("marshaling document: %w", err)
	}

	query := `
INSERT INTO entities (kind, key, label, description, document, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (kind, key) DO UPDATE SET
    label = excluded.label,
    description = excluded.description,
    document = excluded.document,
    updated_at = excluded.updated_at
`

	_, err = c.db.ExecContext(ctx, query,
		string(e.Kind), e.Key, e.Label, e.Description, string(docJSON), now())
	if err != nil {
		return fmt.Errorf("upserting entity: %w", err)
	}
	return nil
}

func (c *Client) GetEntity(ctx context.Context, kind entity.Kind, key string) (*store.Entity, error) {
	query := `
SELECT kind, key, label, description, document
FROM entities
WHERE kind = ? AND key = ?
`

	row := c.db.QueryRowContext(ctx, query, string(kind), key)

	var e store.Entity
	var kindName, docText string
	err := row.Scan(&kindName, &e.Key, &e.Label, &e.Description, &docText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting entity: %w", err)
	}
	e.Kind = entity.Kind(kindName)
	if docText != "" {
		if err := json.Unmarshal([]byte(docText), &e.Document); err != nil {
			return nil, fmt.Errorf("unmarshaling document: %w", err)
		}
	}
	if e.Document == nil {
		e.Document = store.Document{}
	}
	return &e, nil
}

func (c *Client) ListEntities(ctx context.Context, kind entity.Kind) ([]store.EntitySummary, error) {
	query := `
SELECT kind, key, label
FROM entities
WHERE ? = '' OR kind = ?
ORDER BY kind, key
`

	rows, err := c.db.QueryContext(ctx, query, string(kind), string(kind))
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	defer rows.Close()

	var summaries []store.EntitySummary
	for rows.Next() {
		var s store.EntitySummary
		var kindName string
		if err := rows.Scan(&kindName, &s.Key, &s.Label); err != nil {
			return nil, fmt.Errorf("scanning entity summary: %w", err)
		}
		s.Kind = entity.Kind(kindName)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entity rows: %w", err)
	}
	return summaries, nil
}

func (c *Client) RemoveStaleEntities(ctx context.Context, kind entity.Kind, keepKeys []string) (int64, error) {
	query := `DELETE FROM entities WHERE kind = ?`
	args := []any{string(kind)}

	if len(keepKeys) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(keepKeys)), ", ")
		query += ` AND key NOT IN (` + placeholders + `)`
		for _, key := range keepKeys {
			args = append(args, key)
		}
	}

	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("removing stale entities: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting removed entities: %w", err)
	}
	return removed, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
