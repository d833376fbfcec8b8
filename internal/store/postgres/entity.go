package postgres

import (
	"context"
	"encoding/json"
	"fmt"

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
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (kind, key) DO UPDATE SET
    label = EXCLUDED.label,
    description = EXCLUDED.description,
    document = EXCLUDED.document,
    updated_at = now()
`

	_, err = c.pool.Exec(ctx, query, string(e.Kind), e.Key, e.Label, e.Description, docJSON)
	if err != nil {
		return fmt.Errorf("upserting entity: %w", err)
	}
	return nil
}

func (c *Client) GetEntity(ctx context.Context, kind entity.Kind, key string) (*store.Entity, error) {
	query := `
SELECT kind, key, label, description, document
FROM entities
WHERE kind = $1 AND key = $2
`

	rows, err := c.pool.Query(ctx, query, string(kind), key)
	if err != nil {
		return nil, fmt.Errorf("getting entity: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("getting entity: %w", err)
		}
		return nil, nil
	}

	e, err := scanEntity(rows.Scan)
	if err != nil {
		return nil, err
	}
	return e, rows.Err()
}

func (c *Client) ListEntities(ctx context.Context, kind entity.Kind) ([]store.EntitySummary, error) {
	query := `
SELECT kind, key, label
FROM entities
WHERE $1 = '' OR kind = $1
ORDER BY kind, key
`

	rows, err := c.pool.Query(ctx, query, string(kind))
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
	if keepKeys == nil {
		keepKeys = []string{}
	}

	query := `DELETE FROM entities WHERE kind = $1 AND NOT (key = ANY($2))`

	tag, err := c.pool.Exec(ctx, query, string(kind), keepKeys)
	if err != nil {
		return 0, fmt.Errorf("removing stale entities: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanEntity(scan func(...any) error) (*store.Entity, error) {
	var e store.Entity
	var kindName string
	var docBytes []byte
	if err := scan(&kindName, &e.Key, &e.Label, &e.Description, &docBytes); err != nil {
		return nil, fmt.Errorf("scanning entity: %w", err)
	}
	e.Kind = entity.Kind(kindName)
	if len(docBytes) > 0 {
		if err := json.Unmarshal(docBytes, &e.Document); err != nil {
			return nil, fmt.Errorf("unmarshaling document: %w", err)
		}
	}
	if e.Document == nil {
		e.Document = store.Document{}
	}
	return &e, nil
}
