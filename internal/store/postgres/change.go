package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"ontodraft/internal/entity"
	"ontodraft/internal/store"
)

func (c *Client) UpsertDraftChange(ctx context.Context, change store.DraftChange) error {
	var docJSON []byte
	if change.Document != nil {
		var err error
		docJSON, err = json.Marshal(change.Document)
		if err != nil {
			return fmt.Errorf("marshaling change document: %w", err)
		}
	}

	query := `
INSERT INTO draft_changes (draft_id, kind, key, change_type, patch, document)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (draft_id, kind, key) DO UPDATE SET
    change_type = EXCLUDED.change_type,
    patch = EXCLUDED.patch,
    document = EXCLUDED.document
`

	_, err := c.pool.Exec(ctx, query,
		change.DraftID,
		string(change.Kind),
		change.Key,
		string(change.ChangeType),
		[]byte(change.Patch),
		docJSON,
	)
	if err != nil {
		return fmt.Errorf("upserting draft change: %w", err)
	}
	return nil
}

func (c *Client) DeleteDraftChange(ctx context.Context, draftID uuid.UUID, kind entity.Kind, key string) error {
	query := `DELETE FROM draft_changes WHERE draft_id = $1 AND kind = $2 AND key = $3`

	if _, err := c.pool.Exec(ctx, query, draftID, string(kind), key); err != nil {
		return fmt.Errorf("deleting draft change: %w", err)
	}
	return nil
}

func (c *Client) ListDraftChanges(ctx context.Context, draftID uuid.UUID) ([]store.DraftChange, error) {
	query := `
SELECT draft_id, kind, key, change_type, patch, document
FROM draft_changes
WHERE draft_id = $1
ORDER BY id
`

	rows, err := c.pool.Query(ctx, query, draftID)
	if err != nil {
		return nil, fmt.Errorf("listing draft changes: %w", err)
	}
	defer rows.Close()

	var changes []store.DraftChange
	for rows.Next() {
		var change store.DraftChange
		var kindName, changeType string
		var patchBytes, docBytes []byte
		err := rows.Scan(&change.DraftID, &kindName, &change.Key, &changeType, &patchBytes, &docBytes)
		if err != nil {
			return nil, fmt.Errorf("scanning draft change: %w", err)
		}
		change.Kind = entity.Kind(kindName)
		change.ChangeType = store.ChangeType(changeType)
		change.Patch = patchBytes
		if len(docBytes) > 0 {
			if err := json.Unmarshal(docBytes, &change.Document); err != nil {
				return nil, fmt.Errorf("unmarshaling change document: %w", err)
			}
		}
		changes = append(changes, change)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating draft change rows: %w", err)
	}
	return changes, nil
}
