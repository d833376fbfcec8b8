package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"ontodraft/internal/entity"
	"ontodraft/internal/store"
)

func (c *Client) UpsertDraftChange(ctx context.Context, change store.DraftChange) error {
	var patchText, docText any
	if len(change.Patch) > 0 {
		patchText = string(change.Patch)
	}
	if change.Document != nil {
		docJSON, err := json.Marshal(change.Document)
		if err != nil {
			return fmt.Errorf("marshaling change document: %w", err)
		}
		docText = string(docJSON)
	}

	query := `
INSERT INTO draft_changes (draft_id, kind, key, change_type, patch, document, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (draft_id, kind, key) DO UPDATE SET
    change_type = excluded.change_type,
    patch = excluded.patch,
    document = excluded.document
`

	_, err := c.db.ExecContext(ctx, query,
		change.DraftID.String(),
		string(change.Kind),
		change.Key,
		string(change.ChangeType),
		patchText,
		docText,
		now(),
	)
	if err != nil {
		return fmt.Errorf("upserting draft change: %w", err)
	}
	return nil
}

func (c *Client) DeleteDraftChange(ctx context.Context, draftID uuid.UUID, kind entity.Kind, key string) error {
	query := `DELETE FROM draft_changes WHERE draft_id = ? AND kind = ? AND key = ?`

	if _, err := c.db.ExecContext(ctx, query, draftID.String(), string(kind), key); err != nil {
		return fmt.Errorf("deleting draft change: %w", err)
	}
	return nil
}

func (c *Client) ListDraftChanges(ctx context.Context, draftID uuid.UUID) ([]store.DraftChange, error) {
	query := `
SELECT draft_id, kind, key, change_type, patch, document
FROM draft_changes
WHERE draft_id = ?
ORDER BY id
`

	rows, err := c.db.QueryContext(ctx, query, draftID.String())
	if err != nil {
		return nil, fmt.Errorf("listing draft changes: %w", err)
	}
	defer rows.Close()

	var changes []store.DraftChange
	for rows.Next() {
		var change store.DraftChange
		var id, kindName, changeType string
		var patchText, docText *string
		err := rows.Scan(&id, &kindName, &change.Key, &changeType, &patchText, &docText)
		if err != nil {
			return nil, fmt.Errorf("scanning draft change: %w", err)
		}

		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parsing draft id: %w", err)
		}
		change.DraftID = parsed
		change.Kind = entity.Kind(kindName)
		change.ChangeType = store.ChangeType(changeType)
		if patchText != nil {
			change.Patch = []byte(*patchText)
		}
		if docText != nil && *docText != "" {
			if err := json.Unmarshal([]byte(*docText), &change.Document); err != nil {
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
