package sqlite

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS snapshots (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    ref        TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entities (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    kind        TEXT NOT NULL,
    key         TEXT NOT NULL,
    label       TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    document    TEXT NOT NULL DEFAULT '{}',
    updated_at  TEXT NOT NULL,
    UNIQUE (kind, key)
);

CREATE TABLE IF NOT EXISTS category_parents (
    category_key TEXT NOT NULL,
    parent_key   TEXT NOT NULL,
    ordinal      INTEGER NOT NULL,
    UNIQUE (category_key, parent_key)
);

CREATE TABLE IF NOT EXISTS drafts (
    id                 TEXT PRIMARY KEY,
    title              TEXT NOT NULL,
    status             TEXT NOT NULL,
    base_snapshot_id   INTEGER NOT NULL REFERENCES snapshots(id),
    rebase_status      TEXT NOT NULL DEFAULT '',
    rebase_snapshot_id INTEGER NOT NULL DEFAULT 0,
    pull_request_url   TEXT NOT NULL DEFAULT '',
    created_at         TEXT NOT NULL,
    updated_at         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS draft_changes (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    draft_id    TEXT NOT NULL REFERENCES drafts(id) ON DELETE CASCADE,
    kind        TEXT NOT NULL,
    key         TEXT NOT NULL,
    change_type TEXT NOT NULL,
    patch       TEXT,
    document    TEXT,
    created_at  TEXT NOT NULL,
    UNIQUE (draft_id, kind, key)
);

CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities (kind);
CREATE INDEX IF NOT EXISTS idx_parents_category ON category_parents (category_key);
CREATE INDEX IF NOT EXISTS idx_parents_parent ON category_parents (parent_key);
CREATE INDEX IF NOT EXISTS idx_drafts_status ON drafts (status);
CREATE INDEX IF NOT EXISTS idx_draft_changes_draft ON draft_changes (draft_id);
`
	if _, err := c.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
