package postgres

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS snapshots (
    id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    ref        TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS entities (
    id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    kind        TEXT NOT NULL,
    key         TEXT NOT NULL,
    label       TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    document    JSONB NOT NULL DEFAULT '{}',
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT uq_entity_kind_key UNIQUE (kind, key)
);

CREATE TABLE IF NOT EXISTS category_parents (
    category_key TEXT NOT NULL,
    parent_key   TEXT NOT NULL,
    ordinal      INTEGER NOT NULL,
    CONSTRAINT uq_parent_edge UNIQUE (category_key, parent_key)
);

CREATE TABLE IF NOT EXISTS drafts (
    id                 UUID PRIMARY KEY,
    title              TEXT NOT NULL,
    status             TEXT NOT NULL,
    base_snapshot_id   BIGINT NOT NULL REFERENCES snapshots(id),
    rebase_status      TEXT NOT NULL DEFAULT '',
    rebase_snapshot_id BIGINT NOT NULL DEFAULT 0,
    pull_request_url   TEXT NOT NULL DEFAULT '',
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS draft_changes (
    id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    draft_id    UUID NOT NULL REFERENCES drafts(id) ON DELETE CASCADE,
    kind        TEXT NOT NULL,
    key         TEXT NOT NULL,
    change_type TEXT NOT NULL,
    patch       JSONB,
    document    JSONB,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT uq_draft_change UNIQUE (draft_id, kind, key)
);

CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities (kind);
CREATE INDEX IF NOT EXISTS idx_parents_category ON category_parents (category_key);
CREATE INDEX IF NOT EXISTS idx_parents_parent ON category_parents (parent_key);
CREATE INDEX IF NOT EXISTS idx_drafts_status ON drafts (status);
CREATE INDEX IF NOT EXISTS idx_draft_changes_draft ON draft_changes (draft_id);
`
	_, err := c.pool.Exec(ctx, ddl)
	if err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
