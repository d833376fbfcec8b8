package postgres

import (
	"context"
	"fmt"
)

func (c *Client) GetParents(ctx context.Context, categoryKey string) ([]string, error) {
	query := `
SELECT parent_key
FROM category_parents
WHERE category_key = $1
ORDER BY ordinal
`

	rows, err := c.pool.Query(ctx, query, categoryKey)
	if err != nil {
		return nil, fmt.Errorf("getting parents: %w", err)
	}
	defer rows.Close()

	var parents []string
	for rows.Next() {
		var parent string
		if err := rows.Scan(&parent); err != nil {
			return nil, fmt.Errorf("scanning parent: %w", err)
		}
		parents = append(parents, parent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating parent rows: %w", err)
	}
	return parents, nil
}

func (c *Client) ReplaceParents(ctx context.Context, categoryKey string, parents []string) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM category_parents WHERE category_key = $1`, categoryKey); err != nil {
		return fmt.Errorf("clearing parents: %w", err)
	}
	for i, parent := range parents {
		_, err := tx.Exec(ctx,
			`INSERT INTO category_parents (category_key, parent_key, ordinal) VALUES ($1, $2, $3)`,
			categoryKey, parent, i)
		if err != nil {
			return fmt.Errorf("inserting parent edge: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing parents: %w", err)
	}
	return nil
}

// AncestorClosure resolves transitive parents with their minimum depth. The
// depth bound keeps the recursion finite even if the edge table somehow
// carries a cycle.
func (c *Client) AncestorClosure(ctx context.Context, categoryKey string, maxDepth int) (map[string]int, error) {
	query := `
WITH RECURSIVE ancestors (key, depth) AS (
    SELECT parent_key, 1
    FROM category_parents
    WHERE category_key = $1
  UNION ALL
    SELECT cp.parent_key, a.depth + 1
    FROM category_parents cp
    JOIN ancestors a ON cp.category_key = a.key
    WHERE a.depth < $2
)
SELECT key, MIN(depth)
FROM ancestors
GROUP BY key
`

	rows, err := c.pool.Query(ctx, query, categoryKey, maxDepth)
	if err != nil {
		return nil, fmt.Errorf("querying ancestor closure: %w", err)
	}
	defer rows.Close()

	closure := make(map[string]int)
	for rows.Next() {
		var key string
		var depth int
		if err := rows.Scan(&key, &depth); err != nil {
			return nil, fmt.Errorf("scanning ancestor: %w", err)
		}
		closure[key] = depth
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ancestor rows: %w", err)
	}
	return closure, nil
}
