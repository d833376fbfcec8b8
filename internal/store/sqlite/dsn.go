package sqlite

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// parseDSN turns a sqlite://<path> DSN into the path the driver expects.
// Relative paths are anchored to the working directory; sqlite://:memory:
// opens an in-memory database.
func parseDSN(dsn string) (string, error) {
	if !strings.HasPrefix(dsn, "sqlite://") {
		return "", fmt.Errorf("invalid sqlite DSN scheme, expected sqlite://")
	}

	rest := strings.TrimPrefix(dsn, "sqlite://")
	if rest == ":memory:" {
		return ":memory:", nil
	}

	path := rest
	query := ""
	if i := strings.Index(rest, "?"); i >= 0 {
		path = rest[:i]
		query = rest[i:]
	}

	unescaped, err := url.PathUnescape(path)
	if err != nil {
		return "", fmt.Errorf("unescaping path: %w", err)
	}
	path = unescaped

	if !filepath.IsAbs(path) && !strings.HasPrefix(path, "./") {
		path = "./" + path
	}
	return path + query, nil
}
