package mirror

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"ontodraft/internal/entity"
	"ontodraft/internal/store"
)

// Store is the slice of the store the mirror writes.
type Store interface {
	EnsureSchema(ctx context.Context) error
	UpsertEntity(ctx context.Context, e store.EntityInput) error
	ReplaceParents(ctx context.Context, categoryKey string, parents []string) error
	RemoveStaleEntities(ctx context.Context, kind entity.Kind, keepKeys []string) (int64, error)
	RecordSnapshot(ctx context.Context, ref string) (*store.Snapshot, error)
}

type Result struct {
	EntitiesUpserted int
	EntitiesRemoved  int
	EdgesReplaced    int
	FilesSkipped     int
	Errors           []error
	Snapshot         *store.Snapshot
}

// Run mirrors a schema repository checkout into the store and records a
// snapshot for the given ref. The layout is one YAML file per entity at
// <checkout>/<kind>/<key>.yaml. The mirror is a full replace: entities whose
// files are gone are removed, and parent edges are rebuilt from the category
// documents on every run.
func Run(ctx context.Context, db Store, checkout, ref string) (*Result, error) {
	if ref == "" {
		return nil, fmt.Errorf("snapshot ref is required")
	}
	if err := db.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	result := &Result{}
	categoryParents := make(map[string][]string)

	for _, kind := range entity.Kinds() {
		files, err := listDocumentFiles(filepath.Join(checkout, string(kind)))
		if err != nil {
			return nil, fmt.Errorf("listing %s files: %w", kind, err)
		}

		var kept []string
		for _, path := range files {
			key := documentKey(path)
			doc, err := parseDocument(path)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("parsing %s: %w", path, err))
				continue
			}
			if doc == nil {
				result.FilesSkipped++
				continue
			}

			label, _ := doc["label"].(string)
			description, _ := doc["description"].(string)
			input := store.EntityInput{
				Kind:        kind,
				Key:         key,
				Label:       label,
				Description: description,
				Document:    doc,
			}
			if err := db.UpsertEntity(ctx, input); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("upserting %s/%s: %w", kind, key, err))
				continue
			}
			result.EntitiesUpserted++
			kept = append(kept, key)

			if kind == entity.KindCategory {
				categoryParents[key] = parentKeys(doc)
			}
		}

		removed, err := db.RemoveStaleEntities(ctx, kind, kept)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("removing stale %s entities: %w", kind, err))
			continue
		}
		result.EntitiesRemoved += int(removed)
	}

	// Edges go in after every category exists, so a parent declared later in
	// the walk is never dangling.
	keys := make([]string, 0, len(categoryParents))
	for key := range categoryParents {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := db.ReplaceParents(ctx, key, categoryParents[key]); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("replacing parents of %s: %w", key, err))
			continue
		}
		result.EdgesReplaced += len(categoryParents[key])
	}

	snap, err := db.RecordSnapshot(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("recording snapshot: %w", err)
	}
	result.Snapshot = snap

	return result, nil
}

func listDocumentFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func documentKey(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// parseDocument returns (nil, nil) for empty files.
func parseDocument(path string) (store.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc store.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return doc.Clone(), nil
}

func parentKeys(doc store.Document) []string {
	raw, ok := doc["parents"].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
