package inherit

import (
	"context"
	"fmt"
	"sort"

	"ontodraft/internal/entity"
	"ontodraft/internal/overlay"
	"ontodraft/internal/patch"
	"ontodraft/internal/store"
)

// GraphStore is the slice of the store the resolver reads: canonical parent
// edges and the precomputed ancestor closure used on the no-draft fast path.
type GraphStore interface {
	GetParents(ctx context.Context, categoryKey string) ([]string, error)
	AncestorClosure(ctx context.Context, categoryKey string, maxDepth int) (map[string]int, error)
}

// PropertyProvenance records where an effective property came from: the
// category that declared it and the inheritance depth it was found at.
// Depth 0 is the category's own declaration.
type PropertyProvenance struct {
	Key      string
	Label    string
	Required bool
	Depth    int
	Source   string
}

type Resolver struct {
	st       GraphStore
	overlay  *overlay.Engine
	maxDepth int
}

func NewResolver(st GraphStore, ov *overlay.Engine, maxDepth int) *Resolver {
	return &Resolver{st: st, overlay: ov, maxDepth: maxDepth}
}

// Ancestors returns every category reachable through effective parent edges
// with the minimum depth it is first reachable at. With no draft in play, or
// a draft that cannot have altered the parent graph, the store's precomputed
// closure answers directly; otherwise an explicit breadth-first walk expands
// effective parent lists with a visited set and a hard depth bound, so
// malformed cycles terminate instead of recursing forever.
func (r *Resolver) Ancestors(ctx context.Context, cs *overlay.ChangeSet, categoryKey string) (map[string]int, error) {
	if !touchesGraph(cs) {
		closure, err := r.st.AncestorClosure(ctx, categoryKey, r.maxDepth)
		if err != nil {
			return nil, fmt.Errorf("loading ancestor closure: %w", err)
		}
		return closure, nil
	}

	frames, err := r.walk(ctx, cs, categoryKey)
	if err != nil {
		return nil, err
	}
	ancestors := make(map[string]int, len(frames))
	for _, f := range frames {
		if existing, ok := ancestors[f.key]; !ok || f.depth < existing {
			ancestors[f.key] = f.depth
		}
	}
	return ancestors, nil
}

// EffectiveProperties returns the category's full property set with
// provenance: its own declarations at depth 0 plus inherited declarations
// from every ancestor. The nearest declaration of a property wins; between
// two ancestors at equal depth the one encountered first in traversal order
// wins, and traversal order follows parent list order in the documents.
// Output is sorted by (depth, label) for stable presentation.
func (r *Resolver) EffectiveProperties(ctx context.Context, cs *overlay.ChangeSet, categoryKey string) ([]PropertyProvenance, error) {
	seen := make(map[string]PropertyProvenance)
	order := []string{}

	collect := func(source string, depth int) error {
		eff, err := r.overlay.Effective(ctx, cs, entity.KindCategory, source)
		if err != nil {
			return err
		}
		if eff == nil || eff.Status == overlay.StatusDeleted {
			return nil
		}
		for _, decl := range declaredProperties(eff.Document) {
			if _, exists := seen[decl.key]; exists {
				continue
			}
			seen[decl.key] = PropertyProvenance{
				Key:      decl.key,
				Required: decl.required,
				Depth:    depth,
				Source:   source,
			}
			order = append(order, decl.key)
		}
		return nil
	}

	if err := collect(categoryKey, 0); err != nil {
		return nil, err
	}

	frames, err := r.walk(ctx, cs, categoryKey)
	if err != nil {
		return nil, err
	}
	for _, f := range frames {
		if err := collect(f.key, f.depth); err != nil {
			return nil, err
		}
	}

	out := make([]PropertyProvenance, 0, len(order))
	for _, key := range order {
		prov := seen[key]
		prov.Label = r.propertyLabel(ctx, cs, key)
		out = append(out, prov)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Depth != out[j].Depth {
			return out[i].Depth < out[j].Depth
		}
		return out[i].Label < out[j].Label
	})
	return out, nil
}

type frame struct {
	key   string
	depth int
}

// walk is the authoritative breadth-first expansion of effective parent
// lists. Frames come back in traversal order with non-decreasing depth, and
// a key appears at most once: the visited set breaks cycles, and expansion
// stops at the configured depth bound.
func (r *Resolver) walk(ctx context.Context, cs *overlay.ChangeSet, categoryKey string) ([]frame, error) {
	var frames []frame
	visited := map[string]bool{categoryKey: true}
	queue := []frame{{key: categoryKey, depth: 0}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.depth >= r.maxDepth {
			continue
		}

		parents, err := r.EffectiveParents(ctx, cs, current.key)
		if err != nil {
			return nil, err
		}
		for _, parent := range parents {
			if parent == "" || visited[parent] {
				continue
			}
			visited[parent] = true
			next := frame{key: parent, depth: current.depth + 1}
			frames = append(frames, next)
			queue = append(queue, next)
		}
	}

	return frames, nil
}

// EffectiveParents resolves a category's parent list under the draft. A
// draft update that touches /parents is applied in isolation to a synthetic
// {parents: [...]} document built from the canonical edges; if that partial
// patch does not apply, the canonical parents stand.
func (r *Resolver) EffectiveParents(ctx context.Context, cs *overlay.ChangeSet, categoryKey string) ([]string, error) {
	change, hasChange := cs.Change(entity.KindCategory, categoryKey)

	if hasChange {
		switch change.ChangeType {
		case store.ChangeCreate:
			return parentList(change.Document), nil
		case store.ChangeDelete:
			return nil, nil
		}
	}

	canonical, err := r.st.GetParents(ctx, categoryKey)
	if err != nil {
		return nil, fmt.Errorf("getting parents of %s: %w", categoryKey, err)
	}

	if !hasChange || change.ChangeType != store.ChangeUpdate {
		return canonical, nil
	}

	ops, err := patch.ParseOps(change.Patch)
	if err != nil {
		return canonical, nil
	}
	parentOps := patch.FilterByPath(ops, "/parents")
	if len(parentOps) == 0 {
		return canonical, nil
	}

	synthetic := store.Document{"parents": toAnySlice(canonical)}
	patched, failure := patch.ApplyOps(synthetic, parentOps)
	if failure != nil {
		return canonical, nil
	}
	return parentList(patched), nil
}

func (r *Resolver) propertyLabel(ctx context.Context, cs *overlay.ChangeSet, propertyKey string) string {
	eff, err := r.overlay.Effective(ctx, cs, entity.KindProperty, propertyKey)
	if err != nil || eff == nil {
		return propertyKey
	}
	if label, ok := eff.Document["label"].(string); ok && label != "" {
		return label
	}
	return propertyKey
}

// touchesGraph reports whether the draft could have altered the category
// parent graph: any category created or deleted, or any category update
// whose patch addresses the parent list.
func touchesGraph(cs *overlay.ChangeSet) bool {
	for _, change := range cs.Changes() {
		if change.Kind != entity.KindCategory {
			continue
		}
		switch change.ChangeType {
		case store.ChangeCreate, store.ChangeDelete:
			return true
		case store.ChangeUpdate:
			ops, err := patch.ParseOps(change.Patch)
			if err != nil {
				return true
			}
			if patch.TouchesPath(ops, "/parents") {
				return true
			}
		}
	}
	return false
}

type declaredProperty struct {
	key      string
	required bool
}

func declaredProperties(doc store.Document) []declaredProperty {
	raw, ok := doc["properties"].([]any)
	if !ok {
		return nil
	}
	var out []declaredProperty
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		key, _ := entry["key"].(string)
		if key == "" {
			continue
		}
		required, _ := entry["required"].(bool)
		out = append(out, declaredProperty{key: key, required: required})
	}
	return out
}

func parentList(doc store.Document) []string {
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

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
