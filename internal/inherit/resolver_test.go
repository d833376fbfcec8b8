package inherit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"ontodraft/internal/entity"
	"ontodraft/internal/overlay"
	"ontodraft/internal/store"
)

type mockStore struct {
	entities map[string]*store.Entity
	parents  map[string][]string
	changes  []store.DraftChange

	closureCalls int
}

func key(kind entity.Kind, k string) string {
	return string(kind) + "|" + k
}

func (m *mockStore) GetEntity(ctx context.Context, kind entity.Kind, k string) (*store.Entity, error) {
	if e, ok := m.entities[key(kind, k)]; ok {
		return e, nil
	}
	return nil, nil
}

func (m *mockStore) ListDraftChanges(ctx context.Context, draftID uuid.UUID) ([]store.DraftChange, error) {
	return m.changes, nil
}

func (m *mockStore) GetParents(ctx context.Context, categoryKey string) ([]string, error) {
	return m.parents[categoryKey], nil
}

func (m *mockStore) AncestorClosure(ctx context.Context, categoryKey string, maxDepth int) (map[string]int, error) {
	m.closureCalls++
	closure := make(map[string]int)
	frontier := []string{categoryKey}
	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, k := range frontier {
			for _, parent := range m.parents[k] {
				if _, seen := closure[parent]; seen || parent == categoryKey {
					continue
				}
				closure[parent] = depth
				next = append(next, parent)
			}
		}
		frontier = next
	}
	return closure, nil
}

func category(label string, parents []string, props ...map[string]any) *store.Entity {
	doc := store.Document{"label": label}
	parentsAny := make([]any, len(parents))
	for i, p := range parents {
		parentsAny[i] = p
	}
	doc["parents"] = parentsAny
	if len(props) > 0 {
		propsAny := make([]any, len(props))
		for i, p := range props {
			propsAny[i] = p
		}
		doc["properties"] = propsAny
	}
	return &store.Entity{Kind: entity.KindCategory, Label: label, Document: doc}
}

func newResolver(m *mockStore) *Resolver {
	return NewResolver(m, overlay.NewEngine(m), 20)
}

func loadChanges(t *testing.T, m *mockStore) *overlay.ChangeSet {
	t.Helper()
	cs, err := overlay.LoadChangeSet(context.Background(), m, uuid.New())
	if err != nil {
		t.Fatalf("load change set: %v", err)
	}
	return cs
}

func TestAncestors_MinimumDepth(t *testing.T) {
	// person -> agent -> thing and person -> organism -> creature -> thing:
	// thing must come back at depth 2, not 3.
	m := &mockStore{parents: map[string][]string{
		"person":   {"agent", "organism"},
		"agent":    {"thing"},
		"organism": {"creature"},
		"creature": {"thing"},
	}}
	resolver := newResolver(m)
	m.changes = []store.DraftChange{{Kind: entity.KindCategory, Key: "person", ChangeType: store.ChangeUpdate,
		Patch: json.RawMessage(`[{"op": "add", "path": "/parents/-", "value": "agent"}]`)}}
	cs := loadChanges(t, m)

	ancestors, err := resolver.Ancestors(context.Background(), cs, "person")
	if err != nil {
		t.Fatalf("ancestors: %v", err)
	}
	if ancestors["thing"] != 2 {
		t.Fatalf("expected thing at depth 2, got %d", ancestors["thing"])
	}
	if ancestors["agent"] != 1 || ancestors["organism"] != 1 || ancestors["creature"] != 2 {
		t.Fatalf("unexpected closure: %v", ancestors)
	}
}

func TestAncestors_FastPathWithoutDraft(t *testing.T) {
	m := &mockStore{parents: map[string][]string{"person": {"agent"}}}
	resolver := newResolver(m)

	ancestors, err := resolver.Ancestors(context.Background(), nil, "person")
	if err != nil {
		t.Fatalf("ancestors: %v", err)
	}
	if ancestors["agent"] != 1 {
		t.Fatalf("unexpected closure: %v", ancestors)
	}
	if m.closureCalls != 1 {
		t.Fatalf("expected precomputed closure to be used, calls=%d", m.closureCalls)
	}
}

func TestAncestors_FastPathWhenDraftLeavesGraphAlone(t *testing.T) {
	m := &mockStore{
		parents: map[string][]string{"person": {"agent"}},
		changes: []store.DraftChange{{Kind: entity.KindCategory, Key: "person", ChangeType: store.ChangeUpdate,
			Patch: json.RawMessage(`[{"op": "replace", "path": "/label", "value": "Human"}]`)}},
	}
	resolver := newResolver(m)
	cs := loadChanges(t, m)

	if _, err := resolver.Ancestors(context.Background(), cs, "person"); err != nil {
		t.Fatalf("ancestors: %v", err)
	}
	if m.closureCalls != 1 {
		t.Fatalf("expected fast path for label-only patch, calls=%d", m.closureCalls)
	}
}

func TestAncestors_CycleTerminates(t *testing.T) {
	// Malformed canonical data: a -> b -> c -> a.
	m := &mockStore{parents: map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	}}
	resolver := newResolver(m)
	m.changes = []store.DraftChange{{Kind: entity.KindCategory, Key: "unrelated", ChangeType: store.ChangeDelete}}
	cs := loadChanges(t, m)

	ancestors, err := resolver.Ancestors(context.Background(), cs, "a")
	if err != nil {
		t.Fatalf("ancestors: %v", err)
	}
	if len(ancestors) > 3 {
		t.Fatalf("cycle expanded unboundedly: %v", ancestors)
	}
	if ancestors["b"] != 1 || ancestors["c"] != 2 {
		t.Fatalf("unexpected closure: %v", ancestors)
	}
}

func TestEffectiveProperties_DraftAddsParent(t *testing.T) {
	// Canonical: person(parents: agent, direct birth_date), agent(name required).
	// Draft adds legal_entity (tax_id required) as a parent of person.
	m := &mockStore{
		entities: map[string]*store.Entity{
			key(entity.KindCategory, "person"): category("Person", []string{"agent"},
				map[string]any{"key": "birth_date", "required": false}),
			key(entity.KindCategory, "agent"): category("Agent", nil,
				map[string]any{"key": "name", "required": true}),
			key(entity.KindCategory, "legal_entity"): category("Legal Entity", nil,
				map[string]any{"key": "tax_id", "required": true}),
			key(entity.KindProperty, "name"):       {Kind: entity.KindProperty, Document: store.Document{"label": "Name"}},
			key(entity.KindProperty, "birth_date"): {Kind: entity.KindProperty, Document: store.Document{"label": "Birth Date"}},
			key(entity.KindProperty, "tax_id"):     {Kind: entity.KindProperty, Document: store.Document{"label": "Tax ID"}},
		},
		parents: map[string][]string{"person": {"agent"}},
		changes: []store.DraftChange{{
			Kind: entity.KindCategory, Key: "person", ChangeType: store.ChangeUpdate,
			Patch: json.RawMessage(`[{"op": "add", "path": "/parents/-", "value": "legal_entity"}]`),
		}},
	}
	resolver := newResolver(m)
	cs := loadChanges(t, m)

	props, err := resolver.EffectiveProperties(context.Background(), cs, "person")
	if err != nil {
		t.Fatalf("effective properties: %v", err)
	}
	if len(props) != 3 {
		t.Fatalf("expected 3 properties, got %+v", props)
	}

	byKey := make(map[string]PropertyProvenance)
	for _, p := range props {
		byKey[p.Key] = p
	}
	if p := byKey["birth_date"]; p.Depth != 0 || p.Source != "person" {
		t.Fatalf("unexpected birth_date provenance: %+v", p)
	}
	if p := byKey["name"]; p.Depth != 1 || p.Source != "agent" || !p.Required {
		t.Fatalf("unexpected name provenance: %+v", p)
	}
	if p := byKey["tax_id"]; p.Depth != 1 || p.Source != "legal_entity" || !p.Required {
		t.Fatalf("unexpected tax_id provenance: %+v", p)
	}

	// Sorted by (depth, label): birth_date first, then Name before Tax ID.
	if props[0].Key != "birth_date" || props[1].Key != "name" || props[2].Key != "tax_id" {
		t.Fatalf("unexpected order: %+v", props)
	}
}

func TestEffectiveProperties_NearerDeclarationWins(t *testing.T) {
	m := &mockStore{
		entities: map[string]*store.Entity{
			key(entity.KindCategory, "person"): category("Person", []string{"agent"}),
			key(entity.KindCategory, "agent"): category("Agent", []string{"thing"},
				map[string]any{"key": "name", "required": true}),
			key(entity.KindCategory, "thing"): category("Thing", nil,
				map[string]any{"key": "name", "required": false}),
		},
		parents: map[string][]string{"person": {"agent"}, "agent": {"thing"}},
		changes: []store.DraftChange{{Kind: entity.KindCategory, Key: "other", ChangeType: store.ChangeDelete}},
	}
	resolver := newResolver(m)
	cs := loadChanges(t, m)

	props, err := resolver.EffectiveProperties(context.Background(), cs, "person")
	if err != nil {
		t.Fatalf("effective properties: %v", err)
	}
	if len(props) != 1 {
		t.Fatalf("expected deduplicated property, got %+v", props)
	}
	if props[0].Source != "agent" || props[0].Depth != 1 || !props[0].Required {
		t.Fatalf("expected nearer declaration from agent, got %+v", props[0])
	}
}

func TestEffectiveProperties_EqualDepthFirstEncounteredWins(t *testing.T) {
	// mother and father both declare eye_color at depth 1 with conflicting
	// required flags; mother is listed first in the parent list, so it wins.
	m := &mockStore{
		entities: map[string]*store.Entity{
			key(entity.KindCategory, "child"): category("Child", []string{"mother", "father"}),
			key(entity.KindCategory, "mother"): category("Mother", nil,
				map[string]any{"key": "eye_color", "required": true}),
			key(entity.KindCategory, "father"): category("Father", nil,
				map[string]any{"key": "eye_color", "required": false}),
		},
		parents: map[string][]string{"child": {"mother", "father"}},
		changes: []store.DraftChange{{Kind: entity.KindCategory, Key: "other", ChangeType: store.ChangeDelete}},
	}
	resolver := newResolver(m)
	cs := loadChanges(t, m)

	props, err := resolver.EffectiveProperties(context.Background(), cs, "child")
	if err != nil {
		t.Fatalf("effective properties: %v", err)
	}
	if len(props) != 1 {
		t.Fatalf("expected one property, got %+v", props)
	}
	if props[0].Source != "mother" || !props[0].Required {
		t.Fatalf("expected first-encountered declaration to win, got %+v", props[0])
	}
}

func TestEffectiveParents_DraftRemovesParent(t *testing.T) {
	m := &mockStore{
		entities: map[string]*store.Entity{
			key(entity.KindCategory, "person"): category("Person", []string{"agent"}),
			key(entity.KindCategory, "agent"): category("Agent", nil,
				map[string]any{"key": "name", "required": true}),
		},
		parents: map[string][]string{"person": {"agent"}},
		changes: []store.DraftChange{{
			Kind: entity.KindCategory, Key: "person", ChangeType: store.ChangeUpdate,
			Patch: json.RawMessage(`[{"op": "remove", "path": "/parents/0"}]`),
		}},
	}
	resolver := newResolver(m)
	cs := loadChanges(t, m)

	ancestors, err := resolver.Ancestors(context.Background(), cs, "person")
	if err != nil {
		t.Fatalf("ancestors: %v", err)
	}
	if len(ancestors) != 0 {
		t.Fatalf("expected no ancestors after parent removal, got %v", ancestors)
	}
}
