package validate

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"ontodraft/internal/entity"
	"ontodraft/internal/inherit"
	"ontodraft/internal/overlay"
	"ontodraft/internal/shape"
	"ontodraft/internal/store"
)

type mockStore struct {
	entities map[string]*store.Entity
	parents  map[string][]string
}

func newMockStore() *mockStore {
	return &mockStore{
		entities: make(map[string]*store.Entity),
		parents:  make(map[string][]string),
	}
}

func (m *mockStore) put(kind entity.Kind, key string, doc store.Document) {
	m.entities[string(kind)+"/"+key] = &store.Entity{Kind: kind, Key: key, Document: doc}
}

func (m *mockStore) GetEntity(ctx context.Context, kind entity.Kind, key string) (*store.Entity, error) {
	return m.entities[string(kind)+"/"+key], nil
}

func (m *mockStore) ListDraftChanges(ctx context.Context, draftID uuid.UUID) ([]store.DraftChange, error) {
	return nil, nil
}

func (m *mockStore) GetParents(ctx context.Context, categoryKey string) ([]string, error) {
	return m.parents[categoryKey], nil
}

func (m *mockStore) AncestorClosure(ctx context.Context, categoryKey string, maxDepth int) (map[string]int, error) {
	closure := make(map[string]int)
	queue := []string{categoryKey}
	depth := 0
	for len(queue) > 0 && depth < maxDepth {
		var next []string
		depth++
		for _, key := range queue {
			for _, parent := range m.parents[key] {
				if _, seen := closure[parent]; seen {
					continue
				}
				closure[parent] = depth
				next = append(next, parent)
			}
		}
		queue = next
	}
	return closure, nil
}

func newTestEngine(st *mockStore, checker shape.Checker) *Engine {
	ov := overlay.NewEngine(st)
	resolver := inherit.NewResolver(st, ov, 25)
	return NewEngine(st, ov, resolver, checker)
}

func changeSet(changes ...store.DraftChange) *overlay.ChangeSet {
	id := uuid.New()
	for i := range changes {
		changes[i].DraftID = id
	}
	return overlay.NewChangeSet(id, changes)
}

func TestRunEmptyDraftIsValidPatch(t *testing.T) {
	engine := newTestEngine(newMockStore(), nil)

	report, err := engine.Run(context.Background(), changeSet())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !report.IsValid {
		t.Error("expected empty draft to be valid")
	}
	if report.SuggestedSemver != SemverPatch {
		t.Errorf("SuggestedSemver = %q, want %q", report.SuggestedSemver, SemverPatch)
	}
}

func TestRunMissingReference(t *testing.T) {
	st := newMockStore()
	engine := newTestEngine(st, nil)

	cs := changeSet(store.DraftChange{
		Kind:       entity.KindCategory,
		Key:        "person",
		ChangeType: store.ChangeCreate,
		Document: store.Document{
			"label":      "Person",
			"properties": []any{map[string]any{"key": "birth_date", "required": true}},
		},
	})

	report, err := engine.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.IsValid {
		t.Error("expected draft referencing missing property to be invalid")
	}
	if len(report.Errors) != 1 {
		t.Fatalf("got %d errors, want 1", len(report.Errors))
	}
	if report.Errors[0].Code != codeMissingReference {
		t.Errorf("error code = %q, want %q", report.Errors[0].Code, codeMissingReference)
	}
	if report.Errors[0].FieldPath != "/properties/0/key" {
		t.Errorf("field path = %q, want /properties/0/key", report.Errors[0].FieldPath)
	}
}

func TestRunReferenceSatisfiedByDraftCreate(t *testing.T) {
	st := newMockStore()
	engine := newTestEngine(st, nil)

	cs := changeSet(
		store.DraftChange{
			Kind:       entity.KindCategory,
			Key:        "person",
			ChangeType: store.ChangeCreate,
			Document: store.Document{
				"properties": []any{map[string]any{"key": "birth_date"}},
			},
		},
		store.DraftChange{
			Kind:       entity.KindProperty,
			Key:        "birth_date",
			ChangeType: store.ChangeCreate,
			Document:   store.Document{"label": "Birth date", "value_type": "date"},
		},
	)

	report, err := engine.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !report.IsValid {
		t.Errorf("expected valid report, got errors: %v", report.Errors)
	}
}

func TestRunReferenceToDraftDeletedEntity(t *testing.T) {
	st := newMockStore()
	st.put(entity.KindProperty, "name", store.Document{"label": "Name", "value_type": "string"})
	st.put(entity.KindCategory, "person", store.Document{
		"properties": []any{map[string]any{"key": "name"}},
	})
	engine := newTestEngine(st, nil)

	cs := changeSet(
		store.DraftChange{
			Kind:       entity.KindProperty,
			Key:        "name",
			ChangeType: store.ChangeDelete,
		},
		store.DraftChange{
			Kind:       entity.KindCategory,
			Key:        "person",
			ChangeType: store.ChangeUpdate,
			Patch:      json.RawMessage(`[{"op":"add","path":"/label","value":"Person"}]`),
		},
	)

	report, err := engine.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.IsValid {
		t.Error("expected reference to draft-deleted property to invalidate the draft")
	}
	found := false
	for _, f := range report.Errors {
		if f.Code == codeMissingReference && f.Key == "person" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing_reference finding for person not found in %v", report.Errors)
	}
}

func TestRunCycleIntroducedByDraft(t *testing.T) {
	st := newMockStore()
	st.put(entity.KindCategory, "a", store.Document{"parents": []any{"b"}})
	st.put(entity.KindCategory, "b", store.Document{})
	st.parents["a"] = []string{"b"}
	engine := newTestEngine(st, nil)

	cs := changeSet(store.DraftChange{
		Kind:       entity.KindCategory,
		Key:        "b",
		ChangeType: store.ChangeUpdate,
		Patch:      json.RawMessage(`[{"op":"add","path":"/parents","value":["a"]}]`),
	})

	report, err := engine.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.IsValid {
		t.Error("expected cyclic draft to be invalid")
	}
	cyclic := map[string]bool{}
	for _, f := range report.Errors {
		if f.Code == codeCircularInheritance {
			cyclic[f.Key] = true
		}
	}
	if !cyclic["a"] || !cyclic["b"] {
		t.Errorf("expected circular_inheritance findings for a and b, got %v", report.Errors)
	}
}

func TestRunCreateCollidesWithCanonical(t *testing.T) {
	st := newMockStore()
	st.put(entity.KindProperty, "name", store.Document{"label": "Name", "value_type": "string"})
	engine := newTestEngine(st, nil)

	cs := changeSet(store.DraftChange{
		Kind:       entity.KindProperty,
		Key:        "name",
		ChangeType: store.ChangeCreate,
		Document:   store.Document{"label": "Name", "value_type": "string"},
	})

	report, err := engine.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.IsValid {
		t.Error("expected create colliding with canonical entity to be invalid")
	}
	if len(report.Errors) != 1 || report.Errors[0].Code != codeCreateCollision {
		t.Errorf("errors = %v, want single %s", report.Errors, codeCreateCollision)
	}
}

func TestRunDeleteSuggestsMajor(t *testing.T) {
	st := newMockStore()
	st.put(entity.KindProperty, "name", store.Document{"label": "Name", "value_type": "string"})
	engine := newTestEngine(st, nil)

	cs := changeSet(store.DraftChange{
		Kind:       entity.KindProperty,
		Key:        "name",
		ChangeType: store.ChangeDelete,
	})

	report, err := engine.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !report.IsValid {
		t.Errorf("deletion alone should not invalidate the draft: %v", report.Errors)
	}
	if report.SuggestedSemver != SemverMajor {
		t.Errorf("SuggestedSemver = %q, want major", report.SuggestedSemver)
	}
	if len(report.Warnings) != 1 || report.Warnings[0].Code != codeEntityRemoved {
		t.Errorf("warnings = %v, want single %s", report.Warnings, codeEntityRemoved)
	}
}

func TestRunValueTypeChangeIsMajor(t *testing.T) {
	st := newMockStore()
	st.put(entity.KindProperty, "age", store.Document{"label": "Age", "value_type": "string", "multiplicity": "one"})
	engine := newTestEngine(st, nil)

	cs := changeSet(store.DraftChange{
		Kind:       entity.KindProperty,
		Key:        "age",
		ChangeType: store.ChangeUpdate,
		Patch:      json.RawMessage(`[{"op":"replace","path":"/value_type","value":"number"}]`),
	})

	report, err := engine.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.SuggestedSemver != SemverMajor {
		t.Errorf("SuggestedSemver = %q, want major", report.SuggestedSemver)
	}
	found := false
	for _, f := range report.Warnings {
		if f.Code == codeValueTypeChanged {
			found = true
		}
	}
	if !found {
		t.Errorf("value_type_changed warning not found in %v", report.Warnings)
	}
}

func TestRunMultiplicityWidenedIsMinor(t *testing.T) {
	st := newMockStore()
	st.put(entity.KindProperty, "alias", store.Document{"label": "Alias", "value_type": "string", "multiplicity": "one"})
	engine := newTestEngine(st, nil)

	cs := changeSet(store.DraftChange{
		Kind:       entity.KindProperty,
		Key:        "alias",
		ChangeType: store.ChangeUpdate,
		Patch:      json.RawMessage(`[{"op":"replace","path":"/multiplicity","value":"many"}]`),
	})

	report, err := engine.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.SuggestedSemver != SemverMinor {
		t.Errorf("SuggestedSemver = %q, want minor", report.SuggestedSemver)
	}
}

func TestRunLabelEditIsPatch(t *testing.T) {
	st := newMockStore()
	st.put(entity.KindProperty, "name", store.Document{"label": "Name", "value_type": "string"})
	engine := newTestEngine(st, nil)

	cs := changeSet(store.DraftChange{
		Kind:       entity.KindProperty,
		Key:        "name",
		ChangeType: store.ChangeUpdate,
		Patch:      json.RawMessage(`[{"op":"replace","path":"/label","value":"Full name"}]`),
	})

	report, err := engine.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !report.IsValid {
		t.Errorf("expected valid report, got errors: %v", report.Errors)
	}
	if report.SuggestedSemver != SemverPatch {
		t.Errorf("SuggestedSemver = %q, want patch", report.SuggestedSemver)
	}
}

func TestRunSemverAggregationMajorWins(t *testing.T) {
	st := newMockStore()
	st.put(entity.KindProperty, "name", store.Document{"label": "Name", "value_type": "string"})
	engine := newTestEngine(st, nil)

	changes := []store.DraftChange{
		{Kind: entity.KindProperty, Key: "name", ChangeType: store.ChangeDelete},
	}
	for _, key := range []string{"p1", "p2", "p3", "p4", "p5"} {
		changes = append(changes, store.DraftChange{
			Kind:       entity.KindProperty,
			Key:        key,
			ChangeType: store.ChangeCreate,
			Document:   store.Document{"label": key, "value_type": "string"},
		})
	}

	report, err := engine.Run(context.Background(), changeSet(changes...))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.SuggestedSemver != SemverMajor {
		t.Errorf("SuggestedSemver = %q, want major", report.SuggestedSemver)
	}
	if len(report.SemverReasons) != 6 {
		t.Errorf("got %d semver reasons, want 6", len(report.SemverReasons))
	}
}

func TestRunNewParentWidensPropertySet(t *testing.T) {
	st := newMockStore()
	st.put(entity.KindProperty, "name", store.Document{"label": "Name", "value_type": "string"})
	st.put(entity.KindProperty, "tax_id", store.Document{"label": "Tax ID", "value_type": "string"})
	st.put(entity.KindCategory, "agent", store.Document{
		"properties": []any{map[string]any{"key": "name", "required": true}},
	})
	st.put(entity.KindCategory, "legal_entity", store.Document{
		"properties": []any{map[string]any{"key": "tax_id", "required": true}},
	})
	st.put(entity.KindCategory, "person", store.Document{
		"parents": []any{"agent"},
	})
	st.parents["person"] = []string{"agent"}
	engine := newTestEngine(st, nil)

	cs := changeSet(store.DraftChange{
		Kind:       entity.KindCategory,
		Key:        "person",
		ChangeType: store.ChangeUpdate,
		Patch:      json.RawMessage(`[{"op":"add","path":"/parents/-","value":"legal_entity"}]`),
	})

	report, err := engine.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !report.IsValid {
		t.Errorf("expected valid report, got errors: %v", report.Errors)
	}
	if report.SuggestedSemver != SemverMinor {
		t.Errorf("SuggestedSemver = %q, want minor", report.SuggestedSemver)
	}
}

func TestRunStalePatchIsWarning(t *testing.T) {
	st := newMockStore()
	st.put(entity.KindProperty, "name", store.Document{"label": "Name", "value_type": "string"})
	engine := newTestEngine(st, nil)

	cs := changeSet(store.DraftChange{
		Kind:       entity.KindProperty,
		Key:        "name",
		ChangeType: store.ChangeUpdate,
		Patch:      json.RawMessage(`[{"op":"replace","path":"/missing","value":"x"}]`),
	})

	report, err := engine.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !report.IsValid {
		t.Errorf("stale patch should warn, not invalidate: %v", report.Errors)
	}
	if len(report.Warnings) != 1 || report.Warnings[0].Code != codePatchNotApplied {
		t.Errorf("warnings = %v, want single %s", report.Warnings, codePatchNotApplied)
	}
}

func TestRunShapeViolation(t *testing.T) {
	st := newMockStore()
	engine := newTestEngine(st, staticChecker{})

	cs := changeSet(store.DraftChange{
		Kind:       entity.KindProperty,
		Key:        "name",
		ChangeType: store.ChangeCreate,
		Document:   store.Document{"value_type": "string"},
	})

	report, err := engine.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.IsValid {
		t.Error("expected shape violation to invalidate the draft")
	}
	found := false
	for _, f := range report.Errors {
		if f.Code == codeShapeViolation {
			found = true
		}
	}
	if !found {
		t.Errorf("shape_violation finding not found in %v", report.Errors)
	}
}

type staticChecker struct{}

func (staticChecker) Check(kind entity.Kind, doc store.Document) []shape.Violation {
	if _, ok := doc["label"]; !ok {
		return []shape.Violation{{Field: "label", Code: "missing_required_field", Message: "missing required field: label"}}
	}
	return nil
}
