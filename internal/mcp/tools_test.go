package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"ontodraft/internal/entity"
	"ontodraft/internal/store"
)

type mockStore struct {
	entities  map[string]*store.Entity
	parents   map[string][]string
	drafts    map[uuid.UUID]*store.Draft
	changes   map[uuid.UUID][]store.DraftChange
	snapshot  *store.Snapshot
	summaries []store.EntitySummary
}

func newMockStore() *mockStore {
	return &mockStore{
		entities: make(map[string]*store.Entity),
		parents:  make(map[string][]string),
		drafts:   make(map[uuid.UUID]*store.Draft),
		changes:  make(map[uuid.UUID][]store.DraftChange),
	}
}

func (m *mockStore) put(kind entity.Kind, key, label string, doc store.Document) {
	m.entities[string(kind)+"/"+key] = &store.Entity{Kind: kind, Key: key, Label: label, Document: doc}
	m.summaries = append(m.summaries, store.EntitySummary{Kind: kind, Key: key, Label: label})
}

func (m *mockStore) addDraft(status store.DraftStatus, changes ...store.DraftChange) uuid.UUID {
	id := uuid.New()
	m.drafts[id] = &store.Draft{ID: id, Title: "test", Status: status, BaseSnapshotID: 1}
	for i := range changes {
		changes[i].DraftID = id
	}
	m.changes[id] = changes
	return id
}

func (m *mockStore) Close(ctx context.Context) error        { return nil }
func (m *mockStore) EnsureSchema(ctx context.Context) error { return nil }

func (m *mockStore) UpsertEntity(ctx context.Context, e store.EntityInput) error { return nil }

func (m *mockStore) GetEntity(ctx context.Context, kind entity.Kind, key string) (*store.Entity, error) {
	return m.entities[string(kind)+"/"+key], nil
}

func (m *mockStore) ListEntities(ctx context.Context, kind entity.Kind) ([]store.EntitySummary, error) {
	var out []store.EntitySummary
	for _, s := range m.summaries {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockStore) RemoveStaleEntities(ctx context.Context, kind entity.Kind, keepKeys []string) (int64, error) {
	return 0, nil
}

func (m *mockStore) GetParents(ctx context.Context, categoryKey string) ([]string, error) {
	return m.parents[categoryKey], nil
}

func (m *mockStore) ReplaceParents(ctx context.Context, categoryKey string, parents []string) error {
	m.parents[categoryKey] = parents
	return nil
}

func (m *mockStore) AncestorClosure(ctx context.Context, categoryKey string, maxDepth int) (map[string]int, error) {
	closure := make(map[string]int)
	queue := m.parents[categoryKey]
	for depth := 1; depth <= maxDepth && len(queue) > 0; depth++ {
		var next []string
		for _, key := range queue {
			if _, seen := closure[key]; seen {
				continue
			}
			closure[key] = depth
			next = append(next, m.parents[key]...)
		}
		queue = next
	}
	return closure, nil
}

func (m *mockStore) CurrentSnapshot(ctx context.Context) (*store.Snapshot, error) {
	return m.snapshot, nil
}

func (m *mockStore) RecordSnapshot(ctx context.Context, ref string) (*store.Snapshot, error) {
	m.snapshot = &store.Snapshot{ID: 1, Ref: ref}
	return m.snapshot, nil
}

func (m *mockStore) CreateDraft(ctx context.Context, title string, baseSnapshotID int64) (*store.Draft, error) {
	id := uuid.New()
	d := &store.Draft{ID: id, Title: title, Status: store.StatusDraft, BaseSnapshotID: baseSnapshotID}
	m.drafts[id] = d
	return d, nil
}

func (m *mockStore) GetDraft(ctx context.Context, id uuid.UUID) (*store.Draft, error) {
	return m.drafts[id], nil
}

func (m *mockStore) ListDrafts(ctx context.Context, status store.DraftStatus) ([]store.Draft, error) {
	var out []store.Draft
	for _, d := range m.drafts {
		if status == "" || d.Status == status {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockStore) TransitionDraft(ctx context.Context, id uuid.UUID, from, to store.DraftStatus) error {
	d := m.drafts[id]
	if d == nil || d.Status != from {
		return store.ErrStatusConflict
	}
	d.Status = to
	return nil
}

func (m *mockStore) SetPullRequestURL(ctx context.Context, id uuid.UUID, url string) error {
	m.drafts[id].PullRequestURL = url
	return nil
}

func (m *mockStore) SetRebaseOutcome(ctx context.Context, id uuid.UUID, status store.RebaseStatus, snapshotID int64) error {
	m.drafts[id].RebaseStatus = status
	m.drafts[id].RebaseSnapshotID = snapshotID
	return nil
}

func (m *mockStore) AcquireDraftLock(ctx context.Context, id uuid.UUID) (func(), error) {
	return func() {}, nil
}

func (m *mockStore) UpsertDraftChange(ctx context.Context, change store.DraftChange) error {
	m.changes[change.DraftID] = append(m.changes[change.DraftID], change)
	return nil
}

func (m *mockStore) DeleteDraftChange(ctx context.Context, draftID uuid.UUID, kind entity.Kind, key string) error {
	return nil
}

func (m *mockStore) ListDraftChanges(ctx context.Context, draftID uuid.UUID) ([]store.DraftChange, error) {
	return m.changes[draftID], nil
}

func newTestServer(db *mockStore) *Server {
	return NewServer(db, nil, 25, "test")
}

func TestGetEffectiveEntity_CanonicalView(t *testing.T) {
	db := newMockStore()
	db.put(entity.KindProperty, "name", "Name", store.Document{"label": "Name", "value_type": "string"})
	server := newTestServer(db)

	_, output, err := server.handleGetEffectiveEntity(context.Background(), nil, GetEffectiveEntityInput{
		Kind: "property", Key: "name",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Document["_change_status"] != "unchanged" {
		t.Fatalf("unexpected change status: %v", output.Document["_change_status"])
	}
}

func TestGetEffectiveEntity_WithDraftUpdate(t *testing.T) {
	db := newMockStore()
	db.put(entity.KindProperty, "name", "Name", store.Document{"label": "Name", "value_type": "string"})
	id := db.addDraft(store.StatusDraft, store.DraftChange{
		Kind:       entity.KindProperty,
		Key:        "name",
		ChangeType: store.ChangeUpdate,
		Patch:      json.RawMessage(`[{"op":"replace","path":"/label","value":"Full name"}]`),
	})
	server := newTestServer(db)

	_, output, err := server.handleGetEffectiveEntity(context.Background(), nil, GetEffectiveEntityInput{
		Draft: id.String(), Kind: "property", Key: "name",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Document["label"] != "Full name" {
		t.Fatalf("patch not applied: %v", output.Document)
	}
	if output.Document["_change_status"] != "modified" {
		t.Fatalf("unexpected change status: %v", output.Document["_change_status"])
	}
}

func TestGetEffectiveEntity_NotFound(t *testing.T) {
	server := newTestServer(newMockStore())

	_, _, err := server.handleGetEffectiveEntity(context.Background(), nil, GetEffectiveEntityInput{
		Kind: "property", Key: "missing",
	})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestGetEffectiveEntity_BadKind(t *testing.T) {
	server := newTestServer(newMockStore())

	_, _, err := server.handleGetEffectiveEntity(context.Background(), nil, GetEffectiveEntityInput{
		Kind: "widget", Key: "x",
	})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestListDraftEntities_MarksChanges(t *testing.T) {
	db := newMockStore()
	db.put(entity.KindProperty, "name", "Name", store.Document{"label": "Name"})
	db.put(entity.KindProperty, "age", "Age", store.Document{"label": "Age"})
	id := db.addDraft(store.StatusDraft,
		store.DraftChange{Kind: entity.KindProperty, Key: "age", ChangeType: store.ChangeDelete},
		store.DraftChange{Kind: entity.KindProperty, Key: "alias", ChangeType: store.ChangeCreate, Document: store.Document{"label": "Alias"}},
	)
	server := newTestServer(db)

	_, output, err := server.handleListDraftEntities(context.Background(), nil, ListDraftEntitiesInput{
		Draft: id.String(), Kind: "property",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Entities) != 3 {
		t.Fatalf("got %d entities, want 3: %+v", len(output.Entities), output.Entities)
	}
	statuses := make(map[string]string)
	for _, e := range output.Entities {
		statuses[e.Key] = e.ChangeStatus
	}
	if statuses["name"] != "unchanged" || statuses["age"] != "deleted" || statuses["alias"] != "added" {
		t.Fatalf("unexpected statuses: %v", statuses)
	}
}

func TestEffectiveProperties_InheritsThroughDraftParent(t *testing.T) {
	db := newMockStore()
	db.put(entity.KindProperty, "name", "Name", store.Document{"label": "Name", "value_type": "string"})
	db.put(entity.KindCategory, "agent", "Agent", store.Document{
		"properties": []any{map[string]any{"key": "name", "required": true}},
	})
	db.put(entity.KindCategory, "person", "Person", store.Document{})
	id := db.addDraft(store.StatusDraft, store.DraftChange{
		Kind:       entity.KindCategory,
		Key:        "person",
		ChangeType: store.ChangeUpdate,
		Patch:      json.RawMessage(`[{"op":"add","path":"/parents","value":["agent"]}]`),
	})
	server := newTestServer(db)

	_, output, err := server.handleEffectiveProperties(context.Background(), nil, EffectivePropertiesInput{
		Draft: id.String(), Category: "person",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Properties) != 1 {
		t.Fatalf("got %d properties, want 1: %+v", len(output.Properties), output.Properties)
	}
	prop := output.Properties[0]
	if prop.Key != "name" || prop.Depth != 1 || prop.Source != "agent" {
		t.Fatalf("unexpected provenance: %+v", prop)
	}
}

func TestValidateDraft_UnknownDraft(t *testing.T) {
	server := newTestServer(newMockStore())

	_, _, err := server.handleValidateDraft(context.Background(), nil, DraftIDInput{Draft: uuid.NewString()})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestRebaseDraft_RequiresSnapshot(t *testing.T) {
	db := newMockStore()
	id := db.addDraft(store.StatusDraft)
	server := newTestServer(db)

	_, _, err := server.handleRebaseDraft(context.Background(), nil, DraftIDInput{Draft: id.String()})
	if err == nil {
		t.Fatalf("expected error")
	}

	db.snapshot = &store.Snapshot{ID: 2, Ref: "abc"}
	_, output, err := server.handleRebaseDraft(context.Background(), nil, DraftIDInput{Draft: id.String()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Status != "clean" || output.SnapshotID != 2 {
		t.Fatalf("unexpected outcome: %+v", output)
	}
}

func TestListDrafts_FiltersByStatus(t *testing.T) {
	db := newMockStore()
	db.addDraft(store.StatusDraft)
	db.addDraft(store.StatusSubmitted)
	server := newTestServer(db)

	_, output, err := server.handleListDrafts(context.Background(), nil, ListDraftsInput{Status: "submitted"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Drafts) != 1 || output.Drafts[0].Status != "submitted" {
		t.Fatalf("unexpected drafts: %+v", output.Drafts)
	}
}
