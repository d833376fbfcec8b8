package overlay

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"ontodraft/internal/entity"
	"ontodraft/internal/patch"
	"ontodraft/internal/store"
)

type ChangeStatus string

const (
	StatusAdded     ChangeStatus = "added"
	StatusModified  ChangeStatus = "modified"
	StatusDeleted   ChangeStatus = "deleted"
	StatusUnchanged ChangeStatus = "unchanged"
)

// EffectiveEntity is the derived view of one entity under a draft: the
// canonical document with the draft's change applied, tagged with how the
// draft altered it. Never persisted; computed fresh per request.
type EffectiveEntity struct {
	Kind       entity.Kind
	Key        string
	Document   store.Document
	Status     ChangeStatus
	PatchError string
}

// Render returns the document with the reserved presentation fields callers
// see: _change_status always, _patch_error on a failed update, _deleted on
// deletions.
func (e *EffectiveEntity) Render() store.Document {
	out := e.Document.Clone()
	if out == nil {
		out = store.Document{}
	}
	out["_change_status"] = string(e.Status)
	if e.PatchError != "" {
		out["_patch_error"] = e.PatchError
	}
	if e.Status == StatusDeleted {
		out["_deleted"] = true
	}
	return out
}

type target struct {
	kind entity.Kind
	key  string
}

// ChangeSet is a draft's change list loaded once and treated as an immutable
// snapshot for the rest of the request. A nil *ChangeSet means no draft.
type ChangeSet struct {
	draftID  uuid.UUID
	ordered  []store.DraftChange
	byTarget map[target]store.DraftChange
}

func NewChangeSet(draftID uuid.UUID, changes []store.DraftChange) *ChangeSet {
	cs := &ChangeSet{
		draftID:  draftID,
		ordered:  changes,
		byTarget: make(map[target]store.DraftChange, len(changes)),
	}
	for _, change := range changes {
		cs.byTarget[target{kind: change.Kind, key: change.Key}] = change
	}
	return cs
}

// EntityStore is the slice of the store the overlay engine reads.
type EntityStore interface {
	GetEntity(ctx context.Context, kind entity.Kind, key string) (*store.Entity, error)
	ListDraftChanges(ctx context.Context, draftID uuid.UUID) ([]store.DraftChange, error)
}

func LoadChangeSet(ctx context.Context, st EntityStore, draftID uuid.UUID) (*ChangeSet, error) {
	changes, err := st.ListDraftChanges(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("loading draft changes: %w", err)
	}
	return NewChangeSet(draftID, changes), nil
}

func (cs *ChangeSet) DraftID() uuid.UUID {
	if cs == nil {
		return uuid.Nil
	}
	return cs.draftID
}

func (cs *ChangeSet) Change(kind entity.Kind, key string) (store.DraftChange, bool) {
	if cs == nil {
		return store.DraftChange{}, false
	}
	change, ok := cs.byTarget[target{kind: kind, key: key}]
	return change, ok
}

func (cs *ChangeSet) Changes() []store.DraftChange {
	if cs == nil {
		return nil
	}
	return cs.ordered
}

// IsDeleted is true exactly when the draft carries a delete change for the
// target.
func (cs *ChangeSet) IsDeleted(kind entity.Kind, key string) bool {
	change, ok := cs.Change(kind, key)
	return ok && change.ChangeType == store.ChangeDelete
}

type Engine struct {
	st EntityStore
}

func NewEngine(st EntityStore) *Engine {
	return &Engine{st: st}
}

// Effective layers the draft's change for (kind, key) onto the canonical
// document. Returns (nil, nil) when the entity is absent: no canonical
// document and no create change. A failing update patch is folded into the
// result as an unchanged canonical document with PatchError set; it never
// becomes an error.
func (e *Engine) Effective(ctx context.Context, cs *ChangeSet, kind entity.Kind, key string) (*EffectiveEntity, error) {
	change, hasChange := cs.Change(kind, key)

	if hasChange && change.ChangeType == store.ChangeCreate {
		return &EffectiveEntity{
			Kind:     kind,
			Key:      key,
			Document: change.Document.Clone(),
			Status:   StatusAdded,
		}, nil
	}

	canonical, err := e.st.GetEntity(ctx, kind, key)
	if err != nil {
		return nil, fmt.Errorf("getting entity %s/%s: %w", kind, key, err)
	}
	if canonical == nil {
		return nil, nil
	}

	if !hasChange {
		return &EffectiveEntity{
			Kind:     kind,
			Key:      key,
			Document: canonical.Document.Clone(),
			Status:   StatusUnchanged,
		}, nil
	}

	switch change.ChangeType {
	case store.ChangeDelete:
		return &EffectiveEntity{
			Kind:     kind,
			Key:      key,
			Document: canonical.Document.Clone(),
			Status:   StatusDeleted,
		}, nil
	case store.ChangeUpdate:
		patched, failure := patch.Apply(canonical.Document, change.Patch)
		if failure != nil {
			return &EffectiveEntity{
				Kind:       kind,
				Key:        key,
				Document:   canonical.Document.Clone(),
				Status:     StatusUnchanged,
				PatchError: failure.String(),
			}, nil
		}
		return &EffectiveEntity{
			Kind:     kind,
			Key:      key,
			Document: patched,
			Status:   StatusModified,
		}, nil
	default:
		return nil, fmt.Errorf("unknown change type: %s", change.ChangeType)
	}
}

// DraftCreates returns the draft-only entities of the given kind, used to
// surface them in listings alongside canonical entities.
func (e *Engine) DraftCreates(cs *ChangeSet, kind entity.Kind) []*EffectiveEntity {
	var out []*EffectiveEntity
	for _, change := range cs.Changes() {
		if change.ChangeType != store.ChangeCreate || change.Kind != kind {
			continue
		}
		out = append(out, &EffectiveEntity{
			Kind:     change.Kind,
			Key:      change.Key,
			Document: change.Document.Clone(),
			Status:   StatusAdded,
		})
	}
	return out
}
