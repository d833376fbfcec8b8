package rebase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"ontodraft/internal/entity"
	"ontodraft/internal/patch"
	"ontodraft/internal/store"
)

// DraftStore is the slice of the store the rebase engine touches. The
// rebase outcome fields are the only thing this engine ever writes.
type DraftStore interface {
	GetEntity(ctx context.Context, kind entity.Kind, key string) (*store.Entity, error)
	GetDraft(ctx context.Context, id uuid.UUID) (*store.Draft, error)
	ListDraftChanges(ctx context.Context, draftID uuid.UUID) ([]store.DraftChange, error)
	SetRebaseOutcome(ctx context.Context, id uuid.UUID, status store.RebaseStatus, snapshotID int64) error
	AcquireDraftLock(ctx context.Context, id uuid.UUID) (release func(), err error)
}

// ChangeReason is the per-change rebase verdict surfaced for user review.
type ChangeReason struct {
	Kind       entity.Kind
	Key        string
	ChangeType store.ChangeType
	Status     store.RebaseStatus
	Reason     string
}

type Outcome struct {
	Status     store.RebaseStatus
	SnapshotID int64
	Reasons    []ChangeReason
}

type Engine struct {
	st DraftStore
}

func NewEngine(st DraftStore) *Engine {
	return &Engine{st: st}
}

// Rebase re-tests every stored change against the canonical documents under
// the new snapshot. Stored changes are never modified; conflicts are
// reported for manual resolution. The draft's rebase status and snapshot are
// the only side effect, written under the per-draft lock so two rebases
// cannot interleave.
func (e *Engine) Rebase(ctx context.Context, draftID uuid.UUID, newSnapshotID int64) (*Outcome, error) {
	release, err := e.st.AcquireDraftLock(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("locking draft: %w", err)
	}
	defer release()

	draft, err := e.st.GetDraft(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("getting draft: %w", err)
	}
	if draft == nil {
		return nil, fmt.Errorf("draft %s not found", draftID)
	}

	changes, err := e.st.ListDraftChanges(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("listing draft changes: %w", err)
	}

	outcome := &Outcome{Status: store.RebaseClean, SnapshotID: newSnapshotID}
	for _, change := range changes {
		reason, err := e.testChange(ctx, change)
		if err != nil {
			return nil, err
		}
		if reason.Status == store.RebaseConflict {
			outcome.Status = store.RebaseConflict
		}
		outcome.Reasons = append(outcome.Reasons, reason)
	}

	if err := e.st.SetRebaseOutcome(ctx, draftID, outcome.Status, newSnapshotID); err != nil {
		return nil, fmt.Errorf("recording rebase outcome: %w", err)
	}

	return outcome, nil
}

func (e *Engine) testChange(ctx context.Context, change store.DraftChange) (ChangeReason, error) {
	reason := ChangeReason{
		Kind:       change.Kind,
		Key:        change.Key,
		ChangeType: change.ChangeType,
		Status:     store.RebaseClean,
	}

	switch change.ChangeType {
	case store.ChangeCreate:
		// A new entity has no baseline to diverge from.
		return reason, nil

	case store.ChangeUpdate:
		canonical, err := e.st.GetEntity(ctx, change.Kind, change.Key)
		if err != nil {
			return reason, fmt.Errorf("getting entity %s/%s: %w", change.Kind, change.Key, err)
		}
		if canonical == nil {
			reason.Status = store.RebaseConflict
			reason.Reason = "entity deleted upstream"
			return reason, nil
		}
		if failure := patch.Test(canonical.Document, change.Patch); failure != nil {
			reason.Status = store.RebaseConflict
			reason.Reason = fmt.Sprintf("patch no longer applies (%s)", failure)
		}
		return reason, nil

	case store.ChangeDelete:
		canonical, err := e.st.GetEntity(ctx, change.Kind, change.Key)
		if err != nil {
			return reason, fmt.Errorf("getting entity %s/%s: %w", change.Kind, change.Key, err)
		}
		if canonical == nil {
			reason.Status = store.RebaseConflict
			reason.Reason = "already deleted upstream"
		}
		return reason, nil

	default:
		return reason, fmt.Errorf("unknown change type: %s", change.ChangeType)
	}
}
