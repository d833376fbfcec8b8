package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"ontodraft/internal/entity"
)

// ErrStatusConflict is returned by TransitionDraft when the draft is no
// longer in the expected source status.
var ErrStatusConflict = errors.New("draft status changed concurrently")

// Store is the canonical entity store plus draft bookkeeping. Reads that
// find nothing return (nil, nil).
type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	UpsertEntity(ctx context.Context, e EntityInput) error
	GetEntity(ctx context.Context, kind entity.Kind, key string) (*Entity, error)
	ListEntities(ctx context.Context, kind entity.Kind) ([]EntitySummary, error)
	RemoveStaleEntities(ctx context.Context, kind entity.Kind, keepKeys []string) (int64, error)

	GetParents(ctx context.Context, categoryKey string) ([]string, error)
	ReplaceParents(ctx context.Context, categoryKey string, parents []string) error
	AncestorClosure(ctx context.Context, categoryKey string, maxDepth int) (map[string]int, error)

	CurrentSnapshot(ctx context.Context) (*Snapshot, error)
	RecordSnapshot(ctx context.Context, ref string) (*Snapshot, error)

	CreateDraft(ctx context.Context, title string, baseSnapshotID int64) (*Draft, error)
	GetDraft(ctx context.Context, id uuid.UUID) (*Draft, error)
	ListDrafts(ctx context.Context, status DraftStatus) ([]Draft, error)
	TransitionDraft(ctx context.Context, id uuid.UUID, from, to DraftStatus) error
	SetPullRequestURL(ctx context.Context, id uuid.UUID, url string) error
	SetRebaseOutcome(ctx context.Context, id uuid.UUID, status RebaseStatus, snapshotID int64) error
	AcquireDraftLock(ctx context.Context, id uuid.UUID) (release func(), err error)

	UpsertDraftChange(ctx context.Context, change DraftChange) error
	DeleteDraftChange(ctx context.Context, draftID uuid.UUID, kind entity.Kind, key string) error
	ListDraftChanges(ctx context.Context, draftID uuid.UUID) ([]DraftChange, error)
}
