package draft

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ontodraft/internal/entity"
	"ontodraft/internal/overlay"
	"ontodraft/internal/patch"
	"ontodraft/internal/rebase"
	"ontodraft/internal/schemarepo"
	"ontodraft/internal/store"
	"ontodraft/internal/validate"
)

var (
	ErrDraftNotFound  = errors.New("draft not found")
	ErrNotEditable    = errors.New("draft is not editable in its current status")
	ErrNotValidated   = errors.New("draft must be validated before submission")
	ErrRebaseConflict = errors.New("draft has rebase conflicts")
	ErrNoSnapshot     = errors.New("no canonical snapshot recorded; run mirror first")
)

// Store is the slice of the store the workflow controller drives.
type Store interface {
	CurrentSnapshot(ctx context.Context) (*store.Snapshot, error)
	CreateDraft(ctx context.Context, title string, baseSnapshotID int64) (*store.Draft, error)
	GetDraft(ctx context.Context, id uuid.UUID) (*store.Draft, error)
	ListDrafts(ctx context.Context, status store.DraftStatus) ([]store.Draft, error)
	TransitionDraft(ctx context.Context, id uuid.UUID, from, to store.DraftStatus) error
	SetPullRequestURL(ctx context.Context, id uuid.UUID, url string) error
	UpsertDraftChange(ctx context.Context, change store.DraftChange) error
	DeleteDraftChange(ctx context.Context, draftID uuid.UUID, kind entity.Kind, key string) error
	ListDraftChanges(ctx context.Context, draftID uuid.UUID) ([]store.DraftChange, error)
}

type Validator interface {
	Run(ctx context.Context, cs *overlay.ChangeSet) (*validate.Report, error)
}

type Rebaser interface {
	Rebase(ctx context.Context, draftID uuid.UUID, newSnapshotID int64) (*rebase.Outcome, error)
}

// Controller owns the draft status state machine: draft -> validated ->
// submitted -> merged or rejected. Merged and rejected are terminal. Every
// transition is a compare-and-set against the expected source status, so a
// concurrent transition surfaces as store.ErrStatusConflict instead of
// silently overwriting.
type Controller struct {
	st         Store
	validator  Validator
	rebaser    Rebaser
	host       schemarepo.Host
	baseBranch string
}

func NewController(st Store, validator Validator, rebaser Rebaser, host schemarepo.Host, baseBranch string) *Controller {
	return &Controller{
		st:         st,
		validator:  validator,
		rebaser:    rebaser,
		host:       host,
		baseBranch: baseBranch,
	}
}

// Create opens a new draft pinned to the current canonical snapshot.
func (c *Controller) Create(ctx context.Context, title string) (*store.Draft, error) {
	if title == "" {
		return nil, fmt.Errorf("draft title is required")
	}
	snap, err := c.st.CurrentSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading current snapshot: %w", err)
	}
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	draft, err := c.st.CreateDraft(ctx, title, snap.ID)
	if err != nil {
		return nil, fmt.Errorf("creating draft: %w", err)
	}
	return draft, nil
}

// AddChange stages a change on an editable draft. A validated draft drops
// back to draft status: its report no longer describes its contents.
func (c *Controller) AddChange(ctx context.Context, draftID uuid.UUID, change store.DraftChange) error {
	draft, err := c.editableDraft(ctx, draftID)
	if err != nil {
		return err
	}
	if err := checkChange(change); err != nil {
		return err
	}

	change.DraftID = draftID
	if err := c.st.UpsertDraftChange(ctx, change); err != nil {
		return fmt.Errorf("storing draft change: %w", err)
	}
	return c.demote(ctx, draft)
}

// RemoveChange drops a staged change from an editable draft.
func (c *Controller) RemoveChange(ctx context.Context, draftID uuid.UUID, kind entity.Kind, key string) error {
	draft, err := c.editableDraft(ctx, draftID)
	if err != nil {
		return err
	}
	if err := c.st.DeleteDraftChange(ctx, draftID, kind, key); err != nil {
		return fmt.Errorf("deleting draft change: %w", err)
	}
	return c.demote(ctx, draft)
}

// Validate runs the validation engine over the draft and moves it to
// validated exactly when the report carries no errors. An invalid report on
// a previously validated draft demotes it.
func (c *Controller) Validate(ctx context.Context, draftID uuid.UUID) (*validate.Report, error) {
	draft, err := c.editableDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}

	changes, err := c.st.ListDraftChanges(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("listing draft changes: %w", err)
	}
	report, err := c.validator.Run(ctx, overlay.NewChangeSet(draftID, changes))
	if err != nil {
		return nil, fmt.Errorf("validating draft: %w", err)
	}

	switch {
	case report.IsValid && draft.Status == store.StatusDraft:
		// A concurrent edit demoting the draft mid-validation wins; the
		// stale report must not promote it.
		if err := c.st.TransitionDraft(ctx, draftID, store.StatusDraft, store.StatusValidated); err != nil && !errors.Is(err, store.ErrStatusConflict) {
			return nil, fmt.Errorf("promoting draft: %w", err)
		}
	case !report.IsValid && draft.Status == store.StatusValidated:
		if err := c.demote(ctx, draft); err != nil {
			return nil, err
		}
	}

	return report, nil
}

// Submit opens a pull request for a validated draft. The draft is rebased
// against the current snapshot first; any conflict blocks submission.
func (c *Controller) Submit(ctx context.Context, draftID uuid.UUID, body string) (*store.Draft, error) {
	draft, err := c.st.GetDraft(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("getting draft: %w", err)
	}
	if draft == nil {
		return nil, ErrDraftNotFound
	}
	if draft.Status != store.StatusValidated {
		return nil, ErrNotValidated
	}

	snap, err := c.st.CurrentSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading current snapshot: %w", err)
	}
	if snap == nil {
		return nil, ErrNoSnapshot
	}

	outcome, err := c.rebaser.Rebase(ctx, draftID, snap.ID)
	if err != nil {
		return nil, fmt.Errorf("rebasing draft: %w", err)
	}
	if outcome.Status == store.RebaseConflict {
		return nil, fmt.Errorf("%w: %d conflicting changes", ErrRebaseConflict, countConflicts(outcome))
	}

	url, err := c.host.OpenPullRequest(ctx, schemarepo.PullRequestInput{
		Title:      draft.Title,
		Body:       body,
		HeadBranch: "draft/" + draftID.String(),
		BaseBranch: c.baseBranch,
	})
	if err != nil {
		return nil, fmt.Errorf("opening pull request: %w", err)
	}

	if err := c.st.SetPullRequestURL(ctx, draftID, url); err != nil {
		return nil, fmt.Errorf("recording pull request url: %w", err)
	}
	if err := c.st.TransitionDraft(ctx, draftID, store.StatusValidated, store.StatusSubmitted); err != nil {
		return nil, fmt.Errorf("marking draft submitted: %w", err)
	}

	updated, err := c.st.GetDraft(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("getting draft: %w", err)
	}
	return updated, nil
}

// MarkMerged closes out a submitted draft whose pull request landed.
func (c *Controller) MarkMerged(ctx context.Context, draftID uuid.UUID) error {
	if err := c.st.TransitionDraft(ctx, draftID, store.StatusSubmitted, store.StatusMerged); err != nil {
		return fmt.Errorf("marking draft merged: %w", err)
	}
	return nil
}

// MarkRejected closes out a submitted draft whose pull request was declined.
func (c *Controller) MarkRejected(ctx context.Context, draftID uuid.UUID) error {
	if err := c.st.TransitionDraft(ctx, draftID, store.StatusSubmitted, store.StatusRejected); err != nil {
		return fmt.Errorf("marking draft rejected: %w", err)
	}
	return nil
}

func (c *Controller) editableDraft(ctx context.Context, draftID uuid.UUID) (*store.Draft, error) {
	draft, err := c.st.GetDraft(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("getting draft: %w", err)
	}
	if draft == nil {
		return nil, ErrDraftNotFound
	}
	if draft.Status != store.StatusDraft && draft.Status != store.StatusValidated {
		return nil, fmt.Errorf("%w: %s", ErrNotEditable, draft.Status)
	}
	return draft, nil
}

func (c *Controller) demote(ctx context.Context, draft *store.Draft) error {
	if draft.Status != store.StatusValidated {
		return nil
	}
	err := c.st.TransitionDraft(ctx, draft.ID, store.StatusValidated, store.StatusDraft)
	if err != nil && !errors.Is(err, store.ErrStatusConflict) {
		return fmt.Errorf("demoting draft: %w", err)
	}
	return nil
}

// checkChange enforces the per-change payload rules before anything is
// stored: creates carry a document, updates carry a parseable patch, deletes
// carry neither.
func checkChange(change store.DraftChange) error {
	if !change.Kind.Valid() {
		return fmt.Errorf("unknown entity kind: %q", change.Kind)
	}
	if change.Key == "" {
		return fmt.Errorf("change key is required")
	}

	switch change.ChangeType {
	case store.ChangeCreate:
		if change.Document == nil {
			return fmt.Errorf("create change requires a document")
		}
		if len(change.Patch) > 0 {
			return fmt.Errorf("create change must not carry a patch")
		}
	case store.ChangeUpdate:
		if _, err := patch.ParseOps(change.Patch); err != nil {
			return fmt.Errorf("update change patch: %w", err)
		}
	case store.ChangeDelete:
		if change.Document != nil || len(change.Patch) > 0 {
			return fmt.Errorf("delete change must not carry a document or patch")
		}
	default:
		return fmt.Errorf("unknown change type: %q", change.ChangeType)
	}
	return nil
}

func countConflicts(outcome *rebase.Outcome) int {
	n := 0
	for _, reason := range outcome.Reasons {
		if reason.Status == store.RebaseConflict {
			n++
		}
	}
	return n
}
