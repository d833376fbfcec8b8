package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"ontodraft/internal/entity"
)

// Document is a canonical or proposed entity document as stored (JSONB in
// postgres, serialized JSON text in sqlite).
type Document map[string]any

func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return Document{}
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return Document{}
	}
	return out
}

type EntityInput struct {
	Kind        entity.Kind
	Key         string
	Label       string
	Description string
	Document    Document
}

type Entity struct {
	Kind        entity.Kind
	Key         string
	Label       string
	Description string
	Document    Document
}

type EntitySummary struct {
	Kind  entity.Kind
	Key   string
	Label string
}

type ParentEdge struct {
	CategoryKey string
	ParentKey   string
	Position    int
}

type Snapshot struct {
	ID        int64
	Ref       string
	CreatedAt time.Time
}

type DraftStatus string

const (
	StatusDraft     DraftStatus = "draft"
	StatusValidated DraftStatus = "validated"
	StatusSubmitted DraftStatus = "submitted"
	StatusMerged    DraftStatus = "merged"
	StatusRejected  DraftStatus = "rejected"
)

type RebaseStatus string

const (
	RebaseClean    RebaseStatus = "clean"
	RebaseConflict RebaseStatus = "conflict"
)

type Draft struct {
	ID               uuid.UUID
	Title            string
	Status           DraftStatus
	BaseSnapshotID   int64
	RebaseStatus     RebaseStatus
	RebaseSnapshotID int64
	PullRequestURL   string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// DraftChange is one proposed operation against a single target. A draft
// holds at most one change per (kind, key). Patch is set only for updates,
// Document only for creates.
type DraftChange struct {
	DraftID    uuid.UUID
	Kind       entity.Kind
	Key        string
	ChangeType ChangeType
	Patch      json.RawMessage
	Document   Document
}
