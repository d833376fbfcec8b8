package patch

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"ontodraft/internal/store"
)

// Op is a single RFC 6902 operation. Syntax is validated when a draft change
// is created; application only reports semantic failures.
type Op struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	From  string          `json:"from,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

type Reason string

const (
	ReasonTestFailed  Reason = "test_failed"
	ReasonPathMissing Reason = "path_missing"
	ReasonMalformed   Reason = "malformed_patch"
	ReasonNotApplied  Reason = "not_applicable"
)

// Failure describes why a patch could not be applied. It is a value, not an
// error: callers fold it into change status instead of propagating it.
type Failure struct {
	Reason  Reason
	Message string
}

func (f *Failure) String() string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", f.Reason, f.Message)
}

var allowedOps = map[string]struct{}{
	"add":     {},
	"remove":  {},
	"replace": {},
	"move":    {},
	"copy":    {},
	"test":    {},
}

func ParseOps(raw json.RawMessage) ([]Op, error) {
	var ops []Op
	if err := json.Unmarshal(raw, &ops); err != nil {
		return nil, fmt.Errorf("parsing patch operations: %w", err)
	}
	for i, op := range ops {
		if _, ok := allowedOps[op.Op]; !ok {
			return nil, fmt.Errorf("operation %d has unsupported op: %q", i, op.Op)
		}
		if op.Path == "" && op.Op != "test" {
			return nil, fmt.Errorf("operation %d is missing a path", i)
		}
	}
	return ops, nil
}

// Apply runs the patch against a copy of doc. The input document is never
// mutated; on failure the returned document is nil and the failure explains
// which semantic rule broke.
func Apply(doc store.Document, raw json.RawMessage) (store.Document, *Failure) {
	if doc == nil {
		doc = store.Document{}
	}

	docBytes, err := json.Marshal(doc)
	if err != nil {
		return nil, &Failure{Reason: ReasonMalformed, Message: err.Error()}
	}

	decoded, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return nil, &Failure{Reason: ReasonMalformed, Message: err.Error()}
	}

	patched, err := decoded.Apply(docBytes)
	if err != nil {
		return nil, classify(err)
	}

	var out store.Document
	if err := json.Unmarshal(patched, &out); err != nil {
		return nil, &Failure{Reason: ReasonMalformed, Message: err.Error()}
	}
	return out, nil
}

// ApplyOps is Apply over already-parsed operations, used when a caller needs
// to run a filtered subset of a stored patch.
func ApplyOps(doc store.Document, ops []Op) (store.Document, *Failure) {
	raw, err := json.Marshal(ops)
	if err != nil {
		return nil, &Failure{Reason: ReasonMalformed, Message: err.Error()}
	}
	return Apply(doc, raw)
}

// Test applies the patch and discards the result. Used by the rebase engine
// to probe whether a stored patch still applies under a new baseline.
func Test(doc store.Document, raw json.RawMessage) *Failure {
	_, failure := Apply(doc, raw)
	return failure
}

// TouchesPath reports whether any operation addresses the given pointer or
// a location beneath it, via either its path or its from field.
func TouchesPath(ops []Op, pointer string) bool {
	for _, op := range ops {
		if underPath(op.Path, pointer) || underPath(op.From, pointer) {
			return true
		}
	}
	return false
}

func underPath(path, pointer string) bool {
	if path == "" {
		return false
	}
	return path == pointer || strings.HasPrefix(path, pointer+"/")
}

// FilterByPath returns the operations that address the given pointer or a
// location beneath it, preserving order.
func FilterByPath(ops []Op, pointer string) []Op {
	var out []Op
	for _, op := range ops {
		if underPath(op.Path, pointer) || underPath(op.From, pointer) {
			out = append(out, op)
		}
	}
	return out
}

func classify(err error) *Failure {
	switch {
	case errors.Is(err, jsonpatch.ErrTestFailed):
		return &Failure{Reason: ReasonTestFailed, Message: err.Error()}
	case errors.Is(err, jsonpatch.ErrMissing), errors.Is(err, jsonpatch.ErrInvalidIndex):
		return &Failure{Reason: ReasonPathMissing, Message: err.Error()}
	case errors.Is(err, jsonpatch.ErrUnknownType), errors.Is(err, jsonpatch.ErrInvalid):
		return &Failure{Reason: ReasonMalformed, Message: err.Error()}
	default:
		return &Failure{Reason: ReasonNotApplied, Message: err.Error()}
	}
}
