package validate

import (
	"context"
	"fmt"

	"ontodraft/internal/entity"
	"ontodraft/internal/inherit"
	"ontodraft/internal/overlay"
	"ontodraft/internal/shape"
	"ontodraft/internal/store"
)

// EntityStore is the slice of the store the validation engine reads.
type EntityStore interface {
	GetEntity(ctx context.Context, kind entity.Kind, key string) (*store.Entity, error)
}

// Engine runs the independent validation checks over a draft's effective
// entity set and merges their findings into one report.
type Engine struct {
	st       EntityStore
	overlay  *overlay.Engine
	resolver *inherit.Resolver
	checker  shape.Checker
}

func NewEngine(st EntityStore, ov *overlay.Engine, resolver *inherit.Resolver, checker shape.Checker) *Engine {
	return &Engine{st: st, overlay: ov, resolver: resolver, checker: checker}
}

// Run validates the draft whose change set was loaded up front by the
// caller: every check reuses the same immutable change set, so the
// effective-entity view is consistent across checks.
func (e *Engine) Run(ctx context.Context, cs *overlay.ChangeSet) (*Report, error) {
	effective, err := e.loadEffectiveSet(ctx, cs)
	if err != nil {
		return nil, err
	}

	var findings []Finding

	refFindings, err := e.checkReferences(ctx, cs, effective)
	if err != nil {
		return nil, err
	}
	findings = append(findings, refFindings...)

	cycleFindings, err := e.checkCycles(ctx, cs)
	if err != nil {
		return nil, err
	}
	findings = append(findings, cycleFindings...)

	findings = append(findings, e.checkShapes(effective)...)

	breakingFindings, err := e.checkBreakingChanges(ctx, cs, effective)
	if err != nil {
		return nil, err
	}
	findings = append(findings, breakingFindings...)

	return buildReport(findings), nil
}

// loadEffectiveSet computes the effective view of every change target once,
// in change-list order, so later checks share a single consistent snapshot.
func (e *Engine) loadEffectiveSet(ctx context.Context, cs *overlay.ChangeSet) ([]*overlay.EffectiveEntity, error) {
	var out []*overlay.EffectiveEntity
	for _, change := range cs.Changes() {
		eff, err := e.overlay.Effective(ctx, cs, change.Kind, change.Key)
		if err != nil {
			return nil, fmt.Errorf("computing effective %s/%s: %w", change.Kind, change.Key, err)
		}
		if eff == nil {
			continue
		}
		out = append(out, eff)
	}
	return out, nil
}
