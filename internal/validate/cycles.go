package validate

import (
	"context"
	"fmt"
	"sort"

	"ontodraft/internal/entity"
	"ontodraft/internal/overlay"
	"ontodraft/internal/store"
)

// checkCycles builds the effective parent graph over every category the
// draft touches, directly or transitively, and reports each category caught
// in a cycle. Canonical data is expected acyclic, so any cycle found here
// was either introduced by the draft or is malformed upstream data worth
// surfacing.
func (e *Engine) checkCycles(ctx context.Context, cs *overlay.ChangeSet) ([]Finding, error) {
	seeds := make([]string, 0)
	for _, change := range cs.Changes() {
		if change.Kind == entity.KindCategory && change.ChangeType != store.ChangeDelete {
			seeds = append(seeds, change.Key)
		}
	}
	if len(seeds) == 0 {
		return nil, nil
	}

	// Expand to every category reachable through effective parent edges.
	edges := make(map[string][]string)
	visited := make(map[string]bool)
	queue := append([]string(nil), seeds...)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true

		parents, err := e.resolver.EffectiveParents(ctx, cs, current)
		if err != nil {
			return nil, fmt.Errorf("resolving parents of %s: %w", current, err)
		}
		edges[current] = parents
		for _, parent := range parents {
			if !visited[parent] {
				queue = append(queue, parent)
			}
		}
	}

	cyclic := findCyclicNodes(edges)
	if len(cyclic) == 0 {
		return nil, nil
	}

	sort.Strings(cyclic)
	findings := make([]Finding, 0, len(cyclic))
	for _, key := range cyclic {
		findings = append(findings, Finding{
			Kind:     entity.KindCategory,
			Key:      key,
			Code:     codeCircularInheritance,
			Message:  fmt.Sprintf("category %s is part of an inheritance cycle", key),
			Severity: SeverityError,
		})
	}
	return findings, nil
}

// findCyclicNodes runs Kahn's algorithm over the child-to-parent edge map
// and returns the nodes that could not be topologically ordered.
func findCyclicNodes(edges map[string][]string) []string {
	outDegree := make(map[string]int)
	children := make(map[string][]string)
	for child, parents := range edges {
		if _, ok := outDegree[child]; !ok {
			outDegree[child] = 0
		}
		for _, parent := range parents {
			outDegree[child]++
			children[parent] = append(children[parent], child)
			if _, ok := outDegree[parent]; !ok {
				outDegree[parent] = 0
			}
		}
	}

	var queue []string
	for node, degree := range outDegree {
		if degree == 0 {
			queue = append(queue, node)
		}
	}

	removed := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		removed++
		for _, child := range children[current] {
			outDegree[child]--
			if outDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if removed == len(outDegree) {
		return nil
	}
	var cyclic []string
	for node, degree := range outDegree {
		if degree > 0 {
			cyclic = append(cyclic, node)
		}
	}
	return cyclic
}
