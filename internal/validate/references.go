package validate

import (
	"context"
	"fmt"

	"ontodraft/internal/entity"
	"ontodraft/internal/overlay"
	"ontodraft/internal/store"
)

type reference struct {
	fieldPath string
	kind      entity.Kind
	key       string
}

// checkReferences verifies that every cross-reference named in an effective,
// non-deleted document resolves to a canonical-or-effective entity of the
// expected kind that the draft has not deleted.
func (e *Engine) checkReferences(ctx context.Context, cs *overlay.ChangeSet, effective []*overlay.EffectiveEntity) ([]Finding, error) {
	var findings []Finding
	for _, eff := range effective {
		if eff.Status == overlay.StatusDeleted {
			continue
		}
		for _, ref := range documentReferences(eff.Kind, eff.Document) {
			resolved, err := e.overlay.Effective(ctx, cs, ref.kind, ref.key)
			if err != nil {
				return nil, fmt.Errorf("resolving reference %s/%s: %w", ref.kind, ref.key, err)
			}
			if resolved == nil || resolved.Status == overlay.StatusDeleted {
				findings = append(findings, Finding{
					Kind:      eff.Kind,
					Key:       eff.Key,
					FieldPath: ref.fieldPath,
					Code:      codeMissingReference,
					Message:   fmt.Sprintf("%s %s references missing %s %q", eff.Kind, eff.Key, ref.kind, ref.key),
					Severity:  SeverityError,
				})
			}
		}
	}
	return findings, nil
}

// documentReferences enumerates the outgoing references a document of the
// given kind declares, with the field path each came from.
func documentReferences(kind entity.Kind, doc store.Document) []reference {
	var refs []reference

	switch kind {
	case entity.KindCategory:
		for i, parent := range stringList(doc["parents"]) {
			refs = append(refs, reference{
				fieldPath: fmt.Sprintf("/parents/%d", i),
				kind:      entity.KindCategory,
				key:       parent,
			})
		}
		for i, decl := range entryList(doc["properties"]) {
			if key, _ := decl["key"].(string); key != "" {
				refs = append(refs, reference{
					fieldPath: fmt.Sprintf("/properties/%d/key", i),
					kind:      entity.KindProperty,
					key:       key,
				})
			}
		}

	case entity.KindProperty:
		if valueType, _ := doc["value_type"].(string); valueType == "subobject" {
			if key, _ := doc["subobject"].(string); key != "" {
				refs = append(refs, reference{
					fieldPath: "/subobject",
					kind:      entity.KindSubobject,
					key:       key,
				})
			}
		}

	case entity.KindSubobject:
		for i, decl := range entryList(doc["properties"]) {
			if key, _ := decl["key"].(string); key != "" {
				refs = append(refs, reference{
					fieldPath: fmt.Sprintf("/properties/%d/key", i),
					kind:      entity.KindProperty,
					key:       key,
				})
			}
		}

	case entity.KindModule:
		for i, member := range entryList(doc["members"]) {
			kindName, _ := member["kind"].(string)
			key, _ := member["key"].(string)
			memberKind, err := entity.ParseKind(kindName)
			if err != nil || key == "" {
				continue
			}
			refs = append(refs, reference{
				fieldPath: fmt.Sprintf("/members/%d", i),
				kind:      memberKind,
				key:       key,
			})
		}

	case entity.KindBundle:
		for i, module := range stringList(doc["modules"]) {
			refs = append(refs, reference{
				fieldPath: fmt.Sprintf("/modules/%d", i),
				kind:      entity.KindModule,
				key:       module,
			})
		}

	case entity.KindTemplate:
		if key, _ := doc["category"].(string); key != "" {
			refs = append(refs, reference{
				fieldPath: "/category",
				kind:      entity.KindCategory,
				key:       key,
			})
		}
	}

	return refs
}

func stringList(value any) []string {
	raw, ok := value.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func entryList(value any) []map[string]any {
	raw, ok := value.([]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, item := range raw {
		if entry, ok := item.(map[string]any); ok {
			out = append(out, entry)
		}
	}
	return out
}
