package validate

import (
	"context"
	"fmt"

	"ontodraft/internal/entity"
	"ontodraft/internal/overlay"
	"ontodraft/internal/store"
)

// checkBreakingChanges compares canonical against effective documents for
// the semantically significant fields of each kind and classifies every
// difference as major, minor, or patch. Major changes are allowed; they are
// flagged as warnings so the submitter sees the impact before opening a
// pull request.
func (e *Engine) checkBreakingChanges(ctx context.Context, cs *overlay.ChangeSet, effective []*overlay.EffectiveEntity) ([]Finding, error) {
	var findings []Finding
	for _, eff := range effective {
		change, _ := cs.Change(eff.Kind, eff.Key)

		switch eff.Status {
		case overlay.StatusAdded:
			canonical, err := e.st.GetEntity(ctx, eff.Kind, eff.Key)
			if err != nil {
				return nil, fmt.Errorf("getting entity %s/%s: %w", eff.Kind, eff.Key, err)
			}
			if canonical != nil {
				findings = append(findings, Finding{
					Kind:     eff.Kind,
					Key:      eff.Key,
					Code:     codeCreateCollision,
					Message:  fmt.Sprintf("%s %s already exists canonically", eff.Kind, eff.Key),
					Severity: SeverityError,
				})
				continue
			}
			findings = append(findings, Finding{
				Kind:     eff.Kind,
				Key:      eff.Key,
				Code:     codeEntityAdded,
				Message:  fmt.Sprintf("new %s %s added", eff.Kind, eff.Key),
				Severity: SeverityInfo,
				Semver:   SemverMinor,
			})

		case overlay.StatusDeleted:
			findings = append(findings, Finding{
				Kind:     eff.Kind,
				Key:      eff.Key,
				Code:     codeEntityRemoved,
				Message:  fmt.Sprintf("%s %s removed", eff.Kind, eff.Key),
				Severity: SeverityWarning,
				Semver:   SemverMajor,
			})

		case overlay.StatusModified:
			canonical, err := e.st.GetEntity(ctx, eff.Kind, eff.Key)
			if err != nil {
				return nil, fmt.Errorf("getting entity %s/%s: %w", eff.Kind, eff.Key, err)
			}
			if canonical == nil {
				continue
			}
			findings = append(findings, compareDocuments(eff.Kind, eff.Key, canonical.Document, eff.Document)...)

		case overlay.StatusUnchanged:
			if change.ChangeType == store.ChangeUpdate && eff.PatchError != "" {
				findings = append(findings, Finding{
					Kind:     eff.Kind,
					Key:      eff.Key,
					Code:     codePatchNotApplied,
					Message:  fmt.Sprintf("stored patch for %s %s no longer applies: %s", eff.Kind, eff.Key, eff.PatchError),
					Severity: SeverityWarning,
				})
			}
		}
	}
	return findings, nil
}

func compareDocuments(kind entity.Kind, key string, old, new store.Document) []Finding {
	var findings []Finding

	add := func(f Finding) {
		f.Kind = kind
		f.Key = key
		findings = append(findings, f)
	}

	switch kind {
	case entity.KindProperty:
		oldType, _ := old["value_type"].(string)
		newType, _ := new["value_type"].(string)
		if oldType != newType {
			add(Finding{
				FieldPath: "/value_type",
				Code:      codeValueTypeChanged,
				Message:   fmt.Sprintf("property %s value type changed from %q to %q", key, oldType, newType),
				Severity:  SeverityWarning,
				Semver:    SemverMajor,
				OldValue:  oldType,
				NewValue:  newType,
			})
		}
		oldMult, _ := old["multiplicity"].(string)
		newMult, _ := new["multiplicity"].(string)
		if oldMult != newMult {
			// Narrowing many -> one invalidates existing data; widening does not.
			level, severity := SemverMinor, SeverityInfo
			if newMult == "one" {
				level, severity = SemverMajor, SeverityWarning
			}
			add(Finding{
				FieldPath: "/multiplicity",
				Code:      codeMultiplicityChange,
				Message:   fmt.Sprintf("property %s multiplicity changed from %q to %q", key, oldMult, newMult),
				Severity:  severity,
				Semver:    level,
				OldValue:  oldMult,
				NewValue:  newMult,
			})
		}

	case entity.KindCategory:
		findings = append(findings, compareStringSets(kind, key, "/parents", "parent", stringList(old["parents"]), stringList(new["parents"]))...)
		findings = append(findings, compareStringSets(kind, key, "/properties", "property", propertyKeys(old), propertyKeys(new))...)

	case entity.KindSubobject:
		findings = append(findings, compareStringSets(kind, key, "/properties", "property", propertyKeys(old), propertyKeys(new))...)

	case entity.KindModule:
		findings = append(findings, compareStringSets(kind, key, "/members", "member", memberKeys(old), memberKeys(new))...)

	case entity.KindBundle:
		findings = append(findings, compareStringSets(kind, key, "/modules", "module", stringList(old["modules"]), stringList(new["modules"]))...)

	case entity.KindTemplate:
		oldCat, _ := old["category"].(string)
		newCat, _ := new["category"].(string)
		if oldCat != newCat {
			add(Finding{
				FieldPath: "/category",
				Code:      codeMembersChanged,
				Message:   fmt.Sprintf("template %s retargeted from category %q to %q", key, oldCat, newCat),
				Severity:  SeverityWarning,
				Semver:    SemverMajor,
				OldValue:  oldCat,
				NewValue:  newCat,
			})
		}
		oldBody, _ := old["body"].(string)
		newBody, _ := new["body"].(string)
		if oldBody != newBody {
			add(Finding{
				FieldPath: "/body",
				Code:      codeTextualEdit,
				Message:   fmt.Sprintf("template %s body edited", key),
				Severity:  SeverityInfo,
				Semver:    SemverPatch,
			})
		}
	}

	for _, field := range []string{"label", "description"} {
		oldText, _ := old[field].(string)
		newText, _ := new[field].(string)
		if oldText != newText {
			add(Finding{
				FieldPath: "/" + field,
				Code:      codeTextualEdit,
				Message:   fmt.Sprintf("%s %s %s edited", kind, key, field),
				Severity:  SeverityInfo,
				Semver:    SemverPatch,
				OldValue:  oldText,
				NewValue:  newText,
			})
		}
	}

	return findings
}

func compareStringSets(kind entity.Kind, key, fieldPath, noun string, old, new []string) []Finding {
	oldSet := toSet(old)
	newSet := toSet(new)

	var findings []Finding
	for _, item := range old {
		if !newSet[item] {
			findings = append(findings, Finding{
				Kind:      kind,
				Key:       key,
				FieldPath: fieldPath,
				Code:      codeMembersChanged,
				Message:   fmt.Sprintf("%s %s: %s %q removed", kind, key, noun, item),
				Severity:  SeverityWarning,
				Semver:    SemverMajor,
				OldValue:  item,
			})
		}
	}
	for _, item := range new {
		if !oldSet[item] {
			findings = append(findings, Finding{
				Kind:      kind,
				Key:       key,
				FieldPath: fieldPath,
				Code:      codeMembersChanged,
				Message:   fmt.Sprintf("%s %s: %s %q added", kind, key, noun, item),
				Severity:  SeverityInfo,
				Semver:    SemverMinor,
				NewValue:  item,
			})
		}
	}
	return findings
}

func propertyKeys(doc store.Document) []string {
	var out []string
	for _, decl := range entryList(doc["properties"]) {
		if key, _ := decl["key"].(string); key != "" {
			out = append(out, key)
		}
	}
	return out
}

func memberKeys(doc store.Document) []string {
	var out []string
	for _, member := range entryList(doc["members"]) {
		kindName, _ := member["kind"].(string)
		key, _ := member["key"].(string)
		if kindName != "" && key != "" {
			out = append(out, kindName+"/"+key)
		}
	}
	return out
}

func toSet(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}
