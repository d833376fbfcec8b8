package validate

import (
	"fmt"

	"ontodraft/internal/overlay"
)

// checkShapes runs the configured shape checker over every effective,
// non-deleted document.
func (e *Engine) checkShapes(effective []*overlay.EffectiveEntity) []Finding {
	if e.checker == nil {
		return nil
	}
	var findings []Finding
	for _, eff := range effective {
		if eff.Status == overlay.StatusDeleted {
			continue
		}
		for _, violation := range e.checker.Check(eff.Kind, eff.Document) {
			findings = append(findings, Finding{
				Kind:      eff.Kind,
				Key:       eff.Key,
				FieldPath: "/" + violation.Field,
				Code:      codeShapeViolation,
				Message:   fmt.Sprintf("%s %s: %s", eff.Kind, eff.Key, violation.Message),
				Severity:  SeverityError,
			})
		}
	}
	return findings
}
