package validate

import (
	"ontodraft/internal/entity"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// SemverLevel is a finding's suggested impact on the schema's version.
type SemverLevel string

const (
	SemverNone  SemverLevel = ""
	SemverPatch SemverLevel = "patch"
	SemverMinor SemverLevel = "minor"
	SemverMajor SemverLevel = "major"
)

func semverRank(level SemverLevel) int {
	switch level {
	case SemverMajor:
		return 3
	case SemverMinor:
		return 2
	case SemverPatch:
		return 1
	default:
		return 0
	}
}

const (
	codeMissingReference    = "missing_reference"
	codeCircularInheritance = "circular_inheritance"
	codeShapeViolation      = "shape_violation"
	codePatchNotApplied     = "patch_not_applied"
	codeCreateCollision     = "create_collides_with_canonical"
	codeEntityAdded         = "entity_added"
	codeEntityRemoved       = "entity_removed"
	codeValueTypeChanged    = "value_type_changed"
	codeMultiplicityChange  = "multiplicity_changed"
	codeMembersChanged      = "members_changed"
	codeTextualEdit         = "textual_edit"
)

type Finding struct {
	Kind      entity.Kind
	Key       string
	FieldPath string
	Code      string
	Message   string
	Severity  Severity
	Semver    SemverLevel
	OldValue  any
	NewValue  any
}

// Report is the aggregate validation outcome. A draft is valid exactly when
// it has no error findings; warnings and info never block validity.
type Report struct {
	IsValid         bool
	Errors          []Finding
	Warnings        []Finding
	Info            []Finding
	SuggestedSemver SemverLevel
	SemverReasons   []string
}

func buildReport(findings []Finding) *Report {
	report := &Report{SuggestedSemver: SemverPatch}
	highest := semverRank(SemverPatch)

	for _, finding := range findings {
		switch finding.Severity {
		case SeverityError:
			report.Errors = append(report.Errors, finding)
		case SeverityWarning:
			report.Warnings = append(report.Warnings, finding)
		default:
			report.Info = append(report.Info, finding)
		}
		if rank := semverRank(finding.Semver); rank > 0 {
			if rank > highest {
				highest = rank
				report.SuggestedSemver = finding.Semver
			}
			report.SemverReasons = append(report.SemverReasons, finding.Message)
		}
	}

	report.IsValid = len(report.Errors) == 0
	return report
}
