package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"ontodraft/internal/entity"
	"ontodraft/internal/inherit"
	"ontodraft/internal/overlay"
	"ontodraft/internal/rebase"
	"ontodraft/internal/store"
	"ontodraft/internal/validate"
)

type GetEffectiveEntityInput struct {
	Draft string `json:"draft,omitempty" jsonschema:"draft id; omit for the canonical view"`
	Kind  string `json:"kind" jsonschema:"entity kind"`
	Key   string `json:"key" jsonschema:"entity key"`
}

type ListDraftEntitiesInput struct {
	Draft string `json:"draft,omitempty" jsonschema:"draft id; omit for the canonical view"`
	Kind  string `json:"kind" jsonschema:"entity kind"`
}

type EffectivePropertiesInput struct {
	Draft    string `json:"draft,omitempty" jsonschema:"draft id; omit for the canonical view"`
	Category string `json:"category" jsonschema:"category key"`
}

type DraftIDInput struct {
	Draft string `json:"draft" jsonschema:"draft id"`
}

type ListDraftsInput struct {
	Status string `json:"status,omitempty" jsonschema:"status filter: draft, validated, submitted, merged, or rejected"`
}

type EffectiveEntityOutput struct {
	Kind     string         `json:"kind"`
	Key      string         `json:"key"`
	Document map[string]any `json:"document"`
}

type EntitySummaryOutput struct {
	Kind         string `json:"kind"`
	Key          string `json:"key"`
	Label        string `json:"label"`
	ChangeStatus string `json:"change_status"`
}

type ListDraftEntitiesOutput struct {
	Entities []EntitySummaryOutput `json:"entities"`
}

type PropertyProvenanceOutput struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Depth    int    `json:"depth"`
	Source   string `json:"source"`
}

type EffectivePropertiesOutput struct {
	Category   string                     `json:"category"`
	Properties []PropertyProvenanceOutput `json:"properties"`
}

type FindingOutput struct {
	Kind      string `json:"kind,omitempty"`
	Key       string `json:"key,omitempty"`
	FieldPath string `json:"field_path,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Severity  string `json:"severity"`
	Semver    string `json:"semver,omitempty"`
}

type ValidationReportOutput struct {
	IsValid         bool            `json:"is_valid"`
	Errors          []FindingOutput `json:"errors"`
	Warnings        []FindingOutput `json:"warnings"`
	Info            []FindingOutput `json:"info"`
	SuggestedSemver string          `json:"suggested_semver"`
	SemverReasons   []string        `json:"semver_reasons"`
}

type RebaseReasonOutput struct {
	Kind       string `json:"kind"`
	Key        string `json:"key"`
	ChangeType string `json:"change_type"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
}

type RebaseOutcomeOutput struct {
	Status     string               `json:"status"`
	SnapshotID int64                `json:"snapshot_id"`
	Reasons    []RebaseReasonOutput `json:"reasons"`
}

type DraftOutput struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Status           string `json:"status"`
	BaseSnapshotID   int64  `json:"base_snapshot_id"`
	RebaseStatus     string `json:"rebase_status,omitempty"`
	RebaseSnapshotID int64  `json:"rebase_snapshot_id,omitempty"`
	PullRequestURL   string `json:"pull_request_url,omitempty"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

type ListDraftsOutput struct {
	Drafts []DraftOutput `json:"drafts"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_effective_entity",
		Description: "Retrieve an entity as it would look with a draft's changes applied",
	}, s.handleGetEffectiveEntity)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_draft_entities",
		Description: "List entities of a kind, tagged with how a draft changes each",
	}, s.handleListDraftEntities)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "effective_properties",
		Description: "Resolve a category's full property set with inheritance provenance",
	}, s.handleEffectiveProperties)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "validate_draft",
		Description: "Validate a draft and suggest a semantic version impact",
	}, s.handleValidateDraft)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "rebase_draft",
		Description: "Re-test a draft's changes against the current snapshot",
	}, s.handleRebaseDraft)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_draft",
		Description: "Retrieve a draft's status and metadata",
	}, s.handleGetDraft)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_drafts",
		Description: "List drafts with an optional status filter",
	}, s.handleListDrafts)
}

func (s *Server) handleGetEffectiveEntity(ctx context.Context, req *sdk.CallToolRequest, input GetEffectiveEntityInput) (*sdk.CallToolResult, EffectiveEntityOutput, error) {
	kind, err := entity.ParseKind(input.Kind)
	if err != nil {
		return nil, EffectiveEntityOutput{}, err
	}
	if input.Key == "" {
		return nil, EffectiveEntityOutput{}, fmt.Errorf("key is required")
	}

	cs, err := s.loadChangeSet(ctx, input.Draft)
	if err != nil {
		return nil, EffectiveEntityOutput{}, err
	}

	eff, err := s.overlay.Effective(ctx, cs, kind, input.Key)
	if err != nil {
		return nil, EffectiveEntityOutput{}, err
	}
	if eff == nil {
		return nil, EffectiveEntityOutput{}, fmt.Errorf("entity not found")
	}
	return nil, effectiveEntityOutput(eff), nil
}

func (s *Server) handleListDraftEntities(ctx context.Context, req *sdk.CallToolRequest, input ListDraftEntitiesInput) (*sdk.CallToolResult, ListDraftEntitiesOutput, error) {
	kind, err := entity.ParseKind(input.Kind)
	if err != nil {
		return nil, ListDraftEntitiesOutput{}, err
	}

	cs, err := s.loadChangeSet(ctx, input.Draft)
	if err != nil {
		return nil, ListDraftEntitiesOutput{}, err
	}

	summaries, err := s.db.ListEntities(ctx, kind)
	if err != nil {
		return nil, ListDraftEntitiesOutput{}, err
	}

	output := make([]EntitySummaryOutput, 0, len(summaries))
	for _, summary := range summaries {
		status := overlay.StatusUnchanged
		if change, ok := cs.Change(summary.Kind, summary.Key); ok {
			switch change.ChangeType {
			case store.ChangeUpdate:
				status = overlay.StatusModified
			case store.ChangeDelete:
				status = overlay.StatusDeleted
			}
		}
		output = append(output, EntitySummaryOutput{
			Kind:         string(summary.Kind),
			Key:          summary.Key,
			Label:        summary.Label,
			ChangeStatus: string(status),
		})
	}
	for _, created := range s.overlay.DraftCreates(cs, kind) {
		label, _ := created.Document["label"].(string)
		output = append(output, EntitySummaryOutput{
			Kind:         string(created.Kind),
			Key:          created.Key,
			Label:        label,
			ChangeStatus: string(overlay.StatusAdded),
		})
	}
	return nil, ListDraftEntitiesOutput{Entities: output}, nil
}

func (s *Server) handleEffectiveProperties(ctx context.Context, req *sdk.CallToolRequest, input EffectivePropertiesInput) (*sdk.CallToolResult, EffectivePropertiesOutput, error) {
	if input.Category == "" {
		return nil, EffectivePropertiesOutput{}, fmt.Errorf("category is required")
	}

	cs, err := s.loadChangeSet(ctx, input.Draft)
	if err != nil {
		return nil, EffectivePropertiesOutput{}, err
	}

	props, err := s.resolver.EffectiveProperties(ctx, cs, input.Category)
	if err != nil {
		return nil, EffectivePropertiesOutput{}, err
	}

	output := make([]PropertyProvenanceOutput, 0, len(props))
	for _, prop := range props {
		output = append(output, propertyProvenanceOutput(prop))
	}
	return nil, EffectivePropertiesOutput{Category: input.Category, Properties: output}, nil
}

func (s *Server) handleValidateDraft(ctx context.Context, req *sdk.CallToolRequest, input DraftIDInput) (*sdk.CallToolResult, ValidationReportOutput, error) {
	id, err := s.requireDraft(ctx, input.Draft)
	if err != nil {
		return nil, ValidationReportOutput{}, err
	}

	cs, err := overlay.LoadChangeSet(ctx, s.db, id)
	if err != nil {
		return nil, ValidationReportOutput{}, err
	}
	report, err := s.validator.Run(ctx, cs)
	if err != nil {
		return nil, ValidationReportOutput{}, err
	}
	return nil, validationReportOutput(report), nil
}

func (s *Server) handleRebaseDraft(ctx context.Context, req *sdk.CallToolRequest, input DraftIDInput) (*sdk.CallToolResult, RebaseOutcomeOutput, error) {
	id, err := s.requireDraft(ctx, input.Draft)
	if err != nil {
		return nil, RebaseOutcomeOutput{}, err
	}

	snap, err := s.db.CurrentSnapshot(ctx)
	if err != nil {
		return nil, RebaseOutcomeOutput{}, err
	}
	if snap == nil {
		return nil, RebaseOutcomeOutput{}, fmt.Errorf("no canonical snapshot recorded")
	}

	outcome, err := s.rebaser.Rebase(ctx, id, snap.ID)
	if err != nil {
		return nil, RebaseOutcomeOutput{}, err
	}
	return nil, rebaseOutcomeOutput(outcome), nil
}

func (s *Server) handleGetDraft(ctx context.Context, req *sdk.CallToolRequest, input DraftIDInput) (*sdk.CallToolResult, DraftOutput, error) {
	id, err := uuid.Parse(input.Draft)
	if err != nil {
		return nil, DraftOutput{}, fmt.Errorf("parsing draft id: %w", err)
	}
	draft, err := s.db.GetDraft(ctx, id)
	if err != nil {
		return nil, DraftOutput{}, err
	}
	if draft == nil {
		return nil, DraftOutput{}, fmt.Errorf("draft not found")
	}
	return nil, draftOutput(draft), nil
}

func (s *Server) handleListDrafts(ctx context.Context, req *sdk.CallToolRequest, input ListDraftsInput) (*sdk.CallToolResult, ListDraftsOutput, error) {
	drafts, err := s.db.ListDrafts(ctx, store.DraftStatus(input.Status))
	if err != nil {
		return nil, ListDraftsOutput{}, err
	}

	output := make([]DraftOutput, 0, len(drafts))
	for i := range drafts {
		output = append(output, draftOutput(&drafts[i]))
	}
	return nil, ListDraftsOutput{Drafts: output}, nil
}

// loadChangeSet resolves an optional draft id into its change set. An empty
// id means the canonical view: a nil change set.
func (s *Server) loadChangeSet(ctx context.Context, draft string) (*overlay.ChangeSet, error) {
	if draft == "" {
		return nil, nil
	}
	id, err := s.requireDraft(ctx, draft)
	if err != nil {
		return nil, err
	}
	return overlay.LoadChangeSet(ctx, s.db, id)
}

func (s *Server) requireDraft(ctx context.Context, draft string) (uuid.UUID, error) {
	id, err := uuid.Parse(draft)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing draft id: %w", err)
	}
	existing, err := s.db.GetDraft(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}
	if existing == nil {
		return uuid.Nil, fmt.Errorf("draft not found")
	}
	return id, nil
}

func effectiveEntityOutput(eff *overlay.EffectiveEntity) EffectiveEntityOutput {
	return EffectiveEntityOutput{
		Kind:     string(eff.Kind),
		Key:      eff.Key,
		Document: eff.Render(),
	}
}

func propertyProvenanceOutput(prop inherit.PropertyProvenance) PropertyProvenanceOutput {
	return PropertyProvenanceOutput{
		Key:      prop.Key,
		Label:    prop.Label,
		Required: prop.Required,
		Depth:    prop.Depth,
		Source:   prop.Source,
	}
}

func validationReportOutput(report *validate.Report) ValidationReportOutput {
	return ValidationReportOutput{
		IsValid:         report.IsValid,
		Errors:          findingOutputs(report.Errors),
		Warnings:        findingOutputs(report.Warnings),
		Info:            findingOutputs(report.Info),
		SuggestedSemver: string(report.SuggestedSemver),
		SemverReasons:   report.SemverReasons,
	}
}

func findingOutputs(findings []validate.Finding) []FindingOutput {
	output := make([]FindingOutput, 0, len(findings))
	for _, finding := range findings {
		output = append(output, FindingOutput{
			Kind:      string(finding.Kind),
			Key:       finding.Key,
			FieldPath: finding.FieldPath,
			Code:      finding.Code,
			Message:   finding.Message,
			Severity:  string(finding.Severity),
			Semver:    string(finding.Semver),
		})
	}
	return output
}

func rebaseOutcomeOutput(outcome *rebase.Outcome) RebaseOutcomeOutput {
	reasons := make([]RebaseReasonOutput, 0, len(outcome.Reasons))
	for _, reason := range outcome.Reasons {
		reasons = append(reasons, RebaseReasonOutput{
			Kind:       string(reason.Kind),
			Key:        reason.Key,
			ChangeType: string(reason.ChangeType),
			Status:     string(reason.Status),
			Reason:     reason.Reason,
		})
	}
	return RebaseOutcomeOutput{
		Status:     string(outcome.Status),
		SnapshotID: outcome.SnapshotID,
		Reasons:    reasons,
	}
}

func draftOutput(draft *store.Draft) DraftOutput {
	return DraftOutput{
		ID:               draft.ID.String(),
		Title:            draft.Title,
		Status:           string(draft.Status),
		BaseSnapshotID:   draft.BaseSnapshotID,
		RebaseStatus:     string(draft.RebaseStatus),
		RebaseSnapshotID: draft.RebaseSnapshotID,
		PullRequestURL:   draft.PullRequestURL,
		CreatedAt:        draft.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        draft.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
