package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"planwise/internal/domain"
	"planwise/internal/domain/models"
	"planwise/internal/domain/models/planning"
	domainllm "planwise/internal/domain/services/llm"
	"planwise/internal/service/auth"
	"planwise/internal/validate"
)

var errNoJSONObject = errors.New("no JSON object in model output")

const conflictSystemPrompt = `You review a project plan for contradictions between documents.
Compare the draft with each approved document and report every place where they disagree on scope, requirements, platforms, timeline, budget or technical decisions.
Reply with one JSON object and nothing else, shaped like:
{"has_conflicts": true, "severity": "none|minor|major|critical", "conflicts": [{"type": "scope", "description": "...", "conflicting_document_id": "...", "conflicting_step": 2, "severity": "major", "suggestion": "..."}], "recommendations": ["..."]}
Use "none" and an empty conflicts list when the documents agree.`

// AnalyzeConflicts compares a document with the official documents of the
// other steps of its project. The report is advisory and nothing is stored.
func (s *service) AnalyzeConflicts(ctx context.Context, actor models.Actor, documentID string) (*planning.ConflictReport, error) {
	if err := validate.UserID(actor.UserID); err != nil {
		return nil, err
	}
	if err := validate.ID("document_id", documentID); err != nil {
		return nil, err
	}

	doc, err := s.store.Documents.GetByID(ctx, documentID)
	if err == nil {
		err = s.authorizer.CanReadDocument(ctx, actor, doc)
	}
	if err != nil {
		return nil, auth.ConcealDocument(actor, documentID, err)
	}

	officials, err := s.store.Documents.ListOfficial(ctx, doc.ProjectID)
	if err != nil {
		return nil, err
	}
	others := make([]planning.Document, 0, len(officials))
	for _, official := range officials {
		if official.WorkflowStep != doc.WorkflowStep && official.ID != doc.ID {
			others = append(others, official)
		}
	}

	report := &planning.ConflictReport{
		DocumentID:        doc.ID,
		WorkflowStep:      doc.WorkflowStep,
		Severity:          planning.SeverityNone,
		Conflicts:         []planning.Conflict{},
		Recommendations:   []string{},
		ComparedDocuments: len(others),
		AnalyzedAt:        s.now().UTC(),
	}
	if len(others) == 0 {
		return report, nil
	}

	draft, err := s.screenDocument(doc)
	if err != nil {
		return nil, err
	}
	approved := make([]planning.Document, 0, len(others))
	for i := range others {
		screened, err := s.screenDocument(&others[i])
		if err != nil {
			return nil, err
		}
		approved = append(approved, *screened)
	}
	if err := s.limiter.Allow(); err != nil {
		return nil, err
	}

	var prompt strings.Builder
	prompt.WriteString("Draft under review:\n")
	s.writeDocument(&prompt, draft)
	prompt.WriteString("\nApproved documents:\n")
	for i := range approved {
		s.writeDocument(&prompt, &approved[i])
	}

	temperature := 0.0
	raw, err := s.complete(ctx, &domainllm.GenerateRequest{
		Model:       s.model.ID,
		System:      conflictSystemPrompt,
		Messages:    []domainllm.Message{{Role: domainllm.RoleUser, Text: prompt.String()}},
		MaxTokens:   s.model.AnalysisMaxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, err
	}

	if err := s.fillReport(report, raw, others); err != nil {
		s.logger.Warn("unparseable conflict analysis",
			"document_id", doc.ID,
			"error", err,
		)
		return nil, &domain.AIServiceError{Message: "ai service returned an unreadable conflict analysis", Err: err}
	}

	s.logger.Info("conflicts analyzed",
		"document_id", doc.ID,
		"compared", len(others),
		"conflicts", len(report.Conflicts),
		"severity", report.Severity,
	)
	return report, nil
}

// fillReport parses model output into report. The output may be wrapped in
// code fences or prose, and may use camelCase keys.
func (s *service) fillReport(report *planning.ConflictReport, raw string, compared []planning.Document) error {
	body, err := extractJSONObject(raw)
	if err != nil {
		return err
	}
	result := gjson.Parse(body)

	byID := make(map[string]*planning.Document, len(compared))
	byStep := make(map[int]*planning.Document, len(compared))
	for i := range compared {
		byID[compared[i].ID] = &compared[i]
		byStep[compared[i].WorkflowStep] = &compared[i]
	}

	field(result, "conflicts").ForEach(func(_, c gjson.Result) bool {
		conflict := planning.Conflict{
			Type:        s.sanitizer.Clean(field(c, "type").String()),
			Description: s.sanitizer.Clean(field(c, "description").String()),
			Severity:    planning.ParseSeverity(strings.ToLower(field(c, "severity").String())),
			Suggestion:  s.sanitizer.Clean(field(c, "suggestion").String()),
		}
		if conflict.Description == "" {
			return true
		}
		if conflict.Type == "" {
			conflict.Type = "inconsistency"
		}
		if conflict.Severity == planning.SeverityNone {
			conflict.Severity = planning.SeverityMinor
		}

		// Trust only references to documents that were actually compared
		if ref, ok := byID[field(c, "conflicting_document_id", "conflictingDocumentId").String()]; ok {
			conflict.ConflictingDocumentID, conflict.ConflictingStep = ref.ID, ref.WorkflowStep
		} else if ref, ok := byStep[int(field(c, "conflicting_step", "conflictingStep").Int())]; ok {
			conflict.ConflictingDocumentID, conflict.ConflictingStep = ref.ID, ref.WorkflowStep
		}

		report.Conflicts = append(report.Conflicts, conflict)
		return true
	})

	field(result, "recommendations").ForEach(func(_, r gjson.Result) bool {
		if text := strings.TrimSpace(s.sanitizer.Clean(r.String())); text != "" {
			report.Recommendations = append(report.Recommendations, text)
		}
		return true
	})

	report.HasConflicts = len(report.Conflicts) > 0 || field(result, "has_conflicts", "hasConflicts").Bool()
	if !report.HasConflicts {
		report.Severity = planning.SeverityNone
		return nil
	}

	severity := planning.ParseSeverity(strings.ToLower(field(result, "severity").String()))
	for _, c := range report.Conflicts {
		if c.Severity.Rank() > severity.Rank() {
			severity = c.Severity
		}
	}
	if severity == planning.SeverityNone {
		severity = planning.SeverityMinor
	}
	report.Severity = severity
	return nil
}

// field returns the first of the given keys present in r
func field(r gjson.Result, keys ...string) gjson.Result {
	for _, key := range keys {
		if v := r.Get(key); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// extractJSONObject finds the outermost JSON object in text
func extractJSONObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", errNoJSONObject
	}
	body := text[start : end+1]
	if !gjson.Valid(body) {
		return "", fmt.Errorf("invalid JSON object in model output")
	}
	return body, nil
}
