package planning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"planwise/internal/config"
	"planwise/internal/domain"
	"planwise/internal/domain/models"
	"planwise/internal/domain/models/planning"
	planningRepo "planwise/internal/domain/repositories/planning"
	planningSvc "planwise/internal/domain/services/planning"
	"planwise/internal/service/auth"
	"planwise/internal/validate"
)

// documentService implements the DocumentService interface
type documentService struct {
	*engine
}

// NewDocumentService creates a new document lifecycle service
func NewDocumentService(
	store *planningRepo.Store,
	authorizer planningSvc.ResourceAuthorizer,
	publisher planningSvc.EventPublisher,
	logger *slog.Logger,
) planningSvc.DocumentService {
	return &documentService{
		engine: &engine{
			store:      store,
			authorizer: authorizer,
			publisher:  publisher,
			logger:     logger,
		},
	}
}

// CreateDocument creates a private draft at version 1
func (s *documentService) CreateDocument(ctx context.Context, actor models.Actor, req *planningSvc.CreateDocumentRequest) (*planning.Document, error) {
	if err := validate.UserID(actor.UserID); err != nil {
		return nil, err
	}
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}
	if err := s.authorizer.CanAccessProject(ctx, actor, req.ProjectID); err != nil {
		return nil, err
	}

	doc := &planning.Document{
		ProjectID:    req.ProjectID,
		WorkflowStep: req.WorkflowStep,
		Title:        strings.TrimSpace(req.Title),
		Content:      req.Content,
		Status:       planning.StatusPrivate,
		Version:      1,
		CreatedBy:    actor.UserID,
	}

	err := s.store.Tx.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.store.Documents.Create(ctx, doc); err != nil {
			return err
		}
		if err := s.recordVersion(ctx, doc, actor.UserID); err != nil {
			return err
		}
		s.publishAfterCommit(ctx, planning.EventDocumentCreated, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document created",
		"document_id", doc.ID,
		"project_id", doc.ProjectID,
		"workflow_step", doc.WorkflowStep,
		"user_id", actor.UserID,
	)

	return doc, nil
}

// UpdateDocument edits the author's private draft
func (s *documentService) UpdateDocument(ctx context.Context, actor models.Actor, documentID string, req *planningSvc.UpdateDocumentRequest) (*planning.Document, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, err
	}
	doc, err := s.loadDocument(ctx, actor, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAuthorOfDraft(ctx, actor, doc, "edit"); err != nil {
		return nil, err
	}

	title := doc.Title
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
	}
	contentChanged := req.Content != nil && *req.Content != doc.Content
	if !contentChanged && title == doc.Title {
		return doc, nil
	}

	var updated *planning.Document
	err = s.store.Tx.ExecTx(ctx, func(ctx context.Context) error {
		if !contentChanged {
			updated, err = s.store.Documents.UpdateTitle(ctx, doc.ID, planning.StatusPrivate, title)
			if err != nil {
				return err
			}
			s.publishAfterCommit(ctx, planning.EventDocumentUpdated, updated)
			return nil
		}

		updated, err = s.store.Documents.UpdateContent(ctx, doc.ID, planning.StatusPrivate, title, *req.Content)
		if err != nil {
			return err
		}
		if err := s.recordVersion(ctx, updated, actor.UserID); err != nil {
			return err
		}
		s.publishAfterCommit(ctx, planning.EventVersionRecorded, updated)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("document updated",
		"document_id", updated.ID,
		"version", updated.Version,
		"content_changed", contentChanged,
	)

	return updated, nil
}

// RequestApproval submits the author's private draft for review
func (s *documentService) RequestApproval(ctx context.Context, actor models.Actor, documentID string) (*planning.Document, error) {
	doc, err := s.loadDocument(ctx, actor, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.CanReadDocument(ctx, actor, doc); err != nil {
		return nil, auth.ConcealDocument(actor, documentID, err)
	}
	if !doc.IsAuthor(actor.UserID) {
		return nil, &domain.ForbiddenError{Message: "only the author can request approval"}
	}

	switch doc.Status {
	case planning.StatusPrivate:
	case planning.StatusPendingApproval:
		return nil, &domain.ValidationError{Message: "document is already pending approval"}
	case planning.StatusOfficial:
		return nil, &domain.ValidationError{Message: "document is already approved"}
	default:
		return nil, &domain.ValidationError{Message: fmt.Sprintf("document is %s and cannot be submitted", doc.Status)}
	}

	var updated *planning.Document
	err = s.store.Tx.ExecTx(ctx, func(ctx context.Context) error {
		updated, err = s.transition(ctx, planningRepo.StatusTransition{
			DocumentID: doc.ID,
			From:       planning.StatusPrivate,
			To:         planning.StatusPendingApproval,
		}, planning.ActionRequested, actor.UserID, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("approval requested",
		"document_id", doc.ID,
		"project_id", doc.ProjectID,
		"workflow_step", doc.WorkflowStep,
		"user_id", actor.UserID,
	)

	return updated, nil
}

// Approve makes a pending document the official one of its step, moving the
// previous official document to superseded in the same transaction.
func (s *documentService) Approve(ctx context.Context, actor models.Actor, documentID string) (*planning.Document, error) {
	doc, err := s.loadPendingForReview(ctx, actor, documentID)
	if err != nil {
		return nil, err
	}

	var approved *planning.Document
	var superseded string
	err = s.store.Tx.ExecTx(ctx, func(ctx context.Context) error {
		prior, err := s.store.Documents.GetOfficial(ctx, doc.ProjectID, doc.WorkflowStep)
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			return err
		case prior.ID != doc.ID:
			if _, err := s.transition(ctx, planningRepo.StatusTransition{
				DocumentID:   prior.ID,
				From:         planning.StatusOfficial,
				To:           planning.StatusSuperseded,
				SupersededBy: &doc.ID,
			}, planning.ActionSuperseded, actor.UserID, nil); err != nil {
				return err
			}
			superseded = prior.ID
		}

		approved, err = s.transition(ctx, planningRepo.StatusTransition{
			DocumentID: doc.ID,
			From:       planning.StatusPendingApproval,
			To:         planning.StatusOfficial,
			ApprovedBy: &actor.UserID,
		}, planning.ActionApproved, actor.UserID, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document approved",
		"document_id", doc.ID,
		"project_id", doc.ProjectID,
		"workflow_step", doc.WorkflowStep,
		"approved_by", actor.UserID,
		"superseded", superseded,
	)

	return approved, nil
}

// Reject returns a pending document to its author as a private draft
func (s *documentService) Reject(ctx context.Context, actor models.Actor, documentID string, reason *string) (*planning.Document, error) {
	if err := validate.Reason(reason); err != nil {
		return nil, err
	}
	if reason != nil {
		trimmed := strings.TrimSpace(*reason)
		if trimmed == "" {
			reason = nil
		} else {
			reason = &trimmed
		}
	}

	doc, err := s.loadPendingForReview(ctx, actor, documentID)
	if err != nil {
		return nil, err
	}

	var rejected *planning.Document
	err = s.store.Tx.ExecTx(ctx, func(ctx context.Context) error {
		rejected, err = s.transition(ctx, planningRepo.StatusTransition{
			DocumentID: doc.ID,
			From:       planning.StatusPendingApproval,
			To:         planning.StatusPrivate,
		}, planning.ActionRejected, actor.UserID, reason)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document rejected",
		"document_id", doc.ID,
		"rejected_by", actor.UserID,
		"has_reason", reason != nil,
	)

	return rejected, nil
}

// GetDocument retrieves a document the caller may read
func (s *documentService) GetDocument(ctx context.Context, actor models.Actor, documentID string) (*planning.Document, error) {
	return s.loadReadable(ctx, actor, documentID)
}

// DeleteDocument removes a document. Authors may delete their private drafts;
// administrators may delete anything that is not official.
func (s *documentService) DeleteDocument(ctx context.Context, actor models.Actor, documentID string) error {
	doc, err := s.loadDocument(ctx, actor, documentID)
	if err != nil {
		return err
	}

	if actor.IsAdmin {
		if doc.Status == planning.StatusOfficial {
			return &domain.ValidationError{Message: "official documents cannot be deleted; approve a replacement instead"}
		}
	} else if err := s.requireAuthorOfDraft(ctx, actor, doc, "delete"); err != nil {
		return err
	}

	err = s.store.Tx.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.store.Documents.Delete(ctx, doc.ID, doc.Status); err != nil {
			return err
		}
		s.publishAfterCommit(ctx, planning.EventDocumentDeleted, doc)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("document deleted",
		"document_id", doc.ID,
		"status", doc.Status,
		"user_id", actor.UserID,
	)

	return nil
}

// ListDocuments lists a project's documents, hiding other members' drafts
func (s *documentService) ListDocuments(ctx context.Context, actor models.Actor, req *planningSvc.ListDocumentsRequest) ([]planning.Document, error) {
	if err := validate.UserID(actor.UserID); err != nil {
		return nil, err
	}
	if err := validate.ID("project_id", req.ProjectID); err != nil {
		return nil, err
	}
	if req.WorkflowStep != nil {
		if err := validate.Step(*req.WorkflowStep); err != nil {
			return nil, err
		}
	}
	if err := s.authorizer.CanAccessProject(ctx, actor, req.ProjectID); err != nil {
		return nil, err
	}

	docs, err := s.store.Documents.List(ctx, planning.DocumentFilter{
		ProjectID:    req.ProjectID,
		WorkflowStep: req.WorkflowStep,
		Status:       req.Status,
	})
	if err != nil {
		return nil, err
	}

	visible := docs[:0]
	for _, doc := range docs {
		if doc.IsSharedWithProject() || actor.IsAdmin || doc.IsAuthor(actor.UserID) {
			visible = append(visible, doc)
		}
	}
	return visible, nil
}

// ListPendingApprovals returns the review queue, newest first
func (s *documentService) ListPendingApprovals(ctx context.Context, actor models.Actor) ([]planning.Document, error) {
	if err := s.authorizer.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.store.Documents.ListPending(ctx)
}

// loadPendingForReview applies the reviewer checks shared by approve and
// reject: administrator first, then the pending precondition.
func (s *documentService) loadPendingForReview(ctx context.Context, actor models.Actor, documentID string) (*planning.Document, error) {
	if err := s.authorizer.RequireAdmin(actor); err != nil {
		return nil, err
	}
	doc, err := s.loadDocument(ctx, actor, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != planning.StatusPendingApproval {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("document is %s, not pending approval", doc.Status)}
	}
	return doc, nil
}

// requireAuthorOfDraft enforces that only the author touches a draft, and
// only while it is private.
func (e *engine) requireAuthorOfDraft(ctx context.Context, actor models.Actor, doc *planning.Document, verb string) error {
	if err := e.authorizer.CanReadDocument(ctx, actor, doc); err != nil {
		return auth.ConcealDocument(actor, doc.ID, err)
	}
	if !doc.IsAuthor(actor.UserID) {
		return &domain.ForbiddenError{Message: fmt.Sprintf("only the author can %s this document", verb)}
	}
	if doc.Status != planning.StatusPrivate {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("document is %s; only private drafts can be changed", doc.Status),
			ResourceType: "document",
			ResourceID:   doc.ID,
		}
	}
	return nil
}

// validateCreateRequest validates a create document request
func (s *documentService) validateCreateRequest(req *planningSvc.CreateDocumentRequest) error {
	return validate.Wrap(validation.ValidateStruct(req,
		validation.Field(&req.ProjectID, validation.Required, validate.UUID),
		validation.Field(&req.WorkflowStep, validate.StepRules...),
		validation.Field(&req.Title,
			validation.Required,
			validation.By(notBlank),
			validation.RuneLength(1, config.MaxDocumentTitleLength),
		),
		validation.Field(&req.Content, validation.RuneLength(0, config.MaxDocumentContentLength)),
	))
}

// validateUpdateRequest validates an update document request
func (s *documentService) validateUpdateRequest(req *planningSvc.UpdateDocumentRequest) error {
	if req == nil || (req.Title == nil && req.Content == nil) {
		return &domain.ValidationError{Message: "title or content is required"}
	}
	if req.Title != nil {
		if err := validate.Title(*req.Title); err != nil {
			return err
		}
	}
	if req.Content != nil {
		if err := validate.Content(*req.Content); err != nil {
			return err
		}
	}
	return nil
}

func notBlank(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}
