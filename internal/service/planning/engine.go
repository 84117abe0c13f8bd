// Package planning implements the document lifecycle engine, the version and
// audit trail, and project membership on top of the planning repositories.
package planning

import (
	"context"
	"log/slog"

	"planwise/internal/domain/models"
	"planwise/internal/domain/models/planning"
	"planwise/internal/domain/repositories"
	planningRepo "planwise/internal/domain/repositories/planning"
	planningSvc "planwise/internal/domain/services/planning"
	"planwise/internal/service/auth"
	"planwise/internal/validate"
)

// engine holds what the document and version services share: the store,
// the access rules and the on-commit event publisher.
type engine struct {
	store      *planningRepo.Store
	authorizer planningSvc.ResourceAuthorizer
	publisher  planningSvc.EventPublisher
	logger     *slog.Logger
}

// loadDocument validates the identifiers and fetches a document of a project
// the actor belongs to. Non-members get the same error whether or not the
// document exists. Per-operation rules are checked by the caller.
func (e *engine) loadDocument(ctx context.Context, actor models.Actor, documentID string) (*planning.Document, error) {
	if err := validate.UserID(actor.UserID); err != nil {
		return nil, err
	}
	if err := validate.ID("document_id", documentID); err != nil {
		return nil, err
	}
	doc, err := e.store.Documents.GetByID(ctx, documentID)
	if err == nil {
		err = e.authorizer.CanAccessProject(ctx, actor, doc.ProjectID)
	}
	if err != nil {
		return nil, auth.ConcealDocument(actor, documentID, err)
	}
	return doc, nil
}

// loadReadable fetches a document the actor is allowed to read
func (e *engine) loadReadable(ctx context.Context, actor models.Actor, documentID string) (*planning.Document, error) {
	doc, err := e.loadDocument(ctx, actor, documentID)
	if err != nil {
		return nil, err
	}
	if err := e.authorizer.CanReadDocument(ctx, actor, doc); err != nil {
		return nil, auth.ConcealDocument(actor, documentID, err)
	}
	return doc, nil
}

// recordVersion snapshots the document as stored. Must run in the same
// transaction as the content write.
func (e *engine) recordVersion(ctx context.Context, doc *planning.Document, userID string) error {
	return e.store.Versions.Create(ctx, &planning.DocumentVersion{
		DocumentID: doc.ID,
		Version:    doc.Version,
		Title:      doc.Title,
		Content:    doc.Content,
		CreatedBy:  userID,
	})
}

// transition applies a status CAS and its audit entry
func (e *engine) transition(
	ctx context.Context,
	t planningRepo.StatusTransition,
	action planning.ApprovalAction,
	userID string,
	reason *string,
) (*planning.Document, error) {
	doc, err := e.store.Documents.TransitionStatus(ctx, t)
	if err != nil {
		return nil, err
	}

	entry := &planning.ApprovalHistoryEntry{
		DocumentID:     t.DocumentID,
		UserID:         userID,
		Action:         action,
		PreviousStatus: t.From,
		NewStatus:      t.To,
		Reason:         reason,
	}
	if err := e.store.History.Append(ctx, entry); err != nil {
		return nil, err
	}

	e.publishAfterCommit(ctx, planning.EventStatusChanged, doc)
	return doc, nil
}

// publishAfterCommit queues an event carrying a snapshot of doc. Nothing is
// published when the surrounding transaction rolls back.
func (e *engine) publishAfterCommit(ctx context.Context, eventType planning.EventType, doc *planning.Document) {
	snapshot := *doc
	event := &planning.Event{
		Type:         eventType,
		ProjectID:    doc.ProjectID,
		WorkflowStep: doc.WorkflowStep,
		DocumentID:   doc.ID,
		Version:      doc.Version,
	}
	if eventType != planning.EventDocumentDeleted {
		event.Document = &snapshot
	}

	pubCtx := context.WithoutCancel(ctx)
	repositories.AfterCommit(ctx, func() {
		e.publisher.Publish(pubCtx, event)
	})
}
