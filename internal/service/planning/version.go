package planning

import (
	"context"
	"log/slog"

	"planwise/internal/domain/models"
	"planwise/internal/domain/models/planning"
	planningRepo "planwise/internal/domain/repositories/planning"
	planningSvc "planwise/internal/domain/services/planning"
	"planwise/internal/validate"
)

// versionService implements the VersionService interface
type versionService struct {
	*engine
}

// NewVersionService creates a new version and audit trail service
func NewVersionService(
	store *planningRepo.Store,
	authorizer planningSvc.ResourceAuthorizer,
	publisher planningSvc.EventPublisher,
	logger *slog.Logger,
) planningSvc.VersionService {
	return &versionService{
		engine: &engine{
			store:      store,
			authorizer: authorizer,
			publisher:  publisher,
			logger:     logger,
		},
	}
}

// ListVersions returns every snapshot of a document, oldest first
func (s *versionService) ListVersions(ctx context.Context, actor models.Actor, documentID string) ([]planning.DocumentVersion, error) {
	if _, err := s.loadReadable(ctx, actor, documentID); err != nil {
		return nil, err
	}
	return s.store.Versions.List(ctx, documentID)
}

// GetVersion returns one snapshot
func (s *versionService) GetVersion(ctx context.Context, actor models.Actor, documentID string, version int) (*planning.DocumentVersion, error) {
	if err := validate.Version("version", version); err != nil {
		return nil, err
	}
	if _, err := s.loadReadable(ctx, actor, documentID); err != nil {
		return nil, err
	}
	return s.store.Versions.Get(ctx, documentID, version)
}

// DiffVersions compares two snapshots line by line
func (s *versionService) DiffVersions(ctx context.Context, actor models.Actor, documentID string, from, to int) (*planning.VersionDiff, error) {
	if err := validate.Version("from", from); err != nil {
		return nil, err
	}
	if err := validate.Version("to", to); err != nil {
		return nil, err
	}
	if _, err := s.loadReadable(ctx, actor, documentID); err != nil {
		return nil, err
	}

	older, err := s.store.Versions.Get(ctx, documentID, from)
	if err != nil {
		return nil, err
	}
	newer, err := s.store.Versions.Get(ctx, documentID, to)
	if err != nil {
		return nil, err
	}

	diff := DiffLines(older.Content, newer.Content)
	diff.DocumentID = documentID
	diff.FromVersion = from
	diff.ToVersion = to
	return diff, nil
}

// RestoreVersion brings back an earlier snapshot. The content as stored at
// write time is recorded first so nothing is lost, then the target content
// becomes the next version. Version numbers keep increasing.
func (s *versionService) RestoreVersion(ctx context.Context, actor models.Actor, documentID string, version int) (*planning.Document, error) {
	if err := validate.Version("version", version); err != nil {
		return nil, err
	}
	doc, err := s.loadDocument(ctx, actor, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAuthorOfDraft(ctx, actor, doc, "restore"); err != nil {
		return nil, err
	}

	target, err := s.store.Versions.Get(ctx, documentID, version)
	if err != nil {
		return nil, err
	}

	var restored *planning.Document
	err = s.store.Tx.ExecTx(ctx, func(ctx context.Context) error {
		// The bump locks the row, so an edit committed after the load above
		// is what gets snapshotted
		snapshot, err := s.store.Documents.BumpVersion(ctx, doc.ID, planning.StatusPrivate)
		if err != nil {
			return err
		}
		if err := s.recordVersion(ctx, snapshot, actor.UserID); err != nil {
			return err
		}

		restored, err = s.store.Documents.UpdateContent(ctx, doc.ID, planning.StatusPrivate, target.Title, target.Content)
		if err != nil {
			return err
		}
		if err := s.recordVersion(ctx, restored, actor.UserID); err != nil {
			return err
		}

		s.publishAfterCommit(ctx, planning.EventVersionRecorded, restored)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document version restored",
		"document_id", doc.ID,
		"restored_version", version,
		"new_version", restored.Version,
		"user_id", actor.UserID,
	)

	return restored, nil
}

// ListApprovalHistory returns the audit trail of a document, oldest first
func (s *versionService) ListApprovalHistory(ctx context.Context, actor models.Actor, documentID string) ([]planning.ApprovalHistoryEntry, error) {
	if _, err := s.loadReadable(ctx, actor, documentID); err != nil {
		return nil, err
	}
	return s.store.History.List(ctx, documentID)
}
