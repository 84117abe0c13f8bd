package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"planwise/internal/domain"
	models "planwise/internal/domain/models/planning"
	planningRepo "planwise/internal/domain/repositories/planning"
)

const documentColumns = `id, project_id, workflow_step, title, content, status, version,
	created_by, approved_by, superseded_by, created_at, updated_at, approved_at`

// DocumentRepository implements planningRepo.DocumentRepository for SQLite
type DocumentRepository struct {
	db     *DB
	logger *slog.Logger
}

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(db *DB, logger *slog.Logger) *DocumentRepository {
	return &DocumentRepository{db: db, logger: logger}
}

var _ planningRepo.DocumentRepository = (*DocumentRepository)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var status string
	var approvedBy, supersededBy sql.NullString
	var approvedAt sql.NullTime
	err := row.Scan(
		&doc.ID,
		&doc.ProjectID,
		&doc.WorkflowStep,
		&doc.Title,
		&doc.Content,
		&status,
		&doc.Version,
		&doc.CreatedBy,
		&approvedBy,
		&supersededBy,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&approvedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.Status = models.DocumentStatus(status)
	if approvedBy.Valid {
		doc.ApprovedBy = &approvedBy.String
	}
	if supersededBy.Valid {
		doc.SupersededBy = &supersededBy.String
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		doc.ApprovedAt = &t
	}
	return &doc, nil
}

func (r *DocumentRepository) queryDocuments(ctx context.Context, op, query string, args ...any) ([]models.Document, error) {
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, WrapError(op, err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(op, err)
	}
	return docs, nil
}

// Create inserts a private document at version 1
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doc.Status = models.StatusPrivate
	doc.Version = 1
	doc.CreatedAt = now
	doc.UpdatedAt = now

	query := `
		INSERT INTO planning_documents (id, project_id, workflow_step, title, content, status, version, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		doc.ID,
		doc.ProjectID,
		doc.WorkflowStep,
		doc.Title,
		doc.Content,
		string(doc.Status),
		doc.Version,
		doc.CreatedBy,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return mapWriteError("create document", "document", doc.ID, err)
	}
	return nil
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM planning_documents WHERE id = ?`

	doc, err := scanDocument(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", id)}
	}
	if err != nil {
		return nil, WrapError("get document", err)
	}
	return doc, nil
}

// List returns documents matching the filter
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	conds := []string{"project_id = ?"}
	args := []any{filter.ProjectID}
	if filter.WorkflowStep != nil {
		conds = append(conds, "workflow_step = ?")
		args = append(args, *filter.WorkflowStep)
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*filter.Status))
	}

	query := `SELECT ` + documentColumns + ` FROM planning_documents
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY workflow_step ASC, created_at ASC, id ASC`
	return r.queryDocuments(ctx, "list documents", query, args...)
}

// ListPending returns every pending document, most recently requested first
func (r *DocumentRepository) ListPending(ctx context.Context) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM planning_documents
		WHERE status = ?
		ORDER BY updated_at DESC, id DESC`
	return r.queryDocuments(ctx, "list pending documents", query, string(models.StatusPendingApproval))
}

// GetOfficial returns the official document of a step
func (r *DocumentRepository) GetOfficial(ctx context.Context, projectID string, step int) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM planning_documents
		WHERE project_id = ? AND workflow_step = ? AND status = ?
		ORDER BY approved_at DESC
		LIMIT 1`

	doc, err := scanDocument(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, projectID, step, string(models.StatusOfficial)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("no official document for step %d", step)}
	}
	if err != nil {
		return nil, WrapError("get official document", err)
	}
	return doc, nil
}

// ListOfficial returns the official document of every step in a project
func (r *DocumentRepository) ListOfficial(ctx context.Context, projectID string) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM planning_documents
		WHERE project_id = ? AND status = ?
		ORDER BY workflow_step ASC, approved_at DESC`
	return r.queryDocuments(ctx, "list official documents", query, projectID, string(models.StatusOfficial))
}

// UpdateTitle changes the title without a version bump
func (r *DocumentRepository) UpdateTitle(ctx context.Context, id string, expected models.DocumentStatus, title string) (*models.Document, error) {
	query := `UPDATE planning_documents SET title = ?, updated_at = ? WHERE id = ? AND status = ?`
	return r.casUpdate(ctx, "update document title", id, expected, query, title, time.Now().UTC(), id, string(expected))
}

// UpdateContent replaces title and content and increments the version
func (r *DocumentRepository) UpdateContent(ctx context.Context, id string, expected models.DocumentStatus, title, content string) (*models.Document, error) {
	query := `UPDATE planning_documents
		SET title = ?, content = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND status = ?`
	return r.casUpdate(ctx, "update document content", id, expected, query, title, content, time.Now().UTC(), id, string(expected))
}

// BumpVersion increments the version without touching title or content
func (r *DocumentRepository) BumpVersion(ctx context.Context, id string, expected models.DocumentStatus) (*models.Document, error) {
	query := `UPDATE planning_documents SET version = version + 1, updated_at = ? WHERE id = ? AND status = ?`
	return r.casUpdate(ctx, "bump document version", id, expected, query, time.Now().UTC(), id, string(expected))
}

// TransitionStatus applies a compare-and-swap on status
func (r *DocumentRepository) TransitionStatus(ctx context.Context, t planningRepo.StatusTransition) (*models.Document, error) {
	now := time.Now().UTC()
	var approvedAt any
	if t.To == models.StatusOfficial {
		approvedAt = now
	}

	query := `UPDATE planning_documents SET
			status = ?,
			approved_by = COALESCE(?, approved_by),
			approved_at = COALESCE(?, approved_at),
			superseded_by = COALESCE(?, superseded_by),
			updated_at = ?
		WHERE id = ? AND status = ?`

	doc, err := r.casUpdate(ctx, "transition document status", t.DocumentID, t.From, query,
		string(t.To),
		nullableString(t.ApprovedBy),
		approvedAt,
		nullableString(t.SupersededBy),
		now,
		t.DocumentID,
		string(t.From),
	)
	if isUniqueViolation(err) {
		return nil, &domain.ConflictError{
			Message:      "another document of this step was approved concurrently",
			ResourceType: "document",
			ResourceID:   t.DocumentID,
		}
	}
	return doc, err
}

// Delete removes the document while it still holds the expected status
func (r *DocumentRepository) Delete(ctx context.Context, id string, expected models.DocumentStatus) error {
	res, err := GetExecutor(ctx, r.db).ExecContext(ctx,
		`DELETE FROM planning_documents WHERE id = ? AND status = ?`, id, string(expected))
	if err != nil {
		return WrapError("delete document", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.casFailure(ctx, "delete document", id, expected)
	}
	return nil
}

// casUpdate runs a guarded UPDATE and reloads the row. Callers run it inside
// a transaction so the reload observes the row it wrote.
func (r *DocumentRepository) casUpdate(ctx context.Context, op, id string, expected models.DocumentStatus, query string, args ...any) (*models.Document, error) {
	res, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, err
		}
		return nil, WrapError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, WrapError(op, err)
	}
	if n == 0 {
		return nil, r.casFailure(ctx, op, id, expected)
	}
	return r.GetByID(ctx, id)
}

// casFailure explains a compare-and-swap that matched no row
func (r *DocumentRepository) casFailure(ctx context.Context, op, id string, expected models.DocumentStatus) error {
	var current string
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, `SELECT status FROM planning_documents WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", id)}
	}
	if err != nil {
		return WrapError(op, err)
	}

	r.logger.Debug("document status changed concurrently",
		"document_id", id,
		"expected", expected,
		"current", current,
	)
	return &domain.ConflictError{
		Message:      fmt.Sprintf("document %s is %s, expected %s", id, current, expected),
		ResourceType: "document",
		ResourceID:   id,
	}
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
