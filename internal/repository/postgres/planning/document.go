package planning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"planwise/internal/domain"
	models "planwise/internal/domain/models/planning"
	planningRepo "planwise/internal/domain/repositories/planning"
	"planwise/internal/repository/postgres"
)

const documentColumns = `id, project_id, workflow_step, title, content, status, version,
	created_by, approved_by, superseded_by, created_at, updated_at, approved_at`

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *postgres.RepositoryConfig) planningRepo.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var doc models.Document
	var status string
	err := row.Scan(
		&doc.ID,
		&doc.ProjectID,
		&doc.WorkflowStep,
		&doc.Title,
		&doc.Content,
		&status,
		&doc.Version,
		&doc.CreatedBy,
		&doc.ApprovedBy,
		&doc.SupersededBy,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&doc.ApprovedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.Status = models.DocumentStatus(status)
	return &doc, nil
}

func collectDocuments(rows pgx.Rows) ([]models.Document, error) {
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// Create inserts a private document at version 1
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doc.Status = models.StatusPrivate
	doc.Version = 1
	doc.CreatedAt = now
	doc.UpdatedAt = now

	query := fmt.Sprintf(`
		INSERT INTO %s (id, project_id, workflow_step, title, content, status, version, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
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
		return postgres.MapWriteError("create document", "document", doc.ID, err)
	}
	return nil
}

// GetByID retrieves a document by ID
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, documentColumns, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", id)}
		}
		return nil, postgres.WrapError("get document", err)
	}
	return doc, nil
}

// List returns documents matching the filter
func (r *PostgresDocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	conds := []string{"project_id = $1"}
	args := []interface{}{filter.ProjectID}
	if filter.WorkflowStep != nil {
		args = append(args, *filter.WorkflowStep)
		conds = append(conds, fmt.Sprintf("workflow_step = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY workflow_step ASC, created_at ASC, id ASC
	`, documentColumns, r.tables.Documents, strings.Join(conds, " AND "))

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.WrapError("list documents", err)
	}
	return collectDocuments(rows)
}

// ListPending returns every pending document, most recently requested first
func (r *PostgresDocumentRepository) ListPending(ctx context.Context) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE status = $1
		ORDER BY updated_at DESC, id DESC
	`, documentColumns, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, string(models.StatusPendingApproval))
	if err != nil {
		return nil, postgres.WrapError("list pending documents", err)
	}
	return collectDocuments(rows)
}

// GetOfficial returns the official document of a step
func (r *PostgresDocumentRepository) GetOfficial(ctx context.Context, projectID string, step int) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE project_id = $1 AND workflow_step = $2 AND status = $3
		ORDER BY approved_at DESC NULLS LAST
		LIMIT 1
	`, documentColumns, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, projectID, step, string(models.StatusOfficial)))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("no official document for step %d", step)}
		}
		return nil, postgres.WrapError("get official document", err)
	}
	return doc, nil
}

// ListOfficial returns the official document of every step in a project
func (r *PostgresDocumentRepository) ListOfficial(ctx context.Context, projectID string) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE project_id = $1 AND status = $2
		ORDER BY workflow_step ASC, approved_at DESC NULLS LAST
	`, documentColumns, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, projectID, string(models.StatusOfficial))
	if err != nil {
		return nil, postgres.WrapError("list official documents", err)
	}
	return collectDocuments(rows)
}

// UpdateTitle changes the title without a version bump
func (r *PostgresDocumentRepository) UpdateTitle(ctx context.Context, id string, expected models.DocumentStatus, title string) (*models.Document, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET title = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING %s
	`, r.tables.Documents, documentColumns)

	executor := postgres.GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, id, string(expected), title, time.Now().UTC()))
	if err != nil {
		return nil, r.casError(ctx, "update document title", id, expected, err)
	}
	return doc, nil
}

// BumpVersion increments the version without touching title or content
func (r *PostgresDocumentRepository) BumpVersion(ctx context.Context, id string, expected models.DocumentStatus) (*models.Document, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET version = version + 1, updated_at = $3
		WHERE id = $1 AND status = $2
		RETURNING %s
	`, r.tables.Documents, documentColumns)

	executor := postgres.GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, id, string(expected), time.Now().UTC()))
	if err != nil {
		return nil, r.casError(ctx, "bump document version", id, expected, err)
	}
	return doc, nil
}

// UpdateContent replaces title and content and increments the version
func (r *PostgresDocumentRepository) UpdateContent(ctx context.Context, id string, expected models.DocumentStatus, title, content string) (*models.Document, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET title = $3, content = $4, version = version + 1, updated_at = $5
		WHERE id = $1 AND status = $2
		RETURNING %s
	`, r.tables.Documents, documentColumns)

	executor := postgres.GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, id, string(expected), title, content, time.Now().UTC()))
	if err != nil {
		return nil, r.casError(ctx, "update document content", id, expected, err)
	}
	return doc, nil
}

// TransitionStatus applies a compare-and-swap on status
func (r *PostgresDocumentRepository) TransitionStatus(ctx context.Context, t planningRepo.StatusTransition) (*models.Document, error) {
	now := time.Now().UTC()
	var approvedAt *time.Time
	if t.To == models.StatusOfficial {
		approvedAt = &now
	}

	query := fmt.Sprintf(`
		UPDATE %s SET
			status = $3,
			approved_by = COALESCE($4::text, approved_by),
			approved_at = COALESCE($5::timestamptz, approved_at),
			superseded_by = COALESCE($6::uuid, superseded_by),
			updated_at = $7
		WHERE id = $1 AND status = $2
		RETURNING %s
	`, r.tables.Documents, documentColumns)

	executor := postgres.GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query,
		t.DocumentID,
		string(t.From),
		string(t.To),
		t.ApprovedBy,
		approvedAt,
		t.SupersededBy,
		now,
	))
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return nil, &domain.ConflictError{
				Message:      "another document of this step was approved concurrently",
				ResourceType: "document",
				ResourceID:   t.DocumentID,
			}
		}
		return nil, r.casError(ctx, "transition document status", t.DocumentID, t.From, err)
	}
	return doc, nil
}

// Delete removes the document while it still holds the expected status
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id string, expected models.DocumentStatus) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND status = $2`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id, string(expected))
	if err != nil {
		return postgres.WrapError("delete document", err)
	}
	if tag.RowsAffected() == 0 {
		return r.casError(ctx, "delete document", id, expected, pgx.ErrNoRows)
	}
	return nil
}

// casError explains a compare-and-swap that matched no row: the document is
// either gone or no longer holds the expected status.
func (r *PostgresDocumentRepository) casError(ctx context.Context, op, id string, expected models.DocumentStatus, err error) error {
	if !postgres.IsPgNoRowsError(err) {
		return postgres.WrapError(op, err)
	}

	query := fmt.Sprintf(`SELECT status FROM %s WHERE id = $1`, r.tables.Documents)
	var current string
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, id).Scan(&current); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", id)}
		}
		return postgres.WrapError(op, err)
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
