package planning

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"planwise/internal/domain"
	models "planwise/internal/domain/models/planning"
	planningRepo "planwise/internal/domain/repositories/planning"
	"planwise/internal/repository/postgres"
)

// PostgresVersionRepository implements the VersionRepository interface
type PostgresVersionRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewVersionRepository creates a new version repository
func NewVersionRepository(config *postgres.RepositoryConfig) planningRepo.VersionRepository {
	return &PostgresVersionRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create appends a version snapshot
func (r *PostgresVersionRepository) Create(ctx context.Context, v *models.DocumentVersion) error {
	v.CreatedAt = time.Now().UTC()
	query := fmt.Sprintf(`
		INSERT INTO %s (document_id, version, title, content, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.tables.DocumentVersions)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query, v.DocumentID, v.Version, v.Title, v.Content, v.CreatedBy, v.CreatedAt)
	if err != nil {
		return postgres.MapWriteError("record version", "document_version", fmt.Sprintf("%s@%d", v.DocumentID, v.Version), err)
	}
	return nil
}

// List returns every snapshot of a document ordered by version
func (r *PostgresVersionRepository) List(ctx context.Context, documentID string) ([]models.DocumentVersion, error) {
	query := fmt.Sprintf(`
		SELECT document_id, version, title, content, created_by, created_at
		FROM %s
		WHERE document_id = $1
		ORDER BY version ASC
	`, r.tables.DocumentVersions)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, documentID)
	if err != nil {
		return nil, postgres.WrapError("list versions", err)
	}
	defer rows.Close()

	versions := []models.DocumentVersion{}
	for rows.Next() {
		var v models.DocumentVersion
		if err := rows.Scan(&v.DocumentID, &v.Version, &v.Title, &v.Content, &v.CreatedBy, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}
	return versions, nil
}

// Get returns one snapshot
func (r *PostgresVersionRepository) Get(ctx context.Context, documentID string, version int) (*models.DocumentVersion, error) {
	query := fmt.Sprintf(`
		SELECT document_id, version, title, content, created_by, created_at
		FROM %s
		WHERE document_id = $1 AND version = $2
	`, r.tables.DocumentVersions)

	var v models.DocumentVersion
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, documentID, version).Scan(
		&v.DocumentID, &v.Version, &v.Title, &v.Content, &v.CreatedBy, &v.CreatedAt,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("version %d of document %s not found", version, documentID)}
		}
		return nil, postgres.WrapError("get version", err)
	}
	return &v, nil
}

// PostgresApprovalHistoryRepository implements the ApprovalHistoryRepository interface
type PostgresApprovalHistoryRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewApprovalHistoryRepository creates a new approval history repository
func NewApprovalHistoryRepository(config *postgres.RepositoryConfig) planningRepo.ApprovalHistoryRepository {
	return &PostgresApprovalHistoryRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Append writes an audit row
func (r *PostgresApprovalHistoryRepository) Append(ctx context.Context, e *models.ApprovalHistoryEntry) error {
	e.CreatedAt = time.Now().UTC()
	query := fmt.Sprintf(`
		INSERT INTO %s (document_id, user_id, action, previous_status, new_status, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, r.tables.ApprovalHistory)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		e.DocumentID,
		e.UserID,
		string(e.Action),
		string(e.PreviousStatus),
		string(e.NewStatus),
		e.Reason,
		e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return postgres.MapWriteError("append approval history", "approval_history", e.DocumentID, err)
	}
	return nil
}

// List returns a document's audit rows oldest first
func (r *PostgresApprovalHistoryRepository) List(ctx context.Context, documentID string) ([]models.ApprovalHistoryEntry, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, user_id, action, previous_status, new_status, reason, created_at
		FROM %s
		WHERE document_id = $1
		ORDER BY created_at ASC, id ASC
	`, r.tables.ApprovalHistory)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, documentID)
	if err != nil {
		return nil, postgres.WrapError("list approval history", err)
	}
	defer rows.Close()

	entries := []models.ApprovalHistoryEntry{}
	for rows.Next() {
		var e models.ApprovalHistoryEntry
		var action, prev, next string
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.UserID, &action, &prev, &next, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan approval history: %w", err)
		}
		e.Action = models.ApprovalAction(action)
		e.PreviousStatus = models.DocumentStatus(prev)
		e.NewStatus = models.DocumentStatus(next)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approval history: %w", err)
	}
	return entries, nil
}
