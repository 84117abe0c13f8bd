package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"planwise/internal/domain"
	models "planwise/internal/domain/models/planning"
	planningRepo "planwise/internal/domain/repositories/planning"
)

// VersionRepository implements planningRepo.VersionRepository for SQLite
type VersionRepository struct {
	db *DB
}

// NewVersionRepository creates a new VersionRepository
func NewVersionRepository(db *DB) *VersionRepository {
	return &VersionRepository{db: db}
}

var _ planningRepo.VersionRepository = (*VersionRepository)(nil)

// Create appends a version snapshot
func (r *VersionRepository) Create(ctx context.Context, v *models.DocumentVersion) error {
	v.CreatedAt = time.Now().UTC()
	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO document_versions (document_id, version, title, content, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, v.DocumentID, v.Version, v.Title, v.Content, v.CreatedBy, v.CreatedAt)
	if err != nil {
		return mapWriteError("record version", "document_version", fmt.Sprintf("%s@%d", v.DocumentID, v.Version), err)
	}
	return nil
}

// List returns every snapshot of a document ordered by version
func (r *VersionRepository) List(ctx context.Context, documentID string) ([]models.DocumentVersion, error) {
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, `
		SELECT document_id, version, title, content, created_by, created_at
		FROM document_versions
		WHERE document_id = ?
		ORDER BY version ASC
	`, documentID)
	if err != nil {
		return nil, WrapError("list versions", err)
	}
	defer rows.Close()

	versions := []models.DocumentVersion{}
	for rows.Next() {
		var v models.DocumentVersion
		if err := rows.Scan(&v.DocumentID, &v.Version, &v.Title, &v.Content, &v.CreatedBy, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError("list versions", err)
	}
	return versions, nil
}

// Get returns one snapshot
func (r *VersionRepository) Get(ctx context.Context, documentID string, version int) (*models.DocumentVersion, error) {
	var v models.DocumentVersion
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, `
		SELECT document_id, version, title, content, created_by, created_at
		FROM document_versions
		WHERE document_id = ? AND version = ?
	`, documentID, version).Scan(&v.DocumentID, &v.Version, &v.Title, &v.Content, &v.CreatedBy, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("version %d of document %s not found", version, documentID)}
	}
	if err != nil {
		return nil, WrapError("get version", err)
	}
	return &v, nil
}

// ApprovalHistoryRepository implements planningRepo.ApprovalHistoryRepository for SQLite
type ApprovalHistoryRepository struct {
	db *DB
}

// NewApprovalHistoryRepository creates a new ApprovalHistoryRepository
func NewApprovalHistoryRepository(db *DB) *ApprovalHistoryRepository {
	return &ApprovalHistoryRepository{db: db}
}

var _ planningRepo.ApprovalHistoryRepository = (*ApprovalHistoryRepository)(nil)

// Append writes an audit row
func (r *ApprovalHistoryRepository) Append(ctx context.Context, e *models.ApprovalHistoryEntry) error {
	e.CreatedAt = time.Now().UTC()
	res, err := GetExecutor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO approval_history (document_id, user_id, action, previous_status, new_status, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		e.DocumentID,
		e.UserID,
		string(e.Action),
		string(e.PreviousStatus),
		string(e.NewStatus),
		nullableString(e.Reason),
		e.CreatedAt,
	)
	if err != nil {
		return mapWriteError("append approval history", "approval_history", e.DocumentID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return WrapError("append approval history", err)
	}
	e.ID = id
	return nil
}

// List returns a document's audit rows oldest first
func (r *ApprovalHistoryRepository) List(ctx context.Context, documentID string) ([]models.ApprovalHistoryEntry, error) {
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, `
		SELECT id, document_id, user_id, action, previous_status, new_status, reason, created_at
		FROM approval_history
		WHERE document_id = ?
		ORDER BY created_at ASC, id ASC
	`, documentID)
	if err != nil {
		return nil, WrapError("list approval history", err)
	}
	defer rows.Close()

	entries := []models.ApprovalHistoryEntry{}
	for rows.Next() {
		var e models.ApprovalHistoryEntry
		var action, prev, next string
		var reason sql.NullString
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.UserID, &action, &prev, &next, &reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan approval history: %w", err)
		}
		e.Action = models.ApprovalAction(action)
		e.PreviousStatus = models.DocumentStatus(prev)
		e.NewStatus = models.DocumentStatus(next)
		if reason.Valid {
			e.Reason = &reason.String
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError("list approval history", err)
	}
	return entries, nil
}
