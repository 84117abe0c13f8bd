package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planwise/internal/domain"
	models "planwise/internal/domain/models/planning"
	planningRepo "planwise/internal/domain/repositories/planning"
)

func createDoc(t *testing.T, store *planningRepo.Store, projectID string, step int, author string) *models.Document {
	t.Helper()
	doc := &models.Document{
		ProjectID:    projectID,
		WorkflowStep: step,
		Title:        "Draft",
		Content:      "A",
		CreatedBy:    author,
	}
	require.NoError(t, store.Documents.Create(context.Background(), doc))
	return doc
}

func TestDocumentRepository_CreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	projectID := seedProject(t, store)

	doc := createDoc(t, store, projectID, 3, "alice")
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, models.StatusPrivate, doc.Status)
	assert.Equal(t, 1, doc.Version)

	got, err := store.Documents.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, 3, got.WorkflowStep)
	assert.Equal(t, "A", got.Content)
	assert.Nil(t, got.ApprovedBy)
	assert.Nil(t, got.ApprovedAt)
	assert.WithinDuration(t, doc.CreatedAt, got.CreatedAt, time.Second)

	_, err = store.Documents.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDocumentRepository_CreateUnknownProject(t *testing.T) {
	store := newTestStore(t)
	doc := &models.Document{ProjectID: "missing", WorkflowStep: 1, Title: "x", CreatedBy: "alice"}
	err := store.Documents.Create(context.Background(), doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDocumentRepository_UpdateContentBumpsVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	doc := createDoc(t, store, seedProject(t, store), 1, "alice")

	updated, err := store.Documents.UpdateContent(ctx, doc.ID, models.StatusPrivate, "Draft", "B")
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "B", updated.Content)

	updated, err = store.Documents.UpdateContent(ctx, doc.ID, models.StatusPrivate, "Draft", "C")
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Version)

	renamed, err := store.Documents.UpdateTitle(ctx, doc.ID, models.StatusPrivate, "Renamed")
	require.NoError(t, err)
	assert.Equal(t, 3, renamed.Version)
	assert.Equal(t, "Renamed", renamed.Title)
}

func TestDocumentRepository_BumpVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	doc := createDoc(t, store, seedProject(t, store), 1, "alice")

	_, err := store.Documents.UpdateContent(ctx, doc.ID, models.StatusPrivate, "Draft", "B")
	require.NoError(t, err)

	bumped, err := store.Documents.BumpVersion(ctx, doc.ID, models.StatusPrivate)
	require.NoError(t, err)
	assert.Equal(t, 3, bumped.Version)
	assert.Equal(t, "B", bumped.Content, "content is read back as stored")

	_, err = store.Documents.BumpVersion(ctx, doc.ID, models.StatusOfficial)
	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict))

	_, err = store.Documents.BumpVersion(ctx, "missing", models.StatusPrivate)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDocumentRepository_CASMismatchIsConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	doc := createDoc(t, store, seedProject(t, store), 1, "alice")

	_, err := store.Documents.UpdateContent(ctx, doc.ID, models.StatusPendingApproval, "Draft", "B")
	require.Error(t, err)
	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, doc.ID, conflict.ResourceID)

	_, err = store.Documents.UpdateContent(ctx, "missing", models.StatusPrivate, "Draft", "B")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	got, err := store.Documents.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version, "failed CAS must not mutate")
}

func TestDocumentRepository_TransitionStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	doc := createDoc(t, store, seedProject(t, store), 2, "alice")

	pending, err := store.Documents.TransitionStatus(ctx, planningRepo.StatusTransition{
		DocumentID: doc.ID, From: models.StatusPrivate, To: models.StatusPendingApproval,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, pending.Status)
	assert.Nil(t, pending.ApprovedAt)

	admin := "admin"
	official, err := store.Documents.TransitionStatus(ctx, planningRepo.StatusTransition{
		DocumentID: doc.ID, From: models.StatusPendingApproval, To: models.StatusOfficial, ApprovedBy: &admin,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOfficial, official.Status)
	require.NotNil(t, official.ApprovedBy)
	assert.Equal(t, "admin", *official.ApprovedBy)
	require.NotNil(t, official.ApprovedAt)

	// Second approval of the same row loses the race
	_, err = store.Documents.TransitionStatus(ctx, planningRepo.StatusTransition{
		DocumentID: doc.ID, From: models.StatusPendingApproval, To: models.StatusOfficial, ApprovedBy: &admin,
	})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestDocumentRepository_OneOfficialPerStep(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	projectID := seedProject(t, store)
	admin := "admin"

	promote := func(doc *models.Document) error {
		_, err := store.Documents.TransitionStatus(ctx, planningRepo.StatusTransition{
			DocumentID: doc.ID, From: models.StatusPrivate, To: models.StatusPendingApproval,
		})
		require.NoError(t, err)
		_, err = store.Documents.TransitionStatus(ctx, planningRepo.StatusTransition{
			DocumentID: doc.ID, From: models.StatusPendingApproval, To: models.StatusOfficial, ApprovedBy: &admin,
		})
		return err
	}

	first := createDoc(t, store, projectID, 4, "alice")
	second := createDoc(t, store, projectID, 4, "bob")
	require.NoError(t, promote(first))

	err := promote(second)
	require.Error(t, err, "unique index forbids a second official row")
	assert.True(t, errors.Is(err, domain.ErrConflict))

	official, err := store.Documents.GetOfficial(ctx, projectID, 4)
	require.NoError(t, err)
	assert.Equal(t, first.ID, official.ID)

	_, err = store.Documents.GetOfficial(ctx, projectID, 5)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDocumentRepository_ListFiltersAndPending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	projectID := seedProject(t, store)

	a := createDoc(t, store, projectID, 1, "alice")
	b := createDoc(t, store, projectID, 2, "bob")
	c := createDoc(t, store, projectID, 2, "carol")

	all, err := store.Documents.List(ctx, models.DocumentFilter{ProjectID: projectID})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, a.ID, all[0].ID)

	step := 2
	stepDocs, err := store.Documents.List(ctx, models.DocumentFilter{ProjectID: projectID, WorkflowStep: &step})
	require.NoError(t, err)
	assert.Len(t, stepDocs, 2)

	for _, d := range []*models.Document{b, c} {
		_, err := store.Documents.TransitionStatus(ctx, planningRepo.StatusTransition{
			DocumentID: d.ID, From: models.StatusPrivate, To: models.StatusPendingApproval,
		})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	pending, err := store.Documents.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, c.ID, pending[0].ID, "newest first")
	assert.Equal(t, b.ID, pending[1].ID)

	status := models.StatusPendingApproval
	filtered, err := store.Documents.List(ctx, models.DocumentFilter{ProjectID: projectID, Status: &status})
	require.NoError(t, err)
	assert.Len(t, filtered, 2)
}

func TestDocumentRepository_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	doc := createDoc(t, store, seedProject(t, store), 1, "alice")

	err := store.Documents.Delete(ctx, doc.ID, models.StatusOfficial)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	require.NoError(t, store.Documents.Delete(ctx, doc.ID, models.StatusPrivate))
	_, err = store.Documents.GetByID(ctx, doc.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
