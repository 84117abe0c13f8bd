package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"planwise/internal/domain"
	"planwise/internal/domain/models"
	planning "planwise/internal/domain/models/planning"
	"planwise/internal/repository/sqlite"
)

func setupAuthorizer(t *testing.T) (*MembershipAuthorizer, string) {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.OpenInMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := sqlite.NewStore(db, slog.New(slog.NewTextHandler(io.Discard, nil)))

	project := &planning.Project{Name: "Apollo", OwnerID: "admin"}
	require.NoError(t, store.Projects.Create(ctx, project))
	require.NoError(t, store.Members.Add(ctx, &planning.ProjectMember{
		ProjectID: project.ID, UserID: "alice", Role: "pm", AddedBy: "admin",
	}))
	require.NoError(t, store.Members.Add(ctx, &planning.ProjectMember{
		ProjectID: project.ID, UserID: "bob", Role: "dev", AddedBy: "admin",
	}))

	return NewMembershipAuthorizer(store.Members), project.ID
}

func TestCanAccessProject(t *testing.T) {
	authz, projectID := setupAuthorizer(t)
	ctx := context.Background()

	require.NoError(t, authz.CanAccessProject(ctx, models.Actor{UserID: "alice"}, projectID))
	require.NoError(t, authz.CanAccessProject(ctx, models.Actor{UserID: "root", IsAdmin: true}, projectID))

	err := authz.CanAccessProject(ctx, models.Actor{UserID: "mallory"}, projectID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	err = authz.CanAccessProject(ctx, models.Actor{}, projectID)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCanReadDocument(t *testing.T) {
	authz, projectID := setupAuthorizer(t)
	ctx := context.Background()

	draft := &planning.Document{ID: "d1", ProjectID: projectID, Status: planning.StatusPrivate, CreatedBy: "alice"}

	require.NoError(t, authz.CanReadDocument(ctx, models.Actor{UserID: "alice"}, draft))
	require.NoError(t, authz.CanReadDocument(ctx, models.Actor{UserID: "root", IsAdmin: true}, draft))
	require.ErrorIs(t, authz.CanReadDocument(ctx, models.Actor{UserID: "bob"}, draft), domain.ErrForbidden)

	for _, status := range []planning.DocumentStatus{
		planning.StatusPendingApproval, planning.StatusOfficial, planning.StatusSuperseded,
	} {
		shared := *draft
		shared.Status = status
		require.NoError(t, authz.CanReadDocument(ctx, models.Actor{UserID: "bob"}, &shared), status)
		require.ErrorIs(t, authz.CanReadDocument(ctx, models.Actor{UserID: "mallory"}, &shared), domain.ErrForbidden)
	}
}

func TestRequireAdmin(t *testing.T) {
	authz, _ := setupAuthorizer(t)

	require.NoError(t, authz.RequireAdmin(models.Actor{UserID: "root", IsAdmin: true}))
	require.ErrorIs(t, authz.RequireAdmin(models.Actor{UserID: "alice"}), domain.ErrForbidden)
	require.ErrorIs(t, authz.RequireAdmin(models.Actor{}), domain.ErrUnauthorized)
}

func TestConcealDocument(t *testing.T) {
	member := models.Actor{UserID: "alice"}
	notFound := &domain.NotFoundError{Message: "document d1 not found"}
	denied := &domain.ForbiddenError{Message: "access denied to project p1"}

	hidden := ConcealDocument(member, "d1", notFound)
	require.ErrorIs(t, hidden, domain.ErrForbidden)
	require.Equal(t, hidden, ConcealDocument(member, "d1", denied))

	require.ErrorIs(t, ConcealDocument(models.Actor{UserID: "root", IsAdmin: true}, "d1", notFound), domain.ErrNotFound)
	require.ErrorIs(t, ConcealDocument(member, "d1", &domain.ValidationError{Message: "bad"}), domain.ErrValidation)
	require.NoError(t, ConcealDocument(member, "d1", nil))
}
