package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planwise/internal/domain"
	models "planwise/internal/domain/models/planning"
)

func TestVersionRepository(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	doc := createDoc(t, store, seedProject(t, store), 1, "alice")

	for i, content := range []string{"A", "B", "C"} {
		require.NoError(t, store.Versions.Create(ctx, &models.DocumentVersion{
			DocumentID: doc.ID, Version: i + 1, Title: "Draft", Content: content, CreatedBy: "alice",
		}))
	}

	versions, err := store.Versions.List(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	for i, v := range versions {
		assert.Equal(t, i+1, v.Version)
	}

	v2, err := store.Versions.Get(ctx, doc.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "B", v2.Content)

	_, err = store.Versions.Get(ctx, doc.ID, 9)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	// Versions are never overwritten
	err = store.Versions.Create(ctx, &models.DocumentVersion{DocumentID: doc.ID, Version: 2, Title: "x", Content: "x", CreatedBy: "alice"})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestApprovalHistoryRepository(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	doc := createDoc(t, store, seedProject(t, store), 1, "alice")
	reason := "too vague"

	entries := []*models.ApprovalHistoryEntry{
		{DocumentID: doc.ID, UserID: "alice", Action: models.ActionRequested, PreviousStatus: models.StatusPrivate, NewStatus: models.StatusPendingApproval},
		{DocumentID: doc.ID, UserID: "admin", Action: models.ActionRejected, PreviousStatus: models.StatusPendingApproval, NewStatus: models.StatusPrivate, Reason: &reason},
		{DocumentID: doc.ID, UserID: "alice", Action: models.ActionRequested, PreviousStatus: models.StatusPrivate, NewStatus: models.StatusPendingApproval},
	}
	for _, e := range entries {
		require.NoError(t, store.History.Append(ctx, e))
		assert.NotZero(t, e.ID)
	}

	got, err := store.History.List(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, models.ActionRequested, got[0].Action)
	assert.Equal(t, models.ActionRejected, got[1].Action)
	require.NotNil(t, got[1].Reason)
	assert.Equal(t, "too vague", *got[1].Reason)
	assert.Nil(t, got[0].Reason)
	assert.Less(t, got[0].ID, got[2].ID)
}

func TestConversationRepository(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	projectID := seedProject(t, store)

	for i := 0; i < 5; i++ {
		turn := models.NewUserTurn(projectID, 2, "alice", string(rune('a'+i)))
		if i%2 == 1 {
			turn = models.NewAssistantTurn(projectID, 2, "alice", string(rune('a'+i)))
		}
		require.NoError(t, store.Conversations.Append(ctx, turn))
	}
	require.NoError(t, store.Conversations.Append(ctx, models.NewUserTurn(projectID, 3, "bob", "other step")))

	all, err := store.Conversations.List(ctx, projectID, 2, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "a", all[0].Content)
	assert.Equal(t, models.RoleAssistant, all[1].Role)

	recent, err := store.Conversations.List(ctx, projectID, 2, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "d", recent[0].Content, "limit keeps the newest turns in chronological order")
	assert.Equal(t, "e", recent[1].Content)
}

func TestProjectRepository_MembershipAndCascade(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	projectID := seedProject(t, store)

	require.NoError(t, store.Members.Add(ctx, &models.ProjectMember{ProjectID: projectID, UserID: "alice", Role: "pm", AddedBy: "admin"}))
	err := store.Members.Add(ctx, &models.ProjectMember{ProjectID: projectID, UserID: "alice", AddedBy: "admin"})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	ok, err := store.Members.IsMember(ctx, projectID, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Members.IsMember(ctx, projectID, "mallory")
	require.NoError(t, err)
	assert.False(t, ok)

	mine, err := store.Projects.ListForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, projectID, mine[0].ID)

	doc := createDoc(t, store, projectID, 1, "alice")
	require.NoError(t, store.Projects.Delete(ctx, projectID))

	_, err = store.Documents.GetByID(ctx, doc.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "documents cascade with the project")
	members, err := store.Members.List(ctx, projectID)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestUserRepository_UpsertKeepsAdminFlag(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	u := &models.User{ID: "root", DisplayName: "Root"}
	require.NoError(t, store.Users.Upsert(ctx, u))
	assert.False(t, u.IsAdmin)

	require.NoError(t, store.Users.SetAdmin(ctx, "root", true))

	again := &models.User{ID: "root", DisplayName: "Root Renamed"}
	require.NoError(t, store.Users.Upsert(ctx, again))
	assert.True(t, again.IsAdmin)

	got, err := store.Users.GetByID(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, "Root Renamed", got.DisplayName)

	err = store.Users.SetAdmin(ctx, "nobody", true)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
