package planning

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"planwise/internal/domain/models"
	"planwise/internal/domain/models/planning"
	planningRepo "planwise/internal/domain/repositories/planning"
	planningSvc "planwise/internal/domain/services/planning"
	"planwise/internal/repository/sqlite"
	"planwise/internal/service/auth"
	"planwise/internal/service/propagation"
)

var (
	admin   = models.Actor{UserID: "root", IsAdmin: true}
	alice   = models.Actor{UserID: "alice"}
	bob     = models.Actor{UserID: "bob"}
	mallory = models.Actor{UserID: "mallory"}
)

type fixture struct {
	store      *planningRepo.Store
	authorizer planningSvc.ResourceAuthorizer
	registry   *propagation.Registry
	events     *propagation.Subscription
	logger     *slog.Logger

	docs     planningSvc.DocumentService
	versions planningSvc.VersionService
	projects planningSvc.ProjectService

	projectID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.OpenInMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := sqlite.NewStore(db, logger)
	authorizer := auth.NewMembershipAuthorizer(store.Members)
	registry := propagation.NewRegistry("test", 256, logger)

	f := &fixture{
		store:      store,
		authorizer: authorizer,
		registry:   registry,
		logger:     logger,
		docs:       NewDocumentService(store, authorizer, registry, logger),
		versions:   NewVersionService(store, authorizer, registry, logger),
		projects:   NewProjectService(store, authorizer, logger),
	}

	project, err := f.projects.CreateProject(ctx, admin, &planningSvc.CreateProjectRequest{
		Name:        "Field notes",
		Description: "Offline-first notebook for researchers",
	})
	require.NoError(t, err)
	f.projectID = project.ID

	for _, member := range []models.Actor{alice, bob} {
		_, err := f.projects.AddMember(ctx, admin, project.ID, &planningSvc.AddMemberRequest{UserID: member.UserID, Role: "contributor"})
		require.NoError(t, err)
	}

	f.events = registry.Subscribe(planning.Scope{ProjectID: project.ID})
	return f
}

// createDraft creates a private document authored by actor
func (f *fixture) createDraft(t *testing.T, actor models.Actor, step int, content string) *planning.Document {
	t.Helper()
	doc, err := f.docs.CreateDocument(context.Background(), actor, &planningSvc.CreateDocumentRequest{
		ProjectID:    f.projectID,
		WorkflowStep: step,
		Title:        "Step draft",
		Content:      content,
	})
	require.NoError(t, err)
	return doc
}

// makeOfficial walks a fresh draft through request and approval
func (f *fixture) makeOfficial(t *testing.T, actor models.Actor, step int, content string) *planning.Document {
	t.Helper()
	ctx := context.Background()
	doc := f.createDraft(t, actor, step, content)
	_, err := f.docs.RequestApproval(ctx, actor, doc.ID)
	require.NoError(t, err)
	doc, err = f.docs.Approve(ctx, admin, doc.ID)
	require.NoError(t, err)
	return doc
}

// drainEvents returns the events published so far
func (f *fixture) drainEvents() []*planning.Event {
	var events []*planning.Event
	for {
		select {
		case e := <-f.events.Events():
			events = append(events, e)
		default:
			return events
		}
	}
}

func (f *fixture) history(t *testing.T, documentID string) []planning.ApprovalHistoryEntry {
	t.Helper()
	entries, err := f.store.History.List(context.Background(), documentID)
	require.NoError(t, err)
	return entries
}

func strPtr(s string) *string { return &s }
