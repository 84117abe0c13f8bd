package assistant

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"planwise/internal/capabilities"
	"planwise/internal/domain/models"
	"planwise/internal/domain/models/planning"
	planningRepo "planwise/internal/domain/repositories/planning"
	domainllm "planwise/internal/domain/services/llm"
	planningSvc "planwise/internal/domain/services/planning"
	"planwise/internal/repository/sqlite"
	"planwise/internal/service/auth"
	planningService "planwise/internal/service/planning"
	"planwise/internal/service/propagation"
	"planwise/internal/workflow"
)

var (
	admin   = models.Actor{UserID: "root", IsAdmin: true}
	alice   = models.Actor{UserID: "alice"}
	bob     = models.Actor{UserID: "bob"}
	mallory = models.Actor{UserID: "mallory"}
)

// fakeProvider answers with canned behaviour and records every request
type fakeProvider struct {
	mu       sync.Mutex
	requests []*domainllm.GenerateRequest

	generate func(ctx context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error)
	stream   func(ctx context.Context, req *domainllm.GenerateRequest, out chan<- domainllm.StreamEvent)
}

func (p *fakeProvider) record(req *domainllm.GenerateRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
}

func (p *fakeProvider) GenerateResponse(ctx context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	p.record(req)
	if p.generate == nil {
		return &domainllm.GenerateResponse{Text: "Noted.", Model: req.Model}, nil
	}
	return p.generate(ctx, req)
}

func (p *fakeProvider) StreamResponse(ctx context.Context, req *domainllm.GenerateRequest) (<-chan domainllm.StreamEvent, error) {
	p.record(req)
	ch := make(chan domainllm.StreamEvent, 4)
	go func() {
		defer close(ch)
		p.stream(ctx, req, ch)
	}()
	return ch, nil
}

func (p *fakeProvider) Name() string               { return "fake" }
func (p *fakeProvider) SupportsModel(string) bool { return true }

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *fakeProvider) last() *domainllm.GenerateRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

// replyWith answers every call with text
func replyWith(text string) func(context.Context, *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	return func(_ context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
		return &domainllm.GenerateResponse{Text: text, Model: req.Model, StopReason: "end_turn"}, nil
	}
}

// streamWords emits each word as a delta and then completes
func streamWords(words ...string) func(context.Context, *domainllm.GenerateRequest, chan<- domainllm.StreamEvent) {
	return func(ctx context.Context, req *domainllm.GenerateRequest, out chan<- domainllm.StreamEvent) {
		for _, w := range words {
			select {
			case out <- domainllm.StreamEvent{TextDelta: w}:
			case <-ctx.Done():
				return
			}
		}
		select {
		case out <- domainllm.StreamEvent{Metadata: &domainllm.StreamMetadata{Model: req.Model, StopReason: "end_turn"}}:
		case <-ctx.Done():
		}
	}
}

var testModel = &capabilities.ModelCapabilities{
	ID:                "fake-model",
	DraftMaxTokens:    1000,
	AnalysisMaxTokens: 500,
}

type fixture struct {
	store     *planningRepo.Store
	provider  *fakeProvider
	assistant planningSvc.AssistantService
	docs      planningSvc.DocumentService
	projects  planningSvc.ProjectService
	projectID string
}

func newFixture(t *testing.T, provider *fakeProvider, cfg Config) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.OpenInMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := sqlite.NewStore(db, logger)
	authorizer := auth.NewMembershipAuthorizer(store.Members)
	events := propagation.NewRegistry("test", 64, logger)

	steps, err := workflow.NewRegistry()
	require.NoError(t, err)

	if cfg.Model == nil {
		cfg.Model = testModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Second
	}

	projects := planningService.NewProjectService(store, authorizer, logger)
	project, err := projects.CreateProject(ctx, admin, &planningSvc.CreateProjectRequest{
		Name:        "Field notes",
		Description: "Notebook for researchers working away from connectivity",
	})
	require.NoError(t, err)
	for _, member := range []models.Actor{alice, bob} {
		_, err := projects.AddMember(ctx, admin, project.ID, &planningSvc.AddMemberRequest{UserID: member.UserID, Role: "contributor"})
		require.NoError(t, err)
	}

	return &fixture{
		store:     store,
		provider:  provider,
		assistant: NewService(store, authorizer, provider, steps, cfg, logger),
		docs:      planningService.NewDocumentService(store, authorizer, events, logger),
		projects:  projects,
		projectID: project.ID,
	}
}

// newProject creates another project with alice as its only member
func (f *fixture) newProject(t *testing.T, description string) string {
	t.Helper()
	ctx := context.Background()
	project, err := f.projects.CreateProject(ctx, admin, &planningSvc.CreateProjectRequest{
		Name:        "Second project",
		Description: description,
	})
	require.NoError(t, err)
	_, err = f.projects.AddMember(ctx, admin, project.ID, &planningSvc.AddMemberRequest{UserID: alice.UserID, Role: "contributor"})
	require.NoError(t, err)
	return project.ID
}

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

func (f *fixture) conversation(t *testing.T, step int) []planning.ConversationTurn {
	t.Helper()
	turns, err := f.store.Conversations.List(context.Background(), f.projectID, step, 0)
	require.NoError(t, err)
	return turns
}

// collect reads a stream to its end
func collect(t *testing.T, events <-chan planningSvc.StreamEvent) []planningSvc.StreamEvent {
	t.Helper()
	var out []planningSvc.StreamEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("stream did not close")
			return out
		}
	}
}
