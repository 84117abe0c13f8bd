// Package assistant is the AI assistance engine: step conversations, draft
// generation and cross-step conflict analysis on top of an LLM provider.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"planwise/internal/capabilities"
	"planwise/internal/domain"
	"planwise/internal/domain/models"
	"planwise/internal/domain/models/planning"
	planningRepo "planwise/internal/domain/repositories/planning"
	domainllm "planwise/internal/domain/services/llm"
	planningSvc "planwise/internal/domain/services/planning"
	"planwise/internal/validate"
	"planwise/internal/workflow"
)

// DefaultHistoryLimit is how many recent turns are sent to the provider
const DefaultHistoryLimit = 40

// Config tunes the assistant.
type Config struct {
	// Model is the capability entry of the model in use
	Model *capabilities.ModelCapabilities
	// Timeout bounds every provider call
	Timeout time.Duration
	// RequestsPerMinute feeds the local limiter; zero disables it
	RequestsPerMinute int
	// HistoryLimit caps the turns sent to the provider
	HistoryLimit int
}

type service struct {
	store        *planningRepo.Store
	authorizer   planningSvc.ResourceAuthorizer
	provider     domainllm.LLMProvider
	steps        *workflow.Registry
	model        *capabilities.ModelCapabilities
	timeout      time.Duration
	historyLimit int
	limiter      *Limiter
	sanitizer    *Sanitizer
	logger       *slog.Logger
	now          func() time.Time
}

// NewService creates the assistance engine
func NewService(
	store *planningRepo.Store,
	authorizer planningSvc.ResourceAuthorizer,
	provider domainllm.LLMProvider,
	steps *workflow.Registry,
	cfg Config,
	logger *slog.Logger,
) planningSvc.AssistantService {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &service{
		store:        store,
		authorizer:   authorizer,
		provider:     provider,
		steps:        steps,
		model:        cfg.Model,
		timeout:      cfg.Timeout,
		historyLimit: cfg.HistoryLimit,
		limiter:      NewLimiter(cfg.RequestsPerMinute),
		sanitizer:    NewSanitizer(),
		logger:       logger,
		now:          time.Now,
	}
}

func (s *service) ListSteps() []workflow.Step {
	return s.steps.List()
}

// openStep validates the common (project, step) arguments and checks access
func (s *service) openStep(ctx context.Context, actor models.Actor, projectID string, step int) (*workflow.Step, error) {
	if err := validate.UserID(actor.UserID); err != nil {
		return nil, err
	}
	if err := validate.ID("project_id", projectID); err != nil {
		return nil, err
	}
	if err := validate.Step(step); err != nil {
		return nil, err
	}
	if err := s.authorizer.CanAccessProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.steps.Get(step)
}

func (s *service) ListConversation(ctx context.Context, actor models.Actor, projectID string, step int) ([]planning.ConversationTurn, error) {
	if _, err := s.openStep(ctx, actor, projectID, step); err != nil {
		return nil, err
	}
	return s.store.Conversations.List(ctx, projectID, step, 0)
}

// chatTurn is a validated, recorded user message with everything needed to
// ask the provider for a reply.
type chatTurn struct {
	projectID string
	step      int
	userID    string
	request   *domainllm.GenerateRequest
}

// beginChat screens and records the user turn and builds the provider request.
// The local limiter runs before anything is written so a throttled caller can
// retry without duplicating the turn.
func (s *service) beginChat(ctx context.Context, actor models.Actor, projectID string, step int, message string) (*chatTurn, error) {
	stepDef, err := s.openStep(ctx, actor, projectID, step)
	if err != nil {
		return nil, err
	}
	if err := validate.ChatMessage(message); err != nil {
		return nil, err
	}
	cleaned, err := s.checkInput("message", strings.TrimSpace(message))
	if err != nil {
		return nil, err
	}
	if err := s.limiter.Allow(); err != nil {
		return nil, err
	}

	pc, err := s.loadContext(ctx, projectID, step)
	if err != nil {
		return nil, err
	}

	if err := s.store.Conversations.Append(ctx, planning.NewUserTurn(projectID, step, actor.UserID, cleaned)); err != nil {
		return nil, err
	}

	turns, err := s.store.Conversations.List(ctx, projectID, step, s.historyLimit)
	if err != nil {
		return nil, err
	}

	return &chatTurn{
		projectID: projectID,
		step:      step,
		userID:    actor.UserID,
		request: &domainllm.GenerateRequest{
			Model:     s.model.ID,
			System:    s.chatSystemPrompt(stepDef, pc),
			Messages:  buildMessages(turns, ""),
			MaxTokens: s.model.DraftMaxTokens,
		},
	}, nil
}

// Chat records the user turn, asks the provider and records the reply
func (s *service) Chat(ctx context.Context, actor models.Actor, projectID string, step int, message string) (*planning.ConversationTurn, error) {
	turn, err := s.beginChat(ctx, actor, projectID, step, message)
	if err != nil {
		return nil, err
	}

	raw, err := s.complete(ctx, turn.request)
	if err != nil {
		return nil, err
	}
	return s.recordReply(ctx, turn, raw)
}

// recordReply sanitizes the model text and appends the assistant turn
func (s *service) recordReply(ctx context.Context, turn *chatTurn, raw string) (*planning.ConversationTurn, error) {
	text := strings.TrimSpace(s.sanitizer.Clean(raw))
	if text == "" {
		return nil, errEmptyCompletion()
	}

	reply := planning.NewAssistantTurn(turn.projectID, turn.step, turn.userID, text)
	if err := s.store.Conversations.Append(ctx, reply); err != nil {
		return nil, err
	}

	s.logger.Debug("assistant replied",
		"project_id", turn.projectID,
		"workflow_step", turn.step,
		"user_id", turn.userID,
		"chars", len(text),
	)
	return reply, nil
}

// beginDraft builds the provider request for drafting the step's document
func (s *service) beginDraft(ctx context.Context, actor models.Actor, projectID string, step int) (*workflow.Step, *domainllm.GenerateRequest, error) {
	stepDef, err := s.openStep(ctx, actor, projectID, step)
	if err != nil {
		return nil, nil, err
	}

	turns, err := s.store.Conversations.List(ctx, projectID, step, s.historyLimit)
	if err != nil {
		return nil, nil, err
	}
	if len(turns) == 0 {
		return nil, nil, &domain.ValidationError{Message: "conversation is empty: discuss the step with the assistant before generating a document"}
	}
	if err := s.limiter.Allow(); err != nil {
		return nil, nil, err
	}

	pc, err := s.loadContext(ctx, projectID, step)
	if err != nil {
		return nil, nil, err
	}

	return stepDef, &domainllm.GenerateRequest{
		Model:     s.model.ID,
		System:    s.draftSystemPrompt(stepDef, pc),
		Messages:  buildMessages(turns, draftInstruction),
		MaxTokens: s.model.DraftMaxTokens,
	}, nil
}

// GenerateDocument drafts the step's document without persisting it
func (s *service) GenerateDocument(ctx context.Context, actor models.Actor, projectID string, step int) (*planningSvc.GeneratedDraft, error) {
	stepDef, req, err := s.beginDraft(ctx, actor, projectID, step)
	if err != nil {
		return nil, err
	}

	raw, err := s.complete(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.finishDraft(projectID, stepDef, raw)
}

func (s *service) finishDraft(projectID string, step *workflow.Step, raw string) (*planningSvc.GeneratedDraft, error) {
	text := s.sanitizer.Clean(raw)
	if strings.TrimSpace(text) == "" {
		return nil, errEmptyCompletion()
	}
	title, content := splitDraft(text, step.Title)
	return &planningSvc.GeneratedDraft{
		ProjectID:    projectID,
		WorkflowStep: step.Number,
		Title:        title,
		Content:      content,
		Model:        s.model.ID,
	}, nil
}

// complete runs one bounded provider call and returns the raw text
func (s *service) complete(ctx context.Context, req *domainllm.GenerateRequest) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := s.now()
	resp, err := s.provider.GenerateResponse(callCtx, req)
	if err != nil {
		return "", s.providerError(ctx, callCtx, err)
	}

	s.logger.Info("ai completion",
		"provider", s.provider.Name(),
		"model", resp.Model,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
		"stop_reason", resp.StopReason,
		"duration", s.now().Sub(start),
	)

	if strings.TrimSpace(resp.Text) == "" {
		return "", errEmptyCompletion()
	}
	return resp.Text, nil
}

// providerError classifies a failed provider call. Caller cancellation is
// returned as is; our own deadline becomes the timeout variant.
func (s *service) providerError(ctx, callCtx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		s.logger.Warn("ai call timed out", "provider", s.provider.Name(), "timeout", s.timeout)
		return domain.NewAITimeoutError(err)
	}
	if domain.KindOf(err) != domain.KindInternal {
		s.logger.Warn("ai call failed", "provider", s.provider.Name(), "kind", domain.KindOf(err), "error", err)
		return err
	}
	s.logger.Error("ai call failed", "provider", s.provider.Name(), "error", err)
	return &domain.AIServiceError{Message: "ai service call failed", Err: err}
}

func errEmptyCompletion() error {
	return &domain.AIServiceError{Message: "ai service returned an empty completion"}
}
