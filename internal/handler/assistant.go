package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"planwise/internal/domain"
	planningSvc "planwise/internal/domain/services/planning"
	"planwise/internal/handler/sse"
	"planwise/internal/httputil"
)

// AssistantHandler handles conversations, drafting and conflict analysis
type AssistantHandler struct {
	assistant      planningSvc.AssistantService
	projectService planningSvc.ProjectService
	sseConfig      *sse.Config
	logger         *slog.Logger
}

// NewAssistantHandler creates a new assistant handler. A nil sseConfig
// selects sse.DefaultConfig.
func NewAssistantHandler(
	assistant planningSvc.AssistantService,
	projectService planningSvc.ProjectService,
	sseConfig *sse.Config,
	logger *slog.Logger,
) *AssistantHandler {
	if sseConfig == nil {
		sseConfig = sse.DefaultConfig()
	}
	return &AssistantHandler{
		assistant:      assistant,
		projectService: projectService,
		sseConfig:      sseConfig,
		logger:         logger,
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

// ListSteps returns the workflow steps of a project
// GET /api/projects/{id}/steps
func (h *AssistantHandler) ListSteps(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	// Steps are global; the lookup only enforces project access
	if _, err := h.projectService.GetProject(r.Context(), httputil.GetActor(r), projectID); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, h.assistant.ListSteps())
}

// ListConversation returns the shared conversation of a step, oldest first
// GET /api/projects/{id}/steps/{step}/conversation
func (h *AssistantHandler) ListConversation(w http.ResponseWriter, r *http.Request) {
	projectID, step, ok := h.stepParams(w, r)
	if !ok {
		return
	}

	turns, err := h.assistant.ListConversation(r.Context(), httputil.GetActor(r), projectID, step)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, turns)
}

// Chat sends a message and waits for the reply
// POST /api/projects/{id}/steps/{step}/chat
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	projectID, step, ok := h.stepParams(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if !parseBody(w, r, &req) {
		return
	}

	turn, err := h.assistant.Chat(r.Context(), httputil.GetActor(r), projectID, step, req.Message)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, turn)
}

// StreamChat sends a message and streams the reply as SSE
// POST /api/projects/{id}/steps/{step}/chat/stream
func (h *AssistantHandler) StreamChat(w http.ResponseWriter, r *http.Request) {
	projectID, step, ok := h.stepParams(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if !parseBody(w, r, &req) {
		return
	}

	events, err := h.assistant.StreamChat(r.Context(), httputil.GetActor(r), projectID, step, req.Message)
	if err != nil {
		handleError(w, err)
		return
	}

	h.relay(w, r, events)
}

// GenerateDocument drafts the step's document from its conversation.
// Nothing is saved; the client creates the document if it keeps the draft.
// POST /api/projects/{id}/steps/{step}/generate
func (h *AssistantHandler) GenerateDocument(w http.ResponseWriter, r *http.Request) {
	projectID, step, ok := h.stepParams(w, r)
	if !ok {
		return
	}

	draft, err := h.assistant.GenerateDocument(r.Context(), httputil.GetActor(r), projectID, step)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, draft)
}

// StreamGenerateDocument streams a draft as SSE
// POST /api/projects/{id}/steps/{step}/generate/stream
func (h *AssistantHandler) StreamGenerateDocument(w http.ResponseWriter, r *http.Request) {
	projectID, step, ok := h.stepParams(w, r)
	if !ok {
		return
	}

	events, err := h.assistant.StreamGenerateDocument(r.Context(), httputil.GetActor(r), projectID, step)
	if err != nil {
		handleError(w, err)
		return
	}

	h.relay(w, r, events)
}

// AnalyzeConflicts compares a document with the official documents of the
// other steps
// POST /api/documents/{id}/conflicts
func (h *AssistantHandler) AnalyzeConflicts(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	report, err := h.assistant.AnalyzeConflicts(r.Context(), httputil.GetActor(r), docID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, report)
}

func (h *AssistantHandler) stepParams(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return "", 0, false
	}
	step, ok := pathInt(w, r, "step")
	if !ok {
		return "", 0, false
	}
	return projectID, step, true
}

// relay writes assistant stream events as SSE frames: "delta" for text,
// then one "complete" or "error". Returning cancels the request context,
// which stops the producer.
func (h *AssistantHandler) relay(w http.ResponseWriter, r *http.Request, events <-chan planningSvc.StreamEvent) {
	writer, err := sse.NewWriter(w)
	if err != nil {
		handleError(w, err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stopped := sse.KeepAlive(ctx, writer, h.sseConfig.KeepAliveInterval, h.logger)

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := h.writeStreamEvent(writer, event); err != nil {
				h.logger.Info("client disconnected during stream",
					"path", r.URL.Path,
					"error", err,
				)
				return
			}
		case <-stopped:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *AssistantHandler) writeStreamEvent(writer *sse.Writer, event planningSvc.StreamEvent) error {
	switch {
	case event.Err != nil:
		return writer.WriteEvent("", "error", errorPayload(event.Err))
	case event.IsComplete:
		return writer.WriteEvent("", "complete", event)
	default:
		return writer.WriteEvent("", "delta", event)
	}
}

// errorPayload is the problem body of RespondDomainError, for errors raised
// after the stream has started
func errorPayload(err error) httputil.ProblemDetail {
	if errors.Is(err, context.Canceled) {
		problem := httputil.NewProblem(http.StatusInternalServerError, "request cancelled")
		problem.Kind = domain.KindInternal
		return problem
	}
	return httputil.ProblemFor(err)
}
