package handler

import (
	"context"
	"log/slog"
	"net/http"

	"planwise/internal/domain/models"
	"planwise/internal/domain/models/planning"
	planningSvc "planwise/internal/domain/services/planning"
	"planwise/internal/handler/sse"
	"planwise/internal/httputil"
	"planwise/internal/service/propagation"
	"planwise/internal/validate"
)

// Subscriber registers observers of committed document changes.
// propagation.Registry satisfies it.
type Subscriber interface {
	Subscribe(scope planning.Scope) *propagation.Subscription
	Unsubscribe(sub *propagation.Subscription)
}

// EventsHandler streams document changes of a project as SSE
type EventsHandler struct {
	subscriber Subscriber
	authorizer planningSvc.ResourceAuthorizer
	sseConfig  *sse.Config
	logger     *slog.Logger
}

// NewEventsHandler creates a new events handler. A nil sseConfig selects
// sse.DefaultConfig.
func NewEventsHandler(
	subscriber Subscriber,
	authorizer planningSvc.ResourceAuthorizer,
	sseConfig *sse.Config,
	logger *slog.Logger,
) *EventsHandler {
	if sseConfig == nil {
		sseConfig = sse.DefaultConfig()
	}
	return &EventsHandler{
		subscriber: subscriber,
		authorizer: authorizer,
		sseConfig:  sseConfig,
		logger:     logger,
	}
}

// StreamEvents subscribes to a project, or one step of it
// GET /api/projects/{id}/events?step=N
func (h *EventsHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	scope := planning.Scope{ProjectID: projectID}
	step, err := httputil.QueryInt(r, "step")
	if err != nil {
		handleError(w, err)
		return
	}
	if step != nil {
		if err := validate.Step(*step); err != nil {
			handleError(w, err)
			return
		}
		scope.WorkflowStep = *step
	}

	actor := httputil.GetActor(r)
	if err := h.authorizer.CanAccessProject(r.Context(), actor, projectID); err != nil {
		handleError(w, err)
		return
	}

	// Subscribe before the headers go out so a client that has seen the
	// response cannot miss a change committed right after
	sub := h.subscriber.Subscribe(scope)
	defer h.subscriber.Unsubscribe(sub)

	writer, err := sse.NewWriter(w)
	if err != nil {
		handleError(w, err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stopped := sse.KeepAlive(ctx, writer, h.sseConfig.KeepAliveInterval, h.logger)

	h.logger.Debug("event stream opened",
		"project_id", projectID,
		"workflow_step", scope.WorkflowStep,
		"user_id", actor.UserID,
	)

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			visible := redactForViewer(event, actor)
			if err := writer.WriteEvent(visible.ID, string(visible.Type), visible); err != nil {
				h.logger.Info("client disconnected during event write",
					"project_id", projectID,
					"error", err,
				)
				return
			}
		case <-stopped:
			return
		case <-ctx.Done():
			h.logger.Debug("event stream closed", "project_id", projectID)
			return
		}
	}
}

// redactForViewer hides the body of a private draft from members other than
// its author. The event itself is still delivered so observers learn that a
// document they saw left the shared view. Events are shared between
// subscribers and are copied, never mutated.
func redactForViewer(event *planning.Event, viewer models.Actor) *planning.Event {
	doc := event.Document
	if doc == nil || doc.IsSharedWithProject() || viewer.IsAdmin || doc.IsAuthor(viewer.UserID) {
		return event
	}
	redacted := *event
	redacted.Document = nil
	return &redacted
}
