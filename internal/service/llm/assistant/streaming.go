package assistant

import (
	"context"
	"errors"
	"strings"

	"planwise/internal/domain"
	"planwise/internal/domain/models"
	domainllm "planwise/internal/domain/services/llm"
	planningSvc "planwise/internal/domain/services/planning"
)

// streamBuffer is the capacity of the channel returned to callers
const streamBuffer = 16

// StreamChat records the user turn and streams the reply. The assistant turn
// is recorded only when the provider finishes and the caller is still there.
func (s *service) StreamChat(ctx context.Context, actor models.Actor, projectID string, step int, message string) (<-chan planningSvc.StreamEvent, error) {
	turn, err := s.beginChat(ctx, actor, projectID, step, message)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	in, err := s.provider.StreamResponse(callCtx, turn.request)
	if err != nil {
		cancel()
		return nil, s.providerError(ctx, callCtx, err)
	}

	out := make(chan planningSvc.StreamEvent, streamBuffer)
	go func() {
		defer close(out)
		defer cancel()

		raw, err := s.relay(ctx, callCtx, in, out)
		if err == nil {
			if ctx.Err() != nil {
				s.logger.Debug("chat stream abandoned", "project_id", projectID, "workflow_step", step)
				return
			}
			reply, recordErr := s.recordReply(ctx, turn, raw)
			if recordErr == nil {
				send(ctx, out, planningSvc.StreamEvent{IsComplete: true, Turn: reply})
				return
			}
			err = recordErr
		}
		s.finishWithError(ctx, out, err)
	}()

	return out, nil
}

// StreamGenerateDocument streams a draft of the step's document. Nothing is
// persisted.
func (s *service) StreamGenerateDocument(ctx context.Context, actor models.Actor, projectID string, step int) (<-chan planningSvc.StreamEvent, error) {
	stepDef, req, err := s.beginDraft(ctx, actor, projectID, step)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	in, err := s.provider.StreamResponse(callCtx, req)
	if err != nil {
		cancel()
		return nil, s.providerError(ctx, callCtx, err)
	}

	out := make(chan planningSvc.StreamEvent, streamBuffer)
	go func() {
		defer close(out)
		defer cancel()

		raw, err := s.relay(ctx, callCtx, in, out)
		if err == nil {
			draft, draftErr := s.finishDraft(projectID, stepDef, raw)
			if draftErr == nil {
				send(ctx, out, planningSvc.StreamEvent{IsComplete: true, Draft: draft})
				return
			}
			err = draftErr
		}
		s.finishWithError(ctx, out, err)
	}()

	return out, nil
}

// relay forwards provider deltas to out and returns the full text once the
// provider reports completion.
func (s *service) relay(
	ctx, callCtx context.Context,
	in <-chan domainllm.StreamEvent,
	out chan<- planningSvc.StreamEvent,
) (string, error) {
	var text strings.Builder
	for {
		select {
		case <-callCtx.Done():
			return "", s.providerError(ctx, callCtx, callCtx.Err())

		case ev, ok := <-in:
			if !ok {
				if callCtx.Err() != nil {
					return "", s.providerError(ctx, callCtx, callCtx.Err())
				}
				return "", &domain.AIServiceError{Message: "ai stream ended without completing"}
			}

			switch {
			case ev.Error != nil:
				return "", s.providerError(ctx, callCtx, ev.Error)

			case ev.Metadata != nil:
				s.logger.Info("ai stream completed",
					"provider", s.provider.Name(),
					"model", ev.Metadata.Model,
					"input_tokens", ev.Metadata.InputTokens,
					"output_tokens", ev.Metadata.OutputTokens,
					"stop_reason", ev.Metadata.StopReason,
				)
				if strings.TrimSpace(text.String()) == "" {
					return "", errEmptyCompletion()
				}
				return text.String(), nil

			case ev.TextDelta != "":
				text.WriteString(ev.TextDelta)
				if !send(ctx, out, planningSvc.StreamEvent{Delta: ev.TextDelta}) {
					return "", ctx.Err()
				}
			}
		}
	}
}

// finishWithError delivers the terminal error event. A cancelled caller gets
// nothing since nobody is reading.
func (s *service) finishWithError(ctx context.Context, out chan<- planningSvc.StreamEvent, err error) {
	if errors.Is(err, context.Canceled) {
		s.logger.Debug("ai stream cancelled")
		return
	}
	send(ctx, out, planningSvc.StreamEvent{Err: err})
}

// send delivers ev unless ctx is done first
func send(ctx context.Context, out chan<- planningSvc.StreamEvent, ev planningSvc.StreamEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
