package planning

import (
	"context"

	"planwise/internal/domain/models"
	"planwise/internal/domain/models/planning"
)

// EventPublisher receives committed document changes
type EventPublisher interface {
	Publish(ctx context.Context, event *planning.Event)
}

// AutosaveService coalesces rapid edits into one update per quiet period
type AutosaveService interface {
	// Schedule buffers the latest content, replacing any pending save of the
	// same (document, author)
	Schedule(actor models.Actor, documentID string, req *UpdateDocumentRequest) error

	// Flush runs the pending save now and returns its result. It returns
	// (nil, nil) when nothing is pending.
	Flush(ctx context.Context, actor models.Actor, documentID string) (*planning.Document, error)
}
