// Package propagation pushes committed document changes to observers and
// coalesces rapid edits into debounced saves.
package propagation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"planwise/internal/domain/models/planning"
	planningSvc "planwise/internal/domain/services/planning"
)

// DefaultBufferSize is the per-subscriber event buffer.
const DefaultBufferSize = 64

// minBufferSize leaves room for a resync hint plus the event that overflowed.
const minBufferSize = 2

// Subscription is one observer's view of a scope. Events arrive on Events()
// until Unsubscribe closes the channel.
type Subscription struct {
	id     uint64
	scope  planning.Scope
	events chan *planning.Event

	mu     sync.Mutex // serializes deliveries and close
	closed bool
}

// Events returns the channel events are delivered on
func (s *Subscription) Events() <-chan *planning.Event {
	return s.events
}

// Scope returns the scope the subscription was registered with
func (s *Subscription) Scope() planning.Scope {
	return s.scope
}

// deliver enqueues an event without blocking. When the buffer is full the
// oldest events are dropped and a resync hint is queued ahead of the new
// event, so a slow observer learns it must reload. Reports whether anything
// was dropped.
func (s *Subscription) deliver(event *planning.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.events <- event:
		return false
	default:
	}

drain:
	for len(s.events) > cap(s.events)-minBufferSize {
		select {
		case <-s.events:
		default:
			break drain
		}
	}

	s.events <- &planning.Event{
		ID:           uuid.NewString(),
		Type:         planning.EventResync,
		ProjectID:    s.scope.ProjectID,
		WorkflowStep: s.scope.WorkflowStep,
		OccurredAt:   time.Now().UTC(),
	}
	s.events <- event
	return true
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// Registry fans committed events out to in-process subscribers.
//
// Design:
//   - Explicitly constructed and injected; there is no global instance
//   - Subscribe, Unsubscribe and Publish are the only operations
//   - Publish never blocks on a slow observer (see Subscription.deliver)
//   - Delivery is at-least-once per process; observers must tolerate
//     receiving a state they already have
type Registry struct {
	subs   map[uint64]*Subscription
	nextID uint64
	mu     sync.RWMutex

	bufferSize int
	origin     string
	logger     *slog.Logger
}

// NewRegistry creates a registry. origin identifies this process on events it
// stamps; bufferSize <= 0 selects DefaultBufferSize.
func NewRegistry(origin string, bufferSize int, logger *slog.Logger) *Registry {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if bufferSize < minBufferSize {
		bufferSize = minBufferSize
	}
	return &Registry{
		subs:       make(map[uint64]*Subscription),
		bufferSize: bufferSize,
		origin:     origin,
		logger:     logger,
	}
}

var _ planningSvc.EventPublisher = (*Registry)(nil)

// Subscribe registers interest in a project, or one step of it when
// scope.WorkflowStep is non-zero.
func (r *Registry) Subscribe(scope planning.Scope) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	sub := &Subscription{
		id:     r.nextID,
		scope:  scope,
		events: make(chan *planning.Event, r.bufferSize),
	}
	r.subs[sub.id] = sub

	r.logger.Debug("subscriber registered",
		"project_id", scope.ProjectID,
		"workflow_step", scope.WorkflowStep,
		"subscribers", len(r.subs),
	)
	return sub
}

// Unsubscribe removes the subscription and closes its channel.
// Safe to call more than once.
func (r *Registry) Unsubscribe(sub *Subscription) {
	r.mu.Lock()
	delete(r.subs, sub.id)
	r.mu.Unlock()

	sub.close()
}

// Publish delivers the event to every matching subscriber of this process.
// Missing ID, origin and timestamp are filled in.
func (r *Registry) Publish(_ context.Context, event *planning.Event) {
	stamp(event, r.origin)

	r.mu.RLock()
	targets := make([]*Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		if sub.scope.Matches(event) {
			targets = append(targets, sub)
		}
	}
	r.mu.RUnlock()

	for _, sub := range targets {
		if sub.deliver(event) {
			r.logger.Warn("subscriber buffer full, dropped oldest events",
				"project_id", event.ProjectID,
				"event_type", event.Type,
			)
		}
	}
}

// Count returns the number of active subscriptions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Fanout forwards every event to several publishers, typically the local
// registry and a cross-process transport.
type Fanout struct {
	origin     string
	publishers []planningSvc.EventPublisher
}

// NewFanout creates a publisher stamping events with origin before forwarding
func NewFanout(origin string, publishers ...planningSvc.EventPublisher) *Fanout {
	return &Fanout{origin: origin, publishers: publishers}
}

var _ planningSvc.EventPublisher = (*Fanout)(nil)

// Publish forwards the event to each publisher in order
func (f *Fanout) Publish(ctx context.Context, event *planning.Event) {
	stamp(event, f.origin)
	for _, p := range f.publishers {
		p.Publish(ctx, event)
	}
}

func stamp(event *planning.Event, origin string) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Origin == "" {
		event.Origin = origin
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
}
