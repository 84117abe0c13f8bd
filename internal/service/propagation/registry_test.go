package propagation

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"planwise/internal/domain/models/planning"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func drain(sub *Subscription) []*planning.Event {
	var events []*planning.Event
	for {
		select {
		case e := <-sub.Events():
			events = append(events, e)
		default:
			return events
		}
	}
}

func TestRegistry_ScopeMatching(t *testing.T) {
	r := NewRegistry("proc-1", 8, testLogger())
	ctx := context.Background()

	project := r.Subscribe(planning.Scope{ProjectID: "p1"})
	step2 := r.Subscribe(planning.Scope{ProjectID: "p1", WorkflowStep: 2})
	other := r.Subscribe(planning.Scope{ProjectID: "p2"})
	require.Equal(t, 3, r.Count())

	r.Publish(ctx, &planning.Event{Type: planning.EventDocumentUpdated, ProjectID: "p1", WorkflowStep: 2, DocumentID: "d1"})
	r.Publish(ctx, &planning.Event{Type: planning.EventDocumentCreated, ProjectID: "p1", WorkflowStep: 3, DocumentID: "d2"})

	got := drain(project)
	require.Len(t, got, 2)
	require.Equal(t, "d1", got[0].DocumentID)
	require.Equal(t, "d2", got[1].DocumentID)

	got = drain(step2)
	require.Len(t, got, 1)
	require.Equal(t, "d1", got[0].DocumentID)

	require.Empty(t, drain(other))
}

func TestRegistry_StampsEvents(t *testing.T) {
	r := NewRegistry("proc-1", 0, testLogger())
	sub := r.Subscribe(planning.Scope{ProjectID: "p1"})

	r.Publish(context.Background(), &planning.Event{Type: planning.EventDocumentDeleted, ProjectID: "p1", DocumentID: "d1"})

	got := drain(sub)
	require.Len(t, got, 1)
	require.NotEmpty(t, got[0].ID)
	require.Equal(t, "proc-1", got[0].Origin)
	require.False(t, got[0].OccurredAt.IsZero())
	require.Nil(t, got[0].Document)
}

func TestRegistry_Unsubscribe(t *testing.T) {
	r := NewRegistry("proc-1", 4, testLogger())
	sub := r.Subscribe(planning.Scope{ProjectID: "p1"})

	r.Unsubscribe(sub)
	r.Unsubscribe(sub)
	require.Equal(t, 0, r.Count())

	_, open := <-sub.Events()
	require.False(t, open, "channel should be closed")

	require.NotPanics(t, func() {
		r.Publish(context.Background(), &planning.Event{Type: planning.EventDocumentUpdated, ProjectID: "p1"})
	})
}

func TestRegistry_SlowSubscriberReceivesResync(t *testing.T) {
	r := NewRegistry("proc-1", 4, testLogger())
	sub := r.Subscribe(planning.Scope{ProjectID: "p1", WorkflowStep: 1})

	for v := 1; v <= 6; v++ {
		r.Publish(context.Background(), &planning.Event{
			Type:         planning.EventVersionRecorded,
			ProjectID:    "p1",
			WorkflowStep: 1,
			DocumentID:   "d1",
			Version:      v,
		})
	}

	got := drain(sub)
	require.Len(t, got, 4)
	require.Equal(t, planning.EventResync, got[0].Type)
	require.Equal(t, 5, got[1].Version)
	require.Equal(t, planning.EventResync, got[2].Type)
	require.Equal(t, 6, got[3].Version)
	require.Equal(t, "p1", got[0].ProjectID)
	require.Equal(t, 1, got[0].WorkflowStep)
}

type recordingPublisher struct {
	events []*planning.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event *planning.Event) {
	p.events = append(p.events, event)
}

func TestFanout_StampsOnceAndForwards(t *testing.T) {
	first := &recordingPublisher{}
	second := &recordingPublisher{}
	f := NewFanout("proc-9", first, second)

	f.Publish(context.Background(), &planning.Event{Type: planning.EventStatusChanged, ProjectID: "p1"})

	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)
	require.Same(t, first.events[0], second.events[0])
	require.Equal(t, "proc-9", first.events[0].Origin)
	require.WithinDuration(t, time.Now(), first.events[0].OccurredAt, time.Minute)
}
