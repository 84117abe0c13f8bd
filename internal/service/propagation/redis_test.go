package propagation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"planwise/internal/domain/models/planning"
)

func setupRelay(t *testing.T) (*RedisPublisher, *Registry) {
	t.Helper()
	s := miniredis.RunT(t)
	ctx := context.Background()

	// miniredis pub/sub is exercised over RESP2
	pubClient, err := NewRedisClient(ctx, "redis://"+s.Addr()+"?protocol=2")
	require.NoError(t, err)
	t.Cleanup(func() { pubClient.Close() })

	subClient, err := NewRedisClient(ctx, "redis://"+s.Addr()+"?protocol=2")
	require.NoError(t, err)
	t.Cleanup(func() { subClient.Close() })

	local := NewRegistry("proc-b", 8, testLogger())
	relay := NewRelay(subClient, "", "proc-b", local, testLogger())

	sub, err := relay.Listen(ctx)
	require.NoError(t, err)

	serveCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- relay.Serve(serveCtx, sub) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
		sub.Close()
	})

	publisher := NewRedisPublisher(pubClient, "", testLogger())
	runCtx, stop := context.WithCancel(ctx)
	stopped := make(chan error, 1)
	go func() { stopped <- publisher.Run(runCtx) }()
	t.Cleanup(func() {
		stop()
		require.NoError(t, <-stopped)
	})

	return publisher, local
}

func receive(t *testing.T, sub *Subscription) *planning.Event {
	t.Helper()
	select {
	case e := <-sub.Events():
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestRelay_DeliversRemoteEvents(t *testing.T) {
	publisher, local := setupRelay(t)
	sub := local.Subscribe(planning.Scope{ProjectID: "p1"})

	doc := &planning.Document{ID: "d1", ProjectID: "p1", WorkflowStep: 4, Title: "Personas", Status: planning.StatusOfficial, Version: 3}
	publisher.Publish(context.Background(), &planning.Event{
		ID:           "evt-1",
		Type:         planning.EventStatusChanged,
		ProjectID:    "p1",
		WorkflowStep: 4,
		DocumentID:   "d1",
		Document:     doc,
		Version:      3,
		Origin:       "proc-a",
		OccurredAt:   time.Now().UTC(),
	})

	got := receive(t, sub)
	require.Equal(t, "evt-1", got.ID)
	require.Equal(t, planning.EventStatusChanged, got.Type)
	require.Equal(t, "proc-a", got.Origin)
	require.NotNil(t, got.Document)
	require.Equal(t, planning.StatusOfficial, got.Document.Status)
	require.Equal(t, 3, got.Document.Version)
}

func TestRelay_SkipsOwnOrigin(t *testing.T) {
	publisher, local := setupRelay(t)
	sub := local.Subscribe(planning.Scope{ProjectID: "p1"})
	ctx := context.Background()

	publisher.Publish(ctx, &planning.Event{ID: "own", Type: planning.EventDocumentUpdated, ProjectID: "p1", Origin: "proc-b"})
	publisher.Publish(ctx, &planning.Event{ID: "remote", Type: planning.EventDocumentUpdated, ProjectID: "p1", Origin: "proc-a"})

	require.Equal(t, "remote", receive(t, sub).ID)
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not-a-url")
	require.Error(t, err)
}

func TestRedisPublisher_PublishDoesNotWaitOnRedis(t *testing.T) {
	s := miniredis.RunT(t)
	ctx := context.Background()

	client, err := NewRedisClient(ctx, "redis://"+s.Addr()+"?protocol=2")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	s.Close()

	publisher := NewRedisPublisher(client, "", testLogger())

	// Nothing drains the queue yet; overflow is dropped instead of blocking
	start := time.Now()
	for i := 0; i < PublishQueueSize+10; i++ {
		publisher.Publish(ctx, &planning.Event{ID: "evt", Type: planning.EventDocumentUpdated, ProjectID: "p1"})
	}
	require.Less(t, time.Since(start), publishTimeout)
	require.Len(t, publisher.queue, PublishQueueSize)

	// Shutdown with Redis still down gives up within the flush deadline
	runCtx, stop := context.WithCancel(ctx)
	stop()
	start = time.Now()
	require.NoError(t, publisher.Run(runCtx))
	require.Less(t, time.Since(start), 2*publishTimeout)
	require.Empty(t, publisher.queue)
}

func TestRedisPublisher_FlushesOnShutdown(t *testing.T) {
	s := miniredis.RunT(t)
	ctx := context.Background()

	client, err := NewRedisClient(ctx, "redis://"+s.Addr()+"?protocol=2")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	listener := client.Subscribe(ctx, DefaultChannel)
	t.Cleanup(func() { listener.Close() })
	_, err = listener.Receive(ctx)
	require.NoError(t, err)

	publisher := NewRedisPublisher(client, "", testLogger())
	publisher.Publish(ctx, &planning.Event{ID: "last", Type: planning.EventDocumentUpdated, ProjectID: "p1"})

	runCtx, stop := context.WithCancel(ctx)
	stop()
	require.NoError(t, publisher.Run(runCtx))

	select {
	case msg := <-listener.Channel():
		require.Contains(t, msg.Payload, `"last"`)
	case <-time.After(2 * time.Second):
		t.Fatal("queued event was not flushed")
	}
}
