package sse

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriterFrames(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	require.NoError(t, err)

	require.NoError(t, w.WriteEvent("e1", "delta", map[string]string{"delta": "hi"}))
	require.NoError(t, w.WriteEvent("", "complete", map[string]bool{"is_complete": true}))
	require.NoError(t, w.WriteKeepAlive())

	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	require.Equal(t,
		"id: e1\nevent: delta\ndata: {\"delta\":\"hi\"}\n\n"+
			"event: complete\ndata: {\"is_complete\":true}\n\n"+
			": keepalive\n\n",
		rec.Body.String())
}

type countingWriter struct {
	calls  atomic.Int32
	failAt int32
}

func (c *countingWriter) WriteKeepAlive() error {
	if c.calls.Add(1) >= c.failAt {
		return errors.New("connection closed")
	}
	return nil
}

func TestKeepAliveStopsOnWriteError(t *testing.T) {
	writer := &countingWriter{failAt: 3}
	stopped := KeepAlive(context.Background(), writer, time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("keep-alive did not stop after write error")
	}
	require.Equal(t, int32(3), writer.calls.Load())
}

func TestKeepAliveStopsWithContext(t *testing.T) {
	writer := &countingWriter{failAt: 1 << 30}
	ctx, cancel := context.WithCancel(context.Background())
	stopped := KeepAlive(ctx, writer, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("keep-alive did not stop")
	}
	require.Zero(t, writer.calls.Load())
}
