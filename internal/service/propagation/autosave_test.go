package propagation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"planwise/internal/domain"
	"planwise/internal/domain/models"
	"planwise/internal/domain/models/planning"
	planningSvc "planwise/internal/domain/services/planning"
)

const docID = "5b1f0c3e-8a59-4c43-9d38-1f1d5c2a7e10"

type fakeSaver struct {
	mu      sync.Mutex
	calls   []planningSvc.UpdateDocumentRequest
	failing []error // returned in order before succeeding
	version int
}

func (s *fakeSaver) UpdateDocument(_ context.Context, actor models.Actor, documentID string, req *planningSvc.UpdateDocumentRequest) (*planning.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, *req)
	if len(s.failing) > 0 {
		err := s.failing[0]
		s.failing = s.failing[1:]
		return nil, err
	}
	s.version++
	doc := &planning.Document{ID: documentID, CreatedBy: actor.UserID, Version: s.version}
	if req.Content != nil {
		doc.Content = *req.Content
	}
	if req.Title != nil {
		doc.Title = *req.Title
	}
	return doc, nil
}

func (s *fakeSaver) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func content(s string) *planningSvc.UpdateDocumentRequest {
	return &planningSvc.UpdateDocumentRequest{Content: &s}
}

func testConfig(delay time.Duration) AutosaveConfig {
	return AutosaveConfig{Delay: delay, MaxAttempts: 3, Backoff: time.Millisecond, SaveTimeout: time.Second}
}

func TestAutosaver_CoalescesKeystrokes(t *testing.T) {
	saver := &fakeSaver{}
	results := make(chan SaveResult, 4)
	a := NewAutosaver(saver, testConfig(50*time.Millisecond), func(r SaveResult) { results <- r }, testLogger())
	alice := models.Actor{UserID: "alice"}

	require.NoError(t, a.Schedule(alice, docID, content("H")))
	require.NoError(t, a.Schedule(alice, docID, content("He")))
	require.NoError(t, a.Schedule(alice, docID, content("Hey")))
	require.Equal(t, 1, a.Pending())

	select {
	case r := <-results:
		require.NoError(t, r.Err)
		require.Equal(t, "Hey", r.Document.Content)
		require.Equal(t, 1, r.Document.Version)
	case <-time.After(2 * time.Second):
		t.Fatal("autosave never fired")
	}

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, saver.callCount())
	require.Equal(t, 0, a.Pending())
}

func TestAutosaver_MergesFields(t *testing.T) {
	saver := &fakeSaver{}
	a := NewAutosaver(saver, testConfig(time.Hour), nil, testLogger())
	alice := models.Actor{UserID: "alice"}

	title := "Problem statement"
	require.NoError(t, a.Schedule(alice, docID, &planningSvc.UpdateDocumentRequest{Title: &title}))
	require.NoError(t, a.Schedule(alice, docID, content("Body")))

	doc, err := a.Flush(context.Background(), alice, docID)
	require.NoError(t, err)
	require.Equal(t, "Problem statement", doc.Title)
	require.Equal(t, "Body", doc.Content)
}

func TestAutosaver_KeysByAuthor(t *testing.T) {
	saver := &fakeSaver{}
	a := NewAutosaver(saver, testConfig(time.Hour), nil, testLogger())

	require.NoError(t, a.Schedule(models.Actor{UserID: "alice"}, docID, content("a")))
	require.NoError(t, a.Schedule(models.Actor{UserID: "bob"}, docID, content("b")))
	require.Equal(t, 2, a.Pending())
}

func TestAutosaver_FlushRunsSynchronously(t *testing.T) {
	saver := &fakeSaver{}
	a := NewAutosaver(saver, testConfig(50*time.Millisecond), nil, testLogger())
	alice := models.Actor{UserID: "alice"}

	require.NoError(t, a.Schedule(alice, docID, content("draft")))

	doc, err := a.Flush(context.Background(), alice, docID)
	require.NoError(t, err)
	require.Equal(t, "draft", doc.Content)
	require.Equal(t, 1, saver.callCount())

	// The cancelled timer must not save again
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, saver.callCount())

	doc, err = a.Flush(context.Background(), alice, docID)
	require.NoError(t, err)
	require.Nil(t, doc)
}

func TestAutosaver_RetriesTransientErrors(t *testing.T) {
	transient := fmt.Errorf("update document: %w: connection reset", domain.ErrUnavailable)
	saver := &fakeSaver{failing: []error{transient, transient}}
	a := NewAutosaver(saver, testConfig(time.Hour), nil, testLogger())
	alice := models.Actor{UserID: "alice"}

	require.NoError(t, a.Schedule(alice, docID, content("x")))
	doc, err := a.Flush(context.Background(), alice, docID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	require.Equal(t, 3, saver.callCount())
}

func TestAutosaver_GivesUpAfterMaxAttempts(t *testing.T) {
	transient := fmt.Errorf("update document: %w", domain.ErrUnavailable)
	saver := &fakeSaver{failing: []error{transient, transient, transient, transient}}
	var got SaveResult
	a := NewAutosaver(saver, testConfig(time.Hour), func(r SaveResult) { got = r }, testLogger())
	alice := models.Actor{UserID: "alice"}

	require.NoError(t, a.Schedule(alice, docID, content("x")))
	_, err := a.Flush(context.Background(), alice, docID)
	require.ErrorIs(t, err, domain.ErrUnavailable)
	require.Equal(t, 3, saver.callCount())
	require.Equal(t, 3, got.Attempts)
}

func TestAutosaver_DoesNotRetryConflicts(t *testing.T) {
	saver := &fakeSaver{failing: []error{&domain.ConflictError{Message: "document is not private"}}}
	a := NewAutosaver(saver, testConfig(time.Hour), nil, testLogger())
	alice := models.Actor{UserID: "alice"}

	require.NoError(t, a.Schedule(alice, docID, content("x")))
	_, err := a.Flush(context.Background(), alice, docID)
	require.ErrorIs(t, err, domain.ErrConflict)
	require.Equal(t, 1, saver.callCount())
}

func TestAutosaver_CloseFlushesPending(t *testing.T) {
	saver := &fakeSaver{}
	a := NewAutosaver(saver, testConfig(time.Hour), nil, testLogger())

	require.NoError(t, a.Schedule(models.Actor{UserID: "alice"}, docID, content("a")))
	require.NoError(t, a.Schedule(models.Actor{UserID: "bob"}, docID, content("b")))

	require.NoError(t, a.Close(context.Background()))
	require.Equal(t, 2, saver.callCount())
	require.Equal(t, 0, a.Pending())

	err := a.Schedule(models.Actor{UserID: "alice"}, docID, content("late"))
	require.ErrorIs(t, err, ErrAutosaverClosed)
}

func TestAutosaver_ScheduleValidation(t *testing.T) {
	a := NewAutosaver(&fakeSaver{}, testConfig(time.Hour), nil, testLogger())

	require.ErrorIs(t, a.Schedule(models.Actor{}, docID, content("x")), domain.ErrUnauthorized)
	require.ErrorIs(t, a.Schedule(models.Actor{UserID: "alice"}, "nope", content("x")), domain.ErrValidation)
	require.ErrorIs(t, a.Schedule(models.Actor{UserID: "alice"}, docID, &planningSvc.UpdateDocumentRequest{}), domain.ErrValidation)
}
