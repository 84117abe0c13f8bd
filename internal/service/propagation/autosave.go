package propagation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"planwise/internal/domain"
	"planwise/internal/domain/models"
	"planwise/internal/domain/models/planning"
	planningSvc "planwise/internal/domain/services/planning"
	"planwise/internal/validate"
)

// ErrAutosaverClosed is returned by Schedule after Close
var ErrAutosaverClosed = errors.New("autosaver closed")

// Saver persists a coalesced edit. DocumentService satisfies it.
type Saver interface {
	UpdateDocument(ctx context.Context, actor models.Actor, documentID string, req *planningSvc.UpdateDocumentRequest) (*planning.Document, error)
}

// SaveResult reports the outcome of one debounced save
type SaveResult struct {
	DocumentID string
	UserID     string
	Document   *planning.Document
	Attempts   int
	Err        error
}

// AutosaveConfig tunes the debouncer
type AutosaveConfig struct {
	Delay       time.Duration // quiet period before a save fires
	MaxAttempts int           // attempts per save on transient store errors
	Backoff     time.Duration // multiplied by the attempt number between retries
	SaveTimeout time.Duration // bound for a timer-fired save
}

// DefaultAutosaveConfig returns the production defaults
func DefaultAutosaveConfig() AutosaveConfig {
	return AutosaveConfig{
		Delay:       2 * time.Second,
		MaxAttempts: 3,
		Backoff:     200 * time.Millisecond,
		SaveTimeout: 30 * time.Second,
	}
}

type saveKey struct {
	documentID string
	userID     string
}

type pendingSave struct {
	actor models.Actor
	req   planningSvc.UpdateDocumentRequest
	timer *time.Timer
}

// Autosaver coalesces rapid edits into one update per quiet period.
//
// Design:
//   - At most one pending save per (document, author); scheduling again
//     merges into it and restarts the timer
//   - Saves of the same key never overlap; Flush waits for a running save
//   - Only errors wrapping domain.ErrUnavailable are retried, a bounded
//     number of times; everything else is reported at once
type Autosaver struct {
	saver    Saver
	cfg      AutosaveConfig
	onResult func(SaveResult)
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[saveKey]*pendingSave
	running map[saveKey]chan struct{}
	closed  bool
}

// NewAutosaver creates a debouncer. onResult may be nil.
func NewAutosaver(saver Saver, cfg AutosaveConfig, onResult func(SaveResult), logger *slog.Logger) *Autosaver {
	defaults := DefaultAutosaveConfig()
	if cfg.Delay <= 0 {
		cfg.Delay = defaults.Delay
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaults.Backoff
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = defaults.SaveTimeout
	}
	return &Autosaver{
		saver:    saver,
		cfg:      cfg,
		onResult: onResult,
		logger:   logger,
		pending:  make(map[saveKey]*pendingSave),
		running:  make(map[saveKey]chan struct{}),
	}
}

var _ planningSvc.AutosaveService = (*Autosaver)(nil)

// Schedule buffers an edit. Fields left nil keep the value of the save it
// replaces.
func (a *Autosaver) Schedule(actor models.Actor, documentID string, req *planningSvc.UpdateDocumentRequest) error {
	if err := validate.UserID(actor.UserID); err != nil {
		return err
	}
	if err := validate.ID("document_id", documentID); err != nil {
		return err
	}
	if req == nil || (req.Title == nil && req.Content == nil) {
		return &domain.ValidationError{Message: "nothing to save"}
	}

	k := saveKey{documentID: documentID, userID: actor.UserID}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrAutosaverClosed
	}

	next := &pendingSave{actor: actor, req: *req}
	if prev, ok := a.pending[k]; ok {
		prev.timer.Stop()
		if next.req.Title == nil {
			next.req.Title = prev.req.Title
		}
		if next.req.Content == nil {
			next.req.Content = prev.req.Content
		}
	}
	next.timer = time.AfterFunc(a.cfg.Delay, func() { a.fire(k, next) })
	a.pending[k] = next
	return nil
}

// Flush runs the pending save of (document, author) now, after any save of
// the same key already in flight. Returns (nil, nil) when nothing is pending.
func (a *Autosaver) Flush(ctx context.Context, actor models.Actor, documentID string) (*planning.Document, error) {
	k := saveKey{documentID: documentID, userID: actor.UserID}

	p, done, err := a.take(ctx, k, nil)
	if err != nil || p == nil {
		return nil, err
	}

	result := a.execute(ctx, k, p, done)
	return result.Document, result.Err
}

// Close flushes every pending save and rejects new ones
func (a *Autosaver) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	keys := make([]saveKey, 0, len(a.pending))
	for k := range a.pending {
		keys = append(keys, k)
	}
	a.mu.Unlock()

	var errs []error
	for _, k := range keys {
		p, done, err := a.take(ctx, k, nil)
		if err != nil {
			return err
		}
		if p == nil {
			continue
		}
		if result := a.execute(ctx, k, p, done); result.Err != nil {
			errs = append(errs, fmt.Errorf("autosave document %s: %w", k.documentID, result.Err))
		}
	}
	return errors.Join(errs...)
}

// Pending returns the number of saves waiting for their quiet period
func (a *Autosaver) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

func (a *Autosaver) fire(k saveKey, p *pendingSave) {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.SaveTimeout)
	defer cancel()

	taken, done, err := a.take(ctx, k, p)
	if err != nil || taken == nil {
		// Replaced or flushed before the timer ran
		return
	}
	a.execute(ctx, k, taken, done)
}

// take removes the pending save for k once no save of k is running. With a
// non-nil want it only takes that exact save.
func (a *Autosaver) take(ctx context.Context, k saveKey, want *pendingSave) (*pendingSave, chan struct{}, error) {
	for {
		a.mu.Lock()
		if busy, ok := a.running[k]; ok {
			a.mu.Unlock()
			select {
			case <-busy:
				continue
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
		}

		p, ok := a.pending[k]
		if !ok || (want != nil && p != want) {
			a.mu.Unlock()
			return nil, nil, nil
		}
		p.timer.Stop()
		delete(a.pending, k)

		done := make(chan struct{})
		a.running[k] = done
		a.mu.Unlock()
		return p, done, nil
	}
}

func (a *Autosaver) execute(ctx context.Context, k saveKey, p *pendingSave, done chan struct{}) SaveResult {
	defer func() {
		a.mu.Lock()
		delete(a.running, k)
		a.mu.Unlock()
		close(done)
	}()

	result := SaveResult{DocumentID: k.documentID, UserID: k.userID}
retry:
	for attempt := 1; ; attempt++ {
		result.Attempts = attempt
		req := p.req
		result.Document, result.Err = a.saver.UpdateDocument(ctx, p.actor, k.documentID, &req)
		if result.Err == nil || !errors.Is(result.Err, domain.ErrUnavailable) || attempt == a.cfg.MaxAttempts {
			break
		}

		a.logger.Warn("autosave failed, retrying",
			"document_id", k.documentID,
			"attempt", attempt,
			"error", result.Err,
		)
		select {
		case <-time.After(a.cfg.Backoff * time.Duration(attempt)):
		case <-ctx.Done():
			result.Err = ctx.Err()
			break retry
		}
	}

	if result.Err != nil {
		a.logger.Error("autosave failed",
			"document_id", k.documentID,
			"user_id", k.userID,
			"attempts", result.Attempts,
			"error", result.Err,
		)
	} else {
		a.logger.Debug("autosaved document",
			"document_id", k.documentID,
			"version", result.Document.Version,
		)
	}

	if a.onResult != nil {
		a.onResult(result)
	}
	return result
}
