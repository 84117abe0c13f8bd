package repositories

import (
	"context"
	"sync"
)

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions.
// Calling ExecTx with a context that already carries a transaction joins it.
type TransactionManager interface {
	// ExecTx executes a function within a transaction
	ExecTx(ctx context.Context, fn TxFn) error
}

// CommitHooks collects callbacks registered with AfterCommit while a
// transaction is open.
type CommitHooks struct {
	mu  sync.Mutex
	fns []func()
}

type hooksContextKey struct{}

// WithCommitHooks attaches a fresh hook list to ctx. Transaction managers call
// it when they begin a transaction and Run the hooks after a successful commit.
func WithCommitHooks(ctx context.Context) (context.Context, *CommitHooks) {
	hooks := &CommitHooks{}
	return context.WithValue(ctx, hooksContextKey{}, hooks), hooks
}

// AfterCommit schedules fn to run once the surrounding transaction commits.
// Without an open transaction fn runs immediately. Rolled-back work never
// runs its hooks.
func AfterCommit(ctx context.Context, fn func()) {
	hooks, ok := ctx.Value(hooksContextKey{}).(*CommitHooks)
	if !ok {
		fn()
		return
	}
	hooks.mu.Lock()
	hooks.fns = append(hooks.fns, fn)
	hooks.mu.Unlock()
}

// Run executes the collected hooks in registration order.
func (h *CommitHooks) Run() {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
