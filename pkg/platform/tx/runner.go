package tx

import (
	"context"
	"database/sql"
	"sync"
	"time"

	dErrors "marketparticipant/pkg/domain-errors"
)

// defaultTxTimeout bounds a unit of work when the caller set no deadline.
const defaultTxTimeout = 5 * time.Second

// Runner provides the all-or-nothing boundary for domain operations.
// Nested calls join the outer unit of work.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

func withDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// MemoryRunner serializes units of work with a single lock and replays the
// registered compensations on failure, which gives in-memory stores the same
// all-or-nothing behaviour as a database transaction.
type MemoryRunner struct {
	mu      sync.Mutex
	timeout time.Duration
}

func NewMemoryRunner() *MemoryRunner {
	return &MemoryRunner{}
}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if InScope(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	ctx, cancel := withDeadline(ctx, r.timeout)
	defer cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	ctx, s := begin(ctx, nil)
	defer func() {
		if !s.done {
			s.rollback()
		}
	}()

	if err := fn(ctx); err != nil {
		return err
	}
	s.commit()
	return nil
}

// PostgresRunner opens a database transaction per unit of work.
type PostgresRunner struct {
	db      *sql.DB
	timeout time.Duration
	opts    *sql.TxOptions
}

// PostgresOption configures a PostgresRunner.
type PostgresOption func(*PostgresRunner)

// WithTimeout overrides the default unit-of-work deadline.
func WithTimeout(d time.Duration) PostgresOption {
	return func(r *PostgresRunner) {
		r.timeout = d
	}
}

// WithIsolation sets the isolation level of every transaction.
func WithIsolation(level sql.IsolationLevel) PostgresOption {
	return func(r *PostgresRunner) {
		r.opts = &sql.TxOptions{Isolation: level}
	}
}

func NewPostgresRunner(db *sql.DB, opts ...PostgresOption) *PostgresRunner {
	r := &PostgresRunner{db: db}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *PostgresRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if InScope(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	ctx, cancel := withDeadline(ctx, r.timeout)
	defer cancel()

	sqlTx, err := r.db.BeginTx(ctx, r.opts)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin transaction")
	}

	ctx, s := begin(ctx, sqlTx)
	defer func() {
		if !s.done {
			_ = sqlTx.Rollback()
			s.rollback()
		}
	}()

	if err := fn(ctx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit transaction")
	}
	s.commit()
	return nil
}
