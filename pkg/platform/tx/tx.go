// Package tx carries the unit-of-work scope through context.
//
// A scope is opened by a Runner. Stores join it implicitly: SQL stores pick
// up the *sql.Tx via From, in-memory stores register compensations via
// OnRollback. Work that must only happen once the unit of work is durable,
// such as clearing an aggregate's pending domain events, is registered with
// AfterCommit.
package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

var txKey = ctxKey{}

type scope struct {
	tx         *sql.Tx
	onCommit   []func()
	onRollback []func()
	done       bool
}

func begin(ctx context.Context, sqlTx *sql.Tx) (context.Context, *scope) {
	s := &scope{tx: sqlTx}
	return context.WithValue(ctx, txKey, s), s
}

func (s *scope) commit() {
	s.done = true
	for _, fn := range s.onCommit {
		fn()
	}
}

func (s *scope) rollback() {
	s.done = true
	for i := len(s.onRollback) - 1; i >= 0; i-- {
		s.onRollback[i]()
	}
}

func scopeFrom(ctx context.Context) (*scope, bool) {
	s, ok := ctx.Value(txKey).(*scope)
	return s, ok
}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, sqlTx *sql.Tx) context.Context {
	if sqlTx == nil {
		return ctx
	}
	ctx, _ = begin(ctx, sqlTx)
	return ctx
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	s, ok := scopeFrom(ctx)
	if !ok || s.tx == nil {
		return nil, false
	}
	return s.tx, true
}

// InScope reports whether ctx belongs to an open unit of work.
func InScope(ctx context.Context) bool {
	_, ok := scopeFrom(ctx)
	return ok
}

// AfterCommit registers fn to run once the enclosing unit of work commits.
// Outside a unit of work fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	if s, ok := scopeFrom(ctx); ok {
		s.onCommit = append(s.onCommit, fn)
		return
	}
	fn()
}

// OnRollback registers a compensation that runs, in reverse registration
// order, when the enclosing unit of work is abandoned. Outside a unit of work
// there is nothing to roll back and fn is dropped.
func OnRollback(ctx context.Context, fn func()) {
	if s, ok := scopeFrom(ctx); ok {
		s.onRollback = append(s.onRollback, fn)
	}
}
