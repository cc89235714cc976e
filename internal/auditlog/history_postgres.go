package auditlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "marketparticipant/pkg/domain"
	txcontext "marketparticipant/pkg/platform/tx"
)

// PostgresHistory keeps versions in a history table shaped
// (<key column>, state jsonb, valid_from, valid_to, changed_by).
type PostgresHistory[K fmt.Stringer, T any] struct {
	db        *sql.DB
	table     string
	keyColumn string
}

// NewPostgresHistory binds a history table. table and keyColumn are trusted
// identifiers supplied by the wiring code, never user input.
func NewPostgresHistory[K fmt.Stringer, T any](db *sql.DB, table, keyColumn string) *PostgresHistory[K, T] {
	return &PostgresHistory[K, T]{db: db, table: table, keyColumn: keyColumn}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (h *PostgresHistory[K, T]) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return h.db
}

func nullableUser(u id.UserID) any {
	if u.IsNil() {
		return nil
	}
	return uuid.UUID(u)
}

// Record closes the open version of key and inserts a new one.
func (h *PostgresHistory[K, T]) Record(ctx context.Context, key K, state T, at time.Time, by id.UserID) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal %s state: %w", h.table, err)
	}
	exec := h.execer(ctx)
	if _, err := exec.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET valid_to = $1 WHERE %s = $2 AND valid_to IS NULL`, h.table, h.keyColumn),
		at, key.String(),
	); err != nil {
		return fmt.Errorf("close %s version: %w", h.table, err)
	}
	if _, err := exec.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s, state, valid_from, changed_by) VALUES ($1, $2, $3, $4)`, h.table, h.keyColumn),
		key.String(), payload, at, nullableUser(by),
	); err != nil {
		return fmt.Errorf("insert %s version: %w", h.table, err)
	}
	return nil
}

func (h *PostgresHistory[K, T]) History(ctx context.Context, key K) ([]Snapshot[T], error) {
	rows, err := h.execer(ctx).QueryContext(ctx,
		fmt.Sprintf(`SELECT state, valid_from, valid_to, changed_by FROM %s WHERE %s = $1 ORDER BY valid_from, version`, h.table, h.keyColumn),
		key.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", h.table, err)
	}
	defer rows.Close()

	var out []Snapshot[T]
	for rows.Next() {
		var (
			payload   []byte
			snap      Snapshot[T]
			validTo   sql.NullTime
			changedBy uuid.NullUUID
		)
		if err := rows.Scan(&payload, &snap.ValidFrom, &validTo, &changedBy); err != nil {
			return nil, fmt.Errorf("scan %s: %w", h.table, err)
		}
		if err := json.Unmarshal(payload, &snap.State); err != nil {
			return nil, fmt.Errorf("decode %s state: %w", h.table, err)
		}
		if validTo.Valid {
			t := validTo.Time
			snap.ValidTo = &t
		}
		if changedBy.Valid {
			snap.ChangedBy = id.UserID(changedBy.UUID)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", h.table, err)
	}
	return out, nil
}
