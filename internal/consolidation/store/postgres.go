package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"marketparticipant/internal/consolidation"
	id "marketparticipant/pkg/domain"
	"marketparticipant/pkg/platform/sentinel"
	txcontext "marketparticipant/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const selectConsolidations = `SELECT id, from_actor_id, to_actor_id, consolidate_at, status, executed_at FROM actor_consolidations`

func (s *PostgresStore) Add(ctx context.Context, c *consolidation.ActorConsolidation) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`INSERT INTO actor_consolidations (id, from_actor_id, to_actor_id, consolidate_at, status, executed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(c.ID), uuid.UUID(c.From), uuid.UUID(c.To), c.ConsolidateAt, string(c.Status), c.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("insert consolidation: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, c *consolidation.ActorConsolidation) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE actor_consolidations SET status = $2, executed_at = $3 WHERE id = $1`,
		uuid.UUID(c.ID), string(c.Status), c.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("update consolidation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update consolidation: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListDue(ctx context.Context, now time.Time) ([]*consolidation.ActorConsolidation, error) {
	return s.query(ctx, selectConsolidations+` WHERE status = $1 AND consolidate_at <= $2 ORDER BY consolidate_at`,
		string(consolidation.StatusPending), now)
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]*consolidation.ActorConsolidation, error) {
	return s.query(ctx, selectConsolidations+` WHERE status = $1 ORDER BY consolidate_at`,
		string(consolidation.StatusPending))
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*consolidation.ActorConsolidation, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query consolidations: %w", err)
	}
	defer rows.Close()

	var out []*consolidation.ActorConsolidation
	for rows.Next() {
		var (
			c          consolidation.ActorConsolidation
			cid        uuid.UUID
			from, to   uuid.UUID
			status     string
			executedAt sql.NullTime
		)
		if err := rows.Scan(&cid, &from, &to, &c.ConsolidateAt, &status, &executedAt); err != nil {
			return nil, fmt.Errorf("scan consolidation: %w", err)
		}
		c.ID = id.ConsolidationID(cid)
		c.From = id.ActorID(from)
		c.To = id.ActorID(to)
		c.ConsolidateAt = c.ConsolidateAt.UTC()
		c.Status = consolidation.Status(status)
		if executedAt.Valid {
			t := executedAt.Time.UTC()
			c.ExecutedAt = &t
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consolidations: %w", err)
	}
	return out, nil
}
