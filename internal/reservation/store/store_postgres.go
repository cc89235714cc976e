package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"marketparticipant/internal/marketrole"
	"marketparticipant/internal/reservation"
	id "marketparticipant/pkg/domain"
	txcontext "marketparticipant/pkg/platform/tx"
)

const pgErrUniqueViolation = "23505"

// PostgresStore keeps reservations in grid_area_reservations, whose primary
// key on (function, grid_area_id) is the uniqueness constraint.
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

// TryReserve inserts the claim with ON CONFLICT DO NOTHING so a lost race
// does not abort the caller's transaction.
func (s *PostgresStore) TryReserve(ctx context.Context, actorID id.ActorID, function marketrole.EicFunction, gridAreaID id.GridAreaID) (bool, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO grid_area_reservations (actor_id, function, grid_area_id)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, uuid.UUID(actorID), string(function), uuid.UUID(gridAreaID))
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return false, nil
		}
		return false, fmt.Errorf("insert reservation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reservation rows affected: %w", err)
	}
	return affected == 1, nil
}

func (s *PostgresStore) ReleaseAll(ctx context.Context, actorID id.ActorID) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM grid_area_reservations WHERE actor_id = $1`, uuid.UUID(actorID))
	if err != nil {
		return fmt.Errorf("delete reservations: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByActor(ctx context.Context, actorID id.ActorID) ([]reservation.Reservation, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT function, grid_area_id
		FROM grid_area_reservations
		WHERE actor_id = $1
		ORDER BY function, grid_area_id
	`, uuid.UUID(actorID))
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	var out []reservation.Reservation
	for rows.Next() {
		var (
			function string
			gridArea uuid.UUID
		)
		if err := rows.Scan(&function, &gridArea); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, reservation.Reservation{
			ActorID:    actorID,
			Function:   marketrole.EicFunction(function),
			GridAreaID: id.GridAreaID(gridArea),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservations: %w", err)
	}
	return out, nil
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
