package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"marketparticipant/internal/delegation/models"
	id "marketparticipant/pkg/domain"
	"marketparticipant/pkg/platform/sentinel"
	txcontext "marketparticipant/pkg/platform/tx"
)

const pgErrUniqueViolation = "23505"

// PostgresStore keeps the aggregate root in delegations and its ledger in
// delegation_periods ordered by seq.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Get(ctx context.Context, delegationID id.DelegationID) (*models.Delegation, error) {
	return s.loadOne(ctx, `SELECT id, kind, subject, delegated_by FROM delegations WHERE id = $1`, uuid.UUID(delegationID))
}

func (s *PostgresStore) Find(ctx context.Context, kind models.Kind, delegatedBy id.ActorID, subject string) (*models.Delegation, error) {
	return s.loadOne(ctx,
		`SELECT id, kind, subject, delegated_by FROM delegations WHERE kind = $1 AND delegated_by = $2 AND subject = $3`,
		string(kind), uuid.UUID(delegatedBy), subject,
	)
}

func (s *PostgresStore) ListByDelegator(ctx context.Context, actorID id.ActorID) ([]*models.Delegation, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT id, kind, subject, delegated_by FROM delegations WHERE delegated_by = $1 ORDER BY kind, subject`,
		uuid.UUID(actorID),
	)
	if err != nil {
		return nil, fmt.Errorf("query delegations: %w", err)
	}
	var out []*models.Delegation
	for rows.Next() {
		d, err := scanRoot(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan delegation: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate delegations: %w", err)
	}
	rows.Close()

	for _, d := range out {
		if err := s.loadPeriods(ctx, d); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) Links(ctx context.Context, kind models.Kind) ([]models.Link, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT d.delegated_by, p.delegated_to
		FROM delegation_periods p
		JOIN delegations d ON d.id = p.delegation_id
		WHERE d.kind = $1 AND (p.stops_at IS NULL OR p.stops_at > p.starts_at)
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query delegation links: %w", err)
	}
	defer rows.Close()

	var out []models.Link
	for rows.Next() {
		var from, to uuid.UUID
		if err := rows.Scan(&from, &to); err != nil {
			return nil, fmt.Errorf("scan delegation link: %w", err)
		}
		out = append(out, models.Link{From: id.ActorID(from), To: id.ActorID(to)})
	}
	return out, rows.Err()
}

// Save upserts the root and every period. Periods are never deleted.
func (s *PostgresStore) Save(ctx context.Context, d *models.Delegation) error {
	exec := s.execer(ctx)
	if _, err := exec.ExecContext(ctx, `
		INSERT INTO delegations (id, kind, delegated_by, subject)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, uuid.UUID(d.ID), string(d.Kind), uuid.UUID(d.DelegatedBy), d.Subject); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("save delegation: %w", err)
	}

	for seq, p := range d.Periods {
		var stopsAt any
		stoppedBy := uuid.NullUUID{}
		if p.StopsAt != nil {
			stopsAt = *p.StopsAt
			stoppedBy = uuid.NullUUID{UUID: uuid.UUID(p.StoppedBy), Valid: true}
		}
		if _, err := exec.ExecContext(ctx, `
			INSERT INTO delegation_periods (id, delegation_id, seq, delegated_to, grid_area_id, starts_at, stops_at, started_by, stopped_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET stops_at = EXCLUDED.stops_at, stopped_by = EXCLUDED.stopped_by
		`,
			uuid.UUID(p.ID), uuid.UUID(d.ID), seq, uuid.UUID(p.DelegatedTo), uuid.UUID(p.GridAreaID), p.StartsAt, stopsAt,
			uuid.UUID(p.StartedBy), stoppedBy,
		); err != nil {
			return fmt.Errorf("save delegation period: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoot(row rowScanner) (*models.Delegation, error) {
	var (
		d                     models.Delegation
		rawID, rawDelegatedBy uuid.UUID
		kind                  string
	)
	if err := row.Scan(&rawID, &kind, &d.Subject, &rawDelegatedBy); err != nil {
		return nil, err
	}
	d.ID = id.DelegationID(rawID)
	d.Kind = models.Kind(kind)
	d.DelegatedBy = id.ActorID(rawDelegatedBy)
	return &d, nil
}

func (s *PostgresStore) loadOne(ctx context.Context, query string, args ...any) (*models.Delegation, error) {
	d, err := scanRoot(s.execer(ctx).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find delegation: %w", err)
	}
	if err := s.loadPeriods(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *PostgresStore) loadPeriods(ctx context.Context, d *models.Delegation) error {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, delegated_to, grid_area_id, starts_at, stops_at, started_by, stopped_by
		FROM delegation_periods
		WHERE delegation_id = $1
		ORDER BY seq
	`, uuid.UUID(d.ID))
	if err != nil {
		return fmt.Errorf("query delegation periods: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p                         models.Period
			rawID, rawTo, rawGridArea uuid.UUID
			rawStartedBy              uuid.UUID
			stopsAt                   sql.NullTime
			stoppedBy                 uuid.NullUUID
		)
		if err := rows.Scan(&rawID, &rawTo, &rawGridArea, &p.StartsAt, &stopsAt, &rawStartedBy, &stoppedBy); err != nil {
			return fmt.Errorf("scan delegation period: %w", err)
		}
		p.ID = id.PeriodID(rawID)
		p.DelegatedTo = id.ActorID(rawTo)
		p.GridAreaID = id.GridAreaID(rawGridArea)
		p.StartsAt = p.StartsAt.UTC()
		p.StartedBy = id.UserID(rawStartedBy)
		if stoppedBy.Valid {
			p.StoppedBy = id.UserID(stoppedBy.UUID)
		}
		if stopsAt.Valid {
			v := stopsAt.Time.UTC()
			p.StopsAt = &v
		}
		d.Periods = append(d.Periods, p)
	}
	return rows.Err()
}
