package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"marketparticipant/internal/auditlog"
	"marketparticipant/internal/gridarea/models"
	id "marketparticipant/pkg/domain"
	"marketparticipant/pkg/platform/sentinel"
	txcontext "marketparticipant/pkg/platform/tx"
	"marketparticipant/pkg/requestcontext"
)

const pgErrUniqueViolation = "23505"

type PostgresStore struct {
	db      *sql.DB
	history *auditlog.PostgresHistory[id.GridAreaID, models.GridArea]
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:      db,
		history: auditlog.NewPostgresHistory[id.GridAreaID, models.GridArea](db, "grid_area_history", "grid_area_id"),
	}
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

const selectGridArea = `
	SELECT id, code, name, price_area_code, type, valid_from, valid_to
	FROM grid_areas
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGridArea(row rowScanner) (*models.GridArea, error) {
	var (
		g       models.GridArea
		rawID   uuid.UUID
		code    string
		price   string
		kind    string
		validTo sql.NullTime
	)
	if err := row.Scan(&rawID, &code, &g.Name, &price, &kind, &g.ValidFrom, &validTo); err != nil {
		return nil, err
	}
	g.ID = id.GridAreaID(rawID)
	g.Code = models.Code(code)
	g.PriceAreaCode = models.PriceAreaCode(price)
	g.Type = models.Type(kind)
	if validTo.Valid {
		v := validTo.Time.UTC()
		g.ValidTo = &v
	}
	return &g, nil
}

func (s *PostgresStore) Get(ctx context.Context, gridAreaID id.GridAreaID) (*models.GridArea, error) {
	g, err := scanGridArea(s.execer(ctx).QueryRowContext(ctx, selectGridArea+` WHERE id = $1`, uuid.UUID(gridAreaID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find grid area: %w", err)
	}
	return g, nil
}

func (s *PostgresStore) GetByCode(ctx context.Context, code models.Code) (*models.GridArea, error) {
	g, err := scanGridArea(s.execer(ctx).QueryRowContext(ctx, selectGridArea+` WHERE code = $1`, string(code)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find grid area by code: %w", err)
	}
	return g, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.GridArea, error) {
	return s.query(ctx, selectGridArea+` ORDER BY code`)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.GridArea, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query grid areas: %w", err)
	}
	defer rows.Close()

	var out []*models.GridArea
	for rows.Next() {
		g, err := scanGridArea(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grid area: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AddOrUpdate(ctx context.Context, g *models.GridArea) (id.GridAreaID, error) {
	gridAreaID := g.ID
	if gridAreaID.IsNil() {
		gridAreaID = id.GridAreaID(uuid.New())
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO grid_areas (id, code, name, price_area_code, type, valid_from, valid_to, changed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price_area_code = EXCLUDED.price_area_code,
			type = EXCLUDED.type,
			valid_from = EXCLUDED.valid_from,
			valid_to = EXCLUDED.valid_to,
			changed_by = EXCLUDED.changed_by
	`,
		uuid.UUID(gridAreaID),
		string(g.Code),
		g.Name,
		string(g.PriceAreaCode),
		string(g.Type),
		g.ValidFrom,
		nullableTime(g.ValidTo),
		nullableUser(requestcontext.UserID(ctx)),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return id.GridAreaID{}, sentinel.ErrAlreadyUsed
		}
		return id.GridAreaID{}, fmt.Errorf("save grid area: %w", err)
	}

	snapshot := g.Clone()
	snapshot.ID = gridAreaID
	if err := s.history.Record(ctx, gridAreaID, *snapshot, requestcontext.Now(ctx), requestcontext.UserID(ctx)); err != nil {
		return id.GridAreaID{}, err
	}
	return gridAreaID, nil
}

// SetValidTo ends the validity of every listed grid area in one statement
// and records a history version for each.
func (s *PostgresStore) SetValidTo(ctx context.Context, gridAreaIDs []id.GridAreaID, validTo time.Time) error {
	if len(gridAreaIDs) == 0 {
		return nil
	}
	raw := make([]string, len(gridAreaIDs))
	for i, g := range gridAreaIDs {
		raw[i] = g.String()
	}
	areas, err := s.query(ctx, selectGridArea+` WHERE id = ANY($1::uuid[]) ORDER BY code`, pq.Array(raw))
	if err != nil {
		return err
	}
	if len(areas) != len(gridAreaIDs) {
		return sentinel.ErrNotFound
	}

	if _, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE grid_areas SET valid_to = $1, changed_by = $2 WHERE id = ANY($3::uuid[])`,
		validTo.UTC(), nullableUser(requestcontext.UserID(ctx)), pq.Array(raw),
	); err != nil {
		return fmt.Errorf("set grid area valid to: %w", err)
	}

	for _, g := range areas {
		v := validTo.UTC()
		g.ValidTo = &v
		if err := s.history.Record(ctx, g.ID, *g, requestcontext.Now(ctx), requestcontext.UserID(ctx)); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) History(ctx context.Context, gridAreaID id.GridAreaID) ([]auditlog.Snapshot[models.GridArea], error) {
	return s.history.History(ctx, gridAreaID)
}

func (s *PostgresStore) AppendAudit(ctx context.Context, records ...models.AuditRecord) error {
	for _, r := range records {
		if _, err := s.execer(ctx).ExecContext(ctx, `
			INSERT INTO grid_area_audit_log (grid_area_id, field, previous_value, current_value, changed_by, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			uuid.UUID(r.GridAreaID),
			string(r.Field),
			r.Previous,
			r.Current,
			nullableUser(r.ChangedBy),
			r.Timestamp,
		); err != nil {
			return fmt.Errorf("append grid area audit: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) AuditRecords(ctx context.Context, gridAreaID id.GridAreaID) ([]models.AuditRecord, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT field, previous_value, current_value, changed_by, timestamp
		FROM grid_area_audit_log
		WHERE grid_area_id = $1
		ORDER BY id
	`, uuid.UUID(gridAreaID))
	if err != nil {
		return nil, fmt.Errorf("query grid area audit: %w", err)
	}
	defer rows.Close()

	var out []models.AuditRecord
	for rows.Next() {
		r := models.AuditRecord{GridAreaID: gridAreaID}
		var (
			field     string
			changedBy uuid.NullUUID
		)
		if err := rows.Scan(&field, &r.Previous, &r.Current, &changedBy, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan grid area audit: %w", err)
		}
		r.Field = models.AuditField(field)
		if changedBy.Valid {
			r.ChangedBy = id.UserID(changedBy.UUID)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableUser(u id.UserID) any {
	if u.IsNil() {
		return nil
	}
	return uuid.UUID(u)
}
