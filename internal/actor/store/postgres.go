package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"marketparticipant/internal/actor/models"
	"marketparticipant/internal/auditlog"
	id "marketparticipant/pkg/domain"
	"marketparticipant/pkg/platform/sentinel"
	txcontext "marketparticipant/pkg/platform/tx"
	"marketparticipant/pkg/requestcontext"
)

const pgErrUniqueViolation = "23505"

// PostgresStore persists actors in the actors table and versions in
// actor_history, both inside the caller's transaction.
type PostgresStore struct {
	db      *sql.DB
	history *auditlog.PostgresHistory[id.ActorID, models.Actor]
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:      db,
		history: auditlog.NewPostgresHistory[id.ActorID, models.Actor](db, "actor_history", "actor_id"),
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

const selectActor = `
	SELECT id, organization_id, actor_number, name, status, market_role,
	       credentials, external_actor_id, updated_at
	FROM actors
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActor(row rowScanner) (*models.Actor, error) {
	var (
		a           models.Actor
		actorID     uuid.UUID
		orgID       uuid.UUID
		number      string
		status      string
		role        []byte
		credentials []byte
		externalID  uuid.NullUUID
		updatedAt   time.Time
	)
	if err := row.Scan(&actorID, &orgID, &number, &a.Name, &status, &role, &credentials, &externalID, &updatedAt); err != nil {
		return nil, err
	}
	parsed, err := models.ParseActorNumber(number)
	if err != nil {
		return nil, fmt.Errorf("stored actor number %q: %w", number, err)
	}
	a.ID = id.ActorID(actorID)
	a.OrganizationID = id.OrganizationID(orgID)
	a.ActorNumber = parsed
	a.Status = models.ActorStatus(status)
	a.UpdatedAt = updatedAt
	if err := json.Unmarshal(role, &a.MarketRole); err != nil {
		return nil, fmt.Errorf("decode market role: %w", err)
	}
	if len(credentials) > 0 {
		a.Credentials = &models.Credentials{}
		if err := json.Unmarshal(credentials, a.Credentials); err != nil {
			return nil, fmt.Errorf("decode credentials: %w", err)
		}
	}
	if externalID.Valid {
		ext := externalID.UUID
		a.ExternalActorID = &ext
	}
	return &a, nil
}

func (s *PostgresStore) Get(ctx context.Context, actorID id.ActorID) (*models.Actor, error) {
	a, err := scanActor(s.execer(ctx).QueryRowContext(ctx, selectActor+` WHERE id = $1`, uuid.UUID(actorID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find actor: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) GetByNumber(ctx context.Context, number models.ActorNumber) (*models.Actor, error) {
	a, err := scanActor(s.execer(ctx).QueryRowContext(ctx, selectActor+` WHERE actor_number = $1`, number.Value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find actor by number: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListByOrganization(ctx context.Context, organizationID id.OrganizationID) ([]*models.Actor, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, selectActor+` WHERE organization_id = $1 ORDER BY actor_number`, uuid.UUID(organizationID))
	if err != nil {
		return nil, fmt.Errorf("query actors: %w", err)
	}
	defer rows.Close()

	var out []*models.Actor
	for rows.Next() {
		a, err := scanActor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan actor: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actors: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) AddOrUpdate(ctx context.Context, actor *models.Actor) (id.ActorID, error) {
	actorID := actor.ID
	if actorID.IsNil() {
		actorID = id.ActorID(uuid.New())
	}

	role, err := json.Marshal(actor.MarketRole)
	if err != nil {
		return id.ActorID{}, fmt.Errorf("encode market role: %w", err)
	}
	var credentials []byte
	if actor.Credentials != nil {
		if credentials, err = json.Marshal(actor.Credentials); err != nil {
			return id.ActorID{}, fmt.Errorf("encode credentials: %w", err)
		}
	}
	var thumbprintArg sql.NullString
	if tp := thumbprint(actor); tp != "" {
		thumbprintArg = sql.NullString{String: tp, Valid: true}
	}
	var externalID uuid.NullUUID
	if actor.ExternalActorID != nil {
		externalID = uuid.NullUUID{UUID: *actor.ExternalActorID, Valid: true}
	}
	changedBy := requestcontext.UserID(ctx)
	var changedByArg uuid.NullUUID
	if !changedBy.IsNil() {
		changedByArg = uuid.NullUUID{UUID: uuid.UUID(changedBy), Valid: true}
	}

	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO actors (
			id, organization_id, actor_number, name, status, market_role,
			credentials, certificate_thumbprint, external_actor_id, updated_at, changed_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			market_role = EXCLUDED.market_role,
			credentials = EXCLUDED.credentials,
			certificate_thumbprint = EXCLUDED.certificate_thumbprint,
			external_actor_id = EXCLUDED.external_actor_id,
			updated_at = EXCLUDED.updated_at,
			changed_by = EXCLUDED.changed_by
	`,
		uuid.UUID(actorID),
		uuid.UUID(actor.OrganizationID),
		actor.ActorNumber.Value,
		actor.Name,
		string(actor.Status),
		role,
		credentials,
		thumbprintArg,
		externalID,
		actor.UpdatedAt,
		changedByArg,
	)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "thumbprint") {
				return id.ActorID{}, models.ErrThumbprintCredentialsConflict
			}
			return id.ActorID{}, sentinel.ErrAlreadyUsed
		}
		return id.ActorID{}, fmt.Errorf("save actor: %w", err)
	}

	snapshot := actor.Clone()
	snapshot.ID = actorID
	if err := s.history.Record(ctx, actorID, *snapshot, requestcontext.Now(ctx), changedBy); err != nil {
		return id.ActorID{}, err
	}
	return actorID, nil
}

func (s *PostgresStore) History(ctx context.Context, actorID id.ActorID) ([]auditlog.Snapshot[models.Actor], error) {
	return s.history.History(ctx, actorID)
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
