// Package service runs grid area operations: the grid area factory, renames
// and audit log reconstruction.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"marketparticipant/internal/auditlog"
	"marketparticipant/internal/gridarea/models"
	id "marketparticipant/pkg/domain"
	dErrors "marketparticipant/pkg/domain-errors"
	"marketparticipant/pkg/platform/sentinel"
	"marketparticipant/pkg/platform/tx"
)

var tracer = otel.Tracer("marketparticipant/gridarea")

type GridAreaStore interface {
	Get(ctx context.Context, gridAreaID id.GridAreaID) (*models.GridArea, error)
	GetByCode(ctx context.Context, code models.Code) (*models.GridArea, error)
	List(ctx context.Context) ([]*models.GridArea, error)
	AddOrUpdate(ctx context.Context, g *models.GridArea) (id.GridAreaID, error)
	History(ctx context.Context, gridAreaID id.GridAreaID) ([]auditlog.Snapshot[models.GridArea], error)
	AuditRecords(ctx context.Context, gridAreaID id.GridAreaID) ([]models.AuditRecord, error)
}

type Service struct {
	store  GridAreaStore
	runner tx.Runner
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store GridAreaStore, runner tx.Runner, opts ...Option) *Service {
	s := &Service{store: store, runner: runner, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateGridAreaRequest struct {
	Code          string
	Name          string
	PriceAreaCode string
	Type          models.Type
	ValidFrom     time.Time
	ValidTo       *time.Time
}

// CreateGridArea validates and persists a grid area with a unique code.
func (s *Service) CreateGridArea(ctx context.Context, req CreateGridAreaRequest) (*models.GridArea, error) {
	ctx, span := tracer.Start(ctx, "gridarea.CreateGridArea",
		trace.WithAttributes(attribute.String("code", req.Code)),
	)
	defer span.End()

	g, err := s.createGridArea(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.InfoContext(ctx, "grid area rejected", "code", req.Code, "key", dErrors.KeyOf(err), "error", err)
		return nil, err
	}
	s.logger.InfoContext(ctx, "grid area created", "grid_area_id", g.ID.String(), "code", string(g.Code))
	return g, nil
}

func (s *Service) createGridArea(ctx context.Context, req CreateGridAreaRequest) (*models.GridArea, error) {
	code, err := models.ParseCode(req.Code)
	if err != nil {
		return nil, err
	}
	price, err := models.ParsePriceAreaCode(req.PriceAreaCode)
	if err != nil {
		return nil, err
	}
	g, err := models.NewGridArea(code, req.Name, price, req.Type, req.ValidFrom, req.ValidTo)
	if err != nil {
		return nil, err
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.GetByCode(ctx, code); err == nil {
			return codeTaken()
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "look up grid area code")
		}
		gridAreaID, err := s.store.AddOrUpdate(ctx, g)
		if err != nil {
			return translate(err, "save grid area")
		}
		g.ID = gridAreaID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Service) Rename(ctx context.Context, gridAreaID id.GridAreaID, name string) (*models.GridArea, error) {
	var result *models.GridArea
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		g, err := s.store.Get(ctx, gridAreaID)
		if err != nil {
			return translate(err, "load grid area")
		}
		if err := g.Rename(name); err != nil {
			return err
		}
		if _, err := s.store.AddOrUpdate(ctx, g); err != nil {
			return translate(err, "save grid area")
		}
		result = g
		return nil
	})
	return result, err
}

func (s *Service) Get(ctx context.Context, gridAreaID id.GridAreaID) (*models.GridArea, error) {
	g, err := s.store.Get(ctx, gridAreaID)
	if err != nil {
		return nil, translate(err, "load grid area")
	}
	return g, nil
}

func (s *Service) List(ctx context.Context) ([]*models.GridArea, error) {
	areas, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list grid areas")
	}
	return areas, nil
}

// Exists reports whether the grid area is known.
func (s *Service) Exists(ctx context.Context, gridAreaID id.GridAreaID) (bool, error) {
	_, err := s.store.Get(ctx, gridAreaID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// AuditRules are the rules applied to grid area history.
func AuditRules() []auditlog.Rule[models.GridArea, models.AuditField] {
	return []auditlog.Rule[models.GridArea, models.AuditField]{
		auditlog.OnChange(models.AuditFieldName, func(g models.GridArea) string { return g.Name }),
		auditlog.OnChange(models.AuditFieldValidTo, func(g models.GridArea) string {
			if g.ValidTo == nil {
				return ""
			}
			return g.ValidTo.Format(time.RFC3339)
		}),
	}
}

// BuildAuditLog merges entries derived from history with the explicit
// consolidation records.
func (s *Service) BuildAuditLog(ctx context.Context, gridAreaID id.GridAreaID) ([]auditlog.Entry[models.AuditField], error) {
	if _, err := s.store.Get(ctx, gridAreaID); err != nil {
		return nil, translate(err, "load grid area")
	}
	history, err := s.store.History(ctx, gridAreaID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load grid area history")
	}
	records, err := s.store.AuditRecords(ctx, gridAreaID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load grid area audit records")
	}
	explicit := make([]auditlog.Entry[models.AuditField], len(records))
	for i, r := range records {
		explicit[i] = r.Entry
	}
	return auditlog.Merge(auditlog.Build(history, AuditRules()), explicit), nil
}

func codeTaken() error {
	return dErrors.New(dErrors.CodeConflict, "grid area code is already used").WithKey("grid_area.code.already_used")
}

func translate(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "grid area not found").WithKey("grid_area.not_found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return codeTaken()
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
