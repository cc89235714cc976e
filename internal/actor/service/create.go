package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"marketparticipant/internal/actor/models"
	"marketparticipant/internal/marketrole"
	id "marketparticipant/pkg/domain"
	dErrors "marketparticipant/pkg/domain-errors"
	"marketparticipant/pkg/platform/sentinel"
	"marketparticipant/pkg/requestcontext"
)

// CreateActorRequest carries the input of the actor factory.
type CreateActorRequest struct {
	OrganizationID id.OrganizationID
	ActorNumber    string
	Name           string
	MarketRole     marketrole.ActorMarketRole
}

// CreateActor validates the request, persists a New actor and reserves its
// grid areas in one unit of work.
func (s *Service) CreateActor(ctx context.Context, req CreateActorRequest) (*models.Actor, error) {
	ctx, span := tracer.Start(ctx, "actor.CreateActor",
		trace.WithAttributes(attribute.String("actor_number", req.ActorNumber)),
	)
	defer span.End()

	actor, err := s.createActor(ctx, req)
	if err != nil {
		s.reject(ctx, span, "create", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.Created.Inc()
	}
	s.logger.InfoContext(ctx, "actor created",
		"actor_id", actor.ID.String(),
		"actor_number", actor.ActorNumber.Value,
		"function", actor.MarketRole.Function.String(),
	)
	return actor, nil
}

func (s *Service) createActor(ctx context.Context, req CreateActorRequest) (*models.Actor, error) {
	if req.OrganizationID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "organization id is required")
	}
	number, err := models.ParseActorNumber(req.ActorNumber)
	if err != nil {
		return nil, err
	}
	actor, err := models.NewActor(req.OrganizationID, number, req.Name, req.MarketRole, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.actors.GetByNumber(ctx, number); err == nil {
			return dErrors.New(dErrors.CodeConflict, "actor number is already used").
				WithKey("actor.number.already_used")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "look up actor number")
		}
		if err := s.verifyGridAreas(ctx, actor.MarketRole); err != nil {
			return err
		}

		actorID, err := s.actors.AddOrUpdate(ctx, actor)
		if err != nil {
			return translate(err, "save actor")
		}
		actor.ID = actorID

		if err := s.reservation.Apply(ctx, actorID, actor.MarketRole); err != nil {
			return err
		}
		if err := s.outbox.Enqueue(ctx, actor); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "enqueue actor events")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return actor, nil
}

func (s *Service) verifyGridAreas(ctx context.Context, role marketrole.ActorMarketRole) error {
	if s.gridAreas == nil {
		return nil
	}
	for _, gridAreaID := range role.GridAreaIDs() {
		ok, err := s.gridAreas.Exists(ctx, gridAreaID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "look up grid area")
		}
		if !ok {
			return dErrors.Validation("actor.market_role.unknown_grid_area", "grid area "+gridAreaID.String()+" does not exist")
		}
	}
	return nil
}
