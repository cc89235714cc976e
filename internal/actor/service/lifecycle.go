package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"marketparticipant/internal/actor/models"
	"marketparticipant/internal/marketrole"
	id "marketparticipant/pkg/domain"
	dErrors "marketparticipant/pkg/domain-errors"
)

// Activate takes the actor live. Re-activating an active actor is a no-op.
func (s *Service) Activate(ctx context.Context, actorID id.ActorID) (*models.Actor, error) {
	return s.mutate(ctx, "activate", actorID, func(_ context.Context, a *models.Actor, now time.Time) error {
		return a.Activate(now)
	})
}

// Deactivate retires the actor. Credentials must have been removed first.
// Grid area reservations are kept; consolidation moves them.
func (s *Service) Deactivate(ctx context.Context, actorID id.ActorID) (*models.Actor, error) {
	return s.mutate(ctx, "deactivate", actorID, func(_ context.Context, a *models.Actor, now time.Time) error {
		return a.Deactivate(now)
	})
}

func (s *Service) SetAsPassive(ctx context.Context, actorID id.ActorID) (*models.Actor, error) {
	return s.mutate(ctx, "set_passive", actorID, func(_ context.Context, a *models.Actor, now time.Time) error {
		return a.SetAsPassive(now)
	})
}

// UpdateMarketRole replaces the role of a New actor and re-applies the grid
// area reservations.
func (s *Service) UpdateMarketRole(ctx context.Context, actorID id.ActorID, role marketrole.ActorMarketRole) (*models.Actor, error) {
	return s.mutate(ctx, "update_market_role", actorID, func(ctx context.Context, a *models.Actor, now time.Time) error {
		if err := a.UpdateMarketRole(role, now); err != nil {
			return err
		}
		if err := s.verifyGridAreas(ctx, a.MarketRole); err != nil {
			return err
		}
		return s.reservation.Apply(ctx, a.ID, a.MarketRole)
	})
}

func (s *Service) AssignCredentials(ctx context.Context, actorID id.ActorID, credentials *models.Credentials) (*models.Actor, error) {
	return s.mutate(ctx, "assign_credentials", actorID, func(_ context.Context, a *models.Actor, now time.Time) error {
		return a.AssignCredentials(credentials, now)
	})
}

func (s *Service) RemoveCredentials(ctx context.Context, actorID id.ActorID) (*models.Actor, error) {
	return s.mutate(ctx, "remove_credentials", actorID, func(_ context.Context, a *models.Actor, now time.Time) error {
		a.RemoveCredentials(now)
		return nil
	})
}

// SetExternalActorID links the actor to its identity-provider object. A nil
// value unlinks it.
func (s *Service) SetExternalActorID(ctx context.Context, actorID id.ActorID, externalID *uuid.UUID) (*models.Actor, error) {
	return s.mutate(ctx, "set_external_id", actorID, func(_ context.Context, a *models.Actor, now time.Time) error {
		return a.SetExternalActorID(externalID, now)
	})
}

func (s *Service) Rename(ctx context.Context, actorID id.ActorID, name string) (*models.Actor, error) {
	return s.mutate(ctx, "rename", actorID, func(_ context.Context, a *models.Actor, now time.Time) error {
		return a.Rename(name, now)
	})
}

// Get returns the actor or a CodeNotFound error.
func (s *Service) Get(ctx context.Context, actorID id.ActorID) (*models.Actor, error) {
	a, err := s.actors.Get(ctx, actorID)
	if err != nil {
		return nil, translate(err, "load actor")
	}
	return a, nil
}

// AppRoleID returns the identity-provider application role granted to the
// actor through its market role function.
func (s *Service) AppRoleID(ctx context.Context, actorID id.ActorID) (uuid.UUID, error) {
	if s.roles == nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvariantViolation, "role map is not configured")
	}
	a, err := s.Get(ctx, actorID)
	if err != nil {
		return uuid.Nil, err
	}
	return s.roles.RoleID(a.MarketRole.Function)
}
