package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"marketparticipant/internal/actor/models"
	"marketparticipant/internal/auditlog"
	delegationmodels "marketparticipant/internal/delegation/models"
	id "marketparticipant/pkg/domain"
	dErrors "marketparticipant/pkg/domain-errors"
)

// AuditField names a tracked aspect of an actor.
type AuditField string

const (
	AuditFieldCreated                 AuditField = "Created"
	AuditFieldName                    AuditField = "Name"
	AuditFieldStatus                  AuditField = "Status"
	AuditFieldExternalActorID         AuditField = "ExternalActorId"
	AuditFieldMarketRole              AuditField = "MarketRole"
	AuditFieldCertificateCredentials  AuditField = "CertificateCredentials"
	AuditFieldClientSecretCredentials AuditField = "ClientSecretCredentials"
	AuditFieldDelegationStart         AuditField = "DelegationStart"
	AuditFieldDelegationStop          AuditField = "DelegationStop"
)

// AuditRules are the rules applied to actor history.
func AuditRules() []auditlog.Rule[models.Actor, AuditField] {
	return []auditlog.Rule[models.Actor, AuditField]{
		auditlog.OnCreation(AuditFieldCreated, func(a models.Actor) string { return a.ActorNumber.Value }),
		auditlog.OnChange(AuditFieldName, func(a models.Actor) string { return a.Name }),
		auditlog.OnChange(AuditFieldStatus, func(a models.Actor) string { return string(a.Status) }),
		auditlog.OnChange(AuditFieldExternalActorID, func(a models.Actor) string {
			if a.ExternalActorID == nil {
				return ""
			}
			return a.ExternalActorID.String()
		}),
		auditlog.OnChange(AuditFieldMarketRole, func(a models.Actor) string { return a.MarketRole.String() }),
		auditlog.OnChange(AuditFieldCertificateCredentials, func(a models.Actor) string {
			if a.Credentials == nil || a.Credentials.Certificate == nil {
				return ""
			}
			return a.Credentials.Certificate.Thumbprint
		}),
		auditlog.OnChange(AuditFieldClientSecretCredentials, func(a models.Actor) string {
			if a.Credentials == nil || a.Credentials.ClientSecret == nil {
				return ""
			}
			return a.Credentials.ClientSecret.ClientID
		}),
	}
}

// BuildAuditLog reconstructs the actor's change log from its history,
// merged with the start and stop of every delegation it handed out.
func (s *Service) BuildAuditLog(ctx context.Context, actorID id.ActorID) ([]auditlog.Entry[AuditField], error) {
	ctx, span := tracer.Start(ctx, "actor.BuildAuditLog",
		trace.WithAttributes(attribute.String("actor_id", actorID.String())),
	)
	defer span.End()

	if _, err := s.actors.Get(ctx, actorID); err != nil {
		err = translate(err, "load actor")
		s.reject(ctx, span, "audit", err)
		return nil, err
	}
	history, err := s.actors.History(ctx, actorID)
	if err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "load actor history")
		s.reject(ctx, span, "audit", err)
		return nil, err
	}
	entries := auditlog.Build(history, AuditRules())

	if s.delegations == nil {
		return entries, nil
	}
	delegations, err := s.delegations.ListByDelegator(ctx, actorID)
	if err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "load delegations")
		s.reject(ctx, span, "audit", err)
		return nil, err
	}
	return auditlog.Merge(entries, DelegationEntries(delegations)), nil
}

// DelegationEntries turns delegation periods into audit entries, one start
// entry per period and one stop entry per stopped period. Cancelled periods
// are reported like any other stop.
func DelegationEntries(delegations []*delegationmodels.Delegation) []auditlog.Entry[AuditField] {
	var out []auditlog.Entry[AuditField]
	for _, d := range delegations {
		for _, p := range d.Periods {
			desc := fmt.Sprintf("%s %s to %s in grid area %s", d.Kind, d.Subject, p.DelegatedTo, p.GridAreaID)
			out = append(out, auditlog.Entry[AuditField]{
				Field:     AuditFieldDelegationStart,
				Group:     p.ID.String(),
				Current:   desc,
				ChangedBy: p.StartedBy,
				Timestamp: p.StartsAt,
			})
			if p.StopsAt != nil {
				out = append(out, auditlog.Entry[AuditField]{
					Field:     AuditFieldDelegationStop,
					Group:     p.ID.String(),
					Previous:  desc,
					ChangedBy: p.StoppedBy,
					Timestamp: *p.StopsAt,
				})
			}
		}
	}
	return auditlog.Sort(out)
}
