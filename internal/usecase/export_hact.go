package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/V4T54L/compliance-gate/internal/domain"
	"github.com/V4T54L/compliance-gate/internal/pkg/reqctx"
)

// HACTExportRequirement is the minimum persona for every HACT export.
const HACTExportRequirement = domain.PersonaManager

const exportOperation = "hact.export"

// ExportUseCase authorizes and performs HACT exports of regulated entities.
type ExportUseCase struct {
	exporter domain.HACTExporter
	audit    domain.AuditRepository
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewExportUseCase creates a new ExportUseCase. audit may be nil.
func NewExportUseCase(exporter domain.HACTExporter, audit domain.AuditRepository, logger *slog.Logger) *ExportUseCase {
	return &ExportUseCase{
		exporter: exporter,
		audit:    audit,
		logger:   logger.With("component", "export_usecase"),
		tracer:   otel.Tracer("github.com/V4T54L/compliance-gate/internal/usecase"),
	}
}

// Export authorizes actor, then fetches entity id from the matching export
// collaborator. Denied and NotFound are returned as outcomes; any other
// failure, including cancellation of ctx, is returned as an error and no
// outcome should be delivered.
func (uc *ExportUseCase) Export(ctx context.Context, entity domain.EntityType, id string, actor domain.Actor) (domain.ExportOutcome, error) {
	outcome := domain.ExportOutcome{Entity: entity, ID: id}

	// 1. Authorize before touching anything
	decision := Authorize(actor.Persona, HACTExportRequirement)
	if !decision.Allowed {
		outcome.Kind = domain.OutcomeDenied
		outcome.Reason = decision.Reason
		uc.record(ctx, actor, outcome, string(domain.OutcomeDenied))
		return outcome, nil
	}

	// 2. Delegate to the collaborator for this entity type
	ctx, span := uc.tracer.Start(ctx, exportOperation, trace.WithAttributes(
		attribute.String("hact.entity_type", string(entity)),
	))
	defer span.End()

	record, err := uc.fetch(ctx, entity, id)
	if err == nil && ctx.Err() != nil {
		// The caller has gone away; a late success must not be delivered.
		err = ctx.Err()
	}

	switch {
	case err == nil:
		outcome.Kind = domain.OutcomeDelivered
		outcome.Record = record
		span.SetAttributes(attribute.String("hact.outcome", string(outcome.Kind)))
		uc.record(ctx, actor, outcome, string(domain.OutcomeDelivered))
		return outcome, nil

	case errors.Is(err, domain.ErrNotFound):
		outcome.Kind = domain.OutcomeNotFound
		outcome.Reason = fmt.Sprintf("%s not found", entity.DisplayName())
		span.SetAttributes(attribute.String("hact.outcome", string(outcome.Kind)))
		uc.record(ctx, actor, outcome, string(domain.OutcomeNotFound))
		return outcome, nil

	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "export collaborator failed")
		// Record the fault on a fresh context so a cancelled request still leaves a trail.
		uc.record(context.WithoutCancel(ctx), actor, outcome, domain.OutcomeFault)
		return domain.ExportOutcome{}, fmt.Errorf("export %s %s: %w", entity, id, err)
	}
}

func (uc *ExportUseCase) fetch(ctx context.Context, entity domain.EntityType, id string) (*domain.HACTRecord, error) {
	switch entity {
	case domain.EntityProperty:
		return uc.exporter.ExportProperty(ctx, id)
	case domain.EntityTenant:
		return uc.exporter.ExportTenant(ctx, id)
	case domain.EntityCase:
		return uc.exporter.ExportCase(ctx, id)
	default:
		return nil, fmt.Errorf("unsupported entity type %q", entity)
	}
}

func (uc *ExportUseCase) record(ctx context.Context, actor domain.Actor, outcome domain.ExportOutcome, result string) {
	if uc.audit == nil {
		return
	}
	event := domain.AuditEvent{
		ID:         uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		RequestID:  reqctx.RequestID(ctx),
		Subject:    actor.Subject,
		Persona:    actor.Persona,
		Operation:  exportOperation,
		EntityType: outcome.Entity,
		EntityID:   outcome.ID,
		Outcome:    result,
		Reason:     outcome.Reason,
	}
	if err := uc.audit.Record(ctx, event); err != nil {
		// Audit is best effort; the decision stands.
		uc.logger.Warn("failed to record audit event", "error", err, "event_id", event.ID, "outcome", result)
	}
}
