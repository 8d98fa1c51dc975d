package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/lib/pq"

	"github.com/V4T54L/compliance-gate/internal/domain"
)

const (
	auditTableName     = "audit_events"
	auditTempTableName = "audit_events_temp_import"
)

// AuditRepository implements domain.AuditSink for PostgreSQL.
type AuditRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAuditRepository creates a new PostgreSQL audit sink.
func NewAuditRepository(db *sql.DB, logger *slog.Logger) *AuditRepository {
	return &AuditRepository{db: db, logger: logger}
}

// WriteAuditBatch writes a batch of audit events to PostgreSQL using the COPY protocol.
// Events already present (same event_id) are left untouched, so redelivered batches are idempotent.
func (r *AuditRepository) WriteAuditBatch(ctx context.Context, events []domain.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback() // no-op after Commit

	// Stage into a temp table, then merge into the main table.
	_, err = txn.ExecContext(ctx, `CREATE TEMP TABLE `+auditTempTableName+` (LIKE `+auditTableName+` INCLUDING DEFAULTS) ON COMMIT DROP;`)
	if err != nil {
		return err
	}

	stmt, err := txn.PrepareContext(ctx, pq.CopyIn(auditTempTableName,
		"event_id", "occurred_at", "request_id", "subject", "persona", "operation",
		"entity_type", "entity_id", "outcome", "reason"))
	if err != nil {
		return err
	}

	for _, e := range events {
		_, err = stmt.ExecContext(ctx, e.ID, e.OccurredAt, e.RequestID, e.Subject, string(e.Persona),
			e.Operation, string(e.EntityType), e.EntityID, e.Outcome, e.Reason)
		if err != nil {
			_ = stmt.Close()
			return err
		}
	}

	if err := stmt.Close(); err != nil {
		return err
	}

	insertQuery := `
		INSERT INTO ` + auditTableName + ` (event_id, occurred_at, request_id, subject, persona, operation, entity_type, entity_id, outcome, reason)
		SELECT event_id, occurred_at, request_id, subject, persona, operation, entity_type, entity_id, outcome, reason FROM ` + auditTempTableName + `
		ON CONFLICT (event_id) DO NOTHING;
	`
	if _, err = txn.ExecContext(ctx, insertQuery); err != nil {
		return err
	}

	if err := txn.Commit(); err != nil {
		return err
	}
	r.logger.Debug("wrote audit batch", "count", len(events))
	return nil
}
