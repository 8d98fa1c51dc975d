package domain

import (
	"context"
	"time"
)

// HACTExporter is the set of export collaborators, one per entity type.
// Each returns ErrNotFound when the entity does not exist.
type HACTExporter interface {
	ExportProperty(ctx context.Context, id string) (*HACTRecord, error)
	ExportTenant(ctx context.Context, id string) (*HACTRecord, error)
	ExportCase(ctx context.Context, id string) (*HACTRecord, error)
}

// AuditRepository accepts audit events for durable buffering.
type AuditRepository interface {
	Record(ctx context.Context, event AuditEvent) error
}

// AuditBuffer is the consumer side of the audit stream.
type AuditBuffer interface {
	// ReadAuditBatch reads up to count events for a consumer in a group.
	ReadAuditBatch(ctx context.Context, group, consumer string, count int) ([]AuditEvent, error)

	// ClaimStaleAudit takes over up to count events of group that have been
	// pending for at least minIdle and assigns them to consumer.
	ClaimStaleAudit(ctx context.Context, group, consumer string, minIdle time.Duration, count int) ([]AuditEvent, error)

	// AcknowledgeAudit marks events as processed.
	AcknowledgeAudit(ctx context.Context, group string, messageIDs ...string) error

	// MoveToDLQ parks events that could not be written to the sink.
	MoveToDLQ(ctx context.Context, events []AuditEvent) error
}

// AuditSink is the final structured store for audit events.
type AuditSink interface {
	WriteAuditBatch(ctx context.Context, events []AuditEvent) error
}

// WALRepository defines the local Write-Ahead Log used when the audit buffer is down.
type WALRepository interface {
	// Write appends an audit event to the local WAL file.
	Write(ctx context.Context, event AuditEvent) error

	// Drain hands every stored event to handler and removes what was handled.
	// Writes issued while Drain runs are kept for the next call.
	Drain(ctx context.Context, handler func(event AuditEvent) error) error
}
