package domain

import "time"

// AuditEvent records one decision taken on a regulated operation.
type AuditEvent struct {
	ID              string     `json:"event_id"`
	OccurredAt      time.Time  `json:"occurred_at"`
	RequestID       string     `json:"request_id,omitempty"`
	Subject         string     `json:"subject,omitempty"`
	Persona         Persona    `json:"persona"`
	Operation       string     `json:"operation"`
	EntityType      EntityType `json:"entity_type,omitempty"`
	EntityID        string     `json:"entity_id,omitempty"`
	Outcome         string     `json:"outcome"`
	Reason          string     `json:"reason,omitempty"`
	StreamMessageID string     `json:"-"`
}

// PendingAuditMessage is an audit message delivered to a consumer but not yet
// acknowledged.
type PendingAuditMessage struct {
	ID         string        `json:"id"`
	Consumer   string        `json:"consumer"`
	IdleTime   time.Duration `json:"idle_time"`
	RetryCount int64         `json:"retry_count"`
}

// OutcomeFault is the audit outcome for an export that failed unexpectedly.
const OutcomeFault = "fault"
