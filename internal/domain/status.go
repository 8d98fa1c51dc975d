package domain

// Severity is the display severity of a status or urgency tier.
type Severity string

const (
	SeverityCritical  Severity = "critical"
	SeverityWarning   Severity = "warning"
	SeverityCompliant Severity = "compliant"
	SeverityNeutral   Severity = "neutral"
)

// StatusToken is a machine status emitted by compliance workflows
// (repairs, complaints, inspections, certificates).
type StatusToken string

const (
	StatusBreached         StatusToken = "breached"
	StatusOverdue          StatusToken = "overdue"
	StatusUrgent           StatusToken = "urgent"
	StatusExpired          StatusToken = "expired"
	StatusEscalated        StatusToken = "escalated"
	StatusHazardIdentified StatusToken = "hazard-identified"
	StatusApproaching      StatusToken = "approaching"
	StatusDueSoon          StatusToken = "due-soon"
	StatusAwaitingAccess   StatusToken = "awaiting-access"
	StatusAtRisk           StatusToken = "at-risk"
	StatusCompliant        StatusToken = "compliant"
	StatusCompleted        StatusToken = "completed"
	StatusResolved         StatusToken = "resolved"
	StatusClosed           StatusToken = "closed"
	StatusValid            StatusToken = "valid"
	StatusOpen             StatusToken = "open"
	StatusInProgress       StatusToken = "in-progress"
	StatusScheduled        StatusToken = "scheduled"
	StatusPending          StatusToken = "pending"
)

// StatusTokens returns every known status token.
func StatusTokens() []StatusToken {
	return []StatusToken{
		StatusBreached, StatusOverdue, StatusUrgent, StatusExpired, StatusEscalated, StatusHazardIdentified,
		StatusApproaching, StatusDueSoon, StatusAwaitingAccess, StatusAtRisk,
		StatusCompliant, StatusCompleted, StatusResolved, StatusClosed, StatusValid,
		StatusOpen, StatusInProgress, StatusScheduled, StatusPending,
	}
}

// Severity returns the display severity for a status token. Unknown tokens are
// neutral.
func (s StatusToken) Severity() Severity {
	switch s {
	case StatusBreached, StatusOverdue, StatusUrgent, StatusExpired, StatusEscalated, StatusHazardIdentified:
		return SeverityCritical
	case StatusApproaching, StatusDueSoon, StatusAwaitingAccess, StatusAtRisk:
		return SeverityWarning
	case StatusCompliant, StatusCompleted, StatusResolved, StatusClosed, StatusValid:
		return SeverityCompliant
	case StatusOpen, StatusInProgress, StatusScheduled, StatusPending:
		return SeverityNeutral
	default:
		return SeverityNeutral
	}
}

// StatusView is a status token resolved for display.
type StatusView struct {
	Token    string   `json:"token"`
	Severity Severity `json:"severity"`
	Label    string   `json:"label"`
}
