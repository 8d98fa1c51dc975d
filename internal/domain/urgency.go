package domain

import (
	"fmt"
	"time"
)

// CountMode selects how remaining days until a deadline are counted.
type CountMode string

const (
	ModeCalendar    CountMode = "calendar"
	ModeWorkingDays CountMode = "working-days"
)

// ParseCountMode parses a mode query value. The empty string means calendar.
func ParseCountMode(raw string) (CountMode, error) {
	switch CountMode(raw) {
	case "", ModeCalendar:
		return ModeCalendar, nil
	case ModeWorkingDays:
		return ModeWorkingDays, nil
	default:
		return "", fmt.Errorf("unknown count mode %q", raw)
	}
}

// UrgencyTier classifies how close a deadline is.
type UrgencyTier string

const (
	TierBreached    UrgencyTier = "breached"
	TierUrgent      UrgencyTier = "urgent"
	TierApproaching UrgencyTier = "approaching"
	TierCompliant   UrgencyTier = "compliant"
)

// UrgencyTiers returns every tier from most to least severe.
func UrgencyTiers() []UrgencyTier {
	return []UrgencyTier{TierBreached, TierUrgent, TierApproaching, TierCompliant}
}

// Severity maps an urgency tier onto the display severity scale. Breached and
// urgent are both critical.
func (t UrgencyTier) Severity() Severity {
	switch t {
	case TierBreached, TierUrgent:
		return SeverityCritical
	case TierApproaching:
		return SeverityWarning
	case TierCompliant:
		return SeverityCompliant
	default:
		return SeverityNeutral
	}
}

// UrgencyResult is the outcome of classifying one deadline against a date.
// It depends on "now" and must not be cached.
type UrgencyResult struct {
	RemainingDays int         `json:"remaining_days"`
	Tier          UrgencyTier `json:"tier"`
}

// Label renders the result for display.
func (r UrgencyResult) Label() string {
	switch {
	case r.RemainingDays < 0:
		return fmt.Sprintf("Overdue by %d %s", -r.RemainingDays, pluralDays(-r.RemainingDays))
	case r.RemainingDays == 0:
		return "Due today"
	default:
		return fmt.Sprintf("%d %s remaining", r.RemainingDays, pluralDays(r.RemainingDays))
	}
}

func pluralDays(n int) string {
	if n == 1 {
		return "day"
	}
	return "days"
}

// DateLayout is the wire format for deadlines.
const DateLayout = "2006-01-02"

// Date truncates t to midnight UTC of its own calendar date.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
