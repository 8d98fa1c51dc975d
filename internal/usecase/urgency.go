package usecase

import (
	"time"

	"github.com/V4T54L/compliance-gate/internal/domain"
)

// Tier boundaries in remaining days. Each bound is inclusive.
const (
	breachedMaxDays = 0
	urgentMaxDays   = 2
	approachMaxDays = 5
)

// ClassifyDeadline computes the remaining days until deadline as seen from now
// and assigns an urgency tier. Only the calendar dates of deadline and now are
// used. It never reads the clock.
func ClassifyDeadline(deadline, now time.Time, mode domain.CountMode) domain.UrgencyResult {
	var remaining int
	switch mode {
	case domain.ModeWorkingDays:
		remaining = workingDaysUntil(domain.Date(now), domain.Date(deadline))
	default:
		remaining = calendarDaysUntil(domain.Date(now), domain.Date(deadline))
	}
	return domain.UrgencyResult{
		RemainingDays: remaining,
		Tier:          tierFor(remaining),
	}
}

func tierFor(remaining int) domain.UrgencyTier {
	switch {
	case remaining <= breachedMaxDays:
		return domain.TierBreached
	case remaining <= urgentMaxDays:
		return domain.TierUrgent
	case remaining <= approachMaxDays:
		return domain.TierApproaching
	default:
		return domain.TierCompliant
	}
}

const secondsPerDay = 24 * 60 * 60

// calendarDaysUntil expects both dates at UTC midnight. It counts in Unix
// seconds since time.Duration cannot span more than about 292 years.
func calendarDaysUntil(from, to time.Time) int {
	return int((to.Unix() - from.Unix()) / secondsPerDay)
}

// workingDaysUntil counts Monday-Friday days in (from, to] when to is later,
// and the negated count over (to, from] when to is earlier.
func workingDaysUntil(from, to time.Time) int {
	if to.Before(from) {
		return -countWeekdays(to, from)
	}
	return countWeekdays(from, to)
}

func countWeekdays(from, to time.Time) int {
	days := calendarDaysUntil(from, to)
	count := (days / 7) * 5
	for i := 1; i <= days%7; i++ {
		switch from.AddDate(0, 0, i).Weekday() {
		case time.Saturday, time.Sunday:
		default:
			count++
		}
	}
	return count
}

// UrgencyUseCase classifies deadlines against an injected clock.
type UrgencyUseCase struct {
	now func() time.Time
}

// NewUrgencyUseCase creates an UrgencyUseCase. A nil clock uses time.Now.
func NewUrgencyUseCase(clock func() time.Time) *UrgencyUseCase {
	if clock == nil {
		clock = time.Now
	}
	return &UrgencyUseCase{now: clock}
}

// Classify classifies deadline against the current date.
func (uc *UrgencyUseCase) Classify(deadline time.Time, mode domain.CountMode) domain.UrgencyResult {
	return ClassifyDeadline(deadline, uc.now(), mode)
}
