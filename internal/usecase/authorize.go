package usecase

import (
	"fmt"

	"github.com/V4T54L/compliance-gate/internal/domain"
)

// Authorize decides whether actor may perform an operation that requires the
// required persona. An empty or unknown actor persona ranks 0 and is never
// promoted to a default role.
//
// Callers must act on a denial before touching the resource, so a denial never
// reveals whether the resource exists.
func Authorize(actor, required domain.Persona) domain.Decision {
	d := domain.Decision{
		Required: required,
		Actual:   actor,
	}
	if domain.RankOf(actor) >= domain.RankOf(required) {
		d.Allowed = true
		return d
	}
	d.Reason = fmt.Sprintf("Insufficient permissions. Required: %s, got: %s", required, actor)
	return d
}
