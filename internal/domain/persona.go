package domain

import "strings"

// Persona is a role identifier in the authorization hierarchy.
type Persona string

const (
	PersonaPendingApproval Persona = "pending-approval"
	PersonaOperative       Persona = "operative"
	PersonaHousingOfficer  Persona = "housing-officer"
	PersonaManager         Persona = "manager"
	PersonaHeadOfService   Persona = "head-of-service"
	PersonaCOO             Persona = "coo"
)

// Personas returns every known persona in increasing order of privilege.
func Personas() []Persona {
	return []Persona{
		PersonaPendingApproval,
		PersonaOperative,
		PersonaHousingOfficer,
		PersonaManager,
		PersonaHeadOfService,
		PersonaCOO,
	}
}

// RankOf returns the privilege rank of a persona. Anything outside the known
// set, including the empty persona, ranks 0.
//
// Changing this table changes who can see regulated data. Review it as a
// security change.
func RankOf(p Persona) int {
	switch p {
	case PersonaPendingApproval:
		return 0
	case PersonaOperative:
		return 1
	case PersonaHousingOfficer:
		return 2
	case PersonaManager:
		return 3
	case PersonaHeadOfService:
		return 4
	case PersonaCOO:
		return 5
	default:
		return 0
	}
}

// Valid reports whether p is one of the known personas.
func (p Persona) Valid() bool {
	for _, known := range Personas() {
		if p == known {
			return true
		}
	}
	return false
}

// AtLeast reports whether p is at least as privileged as min.
func (p Persona) AtLeast(min Persona) bool {
	return RankOf(p) >= RankOf(min)
}

// String renders the persona for logs and deny reasons. The empty persona
// renders as "none".
func (p Persona) String() string {
	if p == "" {
		return "none"
	}
	return string(p)
}

// ParsePersona normalizes a wire value into a Persona. The second return is
// false when the value is not a known persona; the returned Persona then keeps
// the raw value so it can still be reported, and it ranks 0.
func ParsePersona(raw string) (Persona, bool) {
	p := Persona(strings.ToLower(strings.TrimSpace(raw)))
	return p, p.Valid()
}
