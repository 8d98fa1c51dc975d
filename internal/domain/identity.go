package domain

import (
	"context"
	"errors"
)

// ErrUnauthenticated is returned when a request carries no usable credentials.
var ErrUnauthenticated = errors.New("unauthenticated")

// Actor is the authenticated caller of a request.
type Actor struct {
	Subject string  `json:"subject"`
	Persona Persona `json:"persona"`
}

// Decision is the result of an authorization check.
type Decision struct {
	Allowed  bool
	Required Persona
	Actual   Persona
	Reason   string
}

// IdentityVerifier turns a bearer token into an Actor. Implementations talk to
// the identity provider; this service never issues tokens.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (Actor, error)
}

// PersonaRepository looks up the persona assigned to a subject.
// It returns ErrNotFound when the subject has no profile.
type PersonaRepository interface {
	PersonaFor(ctx context.Context, subject string) (Persona, error)
}
