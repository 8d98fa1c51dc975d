package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"

	"github.com/V4T54L/compliance-gate/internal/domain"
)

// Claims are the JWT claims issued by the identity provider. Persona is
// optional; when it is absent the persona directory is consulted.
type Claims struct {
	Persona string `json:"persona,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier implements domain.IdentityVerifier for HS256 bearer tokens.
type JWTVerifier struct {
	secret   []byte
	parser   *jwt.Parser
	personas domain.PersonaRepository
	logger   *slog.Logger
}

// NewJWTVerifier creates a verifier for tokens signed with secret. An empty
// issuer disables the issuer check. personas may be nil.
func NewJWTVerifier(secret, issuer string, personas domain.PersonaRepository, logger *slog.Logger) *JWTVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	return &JWTVerifier{
		secret:   []byte(secret),
		parser:   jwt.NewParser(opts...),
		personas: personas,
		logger:   logger.With("component", "jwt_verifier"),
	}
}

// Verify validates token and resolves the caller's persona. Token problems wrap
// domain.ErrUnauthenticated; directory failures are returned as-is.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (domain.Actor, error) {
	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if !parsed.Valid {
		return domain.Actor{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, jwt.ErrSignatureInvalid)
	}
	if claims.Subject == "" {
		return domain.Actor{}, fmt.Errorf("%w: token has no subject", domain.ErrUnauthenticated)
	}

	actor := domain.Actor{Subject: claims.Subject}
	if claims.Persona != "" {
		// Unknown values are kept as-is and rank lowest.
		actor.Persona, _ = domain.ParsePersona(claims.Persona)
		return actor, nil
	}

	if v.personas == nil {
		return actor, nil
	}
	p, err := v.personas.PersonaFor(ctx, claims.Subject)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		v.logger.Debug("no persona assigned", "subject", claims.Subject)
	case err != nil:
		return domain.Actor{}, fmt.Errorf("look up persona: %w", err)
	default:
		actor.Persona = p
	}
	return actor, nil
}
