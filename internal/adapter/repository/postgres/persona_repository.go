package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/V4T54L/compliance-gate/internal/adapter/metrics"
	"github.com/V4T54L/compliance-gate/internal/domain"
)

type personaEntry struct {
	persona   domain.Persona
	found     bool
	expiresAt time.Time
}

// PersonaRepository implements the domain.PersonaRepository interface using PostgreSQL
// as the source of truth and an in-memory, time-based cache.
type PersonaRepository struct {
	db       *sql.DB
	logger   *slog.Logger
	cache    map[string]personaEntry
	mu       sync.RWMutex
	lookups  singleflight.Group
	cacheTTL time.Duration
	metrics  *metrics.GatewayMetrics
	now      func() time.Time
}

// NewPersonaRepository creates a new instance of the PostgreSQL persona directory.
func NewPersonaRepository(db *sql.DB, logger *slog.Logger, cacheTTL time.Duration, m *metrics.GatewayMetrics) *PersonaRepository {
	return &PersonaRepository{
		db:       db,
		logger:   logger,
		cache:    make(map[string]personaEntry),
		cacheTTL: cacheTTL,
		metrics:  m,
		now:      time.Now,
	}
}

// PersonaFor returns the persona assigned to subject. It first checks a local cache
// and falls back to the database if the subject is not cached or the entry has expired.
// Subjects with no assignment yield domain.ErrNotFound.
func (r *PersonaRepository) PersonaFor(ctx context.Context, subject string) (domain.Persona, error) {
	// 1. Check cache with a read lock
	r.mu.RLock()
	entry, found := r.cache[subject]
	r.mu.RUnlock()

	if found && r.now().Before(entry.expiresAt) {
		if r.metrics != nil {
			r.metrics.PersonaCacheHits.Inc()
		}
		return entry.result()
	}

	// 2. Cache miss or expired; concurrent misses for a subject share one query
	if r.metrics != nil {
		r.metrics.PersonaCacheMisses.Inc()
	}

	v, err, _ := r.lookups.Do(subject, func() (interface{}, error) {
		// Another lookup may have filled the entry since the check above
		r.mu.RLock()
		entry, found := r.cache[subject]
		r.mu.RUnlock()
		if found && r.now().Before(entry.expiresAt) {
			return entry, nil
		}
		return r.load(ctx, subject)
	})
	if err != nil {
		return "", err
	}
	return v.(personaEntry).result()
}

// load queries the database and caches the result. The query runs without
// holding mu.
func (r *PersonaRepository) load(ctx context.Context, subject string) (personaEntry, error) {
	var raw string
	var entry personaEntry
	query := `SELECT persona FROM user_personas WHERE subject = $1 AND revoked_at IS NULL`
	err := r.db.QueryRowContext(ctx, query, subject).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		entry = personaEntry{}
	case err != nil:
		r.logger.Error("failed to look up persona in database", "error", err, "subject", subject)
		// Errors are not cached; the next request retries from the DB
		return personaEntry{}, err
	default:
		// Unrecognised values are kept raw and rank lowest.
		p, _ := domain.ParsePersona(raw)
		entry = personaEntry{persona: p, found: true}
	}

	now := r.now()
	entry.expiresAt = now.Add(r.cacheTTL)

	r.mu.Lock()
	defer r.mu.Unlock()
	for k, e := range r.cache {
		if !now.Before(e.expiresAt) {
			delete(r.cache, k)
		}
	}
	r.cache[subject] = entry

	return entry, nil
}

func (e personaEntry) result() (domain.Persona, error) {
	if !e.found {
		return "", domain.ErrNotFound
	}
	return e.persona, nil
}
