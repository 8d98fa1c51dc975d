package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/V4T54L/compliance-gate/internal/adapter/api/respond"
	"github.com/V4T54L/compliance-gate/internal/adapter/metrics"
	"github.com/V4T54L/compliance-gate/internal/domain"
	"github.com/V4T54L/compliance-gate/internal/pkg/reqctx"
	"github.com/V4T54L/compliance-gate/internal/usecase"
)

// idleLimiterTTL is how long an unused per-caller limiter is kept.
const idleLimiterTTL = 10 * time.Minute

type callerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per authenticated subject, falling back
// to the remote IP for anonymous callers.
type RateLimiter struct {
	mu      sync.Mutex
	callers map[string]*callerLimiter
	limit   rate.Limit
	burst   int
	logger  *slog.Logger
	metrics *metrics.GatewayMetrics
	now     func() time.Time
}

// NewRateLimiter allows perSecond requests per caller with the given burst.
// A non-positive perSecond disables limiting.
func NewRateLimiter(perSecond float64, burst int, logger *slog.Logger, m *metrics.GatewayMetrics) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		callers: make(map[string]*callerLimiter),
		limit:   limit,
		burst:   burst,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Middleware rejects callers that exceed their budget with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := callerKey(r)
		lim := rl.limiterFor(key)

		res := lim.ReserveN(rl.now(), 1)
		if delay := res.DelayFrom(rl.now()); delay > 0 {
			res.CancelAt(rl.now())
			if rl.metrics != nil {
				rl.metrics.RateLimited.Inc()
			}
			rl.logger.Warn("rate limit exceeded", "caller", key, "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			respond.Error(w, http.StatusTooManyRequests, "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ForPersona limits only callers whose persona meets min. Everyone else goes
// straight to next, which answers with the authorization decision.
func (rl *RateLimiter) ForPersona(min domain.Persona) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := rl.Middleware(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, _ := reqctx.Actor(r.Context())
			if !usecase.Authorize(actor.Persona, min).Allowed {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for k, c := range rl.callers {
		if now.Sub(c.lastSeen) > idleLimiterTTL {
			delete(rl.callers, k)
		}
	}

	c, ok := rl.callers[key]
	if !ok {
		c = &callerLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.callers[key] = c
	}
	c.lastSeen = now
	return c.limiter
}

func callerKey(r *http.Request) string {
	if actor, ok := reqctx.Actor(r.Context()); ok && actor.Subject != "" {
		return "sub:" + actor.Subject
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
