package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/platinummonkey/otpgate/pkg/httputil"
	"github.com/platinummonkey/otpgate/pkg/observability"
	"github.com/platinummonkey/otpgate/pkg/ratelimit"
)

// Limiter scopes, used as metric labels
const (
	ScopeIP    = "ip"
	ScopePhone = "phone"
)

// RateLimitMiddleware provides HTTP rate limiting for one scope
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	scope   string
	keyFunc KeyFunc
	logger  *observability.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewRateLimitMiddleware creates a rate limit middleware
func NewRateLimitMiddleware(limiter ratelimit.Limiter, scope string, keyFunc KeyFunc, logger *observability.Logger, metrics *observability.Metrics) *RateLimitMiddleware {
	if logger == nil {
		logger = observability.Nop()
	}
	return &RateLimitMiddleware{
		limiter: limiter,
		scope:   scope,
		keyFunc: keyFunc,
		logger:  logger.WithField("scope", scope),
		metrics: metrics,
		now:     time.Now,
	}
}

// Handler wraps an HTTP handler with rate limiting
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := m.keyFunc(r)

		decision, err := m.limiter.Allow(r.Context(), key)
		if err != nil {
			// Fail open: the limiter decision already allows the request
			m.logger.WithError(err).Warn("rate limiter unavailable, allowing request")
			m.metrics.RecordRateLimitError(m.scope)
		}

		now := m.now()
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			m.metrics.RecordRateLimitRejection(m.scope)
			observability.FromContext(r.Context()).WithFields(map[string]interface{}{
				"scope": m.scope,
				"key":   key,
			}).Warn("rate limit exceeded")

			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", decision.RetryAfter(now).Seconds()))
			httputil.WriteTooManyRequests(w, "too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}
