package httpx

import (
	"math"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/textstream/textstream/pkg/config"
	"github.com/textstream/textstream/pkg/server/api"
)

// RateLimit returns a middleware backed by a single token bucket shared by
// every caller. Requests over the limit get 429 with a Retry-After header.
// A non-positive rate disables limiting.
func RateLimit(cfg config.RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.RequestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	burst := max(cfg.Burst, 1)
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := limiter.Reserve()
			if delay := res.Delay(); delay > 0 {
				res.Cancel()
				retry := int(math.Ceil(delay.Seconds()))
				log.Warn().
					Str("component", "http").
					Str("path", r.URL.Path).
					Int("retry_after_s", retry).
					Msg("Rate limit exceeded")
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				api.WriteJSONError(w, http.StatusTooManyRequests, "Too Many Requests", api.CodeRateLimited,
					"too many job start requests, retry later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
