package ratelimit

import (
	"errors"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/internal/web/response"
)

// KeyFunc derives the bucket key of a request
type KeyFunc func(r *http.Request) string

// ClientIP keys requests by remote host
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware rejects requests over the limit with 429. A limiter error lets
// the request through.
func Middleware(limiter RateLimiter, key KeyFunc, logger *zap.Logger) func(http.Handler) http.Handler {
	if key == nil {
		key = ClientIP
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			info, err := limiter.Allow(r.Context(), k)
			if err != nil {
				logger.Warn("rate limiter failed", zap.String("key", k), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

			if !info.Allowed {
				response.RenderErrorWithCode(w, http.StatusTooManyRequests,
					errors.New("rate limit exceeded"), "rate_limited")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
