package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/upb/math-agent/services/ratelimit"
	"github.com/upb/math-agent/utils"
	"go.uber.org/zap"
)

// RateLimiter decides whether a client may issue another request.
type RateLimiter interface {
	CheckLimit(clientKey string) ratelimit.RateLimitResult
}

// RateLimit rejects requests over the per-client budget with 429 and {success:false, message}.
// Clients are keyed by remote IP; mount chi's RealIP first when running behind a proxy.
func RateLimit(limiter RateLimiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientKey(r)
			result := limiter.CheckLimit(client)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			if !result.Allowed {
				if result.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds()))))
				}
				logger.Warn("rate limit exceeded",
					zap.String("client", client),
					zap.String("path", r.URL.Path),
					zap.String("request_id", GetRequestIDFromContext(r.Context())))
				_ = utils.WriteTooManyRequests(w, "")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
