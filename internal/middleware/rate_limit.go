package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/mozilla/classify-client/internal/limiter"
	"github.com/mozilla/classify-client/internal/metrics"
	"github.com/mozilla/classify-client/internal/models"
	"github.com/mozilla/classify-client/internal/trust"
)

// RateLimitMiddleware enforces per-client rate limiting, answering 429 when
// a client exceeds its limit.
//
// The limiter is keyed by the resolved client address, the same resolution
// the classification pipeline uses. Keying by the raw peer would lump every
// client behind a trusted proxy into one bucket; keying by an unverified
// forwarded header would let clients dodge the limit by rotating headers.
func RateLimitMiddleware(lim limiter.Limiter, ts *trust.TrustSet, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := r.RemoteAddr
			if peer, err := trust.ParsePeerAddr(r.RemoteAddr); err == nil {
				forwarded := trust.ParseForwardedChain(r.Header.Get("X-Forwarded-For"))
				client = ts.ResolveClient(peer, forwarded).String()
			}

			if !lim.Allow(client) {
				if m != nil {
					m.RateLimitedTotal.Inc()
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(models.ErrorResponse{
					Error: "Rate limit exceeded. Please try again later.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
