package middleware

import (
	"net/http"

	"github.com/tresorerie/backend/internal/metrics"
	"github.com/tresorerie/backend/internal/services"
	"golang.org/x/time/rate"
)

// RateLimit admits at most rps requests per second across the API, with bursts
// up to burst. A non-positive rps disables limiting.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				metrics.RateLimited.Inc()
				w.Header().Set("Retry-After", "1")
				services.SendErrorResponse(w, "Too many requests", http.StatusTooManyRequests, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
