package middleware

import (
	"net/http"

	"github.com/jerseyleague/shop-backend/api/responses"
	pkgerrors "github.com/jerseyleague/shop-backend/pkg/errors"
	"github.com/jerseyleague/shop-backend/pkg/logger"
	"golang.org/x/time/rate"
)

// Throttle is a process-wide token bucket in front of expensive routes such
// as uploads. A non-positive rate disables it.
func Throttle(perSecond float64, burst int, logg *logger.Logger) func(http.Handler) http.Handler {
	if perSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many uploads, slow down"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
