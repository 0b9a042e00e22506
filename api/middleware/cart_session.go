package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jerseyleague/shop-backend/pkg/logger"
)

const (
	CartSessionCookie = "jls_cart"
	CartSessionHeader = "X-Cart-Session"
)

// CartSessionOptions controls the cart cookie.
type CartSessionOptions struct {
	TTL    time.Duration
	Secure bool
}

// CartSession resolves the caller's cart session from the X-Cart-Session
// header or the jls_cart cookie, minting a fresh one when neither carries a
// valid UUID. The resolved id is echoed in both the header and the cookie.
func CartSession(opts CartSessionOptions, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, fresh := resolveCartSession(r)

			if fresh || r.Header.Get(CartSessionHeader) == "" {
				cookie := &http.Cookie{
					Name:     CartSessionCookie,
					Value:    sessionID,
					Path:     "/",
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				}
				if opts.TTL > 0 {
					cookie.MaxAge = int(opts.TTL.Seconds())
				}
				http.SetCookie(w, cookie)
			}
			w.Header().Set(CartSessionHeader, sessionID)

			ctx := WithCartSession(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithCartSession(ctx, sessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveCartSession(r *http.Request) (string, bool) {
	if id, ok := parseSessionID(r.Header.Get(CartSessionHeader)); ok {
		return id, false
	}
	if c, err := r.Cookie(CartSessionCookie); err == nil {
		if id, ok := parseSessionID(c.Value); ok {
			return id, false
		}
	}
	return uuid.NewString(), true
}

func parseSessionID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
