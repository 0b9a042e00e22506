package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
	"github.com/jerseyleague/shop-backend/pkg/config"
)

// CORS lets the storefront call the API with credentials. Origins may use a
// single wildcard such as https://*.jerseyleague.shop; a bare "*" is dropped
// because browsers refuse it alongside credentials.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := slices.DeleteFunc(slices.Clone(cfg.AllowedOrigins), func(o string) bool { return o == "*" || o == "" })
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", CartSessionHeader, requestIDHeader},
		ExposedHeaders:   []string{CartSessionHeader, requestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           int(cfg.MaxAge.Seconds()),
	})
}
