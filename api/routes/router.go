package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jerseyleague/shop-backend/api/controllers"
	"github.com/jerseyleague/shop-backend/api/middleware"
	"github.com/jerseyleague/shop-backend/internal/auth"
	"github.com/jerseyleague/shop-backend/internal/cart"
	"github.com/jerseyleague/shop-backend/internal/catalog"
	"github.com/jerseyleague/shop-backend/internal/orders"
	"github.com/jerseyleague/shop-backend/internal/uploads"
	"github.com/jerseyleague/shop-backend/pkg/auth/session"
	"github.com/jerseyleague/shop-backend/pkg/config"
	"github.com/jerseyleague/shop-backend/pkg/enums"
	"github.com/jerseyleague/shop-backend/pkg/logger"
	"github.com/jerseyleague/shop-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Dependencies carries everything the router hands to middleware and controllers.
// Nil pingers are skipped by the readiness probe; a nil RateLimiter disables
// auth rate limiting.
type Dependencies struct {
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Storage     controllers.Pinger
	Sessions    session.AccessSessionChecker
	RateLimiter rateLimiter
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics

	Auth    auth.Service
	Cart    cart.Service
	Catalog catalog.Service
	Orders  orders.Service
	Uploads uploads.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.CORS),
	)

	signInPolicy := middleware.NewAuthRateLimitPolicy(
		"signin",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	signUpPolicy := middleware.NewAuthRateLimitPolicy(
		"signup",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	resetPolicy := middleware.NewAuthRateLimitPolicy(
		"reset",
		cfg.AuthRateLimit.ResetWindow,
		cfg.AuthRateLimit.ResetIPLimit,
		cfg.AuthRateLimit.ResetEmailLimit,
	)

	requireAuth := middleware.Auth(cfg.JWT, deps.Sessions, logg)
	cartSession := middleware.CartSession(middleware.CartSessionOptions{
		TTL:    cfg.Cart.TTL,
		Secure: cfg.Cart.CookieSecure,
	}, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":      deps.DB,
			"redis":   deps.Redis,
			"storage": deps.Storage,
		}, logg))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductsList(deps.Catalog, logg))
		r.Get("/products/{productId}", controllers.ProductGet(deps.Catalog, logg))
		r.Get("/categories", controllers.CategoriesList(deps.Catalog, logg))

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(signInPolicy, deps.RateLimiter, logg)).Post("/signin", controllers.AuthSignIn(deps.Auth, logg))
			r.With(middleware.AuthRateLimit(signUpPolicy, deps.RateLimiter, logg)).Post("/signup", controllers.AuthSignUp(deps.Auth, logg))
			r.With(middleware.AuthRateLimit(resetPolicy, deps.RateLimiter, logg)).Post("/reset", controllers.AuthResetPassword(deps.Auth, logg))
			r.Post("/reset/confirm", controllers.AuthConfirmReset(deps.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
			r.With(requireAuth).Post("/signout", controllers.AuthSignOut(deps.Auth, logg))
			r.With(requireAuth).Get("/roles", controllers.AuthRoles(deps.Auth, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(cartSession)
			r.Get("/", controllers.CartGet(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
			r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Patch("/items", controllers.CartUpdateQuantity(deps.Cart, logg))
			r.Delete("/items", controllers.CartRemoveItem(deps.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", controllers.OrdersList(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrdersGet(deps.Orders, logg))
			r.With(cartSession).Post("/", controllers.OrdersPlace(deps.Orders, logg))
		})
	})

	r.Route("/api/s3/upload", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireRole(enums.RoleAdmin, logg))
		r.With(middleware.Throttle(cfg.Storage.UploadRatePerS, cfg.Storage.UploadRateBurst, logg)).
			Post("/", controllers.UploadFile(deps.Uploads, cfg.Storage.MaxUploadBytes(), logg))
		r.Delete("/{uploadId}", controllers.UploadDelete(deps.Uploads, logg))
	})

	return r
}
