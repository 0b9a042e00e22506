package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jerseyleague/shop-backend/api/routes"
	"github.com/jerseyleague/shop-backend/internal/auth"
	"github.com/jerseyleague/shop-backend/internal/cart"
	"github.com/jerseyleague/shop-backend/internal/catalog"
	"github.com/jerseyleague/shop-backend/internal/orders"
	"github.com/jerseyleague/shop-backend/internal/uploads"
	"github.com/jerseyleague/shop-backend/internal/users"
	"github.com/jerseyleague/shop-backend/pkg/auth/session"
	"github.com/jerseyleague/shop-backend/pkg/config"
	"github.com/jerseyleague/shop-backend/pkg/db"
	"github.com/jerseyleague/shop-backend/pkg/logger"
	"github.com/jerseyleague/shop-backend/pkg/mailer"
	"github.com/jerseyleague/shop-backend/pkg/metrics"
	"github.com/jerseyleague/shop-backend/pkg/migrate"
	"github.com/jerseyleague/shop-backend/pkg/redis"
	"github.com/jerseyleague/shop-backend/pkg/storage"
	"github.com/jerseyleague/shop-backend/pkg/storage/gcs"
	"github.com/jerseyleague/shop-backend/pkg/storage/s3"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	persister, err := newCartPersister(cfg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart persister", err)
		os.Exit(1)
	}
	registry := cart.NewRegistry(persister, cart.StoreOptions{
		Logger:      logg,
		Metrics:     metrics.NewCartMetrics(reg),
		Backend:     cfg.Cart.Backend,
		SaveTimeout: cfg.Cart.PersistTimeout,
	})
	cartService, err := cart.NewService(registry)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}
	sweeper, err := cart.NewSweeper(registry, cfg.Cart.SweepInterval, cfg.Cart.IdleEvict, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart sweeper", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		ResetStore:     redisClient,
		Mailer:         mailer.New(cfg.Sendgrid, logg),
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		ResetURL:       cfg.Sendgrid.ResetURL,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), cfg.Storage.PublicURLTemplate(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	objectStore, closeStore, err := newObjectStore(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create object store", err)
		os.Exit(1)
	}
	defer closeStore()

	uploadService, err := uploads.NewService(uploads.ServiceParams{
		Repo:           uploads.NewRepository(dbClient.DB()),
		Store:          objectStore,
		PublicBaseURL:  cfg.Storage.PublicURLTemplate(),
		MaxUploadBytes: cfg.Storage.MaxUploadBytes(),
		Metrics:        metrics.NewUploadMetrics(reg),
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create upload service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient, registry, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"cart_backend": cfg.Cart.Backend,
		"storage":      objectStore.Provider(),
	})

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			DB:          dbClient,
			Redis:       redisClient,
			Storage:     objectStore,
			Sessions:    sessionManager,
			RateLimiter: redisClient,
			Gatherer:    reg,
			HTTPMetrics: metrics.NewHTTPMetrics(reg),
			Auth:        authService,
			Cart:        cartService,
			Catalog:     catalogService,
			Orders:      orderService,
			Uploads:     uploadService,
		}),
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		if err := sweeper.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		// carts are flushed only after in-flight requests have finished mutating them
		return multierr.Append(server.Shutdown(shutdownCtx), registry.Close(shutdownCtx))
	})

	if err := group.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped gracefully")
}

func newCartPersister(cfg *config.Config, dbClient *db.Client, redisClient *redis.Client) (cart.Persister, error) {
	switch cfg.Cart.Backend {
	case config.CartBackendDB:
		return cart.NewDBPersister(dbClient.DB())
	case config.CartBackendMemory:
		return cart.NewMemoryPersister(), nil
	default:
		return cart.NewRedisPersister(redisClient, cfg.Cart.TTL)
	}
}

func newObjectStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (storage.ObjectStore, func(), error) {
	switch cfg.Storage.Provider {
	case config.StorageProviderGCS:
		client, err := gcs.NewClient(ctx, cfg.Storage, cfg.GCP, logg)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {
			if err := client.Close(); err != nil {
				logg.Error(context.Background(), "error closing gcs client", err)
			}
		}, nil
	default:
		client, err := s3.NewClient(ctx, cfg.Storage, cfg.AWS, logg)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	}
}
