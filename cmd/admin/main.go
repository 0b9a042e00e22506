package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jerseyleague/shop-backend/internal/admin"
	"github.com/jerseyleague/shop-backend/internal/catalog"
	"github.com/jerseyleague/shop-backend/internal/users"
	"github.com/jerseyleague/shop-backend/pkg/config"
	"github.com/jerseyleague/shop-backend/pkg/db"
	"github.com/jerseyleague/shop-backend/pkg/logger"
	"github.com/jerseyleague/shop-backend/pkg/storage/s3"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

const verifyTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	root := newRootCmd(bootstrap)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bootstrap wires the admin service from the environment. The S3 client is
// only built for the commands that need it, so user maintenance works without
// bucket credentials.
func bootstrap(ctx context.Context, needs needs) (admin.Service, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logg := logger.New(logger.Options{
		ServiceName: "admin",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	closeAll := func() error { return dbClient.Close() }

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), cfg.Storage.PublicURLTemplate(), logg)
	if err != nil {
		return nil, nil, multierr.Append(err, closeAll())
	}

	params := admin.ServiceParams{
		Users:          users.NewRepository(dbClient.DB()),
		Catalog:        catalogService,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	}
	if needs.verifier {
		params.Verifier = admin.NewURLVerifier(verifyTimeout)
	}
	if needs.bucket && cfg.Storage.Provider == config.StorageProviderS3 {
		client, err := s3.NewClient(ctx, cfg.Storage, cfg.AWS, logg)
		if err != nil {
			return nil, nil, multierr.Append(fmt.Errorf("s3 client: %w", err), closeAll())
		}
		params.Bucket = client
	}

	svc, err := admin.NewService(params)
	if err != nil {
		return nil, nil, multierr.Append(err, closeAll())
	}
	return svc, closeAll, nil
}
