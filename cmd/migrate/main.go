package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jerseyleague/shop-backend/pkg/config"
	"github.com/jerseyleague/shop-backend/pkg/db"
	"github.com/jerseyleague/shop-backend/pkg/logger"
	"github.com/jerseyleague/shop-backend/pkg/migrate"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the shop database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(cmd, func(ctx context.Context, conn *db.Client, m *migrate.Migrator) error {
					if m == nil {
						return migrate.ApplySQLite(ctx, conn.DB())
					}
					steps, err := m.Up(ctx)
					printSteps(cmd.OutOrStdout(), steps)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert the latest migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cmd, func(ctx context.Context, m *migrate.Migrator) error {
					steps, err := m.Down(ctx)
					printSteps(cmd.OutOrStdout(), steps)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "to <version>",
			Short: "Migrate up or down to a YYYYMMDDHHMMSS version",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cmd, func(ctx context.Context, m *migrate.Migrator) error {
					steps, err := m.To(ctx, args[0])
					printSteps(cmd.OutOrStdout(), steps)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List migrations and whether they are applied",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cmd, func(ctx context.Context, m *migrate.Migrator) error {
					statuses, err := m.Status(ctx)
					if err != nil {
						return err
					}
					for _, s := range statuses {
						state := "pending"
						if s.Applied {
							state = "applied"
						}
						fmt.Fprintf(cmd.OutOrStdout(), "%-8s %d %s\n", state, s.Version, s.File)
					}
					return nil
				})
			},
		},
		newCreateCmd(),
		&cobra.Command{
			Use:   "validate",
			Short: "Check the embedded migrations and their sqlite mirror",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := migrate.Validate(migrate.Migrations()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations ok")
				return nil
			},
		},
	)
	return root
}

func newCreateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Write an empty migration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := migrate.Create(dir, args[0], time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", migrate.DefaultDir, "migrations directory")
	return cmd
}

func printSteps(w io.Writer, steps []migrate.Step) {
	if len(steps) == 0 {
		fmt.Fprintln(w, "nothing to do")
		return
	}
	for _, s := range steps {
		if s.Err != nil {
			fmt.Fprintf(w, "%-4s %d %s: %v\n", s.Direction, s.Version, s.File, s.Err)
			continue
		}
		fmt.Fprintf(w, "%-4s %d %s\n", s.Direction, s.Version, s.File)
	}
}

func withMigrator(cmd *cobra.Command, fn func(context.Context, *migrate.Migrator) error) error {
	return withDatabase(cmd, func(ctx context.Context, _ *db.Client, m *migrate.Migrator) error {
		if m == nil {
			return fmt.Errorf("%s is not supported on sqlite; only up applies the mirrored schema", cmd.Name())
		}
		return fn(ctx, m)
	})
}

// withDatabase connects using the environment config. The migrator is nil on
// sqlite because goose migrations target Postgres.
func withDatabase(cmd *cobra.Command, fn func(context.Context, *db.Client, *migrate.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(cmd.Context(), map[string]any{"env": cfg.App.Env, "cmd": cmd.Name()})

	conn, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer conn.Close()

	if cfg.FeatureFlags.UseSQLite {
		return fn(ctx, conn, nil)
	}
	sqlDB, err := conn.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	migrator, err := migrate.NewMigrator(sqlDB, nil)
	if err != nil {
		return err
	}
	logg.Info(ctx, "migrate.ready")
	return fn(ctx, conn, migrator)
}
