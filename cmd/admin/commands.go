package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jerseyleague/shop-backend/internal/admin"
	"github.com/jerseyleague/shop-backend/pkg/enums"
	"github.com/spf13/cobra"
)

// needs tells the bootstrapper which optional clients a command uses.
type needs struct {
	verifier bool
	bucket   bool
}

type bootstrapFunc func(ctx context.Context, n needs) (admin.Service, func() error, error)

func newRootCmd(boot bootstrapFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Jersey League Shop maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newCreateUserCmd(boot),
		newResetPasswordCmd(boot),
		newRoleCmd(boot, true),
		newRoleCmd(boot, false),
		newFixImageURLsCmd(boot),
		newConfigureBucketCmd(boot),
	)
	return root
}

// withService runs fn against a freshly bootstrapped service and releases it.
func withService(cmd *cobra.Command, boot bootstrapFunc, n needs, fn func(admin.Service) error) (err error) {
	svc, closeFn, err := boot(cmd.Context(), n)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(svc)
}

func newCreateUserCmd(boot bootstrapFunc) *cobra.Command {
	var input admin.CreateUserInput
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a customer account, optionally with the admin role",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, boot, needs{}, func(svc admin.Service) error {
				user, err := svc.CreateUser(cmd.Context(), input)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s) roles=%v\n", user.Email, user.ID, user.Roles)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&input.Email, "email", "", "account email")
	cmd.Flags().StringVar(&input.Password, "password", "", "initial password (min 8 characters)")
	cmd.Flags().StringVar(&input.FullName, "name", "", "display name")
	cmd.Flags().BoolVar(&input.Admin, "admin", false, "grant the admin role")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newResetPasswordCmd(boot bootstrapFunc) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a user's password; a temporary one is generated when --password is omitted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, boot, needs{}, func(svc admin.Service) error {
				res, err := svc.ResetPassword(cmd.Context(), email, password)
				if err != nil {
					return err
				}
				if res.Generated {
					fmt.Fprintf(cmd.OutOrStdout(), "temporary password for %s: %s\n", email, res.Password)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "new password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRoleCmd(boot bootstrapFunc, grant bool) *cobra.Command {
	var email, rawRole string
	use, short := "revoke-role", "Remove a role from a user"
	if grant {
		use, short = "grant-role", "Give a user a role"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := enums.ParseRole(rawRole)
			if err != nil {
				return err
			}
			return withService(cmd, boot, needs{}, func(svc admin.Service) error {
				if grant {
					if err := svc.GrantRole(cmd.Context(), email, role); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "granted %s to %s\n", role, email)
					return nil
				}
				removed, err := svc.RevokeRole(cmd.Context(), email, role)
				if err != nil {
					return err
				}
				if !removed {
					fmt.Fprintf(cmd.OutOrStdout(), "%s did not have %s\n", email, role)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "revoked %s from %s\n", role, email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&rawRole, "role", enums.RoleAdmin.String(), "role name (customer|admin)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newFixImageURLsCmd(boot bootstrapFunc) *cobra.Command {
	var input admin.FixImageURLsInput
	cmd := &cobra.Command{
		Use:   "fix-image-urls",
		Short: "Rewrite product image references into canonical bucket URLs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, boot, needs{verifier: input.Verify}, func(svc admin.Service) error {
				report, err := svc.FixImageURLs(cmd.Context(), input)
				if err != nil {
					return err
				}
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
				if len(report.Broken) > 0 {
					return fmt.Errorf("%d repaired urls did not resolve", len(report.Broken))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&input.DryRun, "dry-run", false, "report changes without writing them")
	cmd.Flags().BoolVar(&input.Verify, "verify", false, "HEAD every repaired url and report failures")
	return cmd
}

func newConfigureBucketCmd(boot bootstrapFunc) *cobra.Command {
	var origins []string
	cmd := &cobra.Command{
		Use:   "configure-bucket",
		Short: "Apply the storefront CORS rules to the S3 bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(origins) == 0 {
				return fmt.Errorf("at least one --origin is required")
			}
			return withService(cmd, boot, needs{bucket: true}, func(svc admin.Service) error {
				if err := svc.ConfigureBucket(cmd.Context(), origins); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "bucket cors set for %v\n", origins)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&origins, "origin", nil, "allowed origin, repeatable")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
