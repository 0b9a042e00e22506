// Package admin holds the one-off maintenance operations run from cmd/admin:
// account creation, password resets, role fixes, image URL repair and bucket
// CORS setup.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jerseyleague/shop-backend/internal/catalog"
	"github.com/jerseyleague/shop-backend/internal/users"
	"github.com/jerseyleague/shop-backend/pkg/config"
	"github.com/jerseyleague/shop-backend/pkg/db"
	"github.com/jerseyleague/shop-backend/pkg/db/models"
	"github.com/jerseyleague/shop-backend/pkg/enums"
	pkgerrors "github.com/jerseyleague/shop-backend/pkg/errors"
	"github.com/jerseyleague/shop-backend/pkg/logger"
	"github.com/jerseyleague/shop-backend/pkg/security"
	"gorm.io/gorm"
)

const tempPasswordLength = 16

type userStore interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	GrantRole(ctx context.Context, id uuid.UUID, role enums.Role) error
	RevokeRole(ctx context.Context, id uuid.UUID, role enums.Role) (bool, error)
}

type imageRepairer interface {
	RepairImageURLs(ctx context.Context, dryRun bool) (*catalog.RepairReport, error)
}

type urlChecker interface {
	Check(ctx context.Context, rawURL string) (int, error)
}

type corsConfigurer interface {
	ConfigureCORS(ctx context.Context, origins []string) error
}

// CreateUserInput describes an account created from the command line.
type CreateUserInput struct {
	Email    string
	Password string
	FullName string
	Admin    bool
}

// ResetPasswordResult carries the password that was set. Generated is true
// when the caller left the password blank and a temporary one was issued.
type ResetPasswordResult struct {
	Password  string
	Generated bool
}

// FixImageURLsInput controls the image URL repair run.
type FixImageURLsInput struct {
	DryRun bool
	Verify bool
}

// BrokenURL is a repaired URL that did not answer 200 on HEAD.
type BrokenURL struct {
	ProductID uuid.UUID `json:"product_id"`
	URL       string    `json:"url"`
	Status    int       `json:"status"`
	Error     string    `json:"error,omitempty"`
}

// FixImageURLsReport extends the catalog repair report with verification results.
type FixImageURLsReport struct {
	*catalog.RepairReport
	Verified int         `json:"verified"`
	Broken   []BrokenURL `json:"broken,omitempty"`
}

// Service is the admin operations surface.
type Service interface {
	CreateUser(ctx context.Context, input CreateUserInput) (*users.UserDTO, error)
	ResetPassword(ctx context.Context, email, password string) (*ResetPasswordResult, error)
	GrantRole(ctx context.Context, email string, role enums.Role) error
	RevokeRole(ctx context.Context, email string, role enums.Role) (bool, error)
	FixImageURLs(ctx context.Context, input FixImageURLsInput) (*FixImageURLsReport, error)
	ConfigureBucket(ctx context.Context, origins []string) error
}

// ServiceParams bundles the admin dependencies. Verifier and Bucket are only
// needed by the operations that use them.
type ServiceParams struct {
	Users          userStore
	Catalog        imageRepairer
	Verifier       urlChecker
	Bucket         corsConfigurer
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

type service struct {
	users       userStore
	catalog     imageRepairer
	verifier    urlChecker
	bucket      corsConfigurer
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// NewService constructs the admin service.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user store required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		users:       params.Users,
		catalog:     params.Catalog,
		verifier:    params.Verifier,
		bucket:      params.Bucket,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
	}, nil
}

func (s *service) CreateUser(ctx context.Context, input CreateUserInput) (*users.UserDTO, error) {
	email := users.NormalizeEmail(input.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	if len(input.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	roles := []enums.Role{enums.RoleCustomer}
	if input.Admin {
		roles = append(roles, enums.RoleAdmin)
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: hash,
		FullName:     input.FullName,
		Roles:        roles,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"email": email, "admin": input.Admin}), "user created")
	return users.FromModel(user), nil
}

func (s *service) ResetPassword(ctx context.Context, email, password string) (*ResetPasswordResult, error) {
	user, err := s.lookup(ctx, email)
	if err != nil {
		return nil, err
	}

	result := &ResetPasswordResult{Password: password}
	if password == "" {
		generated, err := security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate password")
		}
		result = &ResetPasswordResult{Password: generated, Generated: true}
	} else if len(password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	hash, err := security.HashPassword(result.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}

	s.logg.Info(s.logg.WithField(ctx, "user_id", user.ID.String()), "password reset by admin")
	return result, nil
}

func (s *service) GrantRole(ctx context.Context, email string, role enums.Role) error {
	if !role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown role %q", role))
	}
	user, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}
	if err := s.users.GrantRole(ctx, user.ID, role); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grant role")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"user_id": user.ID.String(), "role": role.String()}), "role granted")
	return nil
}

func (s *service) RevokeRole(ctx context.Context, email string, role enums.Role) (bool, error) {
	if !role.IsValid() {
		return false, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown role %q", role))
	}
	user, err := s.lookup(ctx, email)
	if err != nil {
		return false, err
	}
	removed, err := s.users.RevokeRole(ctx, user.ID, role)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke role")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"user_id": user.ID.String(), "role": role.String(), "removed": removed}), "role revoked")
	return removed, nil
}

func (s *service) FixImageURLs(ctx context.Context, input FixImageURLsInput) (*FixImageURLsReport, error) {
	if input.Verify && s.verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnsupported, "url verification is not configured")
	}
	repair, err := s.catalog.RepairImageURLs(ctx, input.DryRun)
	if err != nil {
		return nil, err
	}
	report := &FixImageURLsReport{RepairReport: repair}
	if !input.Verify {
		return report, nil
	}

	for _, r := range repair.Repairs {
		if r.After == "" {
			continue
		}
		report.Verified++
		status, err := s.verifier.Check(ctx, r.After)
		switch {
		case err != nil:
			report.Broken = append(report.Broken, BrokenURL{ProductID: r.ProductID, URL: r.After, Error: err.Error()})
		case status != http.StatusOK:
			report.Broken = append(report.Broken, BrokenURL{ProductID: r.ProductID, URL: r.After, Status: status})
		}
	}
	if len(report.Broken) > 0 {
		s.logg.Warn(s.logg.WithField(ctx, "broken", len(report.Broken)), "repaired image urls did not resolve")
	}
	return report, nil
}

func (s *service) ConfigureBucket(ctx context.Context, origins []string) error {
	if s.bucket == nil {
		return pkgerrors.New(pkgerrors.CodeUnsupported, "bucket cors is only supported on s3")
	}
	if err := s.bucket.ConfigureCORS(ctx, origins); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "configure bucket cors")
	}
	s.logg.Info(s.logg.WithField(ctx, "origins", origins), "bucket cors configured")
	return nil
}

func (s *service) lookup(ctx context.Context, email string) (*models.User, error) {
	normalized := users.NormalizeEmail(email)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	user, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no user with email %s", normalized))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	return user, nil
}
