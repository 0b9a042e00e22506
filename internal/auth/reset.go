package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/jerseyleague/shop-backend/internal/users"
	pkgerrors "github.com/jerseyleague/shop-backend/pkg/errors"
	"github.com/jerseyleague/shop-backend/pkg/mailer"
	redisclient "github.com/jerseyleague/shop-backend/pkg/redis"
	"github.com/jerseyleague/shop-backend/pkg/security"
)

const resetSubject = "Reset your Jersey League Shop password"

// ResetPassword emails a single-use reset link. The result is the same whether
// or not the address belongs to an account; failures are only logged.
func (s *service) ResetPassword(ctx context.Context, email string) error {
	email = users.NormalizeEmail(email)
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	ctx = s.logg.WithField(ctx, "reset_email", email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil || !user.IsActive {
		s.logg.Debug(ctx, "password reset requested for unknown or inactive account")
		return nil
	}

	token, digest, err := security.NewOpaqueToken()
	if err != nil {
		s.logg.Error(ctx, "generate reset token", err)
		return nil
	}
	ttl := s.jwtCfg.ResetTokenTTL()
	if err := s.resets.Set(ctx, s.resets.ResetTokenKey(digest), user.ID.String(), ttl); err != nil {
		s.logg.Error(ctx, "store reset token", err)
		return nil
	}

	msg := mailer.Message{
		To:      user.Email,
		Subject: resetSubject,
		Body: fmt.Sprintf("Use the link below to choose a new password. It expires in %d minutes.\n\n%s\n",
			int(ttl.Minutes()), s.resetLink(token)),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.logg.Error(ctx, "send reset email", err)
		return nil
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "password reset email sent")
	return nil
}

// ConfirmPasswordReset consumes the reset token and stores the new password.
func (s *service) ConfirmPasswordReset(ctx context.Context, req ConfirmResetRequest) error {
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired reset token")
	}

	raw, err := s.resets.GetDel(ctx, s.resets.ResetTokenKey(security.DigestToken(token)))
	if err != nil {
		if redisclient.IsNil(err) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired reset token")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reset token")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "corrupt reset token")
	}

	hash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}
	s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "password reset completed")
	return nil
}

func (s *service) resetLink(token string) string {
	base := strings.TrimSpace(s.resetURL)
	u, err := url.Parse(base)
	if err != nil || base == "" {
		return token
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
