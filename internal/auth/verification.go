package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fotoshare/auth-service/internal/user"
)

// RequestConfirmation issues a fresh email-verify token for the account and
// mails it. alreadyConfirmed reports the informational no-op case. An unknown
// email is swallowed; the HTTP layer always answers generically, so response
// differences don't reveal whether the account exists.
func (s *Service) RequestConfirmation(ctx context.Context, email string) (alreadyConfirmed bool, err error) {
	acct, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.logger.Info("confirmation requested for unknown email")
			return false, nil
		}
		return false, fmt.Errorf("failed to get account: %w", err)
	}

	if acct.Confirmed {
		return true, nil
	}

	s.sendConfirmationMail(acct)

	return false, nil
}

// Confirm consumes an email-verify token and marks the account confirmed.
// Idempotent: a valid token for an already-confirmed account reports
// alreadyConfirmed without mutating again.
func (s *Service) Confirm(ctx context.Context, token string) (alreadyConfirmed bool, err error) {
	claims, err := s.codec.Decode(token, ScopeEmailVerify)
	if err != nil {
		return false, err
	}

	acct, err := s.store.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return false, ErrUnknownAccount
		}
		return false, fmt.Errorf("failed to get account: %w", err)
	}

	if acct.Confirmed {
		return true, nil
	}

	if err := s.store.SetConfirmed(ctx, acct.ID); err != nil {
		return false, fmt.Errorf("failed to confirm account: %w", err)
	}

	s.logger.Info("account confirmed", "account_id", acct.ID)

	return false, nil
}

// RequestPasswordReset issues a password-reset token and mails it. Always
// succeeds from the caller's point of view: an unknown email is a logged
// no-op, never an error (information hiding).
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	acct, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		s.logger.Error("password reset lookup failed", "error", err.Error())
		return nil
	}

	token, err := s.codec.Encode(acct.Email, ScopePasswordReset, s.ttls.Reset)
	if err != nil {
		s.logger.Error("failed to encode reset token", "error", err.Error())
		return nil
	}

	go func() {
		mailCtx := context.Background()
		if err := s.mailer.SendReset(mailCtx, acct.Email, acct.Username, token); err != nil {
			s.logger.Warn("failed to send password reset email",
				"email", acct.Email,
				"error", err.Error(),
			)
		}
	}()

	return nil
}

// ResetPassword consumes a password-reset token and overwrites the account's
// password hash. Tokens are single-use: the token id is marked consumed for
// the remainder of its lifetime, so replaying a captured link fails. A
// successful reset also revokes the stored refresh token.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return ErrPasswordRequired
	}
	if len(newPassword) < 6 {
		return ErrPasswordTooShort
	}

	claims, err := s.codec.Decode(token, ScopePasswordReset)
	if err != nil {
		return err
	}

	acct, err := s.store.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUnknownAccount
		}
		return fmt.Errorf("failed to get account: %w", err)
	}

	firstUse, err := s.consumer.Consume(ctx, claims.TokenID, time.Until(claims.ExpiresAt))
	if err != nil {
		return fmt.Errorf("failed to mark reset token consumed: %w", err)
	}
	if !firstUse {
		s.logger.Warn("reset token replay rejected", "account_id", acct.ID)
		return ErrTokenInvalid
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.store.SetPasswordHash(ctx, acct.ID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	// Any live session predates the reset; force a fresh login.
	if err := s.store.SetRefreshToken(ctx, acct.ID, nil); err != nil {
		s.logger.Warn("failed to revoke session after password reset",
			"account_id", acct.ID,
			"error", err.Error(),
		)
	}

	s.logger.Info("password reset", "account_id", acct.ID)

	return nil
}

// sendConfirmationMail encodes an email-verify token and dispatches the mail
// in the background. Delivery failure must not fail the triggering request,
// but a silently broken mailer breaks confirmation invisibly, so it is logged.
func (s *Service) sendConfirmationMail(acct *user.Account) {
	token, err := s.codec.Encode(acct.Email, ScopeEmailVerify, s.ttls.Verify)
	if err != nil {
		s.logger.Error("failed to encode verification token", "error", err.Error())
		return
	}

	go func() {
		mailCtx := context.Background()
		if err := s.mailer.SendConfirmation(mailCtx, acct.Email, acct.Username, token); err != nil {
			s.logger.Warn("failed to send confirmation email",
				"email", acct.Email,
				"error", err.Error(),
			)
		}
	}()
}
