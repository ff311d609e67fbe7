package auth

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/fotoshare/auth-service/internal/logging"
	"github.com/fotoshare/auth-service/internal/user"
)

// Request-level validation failures, distinct from the lifecycle error
// taxonomy in errors.go.
var (
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrUsernameLength     = errors.New("username must be between 5 and 16 characters")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
)

// AccountStore is the persistence contract the service needs. It must provide
// read-your-writes consistency per account; RotateRefreshToken must be an
// atomic compare-and-swap so concurrent refreshes for the same account
// serialize (see Service.Refresh).
type AccountStore interface {
	Create(ctx context.Context, acct *user.Account) (*user.Account, error)
	GetByEmail(ctx context.Context, email string) (*user.Account, error)
	SetRefreshToken(ctx context.Context, accountID int64, token *string) error
	RotateRefreshToken(ctx context.Context, accountID int64, current, next string) (bool, error)
	SetConfirmed(ctx context.Context, accountID int64) error
	SetPasswordHash(ctx context.Context, accountID int64, passwordHash string) error
}

// Mailer delivers outbound notification email. Calls are dispatched
// fire-and-forget; failures are logged, never propagated to the request.
type Mailer interface {
	SendConfirmation(ctx context.Context, toEmail, username, token string) error
	SendReset(ctx context.Context, toEmail, username, token string) error
}

// TokenConsumer tracks single-use tokens by their token id. Consume reports
// whether this was the first use.
type TokenConsumer interface {
	Consume(ctx context.Context, tokenID string, ttl time.Duration) (bool, error)
}

// TokenTTLs are the per-scope token lifetimes, loaded from configuration.
type TokenTTLs struct {
	Access  time.Duration
	Refresh time.Duration
	Verify  time.Duration
	Reset   time.Duration
}

// TokenPair is what a successful login or refresh returns
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Service owns the account and token lifecycle: registration, credential
// verification, token issuance and rotation, and the email confirmation and
// password reset flows (verification.go).
type Service struct {
	store    AccountStore
	mailer   Mailer
	consumer TokenConsumer
	codec    *Codec
	hasher   *Hasher
	logger   *logging.Logger
	ttls     TokenTTLs
}

func NewService(
	store AccountStore,
	mailer Mailer,
	consumer TokenConsumer,
	codec *Codec,
	hasher *Hasher,
	logger *logging.Logger,
	ttls TokenTTLs,
) *Service {
	return &Service{
		store:    store,
		mailer:   mailer,
		consumer: consumer,
		codec:    codec,
		hasher:   hasher,
		logger:   logger,
		ttls:     ttls,
	}
}

// Register creates an unconfirmed account and sends the confirmation email in
// the background.
func (s *Service) Register(ctx context.Context, username, email, password string) (*user.Account, error) {
	if l := len(username); l < 5 || l > 16 {
		return nil, ErrUsernameLength
	}
	if len(email) > 254 {
		return nil, ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmailFormat
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if len(password) < 6 {
		return nil, ErrPasswordTooShort
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	acct, err := s.store.Create(ctx, &user.Account{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Avatar:       avatarURL(email),
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.sendConfirmationMail(acct)

	return acct, nil
}

// Login verifies credentials and issues a fresh token pair. Checks run in
// error-precedence order: existence, then confirmation, then credential.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	acct, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUnknownAccount
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if !acct.Confirmed {
		return nil, ErrAccountUnconfirmed
	}

	if !s.hasher.Verify(password, acct.PasswordHash) {
		return nil, ErrBadCredential
	}

	return s.issuePair(ctx, acct)
}

// Refresh rotates a refresh token: the presented token must exactly equal the
// account's stored one. A mismatch means the token was already rotated away,
// a replay/theft signal, so the stored token is revoked and the caller is
// forced to log in again. This bounds a leaked refresh token to one use.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.codec.Decode(refreshToken, ScopeRefresh)
	if err != nil {
		return nil, err
	}

	acct, err := s.store.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUnknownAccount
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if acct.RefreshToken == nil || *acct.RefreshToken != refreshToken {
		if err := s.store.SetRefreshToken(ctx, acct.ID, nil); err != nil {
			return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
		}
		s.logger.Warn("refresh token reuse detected, session revoked",
			"account_id", acct.ID,
		)
		return nil, ErrRefreshReuseDetected
	}

	pair, err := s.encodePair(acct.Email)
	if err != nil {
		return nil, err
	}

	// Conditional swap: only one of two racing refreshes can win. The loser
	// observes a stale stored value, which is indistinguishable from replay.
	rotated, err := s.store.RotateRefreshToken(ctx, acct.ID, refreshToken, pair.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	if !rotated {
		if err := s.store.SetRefreshToken(ctx, acct.ID, nil); err != nil {
			return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
		}
		s.logger.Warn("refresh rotation lost race, session revoked",
			"account_id", acct.ID,
		)
		return nil, ErrRefreshReuseDetected
	}

	return pair, nil
}

// Logout revokes the account's stored refresh token
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.codec.Decode(refreshToken, ScopeRefresh)
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

	if err := s.store.SetRefreshToken(ctx, acct.ID, nil); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	return nil
}

// issuePair encodes a new access+refresh pair and stores the refresh token as
// the account's single live value, overwriting any prior one. This is the
// rotation point.
func (s *Service) issuePair(ctx context.Context, acct *user.Account) (*TokenPair, error) {
	pair, err := s.encodePair(acct.Email)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetRefreshToken(ctx, acct.ID, &pair.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return pair, nil
}

// encodePair encodes an access+refresh pair without touching storage
func (s *Service) encodePair(email string) (*TokenPair, error) {
	accessToken, err := s.codec.Encode(email, ScopeAccess, s.ttls.Access)
	if err != nil {
		return nil, fmt.Errorf("failed to encode access token: %w", err)
	}

	refreshToken, err := s.codec.Encode(email, ScopeRefresh, s.ttls.Refresh)
	if err != nil {
		return nil, fmt.Errorf("failed to encode refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}

// avatarURL derives a Gravatar address from the account email
func avatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?d=identicon", sum)
}
