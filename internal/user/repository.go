package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"github.com/fotoshare/auth-service/internal/database"
)

var (
	ErrNotFound       = errors.New("account not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// Repository handles account persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new account
func (r *Repository) Create(ctx context.Context, acct *Account) (*Account, error) {
	dbAcct := &database.Account{
		Username:     acct.Username,
		Email:        acct.Email,
		PasswordHash: acct.PasswordHash,
		Confirmed:    false,
		Avatar:       acct.Avatar,
	}

	_, err := r.db.NewInsert().
		Model(dbAcct).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return mapDBAccountToModel(dbAcct), nil
}

// GetByEmail retrieves an account by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	dbAcct := new(database.Account)
	err := r.db.NewSelect().
		Model(dbAcct).
		Where("email = ?", email).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}

	return mapDBAccountToModel(dbAcct), nil
}

// SetRefreshToken replaces the account's stored refresh token. A nil token
// revokes the current session.
func (r *Repository) SetRefreshToken(ctx context.Context, accountID int64, token *string) error {
	result, err := r.db.NewUpdate().
		Model((*database.Account)(nil)).
		Set("refresh_token = ?", token).
		Set("updated_at = NOW()").
		Where("id = ?", accountID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to set refresh token: %w", err)
	}

	return checkAffected(result)
}

// RotateRefreshToken swaps the stored refresh token from current to next in a
// single conditional update. It reports false when the stored value no longer
// equals current, which means another rotation won the race or the token was
// revoked; callers must treat that as reuse.
func (r *Repository) RotateRefreshToken(ctx context.Context, accountID int64, current, next string) (bool, error) {
	result, err := r.db.NewUpdate().
		Model((*database.Account)(nil)).
		Set("refresh_token = ?", next).
		Set("updated_at = NOW()").
		Where("id = ?", accountID).
		Where("refresh_token = ?", current).
		Exec(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected == 1, nil
}

// SetConfirmed marks the account's email as confirmed
func (r *Repository) SetConfirmed(ctx context.Context, accountID int64) error {
	result, err := r.db.NewUpdate().
		Model((*database.Account)(nil)).
		Set("confirmed = ?", true).
		Set("updated_at = NOW()").
		Where("id = ?", accountID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to confirm account: %w", err)
	}

	return checkAffected(result)
}

// SetPasswordHash overwrites the account's password hash
func (r *Repository) SetPasswordHash(ctx context.Context, accountID int64, passwordHash string) error {
	result, err := r.db.NewUpdate().
		Model((*database.Account)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = NOW()").
		Where("id = ?", accountID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return checkAffected(result)
}

func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// mapDBAccountToModel converts database model to domain model
func mapDBAccountToModel(dba *database.Account) *Account {
	return &Account{
		ID:           dba.ID,
		Username:     dba.Username,
		Email:        dba.Email,
		PasswordHash: dba.PasswordHash,
		Confirmed:    dba.Confirmed,
		RefreshToken: dba.RefreshToken,
		Avatar:       dba.Avatar,
		CreatedAt:    dba.CreatedAt,
		UpdatedAt:    dba.UpdatedAt,
	}
}
