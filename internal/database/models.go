package database

import (
	"time"

	"github.com/uptrace/bun"
)

// Account is the database representation of an account. The domain model
// lives in internal/user; repositories translate between the two.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Username     string    `bun:"username,notnull"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Confirmed    bool      `bun:"confirmed,notnull,default:false"`
	RefreshToken *string   `bun:"refresh_token"`
	Avatar       string    `bun:"avatar,notnull,default:''"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
