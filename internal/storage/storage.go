package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rryowa/shopapi/internal/models"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// Storage is what a single backend provides for the whole session subsystem.
type Storage interface {
	UserRepository
	RefreshTokenStore
	RevocationLedger
	SettingRepository
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// UpsertUserByEmail creates a confirmed customer when the email is unknown, otherwise
	// overwrites the identity fields and marks the account confirmed.
	UpsertUserByEmail(ctx context.Context, email string, fields models.UserUpsert) (*models.User, error)
	ListUsers(ctx context.Context, skip, limit int) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) (*models.User, error)
	SetUserConfirmed(ctx context.Context, id string) error
	DeleteUser(ctx context.Context, id string) error
}

// RefreshTokenStore keeps at most one refresh record per user.
type RefreshTokenStore interface {
	PutRefreshToken(ctx context.Context, record models.RefreshTokenRecord) error
	// GetRefreshToken returns ErrNotFound when the user has no live record.
	GetRefreshToken(ctx context.Context, userID string) (*models.RefreshTokenRecord, error)
	// DeleteRefreshToken does not fail when the record is absent.
	DeleteRefreshToken(ctx context.Context, userID string) error
}

// RevocationLedger is append-only; expired entries are dropped by the backend.
type RevocationLedger interface {
	// Revoke returns ErrDuplicateKey when the jti is already present.
	Revoke(ctx context.Context, token models.RevokedToken) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// SettingRepository returns ErrDuplicateKey when a name is already taken.
type SettingRepository interface {
	CreateSetting(ctx context.Context, setting *models.Setting) (*models.Setting, error)
	GetSetting(ctx context.Context, id string) (*models.Setting, error)
	ListSettings(ctx context.Context) ([]models.Setting, error)
	UpdateSetting(ctx context.Context, setting *models.Setting) (*models.Setting, error)
	DeleteSetting(ctx context.Context, id string) error
}

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
