package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/rryowa/shopapi/internal/models"
	"github.com/rryowa/shopapi/internal/storage"
)

const userColumns = `id, name, email, password_hash, role, phone, addresses, confirmed, auth_provider, created_at`

type UserRepository struct {
	db storage.DBTX
}

func NewUserRepository(db storage.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var addresses pq.StringArray
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.Phone,
		&addresses,
		&u.Confirmed,
		&u.AuthProvider,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Addresses = []string(addresses)
	return &u, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING ` + userColumns
	u, err := scanUser(r.db.QueryRowContext(
		ctx,
		query,
		uuid.NewString(),
		user.Name,
		strings.ToLower(strings.TrimSpace(user.Email)),
		user.PasswordHash,
		user.Role,
		user.Phone,
		pq.Array(user.Addresses),
		user.Confirmed,
		user.AuthProvider,
		createdAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", translateError(err))
	}
	return u, nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateError(err)
	}
	return u, nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return nil, translateError(err)
	}
	return u, nil
}

func (r *UserRepository) UpsertUserByEmail(ctx context.Context, email string, fields models.UserUpsert) (*models.User, error) {
	query := `INSERT INTO users (id, name, email, password_hash, role, confirmed, auth_provider, created_at)
		VALUES ($1, $2, $3, '', $4, TRUE, $5, $6)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, auth_provider = EXCLUDED.auth_provider, confirmed = TRUE
		RETURNING ` + userColumns
	u, err := scanUser(r.db.QueryRowContext(
		ctx,
		query,
		uuid.NewString(),
		fields.Name,
		strings.ToLower(strings.TrimSpace(email)),
		models.RoleCustomer,
		fields.AuthProvider,
		time.Now().UTC(),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", translateError(err))
	}
	return u, nil
}

func (r *UserRepository) ListUsers(ctx context.Context, skip, limit int) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) UpdateUser(ctx context.Context, user *models.User) (*models.User, error) {
	query := `UPDATE users SET name = $2, email = $3, password_hash = $4, role = $5, phone = $6, addresses = $7, confirmed = $8, auth_provider = $9
		WHERE id = $1 RETURNING ` + userColumns
	u, err := scanUser(r.db.QueryRowContext(
		ctx,
		query,
		user.ID,
		user.Name,
		strings.ToLower(strings.TrimSpace(user.Email)),
		user.PasswordHash,
		user.Role,
		user.Phone,
		pq.Array(user.Addresses),
		user.Confirmed,
		user.AuthProvider,
	))
	if err != nil {
		return nil, translateError(err)
	}
	return u, nil
}

func (r *UserRepository) SetUserConfirmed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET confirmed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("confirm user: %w", translateError(err))
	}
	return expectOneRow(res)
}

func (r *UserRepository) DeleteUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", translateError(err))
	}
	return expectOneRow(res)
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func expectOneRow(res rowsAffected) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
