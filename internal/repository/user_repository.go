package repository

import (
	"context"

	"github.com/spec-kit/bugtrack/internal/domain"
	"github.com/spec-kit/bugtrack/internal/persistence"
)

// UserRepository defines persistence access for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type userRepository struct {
	db *persistence.TransactionManager
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db *persistence.TransactionManager) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (username, full_name, email, role, password_hash)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	return r.db.Queryer(ctx).QueryRow(ctx, query,
		user.Username,
		user.FullName,
		nullableString(user.Email),
		user.Role,
		user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = userSelect + ` WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = userSelect + ` WHERE username=$1`
	return r.fetchSingle(ctx, query, username)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = userSelect + ` WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

const userSelect = `
        SELECT id, username, full_name, COALESCE(email, ''), role, password_hash, created_at, updated_at
        FROM users`

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.db.Queryer(ctx).QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.FullName,
		&user.Email,
		&user.Role,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func nullableString(val string) *string {
	if val == "" {
		return nil
	}
	return &val
}
