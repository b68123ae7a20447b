package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SergeiKhy/linktrack/internal/models"
	"github.com/jackc/pgx/v5"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByLogin(ctx context.Context, email, phone string) (*models.User, error)
	ExistsByEmailOrPhone(ctx context.Context, email, phone string, excludeID int64) (bool, error)
	Update(ctx context.Context, user *models.User) error
	SetRefreshToken(ctx context.Context, id int64, token *string) error
	Delete(ctx context.Context, id int64) error
}

type userRepository struct {
	db *PostgresDB
}

func NewUserRepository(db *PostgresDB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, name, email, password_hash, phone_number, refresh_token, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.PhoneNumber,
		&u.RefreshToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, phone_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.conn(ctx).QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.PhoneNumber,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByLogin finds a user by email or phone number; empty values never match.
func (r *userRepository) GetByLogin(ctx context.Context, email, phone string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE ($1 <> '' AND email = $1) OR ($2 <> '' AND phone_number = $2)
		LIMIT 1
	`

	user, err := scanUser(r.db.conn(ctx).QueryRow(ctx, query, email, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by login: %w", err)
	}
	return user, nil
}

func (r *userRepository) ExistsByEmailOrPhone(ctx context.Context, email, phone string, excludeID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE ((email = $1) OR (phone_number = $2)) AND id <> $3
		)
	`

	var exists bool
	if err := r.db.conn(ctx).QueryRow(ctx, query, email, phone, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET name = $2, email = $3, password_hash = $4, phone_number = $5,
			refresh_token = $6, updated_at = $7
		WHERE id = $1
	`

	tag, err := r.db.conn(ctx).Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.PhoneNumber,
		user.RefreshToken,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) SetRefreshToken(ctx context.Context, id int64, token *string) error {
	query := `UPDATE users SET refresh_token = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.db.conn(ctx).Exec(ctx, query, id, token)
	if err != nil {
		return fmt.Errorf("failed to set refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
