package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-brackets/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserEmailConflict = errors.New("user email conflict")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Activate(ctx context.Context, id int, confirmedAt time.Time) error
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

const userColumns = `id, first_name, last_name, email, password_hash, is_active, confirmed_at, created_at, updated_at`

func scanUser(row rowScanner, u *models.User) error {
	return row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&u.IsActive, &u.ConfirmedAt, &u.CreatedAt, &u.UpdatedAt,
	)
}

func (r *postgresUserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (first_name, last_name, email, password_hash, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if constraint, ok := pqConstraintError(err, pqUniqueViolation); ok && constraint == "users_email_key" {
			return ErrUserEmailConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) findOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	u := &models.User{}
	if err := scanUser(r.db.QueryRowContext(ctx, query, arg), u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return u, nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *postgresUserRepository) Activate(ctx context.Context, id int, confirmedAt time.Time) error {
	query := `UPDATE users SET is_active = TRUE, confirmed_at = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, confirmedAt, id)
	if err != nil {
		return fmt.Errorf("failed to activate user %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password for user %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}
