package repository

import (
	"context"
	"errors"
	"fmt"

	"catalog-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type userRepo struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	if err := validateStruct(u); err != nil {
		return err
	}

	sql := `
		INSERT INTO users (
			username,
			password_hash,
			is_admin
		) VALUES ($1, $2, $3)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, sql, u.Username, u.PasswordHash, u.IsAdmin).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("create user: %w", translatePgError(err, "username already exists", ""))
	}

	return nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username cannot be empty", ErrInvalidInput)
	}

	sql := `
		SELECT
			id,
			username,
			password_hash,
			is_admin
		FROM users WHERE username = $1
	`

	var user models.User

	err := r.db.QueryRow(ctx, sql, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.IsAdmin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user %q: %w", username, err)
	}

	return &user, nil
}

func (r *userRepo) GetAll(ctx context.Context) ([]models.User, error) {
	sql := `
		SELECT
			id,
			username,
			is_admin
		FROM users
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}

	defer rows.Close()

	users := []models.User{}

	for rows.Next() {
		var u models.User

		if err := rows.Scan(&u.ID, &u.Username, &u.IsAdmin); err != nil {
			return nil, fmt.Errorf("failed to scan users: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return users, nil
}

func (r *userRepo) HasAdmin(ctx context.Context) (bool, error) {
	var exists bool

	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE is_admin)`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check for admin: %w", err)
	}

	return exists, nil
}
