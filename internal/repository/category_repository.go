package repository

import (
	"context"
	"fmt"
	"strings"

	"catalog-service/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type categoryRepo struct {
	db *pgxpool.Pool
}

func NewCategoryRepository(db *pgxpool.Pool) CategoryRepository {
	return &categoryRepo{db: db}
}

func (r *categoryRepo) Create(ctx context.Context, c *models.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if err := validateStruct(c); err != nil {
		return err
	}

	sql := `INSERT INTO categories (name) VALUES ($1) RETURNING id`

	if err := r.db.QueryRow(ctx, sql, c.Name).Scan(&c.ID); err != nil {
		return fmt.Errorf("create category: %w", translatePgError(err, "category name already exists", ""))
	}

	return nil
}

func (r *categoryRepo) GetAll(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all categories: %w", err)
	}

	defer rows.Close()

	categories := []models.Category{}

	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan categories: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return categories, nil
}

// Delete is idempotent: removing an unknown id is not an error. Products in
// the category keep existing with category_id cleared by the foreign key.
func (r *categoryRepo) Delete(ctx context.Context, id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete category %d: %w", id, err)
	}

	return nil
}
