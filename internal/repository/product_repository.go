package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"catalog-service/internal/models"
	"catalog-service/internal/patch"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type productRepo struct {
	db *pgxpool.Pool
}

func NewProductRepository(db *pgxpool.Pool) ProductRepository {
	return &productRepo{db: db}
}

const selectProductView = `
	SELECT
		p.id,
		p.name,
		p.description,
		p.price,
		p.stock,
		p.image_url,
		p.category_id,
		c.name
	FROM products p
	LEFT JOIN categories c ON p.category_id = c.id
`

func (r *productRepo) Create(ctx context.Context, p *models.Product) error {
	if err := validateStruct(p); err != nil {
		return err
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: product price cannot be negative", ErrInvalidInput)
	}

	sql := `
		INSERT INTO products (
			name,
			description,
			price,
			stock,
			image_url,
			category_id
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, sql,
		p.Name,
		p.Description,
		p.Price,
		p.Stock,
		p.ImageURL,
		p.CategoryID,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", translatePgError(err, "product already exists", "category does not exist"))
	}

	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id int) (*models.ProductView, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	row := r.db.QueryRow(ctx, selectProductView+` WHERE p.id = $1`, id)

	product, err := scanProductView(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product by id %d: %w", id, err)
	}

	return product, nil
}

func (r *productRepo) GetAll(ctx context.Context) ([]models.ProductView, error) {
	rows, err := r.db.Query(ctx, selectProductView+` ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}

	defer rows.Close()

	products := []models.ProductView{}

	for rows.Next() {
		p, err := scanProductView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan products: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return products, nil
}

// UpdateFields writes only the columns named in changes. Column names come
// from patch.ProductFields, so a change outside that schema is refused here
// as well.
func (r *productRepo) UpdateFields(ctx context.Context, id int, changes patch.Changes) error {
	if id <= 0 {
		return fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}
	if len(changes) == 0 {
		return fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}

	assignments := make([]string, 0, len(changes))
	args := make([]any, 0, len(changes)+1)

	for _, ch := range changes {
		if !patch.ProductFields.Allows(ch.Field) {
			return fmt.Errorf("%w: %s is not an updatable product field", ErrInvalidInput, ch.Field)
		}
		args = append(args, ch.Value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", ch.Field, len(args)))
	}
	args = append(args, id)

	sql := fmt.Sprintf(`UPDATE products SET %s WHERE id = $%d`, strings.Join(assignments, ", "), len(args))

	result, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to update product %d: %w", id, translatePgError(err, "product already exists", "category does not exist"))
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete is idempotent. Order lines that reference the product keep their
// product_id and frozen price.
func (r *productRepo) Delete(ctx context.Context, id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}

	return nil
}

func scanProductView(row pgx.Row) (*models.ProductView, error) {
	var p models.ProductView

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Stock,
		&p.ImageURL,
		&p.CategoryID,
		&p.CategoryName,
	)
	if err != nil {
		return nil, err
	}

	return &p, nil
}
