package repository

import (
	"context"
	"fmt"
	"strings"

	"catalog-service/internal/models"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type orderRepo struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) OrderRepository {
	return &orderRepo{db: db}
}

// CreateOrder stores an order received from outside the catalog. Each line's
// price_at_purchase is copied from the product's current price inside the
// transaction and is never recomputed afterwards.
func (r *orderRepo) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	if order == nil {
		return fmt.Errorf("%w: order cannot be nil", ErrInvalidInput)
	}
	if err := validateStruct(order); err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrInvalidInput)
	}
	for _, item := range items {
		if err := validateStruct(item); err != nil {
			return err
		}
	}

	if strings.TrimSpace(order.Status) == "" {
		order.Status = models.StatusPending
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	productIDs := make([]int, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
	}

	rows, err := tx.Query(ctx, `
		SELECT
			id,
			price
		FROM products WHERE id = ANY($1::int[])
		FOR SHARE
	`, productIDs)
	if err != nil {
		return fmt.Errorf("failed to get products information: %w", err)
	}

	prices := make(map[int]decimal.Decimal, len(productIDs))
	for rows.Next() {
		var id int
		var price decimal.Decimal
		if err := rows.Scan(&id, &price); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan product data: %w", err)
		}
		prices[id] = price
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to complete row iteration: %w", err)
	}

	total := decimal.Zero
	for i := range items {
		price, ok := prices[items[i].ProductID]
		if !ok {
			return fmt.Errorf("%w: product %d does not exist", ErrInvalidInput, items[i].ProductID)
		}
		items[i].PriceAtPurchase = price
		total = total.Add(price.Mul(decimal.NewFromInt(int64(items[i].Quantity))))
	}
	order.TotalAmount = total

	var orderDate pgtype.Timestamptz
	if !order.OrderDate.IsZero() {
		orderDate = pgtype.Timestamptz{Time: order.OrderDate, Valid: true}
	}

	insert := `
		INSERT INTO orders (
			customer_name,
			customer_email,
			shipping_address,
			order_date,
			status,
			total_amount
		) VALUES ($1, $2, $3, COALESCE($4, now()), $5, $6)
		RETURNING id, order_date
	`

	err = tx.QueryRow(ctx, insert,
		order.CustomerName,
		order.CustomerEmail,
		order.ShippingAddress,
		orderDate,
		order.Status,
		order.TotalAmount,
	).Scan(&order.ID, &order.OrderDate)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", translatePgError(err, "order already exists", ""))
	}

	insertItem := `
		INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	for i := range items {
		items[i].OrderID = order.ID
		err := tx.QueryRow(ctx, insertItem,
			order.ID,
			items[i].ProductID,
			items[i].Quantity,
			items[i].PriceAtPurchase,
		).Scan(&items[i].ID)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", translatePgError(err, "order item already exists", "order does not exist"))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetAll returns orders newest first.
func (r *orderRepo) GetAll(ctx context.Context) ([]models.Order, error) {
	sql := `
		SELECT
			id,
			customer_name,
			customer_email,
			shipping_address,
			order_date,
			status,
			total_amount
		FROM orders
		ORDER BY order_date DESC, id DESC
	`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to get all orders: %w", err)
	}

	defer rows.Close()

	orders := []models.Order{}

	for rows.Next() {
		var o models.Order

		err := rows.Scan(&o.ID,
			&o.CustomerName,
			&o.CustomerEmail,
			&o.ShippingAddress,
			&o.OrderDate,
			&o.Status,
			&o.TotalAmount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan all orders: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return orders, nil
}

// UpdateStatus accepts any non-empty status; there is no transition table.
func (r *orderRepo) UpdateStatus(ctx context.Context, id int, status string) error {
	if id <= 0 {
		return fmt.Errorf("%w: order ID must be positive", ErrInvalidInput)
	}
	if strings.TrimSpace(status) == "" {
		return fmt.Errorf("%w: status cannot be empty", ErrInvalidInput)
	}

	result, err := r.db.Exec(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update status order %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *orderRepo) GetOrderWithItems(ctx context.Context, id int) (*models.OrderWithItems, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: order ID must be positive", ErrInvalidInput)
	}

	sql := `
		SELECT
			o.id,
			o.customer_name,
			o.customer_email,
			o.shipping_address,
			o.order_date,
			o.status,
			o.total_amount,
			oi.id,
			oi.product_id,
			oi.quantity,
			oi.price_at_purchase,
			p.name
		FROM orders o
		LEFT JOIN order_items oi ON o.id = oi.order_id
		LEFT JOIN products p ON oi.product_id = p.id
		WHERE o.id = $1
		ORDER BY oi.id
	`

	rows, err := r.db.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order with items %d: %w", id, err)
	}

	defer rows.Close()

	var order *models.OrderWithItems

	for rows.Next() {
		var current models.Order
		var itemID pgtype.Int4
		var productID pgtype.Int4
		var quantity pgtype.Int4
		var price decimal.NullDecimal
		var productName *string

		err := rows.Scan(&current.ID,
			&current.CustomerName,
			&current.CustomerEmail,
			&current.ShippingAddress,
			&current.OrderDate,
			&current.Status,
			&current.TotalAmount,
			&itemID,
			&productID,
			&quantity,
			&price,
			&productName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order/item: %w", err)
		}
		if order == nil {
			order = &models.OrderWithItems{Order: current, Items: []models.OrderItemView{}}
		}
		if itemID.Valid {
			order.Items = append(order.Items, models.OrderItemView{
				OrderItem: models.OrderItem{
					ID:              int(itemID.Int32),
					OrderID:         current.ID,
					ProductID:       int(productID.Int32),
					Quantity:        int(quantity.Int32),
					PriceAtPurchase: price.Decimal,
				},
				ProductName: productName,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	if order == nil {
		return nil, ErrNotFound
	}

	return order, nil
}
