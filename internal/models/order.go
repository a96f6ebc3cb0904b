package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Conventional order statuses. Status is free text; these are the values
// the storefront uses, nothing rejects others.
const (
	StatusPending    = "Pending"
	StatusProcessing = "Processing"
	StatusShipped    = "Shipped"
	StatusDelivered  = "Delivered"
	StatusCancelled  = "Cancelled"
)

type Order struct {
	ID              int             `json:"id"`
	CustomerName    string          `json:"customer_name" validate:"required"`
	CustomerEmail   string          `json:"customer_email" validate:"required,email"`
	ShippingAddress string          `json:"shipping_address" validate:"required"`
	OrderDate       time.Time       `json:"order_date"`
	Status          string          `json:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
}

type OrderItem struct {
	ID              int             `json:"id"`
	OrderID         int             `json:"order_id"`
	ProductID       int             `json:"product_id" validate:"gt=0,lte=2147483647"`
	Quantity        int             `json:"quantity" validate:"gt=0,lte=2147483647"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

// OrderItemView carries the product name looked up at read time next to the
// price frozen at purchase time. ProductName is nil once the product is gone.
type OrderItemView struct {
	OrderItem
	ProductName *string `json:"product_name"`
}

type OrderWithItems struct {
	Order
	Items []OrderItemView `json:"items"`
}
