package models

import "github.com/shopspring/decimal"

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name" validate:"required,max=100"`
}

type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0,lte=2147483647"`
	ImageURL    string          `json:"image_url"`
	CategoryID  *int            `json:"category_id"`
}

// ProductView is a product joined with its category. CategoryName is nil
// when the product has no category.
type ProductView struct {
	Product
	CategoryName *string `json:"category_name"`
}
