package repository

import (
	"context"

	"catalog-service/internal/models"
	"catalog-service/internal/patch"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetAll(ctx context.Context) ([]models.User, error)
	HasAdmin(ctx context.Context) (bool, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetAll(ctx context.Context) ([]models.Category, error)
	Delete(ctx context.Context, id int) error
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id int) (*models.ProductView, error)
	GetAll(ctx context.Context) ([]models.ProductView, error)
	UpdateFields(ctx context.Context, id int, changes patch.Changes) error
	Delete(ctx context.Context, id int) error
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error
	GetAll(ctx context.Context) ([]models.Order, error)
	GetOrderWithItems(ctx context.Context, id int) (*models.OrderWithItems, error)
	UpdateStatus(ctx context.Context, id int, status string) error
}
