// Package service composes the repositories and the patch engine into the
// operations the transport exposes.
package service

import (
	"context"
	"strings"

	"catalog-service/internal/models"
	"catalog-service/internal/patch"
	"catalog-service/internal/repository"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type CatalogService interface {
	ListProducts(ctx context.Context) ([]models.ProductView, error)
	GetProduct(ctx context.Context, id int) (*models.ProductView, error)
	CreateProduct(ctx context.Context, fields map[string]any) (*models.ProductView, error)
	UpdateProduct(ctx context.Context, id int, fields map[string]any) (*models.ProductView, error)
	DeleteProduct(ctx context.Context, id int) error

	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	DeleteCategory(ctx context.Context, id int) error
}

func NewCatalogService(products repository.ProductRepository, categories repository.CategoryRepository, log logrus.FieldLogger) CatalogService {
	return &catalogService{products: products, categories: categories, log: log}
}

type catalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	log        logrus.FieldLogger
}

func (s *catalogService) ListProducts(ctx context.Context) ([]models.ProductView, error) {
	products, err := s.products.GetAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id int) (*models.ProductView, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %d", id)
	}
	return product, nil
}

// CreateProduct requires name and price; every other field defaults to its
// zero value and category_id to null. The stored product is read back through
// the joined view so category_name is filled in.
func (s *catalogService) CreateProduct(ctx context.Context, fields map[string]any) (*models.ProductView, error) {
	product, err := patch.NewProduct(fields)
	if err != nil {
		return nil, invalidPatch(err)
	}

	if err := s.products.Create(ctx, &product); err != nil {
		return nil, errors.Wrap(err, "create product")
	}

	s.log.WithFields(logrus.Fields{
		"product_id": product.ID,
		"name":       product.Name,
	}).Info("product created")

	return s.GetProduct(ctx, product.ID)
}

// UpdateProduct changes only the fields present in the patch. An unknown id
// is reported before the patch is looked at.
func (s *catalogService) UpdateProduct(ctx context.Context, id int, fields map[string]any) (*models.ProductView, error) {
	existing, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %d", id)
	}

	_, changes, err := patch.ApplyProduct(existing.Product, fields)
	if err != nil {
		return nil, invalidPatch(err)
	}

	if err := s.products.UpdateFields(ctx, id, changes); err != nil {
		return nil, errors.Wrapf(err, "update product %d", id)
	}

	s.log.WithFields(logrus.Fields{
		"product_id": id,
		"fields":     changes.Fields(),
	}).Info("product updated")

	return s.GetProduct(ctx, id)
}

func (s *catalogService) DeleteProduct(ctx context.Context, id int) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return errors.Wrapf(err, "delete product %d", id)
	}
	s.log.WithField("product_id", id).Info("product deleted")
	return nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.categories.GetAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return categories, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	category := &models.Category{Name: strings.TrimSpace(name)}
	if category.Name == "" {
		return nil, errors.Wrap(repository.ErrInvalidInput, "category name is required")
	}

	if err := s.categories.Create(ctx, category); err != nil {
		return nil, errors.Wrapf(err, "create category %q", category.Name)
	}

	s.log.WithFields(logrus.Fields{
		"category_id": category.ID,
		"name":        category.Name,
	}).Info("category created")

	return category, nil
}

// DeleteCategory succeeds for unknown ids. Products that were in the
// category stay and lose their category.
func (s *catalogService) DeleteCategory(ctx context.Context, id int) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		return errors.Wrapf(err, "delete category %d", id)
	}
	s.log.WithField("category_id", id).Info("category deleted")
	return nil
}

// invalidPatch reports a rejected patch as invalid input while keeping the
// field-level reason in the message.
func invalidPatch(err error) error {
	return errors.Wrap(repository.ErrInvalidInput, err.Error())
}
