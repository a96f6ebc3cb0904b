// Package cache puts Redis in front of the product reads. Views embed the
// category name, so category changes invalidate product keys as well.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"catalog-service/internal/metrics"
	"catalog-service/internal/models"
	"catalog-service/internal/patch"
	"catalog-service/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	allProductsKey  = "products:all"
	productKeyMatch = "product:*"
	notFoundMarker  = "notfound"

	defaultTTL  = 5 * time.Minute
	notFoundTTL = 1 * time.Minute
)

func productKey(id int) string {
	return fmt.Sprintf("product:%d", id)
}

type CachedProductRepository struct {
	realRepo repository.ProductRepository
	redis    *redis.Client
	ttl      time.Duration
	log      logrus.FieldLogger
}

func NewCachedProductRepository(realRepo repository.ProductRepository, redis *redis.Client, log logrus.FieldLogger) *CachedProductRepository {
	return &CachedProductRepository{
		realRepo: realRepo,
		redis:    redis,
		ttl:      defaultTTL,
		log:      log,
	}
}

func (c *CachedProductRepository) GetByID(ctx context.Context, id int) (*models.ProductView, error) {
	key := productKey(id)

	data, err := c.redis.Get(ctx, key).Bytes()

	switch {
	case err == nil:
		if string(data) == notFoundMarker {
			metrics.CacheHit("product")
			return nil, repository.ErrNotFound
		}

		var product models.ProductView
		if err := json.Unmarshal(data, &product); err != nil {
			c.log.WithError(err).WithField("key", key).Warn("failed to unmarshal cached product, continuing with DB")
			break
		}

		metrics.CacheHit("product")
		return &product, nil

	case errors.Is(err, redis.Nil):

	default:
		c.log.WithError(err).Warn("redis error, continuing with DB")
	}

	metrics.CacheMiss("product")

	product, err := c.realRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if setErr := c.redis.Set(ctx, key, notFoundMarker, notFoundTTL).Err(); setErr != nil {
				c.log.WithError(setErr).Warn("failed to cache notfound")
			}
		}
		return nil, err
	}

	c.store(ctx, key, product)
	return product, nil
}

func (c *CachedProductRepository) GetAll(ctx context.Context) ([]models.ProductView, error) {
	data, err := c.redis.Get(ctx, allProductsKey).Bytes()

	if err == nil {
		var products []models.ProductView
		if err := json.Unmarshal(data, &products); err == nil {
			metrics.CacheHit("all")
			return products, nil
		}
		c.log.WithError(err).Warn("failed to unmarshal cached products, continuing with DB")
	} else if !errors.Is(err, redis.Nil) {
		c.log.WithError(err).Warn("redis error, continuing with DB")
	}

	metrics.CacheMiss("all")

	products, err := c.realRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	c.store(ctx, allProductsKey, products)
	return products, nil
}

func (c *CachedProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := c.realRepo.Create(ctx, product); err != nil {
		return err
	}

	c.invalidate(ctx, productKey(product.ID), allProductsKey)
	return nil
}

func (c *CachedProductRepository) UpdateFields(ctx context.Context, id int, changes patch.Changes) error {
	err := c.realRepo.UpdateFields(ctx, id, changes)
	c.invalidate(ctx, productKey(id), allProductsKey)
	return err
}

func (c *CachedProductRepository) Delete(ctx context.Context, id int) error {
	err := c.realRepo.Delete(ctx, id)
	c.invalidate(ctx, productKey(id), allProductsKey)
	return err
}

func (c *CachedProductRepository) store(ctx context.Context, key string, v any) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		c.log.WithError(err).Warn("failed to marshal products")
		return
	}

	if err := c.redis.Set(ctx, key, jsonData, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("failed to cache products")
	}
}

func (c *CachedProductRepository) invalidate(ctx context.Context, keys ...string) {
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.log.WithError(err).WithField("keys", keys).Warn("failed to delete product cache")
	}
}

// CachedCategoryRepository forwards to the real repository and drops product
// views whose category name may have changed.
type CachedCategoryRepository struct {
	realRepo repository.CategoryRepository
	redis    *redis.Client
	log      logrus.FieldLogger
}

func NewCachedCategoryRepository(realRepo repository.CategoryRepository, redis *redis.Client, log logrus.FieldLogger) *CachedCategoryRepository {
	return &CachedCategoryRepository{realRepo: realRepo, redis: redis, log: log}
}

func (c *CachedCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	return c.realRepo.Create(ctx, category)
}

func (c *CachedCategoryRepository) GetAll(ctx context.Context) ([]models.Category, error) {
	return c.realRepo.GetAll(ctx)
}

// Delete clears every cached product because the foreign key nulls
// category_id on an unknown set of rows.
func (c *CachedCategoryRepository) Delete(ctx context.Context, id int) error {
	if err := c.realRepo.Delete(ctx, id); err != nil {
		return err
	}

	keys := []string{allProductsKey}
	iter := c.redis.Scan(ctx, 0, productKeyMatch, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.log.WithError(err).Warn("failed to scan product cache")
	}

	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.log.WithError(err).WithField("category_id", id).Warn("failed to delete product cache")
	}

	return nil
}
