package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"catalog-service/internal/models"
	"catalog-service/internal/patch"
	"catalog-service/internal/repository"

	"github.com/shopspring/decimal"
)

// catalogStore backs both the product and the category mock so that joined
// views and category deletion behave like the real schema.
type catalogStore struct {
	mu         sync.Mutex
	products   map[int]models.Product
	categories map[int]models.Category
	nextID     int
}

func newCatalogStore() *catalogStore {
	return &catalogStore{
		products:   make(map[int]models.Product),
		categories: make(map[int]models.Category),
	}
}

func (s *catalogStore) view(p models.Product) models.ProductView {
	v := models.ProductView{Product: p}
	if p.CategoryID != nil {
		if c, ok := s.categories[*p.CategoryID]; ok {
			name := c.Name
			v.CategoryName = &name
		}
	}
	return v
}

type mockProductRepository struct{ *catalogStore }

func (m mockProductRepository) Create(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.CategoryID != nil {
		if _, ok := m.categories[*p.CategoryID]; !ok {
			return repository.ErrInvalidInput
		}
	}
	m.nextID++
	p.ID = m.nextID
	m.products[p.ID] = *p
	return nil
}

func (m mockProductRepository) GetByID(_ context.Context, id int) (*models.ProductView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	v := m.view(p)
	return &v, nil
}

func (m mockProductRepository) GetAll(_ context.Context) ([]models.ProductView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	views := make([]models.ProductView, 0, len(m.products))
	for _, p := range m.products {
		views = append(views, m.view(p))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views, nil
}

func (m mockProductRepository) UpdateFields(_ context.Context, id int, changes patch.Changes) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	for _, ch := range changes {
		switch ch.Field {
		case "name":
			p.Name = ch.Value.(string)
		case "description":
			p.Description = ch.Value.(string)
		case "price":
			p.Price = ch.Value.(decimal.Decimal)
		case "stock":
			p.Stock = ch.Value.(int)
		case "image_url":
			p.ImageURL = ch.Value.(string)
		case "category_id":
			ref := ch.Value.(*int)
			if ref != nil {
				if _, ok := m.categories[*ref]; !ok {
					return repository.ErrInvalidInput
				}
			}
			p.CategoryID = ref
		}
	}
	m.products[id] = p
	return nil
}

func (m mockProductRepository) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
	return nil
}

type mockCategoryRepository struct{ *catalogStore }

func (m mockCategoryRepository) Create(_ context.Context, c *models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.categories {
		if existing.Name == c.Name {
			return repository.ErrDuplicate
		}
	}
	m.nextID++
	c.ID = m.nextID
	m.categories[c.ID] = *c
	return nil
}

func (m mockCategoryRepository) GetAll(_ context.Context) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m mockCategoryRepository) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.categories, id)
	for pid, p := range m.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			p.CategoryID = nil
			m.products[pid] = p
		}
	}
	return nil
}

type mockOrderRepository struct {
	mu     sync.Mutex
	orders map[int]models.Order
	items  map[int][]models.OrderItem
	prices map[int]decimal.Decimal
	nextID int
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{
		orders: make(map[int]models.Order),
		items:  make(map[int][]models.OrderItem),
		prices: make(map[int]decimal.Decimal),
	}
}

func (m *mockOrderRepository) CreateOrder(_ context.Context, order *models.Order, items []models.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(items) == 0 {
		return repository.ErrInvalidInput
	}
	total := decimal.Zero
	for i := range items {
		price, ok := m.prices[items[i].ProductID]
		if !ok {
			return repository.ErrInvalidInput
		}
		items[i].PriceAtPurchase = price
		total = total.Add(price.Mul(decimal.NewFromInt(int64(items[i].Quantity))))
	}
	m.nextID++
	order.ID = m.nextID
	order.TotalAmount = total
	if order.Status == "" {
		order.Status = models.StatusPending
	}
	if order.OrderDate.IsZero() {
		order.OrderDate = time.Now()
	}
	for i := range items {
		m.nextID++
		items[i].ID = m.nextID
		items[i].OrderID = order.ID
	}
	m.orders[order.ID] = *order
	m.items[order.ID] = append([]models.OrderItem(nil), items...)
	return nil
}

func (m *mockOrderRepository) GetAll(_ context.Context) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderDate.Equal(out[j].OrderDate) {
			return out[i].ID > out[j].ID
		}
		return out[i].OrderDate.After(out[j].OrderDate)
	})
	return out, nil
}

func (m *mockOrderRepository) GetOrderWithItems(_ context.Context, id int) (*models.OrderWithItems, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	detail := &models.OrderWithItems{Order: o, Items: []models.OrderItemView{}}
	for _, it := range m.items[id] {
		detail.Items = append(detail.Items, models.OrderItemView{OrderItem: it})
	}
	return detail, nil
}

func (m *mockOrderRepository) UpdateStatus(_ context.Context, id int, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status = status
	m.orders[id] = o
	return nil
}
