package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"catalog-service/internal/api/middleware"
	"catalog-service/internal/auth"
	"catalog-service/internal/logging"
	"catalog-service/internal/models"
	"catalog-service/internal/patch"
	"catalog-service/internal/repository"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	handler http.Handler
	tokens  *auth.Tokens
	catalog *stubCatalog
	orders  *stubOrders
}

func setup(t *testing.T) *testServer {
	secret, err := auth.NewSecret()
	require.NoError(t, err)
	tokens, err := auth.NewTokens(secret, time.Minute)
	require.NoError(t, err)

	log := logging.Discard()
	creds := auth.NewCredentialService(&stubUsers{}, auth.NewBcryptHasher(bcrypt.MinCost), tokens, log)
	_, err = creds.CreateAccount(context.Background(), "admin", "adminpass", true)
	require.NoError(t, err)
	_, err = creds.CreateAccount(context.Background(), "clerk", "clerkpass", false)
	require.NoError(t, err)

	catalog := &stubCatalog{products: map[int]models.ProductView{
		1: {Product: models.Product{ID: 1, Name: "Laptop", Price: decimal.RequireFromString("999.99"), Stock: 3}},
	}}
	orders := &stubOrders{orders: map[int]models.Order{
		1: {ID: 1, CustomerName: "Jane", Status: models.StatusPending},
	}}

	handler := NewRouter(Dependencies{
		Guard:        auth.NewGuard(tokens),
		Credentials:  creds,
		Catalog:      catalog,
		Orders:       orders,
		LoginLimiter: middleware.NewRateLimiter(100, 100),
		Log:          log,
	})

	return &testServer{handler: handler, tokens: tokens, catalog: catalog, orders: orders}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)
	return rec
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/login", "", `{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Bearer", resp.TokenType)
	return resp.AccessToken
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

func TestHealth(t *testing.T) {
	s := setup(t)
	rec := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLogin(t *testing.T) {
	s := setup(t)

	t.Run("Success", func(t *testing.T) {
		token := s.login(t, "admin", "adminpass")
		claims, err := s.tokens.Verify(token)
		require.NoError(t, err)
		assert.True(t, claims.IsAdmin)
	})

	t.Run("Wrong password", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/auth/login", "", `{"username":"admin","password":"nope"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid_credentials", errorCode(t, rec))
	})

	t.Run("Unknown field", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/auth/login", "", `{"username":"admin","password":"x","otp":"1"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoginRateLimited(t *testing.T) {
	s := setup(t)
	s.handler = NewRouter(Dependencies{
		Guard:        auth.NewGuard(s.tokens),
		Credentials:  auth.NewCredentialService(&stubUsers{}, auth.NewBcryptHasher(bcrypt.MinCost), s.tokens, logging.Discard()),
		Catalog:      s.catalog,
		Orders:       s.orders,
		LoginLimiter: middleware.NewRateLimiter(0.001, 1),
		Log:          logging.Discard(),
	})

	body := `{"username":"x","password":"y"}`
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/auth/login", "", body).Code)

	rec := s.do(t, http.MethodPost, "/api/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestLoginRateLimitIgnoresForwardedHeaders(t *testing.T) {
	newHandler := func(s *testServer, trustProxy bool) http.Handler {
		return NewRouter(Dependencies{
			Guard:        auth.NewGuard(s.tokens),
			Credentials:  auth.NewCredentialService(&stubUsers{}, auth.NewBcryptHasher(bcrypt.MinCost), s.tokens, logging.Discard()),
			Catalog:      s.catalog,
			Orders:       s.orders,
			LoginLimiter: middleware.NewRateLimiter(0.001, 1),
			Log:          logging.Discard(),
			TrustProxy:   trustProxy,
		})
	}
	login := func(handler http.Handler, forwardedFor string) int {
		r := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"admin","password":"guess"}`))
		r.RemoteAddr = "203.0.113.7:40000"
		r.Header.Set("X-Real-IP", forwardedFor)
		r.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec.Code
	}

	t.Run("Direct clients are keyed on the connection", func(t *testing.T) {
		handler := newHandler(setup(t), false)

		codes := make([]int, 0, 5)
		for i := 1; i <= 5; i++ {
			codes = append(codes, login(handler, fmt.Sprintf("10.0.0.%d", i)))
		}
		assert.Equal(t, []int{
			http.StatusUnauthorized,
			http.StatusTooManyRequests,
			http.StatusTooManyRequests,
			http.StatusTooManyRequests,
			http.StatusTooManyRequests,
		}, codes)
	})

	t.Run("Trusted proxy forwards the client address", func(t *testing.T) {
		handler := newHandler(setup(t), true)

		assert.Equal(t, http.StatusUnauthorized, login(handler, "10.0.0.1"))
		assert.Equal(t, http.StatusUnauthorized, login(handler, "10.0.0.2"))
		assert.Equal(t, http.StatusTooManyRequests, login(handler, "10.0.0.1"))
	})
}

func TestAdminGuardedRoutes(t *testing.T) {
	s := setup(t)
	admin := s.login(t, "admin", "adminpass")
	clerk := s.login(t, "clerk", "clerkpass")

	routes := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/users", ""},
		{http.MethodPost, "/api/categories", `{"name":"Books"}`},
		{http.MethodDelete, "/api/categories/1", ""},
		{http.MethodPost, "/api/products", `{"name":"X","price":1}`},
		{http.MethodPut, "/api/products/1", `{"stock":1}`},
		{http.MethodDelete, "/api/products/1", ""},
		{http.MethodPut, "/api/orders/1/status", `{"status":"Shipped"}`},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rec := s.do(t, rt.method, rt.path, "", rt.body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			rec = s.do(t, rt.method, rt.path, clerk, rt.body)
			assert.Equal(t, http.StatusForbidden, rec.Code)

			rec = s.do(t, rt.method, rt.path, admin, rt.body)
			assert.Less(t, rec.Code, 300, rec.Body.String())
		})
	}
}

func TestOrdersRequireAuthentication(t *testing.T) {
	s := setup(t)
	clerk := s.login(t, "clerk", "clerkpass")

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/orders", "", "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/orders", clerk, "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/orders/1", clerk, "").Code)

	rec := s.do(t, http.MethodGet, "/api/orders/99", clerk, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))
}

func TestUpdateStatusErrors(t *testing.T) {
	s := setup(t)
	admin := s.login(t, "admin", "adminpass")

	rec := s.do(t, http.MethodPut, "/api/orders/1/status", admin, `{"status":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/orders/42/status", admin, `{"status":"Shipped"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/orders/abc/status", admin, `{"status":"Shipped"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_id", errorCode(t, rec))
}

func TestProductBodyIsPassedAsFieldMap(t *testing.T) {
	s := setup(t)
	admin := s.login(t, "admin", "adminpass")

	rec := s.do(t, http.MethodPut, "/api/products/1", admin, `{"price":12.50,"category_id":""}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	fields := s.catalog.lastFields
	assert.Equal(t, json.Number("12.50"), fields["price"])
	assert.Equal(t, "", fields["category_id"])

	rec = s.do(t, http.MethodPut, "/api/products/1", admin, `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/products/1", admin, `{"price":1}{"price":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOversizedProductFieldsAreInvalidInput(t *testing.T) {
	s := setup(t)
	admin := s.login(t, "admin", "adminpass")

	bodies := []string{
		`{"name":"` + strings.Repeat("n", 300) + `"}`,
		`{"price":10000000000}`,
		`{"stock":1099511627776}`,
		`{"category_id":2147483648}`,
	}
	for _, body := range bodies {
		rec := s.do(t, http.MethodPut, "/api/products/1", admin, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "invalid_input", errorCode(t, rec))
	}

	rec := s.do(t, http.MethodPost, "/api/products", admin, `{"name":"Phone","price":1e12}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	s := setup(t)
	admin := s.login(t, "admin", "adminpass")

	s.catalog.createErr = errors.Wrap(repository.ErrDuplicate, "category name already exists")
	rec := s.do(t, http.MethodPost, "/api/categories", admin, `{"name":"Books"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", errorCode(t, rec))

	s.catalog.createErr = errors.New("connection reset")
	rec = s.do(t, http.MethodPost, "/api/categories", admin, `{"name":"Books"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")

	rec = s.do(t, http.MethodGet, "/api/products/404", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicCatalogReads(t *testing.T) {
	s := setup(t)

	rec := s.do(t, http.MethodGet, "/api/products", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var products []models.ProductView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 1)
	assert.Equal(t, "Laptop", products[0].Name)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/categories", "", "").Code)
}

type stubUsers struct {
	mu    sync.Mutex
	users []models.User
}

func (s *stubUsers) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	user.ID = len(s.users) + 1
	s.users = append(s.users, *user)
	return nil
}

func (s *stubUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			found := u
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubUsers) GetAll(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.User(nil), s.users...), nil
}

func (s *stubUsers) HasAdmin(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.IsAdmin {
			return true, nil
		}
	}
	return false, nil
}

type stubCatalog struct {
	products   map[int]models.ProductView
	lastFields map[string]any
	createErr  error
}

func (s *stubCatalog) ListProducts(context.Context) ([]models.ProductView, error) {
	out := make([]models.ProductView, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubCatalog) GetProduct(_ context.Context, id int) (*models.ProductView, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *stubCatalog) CreateProduct(_ context.Context, fields map[string]any) (*models.ProductView, error) {
	s.lastFields = fields
	p, err := patch.NewProduct(fields)
	if err != nil {
		return nil, errors.Wrap(repository.ErrInvalidInput, err.Error())
	}
	p.ID = len(s.products) + 1
	view := models.ProductView{Product: p}
	s.products[p.ID] = view
	return &view, nil
}

func (s *stubCatalog) UpdateProduct(_ context.Context, id int, fields map[string]any) (*models.ProductView, error) {
	s.lastFields = fields
	existing, ok := s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	updated, _, err := patch.ApplyProduct(existing.Product, fields)
	if err != nil {
		return nil, errors.Wrap(repository.ErrInvalidInput, err.Error())
	}
	view := models.ProductView{Product: updated}
	s.products[id] = view
	return &view, nil
}

func (s *stubCatalog) DeleteProduct(_ context.Context, id int) error {
	delete(s.products, id)
	return nil
}

func (s *stubCatalog) ListCategories(context.Context) ([]models.Category, error) {
	return []models.Category{}, nil
}

func (s *stubCatalog) CreateCategory(_ context.Context, name string) (*models.Category, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.Category{ID: 1, Name: name}, nil
}

func (s *stubCatalog) DeleteCategory(context.Context, int) error {
	return nil
}

type stubOrders struct {
	orders map[int]models.Order
}

func (s *stubOrders) PlaceOrder(_ context.Context, order *models.Order, _ []models.OrderItem) (*models.OrderWithItems, error) {
	order.ID = len(s.orders) + 1
	s.orders[order.ID] = *order
	return &models.OrderWithItems{Order: *order, Items: []models.OrderItemView{}}, nil
}

func (s *stubOrders) ListOrders(context.Context) ([]models.Order, error) {
	out := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	return out, nil
}

func (s *stubOrders) GetOrderDetail(_ context.Context, id int) (*models.OrderWithItems, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &models.OrderWithItems{Order: o, Items: []models.OrderItemView{}}, nil
}

func (s *stubOrders) UpdateStatus(_ context.Context, id int, status string) (*models.Order, error) {
	if strings.TrimSpace(status) == "" {
		return nil, errors.Wrap(repository.ErrInvalidInput, "status is required")
	}
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	o.Status = status
	s.orders[id] = o
	return &o, nil
}
