package service

import (
	"context"
	"strings"

	"catalog-service/internal/models"
	"catalog-service/internal/repository"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, order *models.Order, items []models.OrderItem) (*models.OrderWithItems, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	GetOrderDetail(ctx context.Context, id int) (*models.OrderWithItems, error)
	UpdateStatus(ctx context.Context, id int, status string) (*models.Order, error)
}

func NewOrderService(orders repository.OrderRepository, log logrus.FieldLogger) OrderService {
	return &orderService{orders: orders, log: log}
}

type orderService struct {
	orders repository.OrderRepository
	log    logrus.FieldLogger
}

// PlaceOrder records an order with its lines. Prices are taken from the
// catalog at this moment and frozen on each line.
func (s *orderService) PlaceOrder(ctx context.Context, order *models.Order, items []models.OrderItem) (*models.OrderWithItems, error) {
	if err := s.orders.CreateOrder(ctx, order, items); err != nil {
		return nil, errors.Wrap(err, "place order")
	}

	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"items":    len(items),
		"total":    order.TotalAmount.StringFixed(2),
	}).Info("order placed")

	return s.GetOrderDetail(ctx, order.ID)
}

// ListOrders returns every order, newest first.
func (s *orderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := s.orders.GetAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

func (s *orderService) GetOrderDetail(ctx context.Context, id int) (*models.OrderWithItems, error) {
	order, err := s.orders.GetOrderWithItems(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	return order, nil
}

// UpdateStatus stores any non-blank status exactly as given. There is no
// transition table, so a delivered order can go back to pending.
func (s *orderService) UpdateStatus(ctx context.Context, id int, status string) (*models.Order, error) {
	if strings.TrimSpace(status) == "" {
		return nil, errors.Wrap(repository.ErrInvalidInput, "status is required")
	}

	if err := s.orders.UpdateStatus(ctx, id, status); err != nil {
		return nil, errors.Wrapf(err, "update status of order %d", id)
	}

	s.log.WithFields(logrus.Fields{
		"order_id": id,
		"status":   status,
	}).Info("order status updated")

	detail, err := s.GetOrderDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	return &detail.Order, nil
}
