package handlers

import (
	"net/http"

	"catalog-service/internal/metrics"
	"catalog-service/internal/service"
)

type OrderHandler struct {
	svc service.OrderService
}

func NewOrderHandler(svc service.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

type OrderStatusRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListOrders(r.Context())
	if err != nil {
		respondError(w, r, err, "failed to get orders")
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "order")
	if !ok {
		return
	}

	order, err := h.svc.GetOrderDetail(r.Context(), id)
	if err != nil {
		respondError(w, r, err, "failed to get order")
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "order")
	if !ok {
		return
	}

	var req OrderStatusRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	order, err := h.svc.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		respondError(w, r, err, "failed to update order status")
		return
	}

	metrics.RecordStatusUpdate(order.Status)
	writeJSON(w, http.StatusOK, order)
}
