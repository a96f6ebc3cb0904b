package handlers

import (
	"net/http"
	"strconv"

	"catalog-service/internal/service"
)

type ProductHandler struct {
	svc service.CatalogService
}

func NewProductHandler(svc service.CatalogService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "product")
	if !ok {
		return
	}

	product, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		respondError(w, r, err, "failed to get product")
		return
	}

	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.ListProducts(r.Context())
	if err != nil {
		respondError(w, r, err, "failed to get products")
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// Create takes the product fields as a JSON object. name and price are
// required; the rest default.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}

	product, err := h.svc.CreateProduct(r.Context(), fields)
	if err != nil {
		respondError(w, r, err, "failed to create product")
		return
	}

	w.Header().Set("Location", "/api/products/"+strconv.Itoa(product.ID))
	writeJSON(w, http.StatusCreated, product)
}

// Update applies a partial update: keys absent from the body keep their
// stored value, and "category_id": "" or null removes the category.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "product")
	if !ok {
		return
	}

	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}

	product, err := h.svc.UpdateProduct(r.Context(), id, fields)
	if err != nil {
		respondError(w, r, err, "failed to update product")
		return
	}

	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "product")
	if !ok {
		return
	}

	if err := h.svc.DeleteProduct(r.Context(), id); err != nil {
		respondError(w, r, err, "failed to delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
