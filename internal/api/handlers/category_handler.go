package handlers

import (
	"net/http"
	"strconv"

	"catalog-service/internal/service"
)

type CategoryHandler struct {
	svc service.CatalogService
}

func NewCategoryHandler(svc service.CatalogService) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

type CategoryCreateRequest struct {
	Name string `json:"name"`
}

func (h *CategoryHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context())
	if err != nil {
		respondError(w, r, err, "failed to get categories")
		return
	}

	writeJSON(w, http.StatusOK, categories)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CategoryCreateRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	category, err := h.svc.CreateCategory(r.Context(), req.Name)
	if err != nil {
		respondError(w, r, err, "failed to create category")
		return
	}

	w.Header().Set("Location", "/api/categories/"+strconv.Itoa(category.ID))
	writeJSON(w, http.StatusCreated, category)
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "category")
	if !ok {
		return
	}

	if err := h.svc.DeleteCategory(r.Context(), id); err != nil {
		respondError(w, r, err, "failed to delete category")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
