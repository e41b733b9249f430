package handler

import (
	"net/http"

	"github.com/google/uuid"
)

type categoryResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	SortOrder int32     `json:"sort_order"`
}

// ListCategories handles GET /api/categories, in display order.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		internalError(w, "list categories", err)
		return
	}

	resp := make([]categoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = categoryResponse{ID: c.ID, Name: c.Name, SortOrder: c.SortOrder}
	}
	writeJSON(w, http.StatusOK, resp)
}
