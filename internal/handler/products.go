package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/restify-pos/api/internal/database"
)

type productResponse struct {
	ID         uuid.UUID  `json:"id"`
	CategoryID *uuid.UUID `json:"category_id"`
	Name       string     `json:"name"`
	Price      string     `json:"price"`
	Image      *string    `json:"image"`
	Active     bool       `json:"active"`
}

func toProductResponse(p database.Product) productResponse {
	return productResponse{
		ID:         p.ID,
		CategoryID: p.CategoryID,
		Name:       p.Name,
		Price:      money(p.Price),
		Image:      p.Image,
		Active:     p.Active,
	}
}

// ListProducts handles GET /api/products. Inactive products are never listed.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListActiveProducts(r.Context())
	if err != nil {
		internalError(w, "list products", err)
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}
