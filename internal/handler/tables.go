package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/restify-pos/api/internal/database"
)

// CatalogStore defines the backend reads behind the catalog endpoints.
// Satisfied by every backend.Client; narrow interface for testability.
type CatalogStore interface {
	ListTables(ctx context.Context) ([]database.Table, error)
	ListCategories(ctx context.Context) ([]database.Category, error)
	ListActiveProducts(ctx context.Context) ([]database.Product, error)
}

// CatalogHandler serves the read-only floor plan and menu.
type CatalogHandler struct {
	store CatalogStore
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(store CatalogStore) *CatalogHandler {
	return &CatalogHandler{store: store}
}

// RegisterRoutes registers the catalog endpoints on the given Chi router.
// Expected to be mounted on the /api subrouter.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tables", h.ListTables)
	r.Get("/categories", h.ListCategories)
	r.Get("/products", h.ListProducts)
}

type tableResponse struct {
	ID     uuid.UUID `json:"id"`
	Number int32     `json:"number"`
	Status string    `json:"status"`
}

// ListTables handles GET /api/tables, ordered by table number.
func (h *CatalogHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListTables(r.Context())
	if err != nil {
		internalError(w, "list tables", err)
		return
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = tableResponse{ID: t.ID, Number: t.Number, Status: t.Status}
	}
	writeJSON(w, http.StatusOK, resp)
}
