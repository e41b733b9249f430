package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/restify-pos/api/internal/database"
	"github.com/restify-pos/api/internal/enum"
	"github.com/restify-pos/api/internal/service"
)

const (
	defaultOrderLimit = 20
	maxOrderLimit     = 100
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	SubmitOrder(ctx context.Context, req service.SubmitOrderRequest) (database.Order, error)
	MarkReady(ctx context.Context, id uuid.UUID) (database.Order, error)
}

// OrderStore defines the backend reads needed by order handlers.
// Satisfied by every backend.Client; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /api/orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/ready", h.MarkReady)
}

// --- Request / Response types ---

type createOrderRequest struct {
	TableID string                   `json:"table_id"`
	Items   []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

type orderResponse struct {
	ID          uuid.UUID           `json:"id"`
	TableID     uuid.UUID           `json:"table_id"`
	TableNumber int32               `json:"table_number"`
	Items       []orderItemResponse `json:"items"`
	Total       string              `json:"total"`
	Status      string              `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

type orderItemResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Quantity  int32     `json:"quantity"`
	Subtotal  string    `json:"subtotal"`
}

func toOrderResponse(o database.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     money(item.Price),
			Quantity:  item.Quantity,
			Subtotal:  money(service.Total(o.Items[i : i+1])),
		}
	}
	return orderResponse{
		ID:          o.ID,
		TableID:     o.TableID,
		TableNumber: o.TableNumber,
		Items:       items,
		Total:       money(o.Total),
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

// --- Handlers ---

// Create handles POST /api/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.TableID == "" {
		writeError(w, http.StatusBadRequest, "table_id is required")
		return
	}
	tableID, err := uuid.Parse(req.TableID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table_id")
		return
	}

	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items are required")
		return
	}

	items := make([]service.SubmitOrderItem, len(req.Items))
	for i, item := range req.Items {
		if item.ProductID == "" {
			writeError(w, http.StatusBadRequest, formatItemError(i, "product_id is required"))
			return
		}
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			writeError(w, http.StatusBadRequest, formatItemError(i, "invalid product_id"))
			return
		}
		items[i] = service.SubmitOrderItem{ProductID: productID, Quantity: item.Quantity}
	}

	order, err := h.svc.SubmitOrder(r.Context(), service.SubmitOrderRequest{
		TableID: tableID,
		Items:   items,
	})
	if err != nil {
		// Map known service errors to appropriate HTTP status codes.
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		internalError(w, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// List handles GET /api/orders?status=&sort=&limit=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	status := q.Get("status")
	if status == "" {
		status = enum.OrderStatusNew
	}
	if !service.IsValidStatus(status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	sort := q.Get("sort")
	switch sort {
	case "":
		sort = enum.SortCreatedAsc
	case enum.SortCreatedAsc, enum.SortUpdatedDesc:
	default:
		writeError(w, http.StatusBadRequest, "invalid sort, use created_asc or updated_desc")
		return
	}

	limit := defaultOrderLimit
	if s := q.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = v
	}
	if limit > maxOrderLimit {
		limit = maxOrderLimit
	}

	orders, err := h.store.ListOrders(r.Context(), database.ListOrdersParams{
		Status: status,
		Sort:   sort,
		Limit:  int32(limit),
	})
	if err != nil {
		internalError(w, "list orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		internalError(w, "get order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// MarkReady handles POST /api/orders/{id}/ready.
func (h *OrderHandler) MarkReady(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.svc.MarkReady(r.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrInvalidTransition):
			writeError(w, http.StatusConflict, err.Error())
		default:
			internalError(w, "mark order ready", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// --- Helpers ---

func formatItemError(idx int, msg string) string {
	return "items[" + strconv.Itoa(idx) + "]: " + msg
}

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrTableRequired) ||
		errors.Is(err, service.ErrTableNotFound) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidProductID) ||
		errors.Is(err, service.ErrProductNotFound)
}
