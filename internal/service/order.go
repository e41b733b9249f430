package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/restify-pos/api/internal/database"
	"github.com/restify-pos/api/internal/enum"
	"github.com/restify-pos/api/internal/metrics"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service.
var (
	ErrEmptyItems        = errors.New("items are required")
	ErrTableRequired     = errors.New("table_id is required")
	ErrTableNotFound     = errors.New("table not found")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrInvalidProductID  = errors.New("invalid product_id")
	ErrProductNotFound   = errors.New("product not found or inactive")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// OrderStore defines the backend methods needed by the order lifecycle.
// Satisfied by every backend.Client.
type OrderStore interface {
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
}

// SubmitOrderRequest is the input for creating an order for one table.
type SubmitOrderRequest struct {
	TableID uuid.UUID
	Items   []SubmitOrderItem
}

// SubmitOrderItem is a single product line. Repeated products are merged.
type SubmitOrderItem struct {
	ProductID uuid.UUID
	Quantity  int32
}

// OrderService owns the order lifecycle: creation with status new and the
// single forward transition to ready.
type OrderService struct {
	store   OrderStore
	metrics *metrics.Metrics
}

func NewOrderService(store OrderStore, m *metrics.Metrics) *OrderService {
	return &OrderService{store: store, metrics: m}
}

// SubmitOrder validates the lines against the catalog, prices them with the
// catalog price, and persists a new order whose total is computed once here.
func (s *OrderService) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (database.Order, error) {
	if req.TableID == uuid.Nil {
		return database.Order{}, ErrTableRequired
	}
	if len(req.Items) == 0 {
		return database.Order{}, ErrEmptyItems
	}

	lines, err := mergeItems(req.Items)
	if err != nil {
		return database.Order{}, err
	}

	table, err := s.store.GetTable(ctx, req.TableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrTableNotFound
		}
		return database.Order{}, fmt.Errorf("get table: %w", err)
	}

	items := make([]database.OrderItem, 0, len(lines))
	for i, line := range lines {
		product, err := s.store.GetProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return database.Order{}, fmt.Errorf("item[%d]: %w", i, ErrProductNotFound)
			}
			return database.Order{}, fmt.Errorf("item[%d]: get product: %w", i, err)
		}
		if !product.Active {
			return database.Order{}, fmt.Errorf("item[%d]: %w", i, ErrProductNotFound)
		}
		items = append(items, database.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  line.Quantity,
		})
	}

	order, err := s.store.CreateOrder(ctx, database.CreateOrderParams{
		TableID:     table.ID,
		TableNumber: table.Number,
		Items:       items,
		Total:       Total(items),
		Status:      enum.OrderStatusNew,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("create order: %w", err)
	}

	s.metrics.OrderSubmitted()
	return order, nil
}

// MarkReady moves exactly one order from new to ready. A concurrent or
// repeated call loses with ErrInvalidTransition.
func (s *OrderService) MarkReady(ctx context.Context, id uuid.UUID) (database.Order, error) {
	current, err := s.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	if err := ValidateTransition(current.Status, enum.OrderStatusReady); err != nil {
		return database.Order{}, err
	}

	updated, err := s.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:   id,
		From: current.Status,
		To:   enum.OrderStatusReady,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Status changed between our read and write.
			return database.Order{}, fmt.Errorf("%w: order already moved on", ErrInvalidTransition)
		}
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}

	s.metrics.OrderReady(updated.CreatedAt, updated.UpdatedAt)
	return updated, nil
}

// allowedTransitions defines valid status transitions.
// Key is current status, value is the set of statuses it can transition to.
var allowedTransitions = map[string][]string{
	enum.OrderStatusNew: {enum.OrderStatusReady},
}

// ValidateTransition checks if the transition from current to next is allowed.
func ValidateTransition(current, next string) error {
	for _, s := range allowedTransitions[current] {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, current, next)
}

// IsValidStatus reports whether s is an order status.
func IsValidStatus(s string) bool {
	switch s {
	case enum.OrderStatusNew, enum.OrderStatusReady:
		return true
	}
	return false
}

// Total is Σ price × quantity over items, rounded to 2 places.
func Total(items []database.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt32(item.Quantity)))
	}
	return total.Round(2)
}

// mergeItems validates quantities and folds repeated products into one line,
// keeping first-seen order.
func mergeItems(in []SubmitOrderItem) ([]SubmitOrderItem, error) {
	out := make([]SubmitOrderItem, 0, len(in))
	index := make(map[uuid.UUID]int, len(in))
	for i, item := range in {
		if item.ProductID == uuid.Nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidProductID)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		if j, ok := index[item.ProductID]; ok {
			out[j].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, item)
	}
	return out, nil
}
