package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Table struct {
	ID     uuid.UUID `json:"id"`
	Number int32     `json:"number"`
	Status string    `json:"status"`
}

type Category struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	SortOrder int32     `json:"sort_order"`
}

type Product struct {
	ID         uuid.UUID       `json:"id"`
	CategoryID *uuid.UUID      `json:"category_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Image      *string         `json:"image"`
	Active     bool            `json:"active"`
}

// OrderItem is one cart line frozen into an order. Stored in orders.items (JSONB).
type OrderItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int32           `json:"quantity"`
}

type Order struct {
	ID          uuid.UUID       `json:"id"`
	TableID     uuid.UUID       `json:"table_id"`
	TableNumber int32           `json:"table_number"`
	Items       []OrderItem     `json:"items"`
	Total       decimal.Decimal `json:"total"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type CreateOrderParams struct {
	TableID     uuid.UUID
	TableNumber int32
	Items       []OrderItem
	Total       decimal.Decimal
	Status      string
}

// ListOrdersParams filters orders by status. Sort is one of enum.SortCreatedAsc
// or enum.SortUpdatedDesc; Limit <= 0 means no limit.
type ListOrdersParams struct {
	Status string
	Sort   string
	Limit  int32
}

// UpdateOrderStatusParams moves an order from From to To. The update only
// applies while the row still has status From.
type UpdateOrderStatusParams struct {
	ID   uuid.UUID
	From string
	To   string
}

type UpsertTableParams struct {
	Number int32
	Status string
}

type UpsertCategoryParams struct {
	Name      string
	SortOrder int32
}

type UpsertProductParams struct {
	CategoryID *uuid.UUID
	Name       string
	Price      decimal.Decimal
	Image      *string
	Active     bool
}
