// Package backend is the table-store and change-feed every screen talks to.
// Screens receive a Client at construction; nothing reaches for a global handle.
package backend

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/restify-pos/api/internal/database"
	"github.com/restify-pos/api/internal/feed"
)

// Client is the backend capability: filtered/ordered/limited reads, order
// insert, status update, and a per-table change-feed. Missing rows are
// reported as pgx.ErrNoRows by every implementation.
type Client interface {
	ListTables(ctx context.Context) ([]database.Table, error)
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	ListCategories(ctx context.Context) ([]database.Category, error)
	ListActiveProducts(ctx context.Context) ([]database.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	Subscribe(ctx context.Context, table string) (*feed.Subscription, error)
}

// Postgres serves reads and writes from PostgreSQL and change events from a
// hub fed by a Listener on the same database.
type Postgres struct {
	*database.Queries
	hub *feed.Hub
}

func NewPostgres(pool *pgxpool.Pool, hub *feed.Hub) *Postgres {
	return &Postgres{Queries: database.New(pool), hub: hub}
}

func (p *Postgres) Subscribe(ctx context.Context, table string) (*feed.Subscription, error) {
	return p.hub.Subscribe(ctx, table)
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

var (
	_ Client = (*Postgres)(nil)
	_ Client = (*Memory)(nil)
)
