package screen

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/restify-pos/api/internal/backend"
	"github.com/restify-pos/api/internal/database"
	"github.com/restify-pos/api/internal/enum"
	"github.com/restify-pos/api/internal/feed"
	"github.com/restify-pos/api/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

var errBackendDown = errors.New("backend unavailable")

type fixture struct {
	hub    *feed.Hub
	memory *backend.Memory
	deps   Deps
	tables []database.Table
	taco   database.Product
	agua   database.Product
	drinks database.Category
}

// newFixture seeds tables 1..3, a "Bebidas" category, Taco at 25.00 and
// Agua at 12.50, plus an inactive product.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := feed.NewHub()
	go hub.Run(ctx)
	mem := backend.NewMemory(hub)

	f := &fixture{hub: hub, memory: mem}
	for _, n := range []int32{1, 2, 3} {
		tbl, err := mem.UpsertTable(ctx, database.UpsertTableParams{Number: n, Status: enum.TableStatusFree})
		require.NoError(t, err)
		f.tables = append(f.tables, tbl)
	}
	var err error
	f.drinks, err = mem.UpsertCategory(ctx, database.UpsertCategoryParams{Name: "Bebidas", SortOrder: 1})
	require.NoError(t, err)
	f.taco, err = mem.UpsertProduct(ctx, database.UpsertProductParams{Name: "Taco", Price: decimal.RequireFromString("25.00"), Active: true})
	require.NoError(t, err)
	f.agua, err = mem.UpsertProduct(ctx, database.UpsertProductParams{CategoryID: &f.drinks.ID, Name: "Agua", Price: decimal.RequireFromString("12.50"), Active: true})
	require.NoError(t, err)
	_, err = mem.UpsertProduct(ctx, database.UpsertProductParams{Name: "Pozole", Price: decimal.RequireFromString("80.00"), Active: false})
	require.NoError(t, err)

	f.deps = Deps{
		Backend:      mem,
		Orders:       service.NewOrderService(mem, nil),
		PollInterval: 10 * time.Millisecond,
		BoardLimit:   MaxBoardLimit,
	}
	return f
}

// submit creates an order through the service, like a POS would.
func (f *fixture) submit(t *testing.T, table database.Table, p database.Product, qty int32) database.Order {
	t.Helper()
	o, err := f.deps.Orders.SubmitOrder(context.Background(), service.SubmitOrderRequest{
		TableID: table.ID,
		Items:   []service.SubmitOrderItem{{ProductID: p.ID, Quantity: qty}},
	})
	require.NoError(t, err)
	return o
}

func mount(t *testing.T, s Screen) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s.Mount(ctx)
	return cancel
}

// failingBackend fails the reads named in fail and delegates the rest.
type failingBackend struct {
	backend.Client
	failTables bool
	failCreate bool
	failList   bool
}

func (b *failingBackend) ListTables(ctx context.Context) ([]database.Table, error) {
	if b.failTables {
		return nil, errBackendDown
	}
	return b.Client.ListTables(ctx)
}

func (b *failingBackend) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	if b.failCreate {
		return database.Order{}, errBackendDown
	}
	return b.Client.CreateOrder(ctx, arg)
}

func (b *failingBackend) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	if b.failList {
		return nil, errBackendDown
	}
	return b.Client.ListOrders(ctx, arg)
}

// stallingBackend holds the first list read after it has hit the backend
// until release is closed. read is closed once that result is in hand.
type stallingBackend struct {
	backend.Client
	stalled atomic.Bool
	read    chan struct{}
	release chan struct{}
}

func newStallingBackend(c backend.Client) *stallingBackend {
	return &stallingBackend{Client: c, read: make(chan struct{}), release: make(chan struct{})}
}

func (b *stallingBackend) stall() {
	close(b.read)
	<-b.release
}

func (b *stallingBackend) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	orders, err := b.Client.ListOrders(ctx, arg)
	if b.stalled.CompareAndSwap(false, true) {
		b.stall()
	}
	return orders, err
}

func (b *stallingBackend) ListTables(ctx context.Context) ([]database.Table, error) {
	tables, err := b.Client.ListTables(ctx)
	if b.stalled.CompareAndSwap(false, true) {
		b.stall()
	}
	return tables, err
}

// countingBackend counts order list reads.
type countingBackend struct {
	backend.Client
	lists atomic.Int32
}

func (b *countingBackend) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	b.lists.Add(1)
	return b.Client.ListOrders(ctx, arg)
}

func orderIDs(orders []database.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID.String()
	}
	return out
}
