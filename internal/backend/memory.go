package backend

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/restify-pos/api/internal/database"
	"github.com/restify-pos/api/internal/enum"
	"github.com/restify-pos/api/internal/feed"
)

// Memory is an in-process Client used by tests and by `serve --memory`.
// Writes publish to the hub like the Postgres triggers do.
type Memory struct {
	mu         sync.RWMutex
	tables     map[uuid.UUID]database.Table
	categories map[uuid.UUID]database.Category
	products   map[uuid.UUID]database.Product
	orders     map[uuid.UUID]database.Order

	hub  *feed.Hub
	now  func() time.Time
	last time.Time
}

func NewMemory(hub *feed.Hub) *Memory {
	return &Memory{
		tables:     make(map[uuid.UUID]database.Table),
		categories: make(map[uuid.UUID]database.Category),
		products:   make(map[uuid.UUID]database.Product),
		orders:     make(map[uuid.UUID]database.Order),
		hub:        hub,
		now:        time.Now,
	}
}

// tick returns a strictly increasing timestamp so orderings by time are
// total even when the clock does not advance between writes. Caller holds mu.
func (m *Memory) tick() time.Time {
	t := m.now().UTC()
	if !t.After(m.last) {
		t = m.last.Add(time.Microsecond)
	}
	m.last = t
	return t
}

func (m *Memory) publish(table, op string) {
	if m.hub != nil {
		m.hub.Publish(feed.Change{Table: table, Op: op})
	}
}

func (m *Memory) ListTables(_ context.Context) ([]database.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.Table, 0, len(m.tables))
	for _, t := range m.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *Memory) GetTable(_ context.Context, id uuid.UUID) (database.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[id]
	if !ok {
		return database.Table{}, pgx.ErrNoRows
	}
	return t, nil
}

func (m *Memory) UpsertTable(_ context.Context, arg database.UpsertTableParams) (database.Table, error) {
	m.mu.Lock()
	op := enum.ChangeInsert
	t := database.Table{ID: uuid.New(), Number: arg.Number, Status: arg.Status}
	for _, existing := range m.tables {
		if existing.Number == arg.Number {
			t.ID = existing.ID
			op = enum.ChangeUpdate
			break
		}
	}
	m.tables[t.ID] = t
	m.mu.Unlock()
	m.publish(enum.TableTables, op)
	return t, nil
}

func (m *Memory) ListCategories(_ context.Context) ([]database.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *Memory) UpsertCategory(_ context.Context, arg database.UpsertCategoryParams) (database.Category, error) {
	m.mu.Lock()
	op := enum.ChangeInsert
	c := database.Category{ID: uuid.New(), Name: arg.Name, SortOrder: arg.SortOrder}
	for _, existing := range m.categories {
		if existing.Name == arg.Name {
			c.ID = existing.ID
			op = enum.ChangeUpdate
			break
		}
	}
	m.categories[c.ID] = c
	m.mu.Unlock()
	m.publish(enum.TableCategories, op)
	return c, nil
}

func (m *Memory) ListActiveProducts(_ context.Context) ([]database.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.Product, 0, len(m.products))
	for _, p := range m.products {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) GetProduct(_ context.Context, id uuid.UUID) (database.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return database.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *Memory) UpsertProduct(_ context.Context, arg database.UpsertProductParams) (database.Product, error) {
	m.mu.Lock()
	op := enum.ChangeInsert
	p := database.Product{
		ID:         uuid.New(),
		CategoryID: arg.CategoryID,
		Name:       arg.Name,
		Price:      arg.Price.Round(2),
		Image:      arg.Image,
		Active:     arg.Active,
	}
	for _, existing := range m.products {
		if existing.Name == arg.Name {
			p.ID = existing.ID
			op = enum.ChangeUpdate
			break
		}
	}
	m.products[p.ID] = p
	m.mu.Unlock()
	m.publish(enum.TableProducts, op)
	return p, nil
}

func (m *Memory) CreateOrder(_ context.Context, arg database.CreateOrderParams) (database.Order, error) {
	m.mu.Lock()
	if _, ok := m.tables[arg.TableID]; !ok {
		m.mu.Unlock()
		return database.Order{}, pgx.ErrNoRows
	}
	now := m.tick()
	o := database.Order{
		ID:          uuid.New(),
		TableID:     arg.TableID,
		TableNumber: arg.TableNumber,
		Items:       append([]database.OrderItem(nil), arg.Items...),
		Total:       arg.Total.Round(2),
		Status:      arg.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.orders[o.ID] = o
	m.mu.Unlock()
	m.publish(enum.TableOrders, enum.ChangeInsert)
	return o, nil
}

func (m *Memory) GetOrder(_ context.Context, id uuid.UUID) (database.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *Memory) ListOrders(_ context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	m.mu.RLock()
	out := make([]database.Order, 0)
	for _, o := range m.orders {
		if o.Status == arg.Status {
			out = append(out, o)
		}
	}
	m.mu.RUnlock()

	switch arg.Sort {
	case enum.SortUpdatedDesc:
		sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	default:
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	}
	if arg.Limit > 0 && len(out) > int(arg.Limit) {
		out = out[:arg.Limit]
	}
	return out, nil
}

func (m *Memory) UpdateOrderStatus(_ context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	m.mu.Lock()
	o, ok := m.orders[arg.ID]
	if !ok || o.Status != arg.From {
		m.mu.Unlock()
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = arg.To
	o.UpdatedAt = m.tick()
	m.orders[o.ID] = o
	m.mu.Unlock()
	m.publish(enum.TableOrders, enum.ChangeUpdate)
	return o, nil
}

// Subscribe fails with feed.ErrClosed when the backend has no hub.
func (m *Memory) Subscribe(ctx context.Context, table string) (*feed.Subscription, error) {
	if m.hub == nil {
		return nil, feed.ErrClosed
	}
	return m.hub.Subscribe(ctx, table)
}
