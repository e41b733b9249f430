package screen

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/restify-pos/api/internal/backend"
	"github.com/restify-pos/api/internal/database"
	"github.com/restify-pos/api/internal/enum"
	"github.com/restify-pos/api/internal/metrics"
	"github.com/restify-pos/api/internal/service"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// SubmittedNotice is shown after an order reaches the kitchen.
const SubmittedNotice = "Pedido enviado a cocina!"

// OrderTakingState is the snapshot of the order-taking screen.
type OrderTakingState struct {
	Tables        Loaded[[]database.Table]    `json:"tables"`
	Categories    Loaded[[]database.Category] `json:"categories"`
	Products      Loaded[[]database.Product]  `json:"products"`
	SelectedTable *database.Table             `json:"selected_table"`
	Cart          []database.OrderItem        `json:"cart"`
	Total         decimal.Decimal             `json:"total"`
	LastOrderID   *uuid.UUID                  `json:"last_order_id,omitempty"`
	Notice        string                      `json:"notice,omitempty"`
	Error         string                      `json:"error,omitempty"`
}

// OrderTaking lets staff pick a table, build a cart from the active catalog
// and submit it as a new order.
type OrderTaking struct {
	notifier
	backend backend.Client
	orders  *service.OrderService
	metrics *metrics.Metrics

	tables     View[[]database.Table]
	categories View[[]database.Category]
	products   View[[]database.Product]

	mu        sync.Mutex
	selected  *database.Table
	cart      Cart
	lastOrder *uuid.UUID
	notice    string
	err       error
}

func NewOrderTaking(deps Deps) *OrderTaking {
	return &OrderTaking{
		notifier: newNotifier(),
		backend:  deps.Backend,
		orders:   deps.Orders,
		metrics:  deps.Metrics,
	}
}

func (s *OrderTaking) Name() string { return enum.ScreenOrderTaking }

func (s *OrderTaking) Mount(ctx context.Context) {
	go s.Load(ctx)
}

// Load reads tables, categories and active products concurrently. Each
// read succeeds or fails on its own view; the first failure is returned.
func (s *OrderTaking) Load(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		return s.load(ctx, func(ctx context.Context) (bool, error) {
			return s.tables.Load(ctx, s.backend.ListTables)
		})
	})
	g.Go(func() error {
		return s.load(ctx, func(ctx context.Context) (bool, error) {
			return s.categories.Load(ctx, s.backend.ListCategories)
		})
	})
	g.Go(func() error {
		return s.load(ctx, func(ctx context.Context) (bool, error) {
			return s.products.Load(ctx, s.backend.ListActiveProducts)
		})
	})
	return g.Wait()
}

func (s *OrderTaking) load(ctx context.Context, read func(context.Context) (bool, error)) error {
	applied, err := read(ctx)
	if !applied {
		return nil
	}
	s.metrics.ScreenRefreshed(s.Name(), err)
	s.notify()
	return err
}

func (s *OrderTaking) Dispatch(ctx context.Context, cmd Command) error {
	switch cmd.Type {
	case CmdSelectTable:
		return s.SelectTable(cmd.TableID)
	case CmdAddToCart:
		return s.AddToCart(cmd.ProductID)
	case CmdSubmit:
		return s.Submit(ctx)
	case CmdReload:
		// Read failures are shown on the views.
		_ = s.Load(ctx)
		return nil
	}
	return ErrUnknownCommand
}

// SelectTable makes id the active table. The cart is kept as it is.
func (s *OrderTaking) SelectTable(id uuid.UUID) error {
	tables, _ := s.tables.Get()
	for i := range tables {
		if tables[i].ID != id {
			continue
		}
		t := tables[i]
		s.mu.Lock()
		s.selected = &t
		s.notice, s.err = "", nil
		s.mu.Unlock()
		s.notify()
		return nil
	}
	return ErrUnknownTable
}

// AddToCart adds one unit of a product currently offered on the screen.
func (s *OrderTaking) AddToCart(id uuid.UUID) error {
	products, _ := s.products.Get()
	for i := range products {
		if products[i].ID != id {
			continue
		}
		s.mu.Lock()
		s.cart.Add(products[i])
		s.notice, s.err = "", nil
		s.mu.Unlock()
		s.notify()
		return nil
	}
	return ErrUnknownProduct
}

// Submit sends the cart to the kitchen for the selected table. With no
// table or an empty cart nothing changes. A failed submission leaves the
// cart and table in place and records the error.
func (s *OrderTaking) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.cart.Len() == 0 {
		s.mu.Unlock()
		return ErrCartEmpty
	}
	if s.selected == nil {
		s.mu.Unlock()
		return ErrNoTable
	}
	req := service.SubmitOrderRequest{TableID: s.selected.ID}
	for _, line := range s.cart.Lines() {
		req.Items = append(req.Items, service.SubmitOrderItem{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	s.mu.Unlock()

	order, err := s.orders.SubmitOrder(ctx, req)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.mu.Lock()
	if err != nil {
		s.notice, s.err = "", err
	} else {
		s.cart.Clear()
		s.lastOrder = &order.ID
		s.notice, s.err = SubmittedNotice, nil
	}
	s.mu.Unlock()
	s.notify()
	return err
}

func (s *OrderTaking) Snapshot() any {
	return s.State()
}

func (s *OrderTaking) State() OrderTakingState {
	out := OrderTakingState{
		Tables:     s.tables.State(),
		Categories: s.categories.State(),
		Products:   s.products.State(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected != nil {
		t := *s.selected
		out.SelectedTable = &t
	}
	out.Cart = s.cart.Lines()
	out.Total = s.cart.Total()
	out.LastOrderID = s.lastOrder
	out.Notice = s.notice
	if s.err != nil {
		out.Error = s.err.Error()
	}
	return out
}
