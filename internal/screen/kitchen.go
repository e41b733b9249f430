package screen

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/restify-pos/api/internal/backend"
	"github.com/restify-pos/api/internal/database"
	"github.com/restify-pos/api/internal/enum"
	"github.com/restify-pos/api/internal/metrics"
	"github.com/restify-pos/api/internal/service"
)

// KitchenState is the snapshot of the kitchen screen.
type KitchenState struct {
	Orders Loaded[[]database.Order] `json:"orders"`
	Error  string                   `json:"error,omitempty"`
}

// Kitchen lists new orders oldest first and refreshes on every change to
// the orders table.
type Kitchen struct {
	notifier
	backend backend.Client
	orders  *service.OrderService
	metrics *metrics.Metrics
	source  Source

	list View[[]database.Order]

	mu  sync.Mutex
	err error
}

func NewKitchen(deps Deps) *Kitchen {
	return &Kitchen{
		notifier: newNotifier(),
		backend:  deps.Backend,
		orders:   deps.Orders,
		metrics:  deps.Metrics,
		source:   Push(deps.Backend, enum.TableOrders),
	}
}

func (s *Kitchen) Name() string { return enum.ScreenKitchen }

func (s *Kitchen) Mount(ctx context.Context) {
	go func() {
		if err := s.source.Run(ctx, s.Refresh); err != nil && ctx.Err() == nil {
			slog.Warn("kitchen change feed stopped", "error", err)
			s.setErr(err)
		}
	}()
}

// Refresh reloads the new orders.
func (s *Kitchen) Refresh(ctx context.Context) {
	applied, err := s.list.Load(ctx, func(ctx context.Context) ([]database.Order, error) {
		return s.backend.ListOrders(ctx, database.ListOrdersParams{
			Status: enum.OrderStatusNew,
			Sort:   enum.SortCreatedAsc,
		})
	})
	if !applied {
		return
	}
	s.metrics.ScreenRefreshed(s.Name(), err)
	s.notify()
}

func (s *Kitchen) Dispatch(ctx context.Context, cmd Command) error {
	switch cmd.Type {
	case CmdMarkReady:
		return s.MarkReady(ctx, cmd.OrderID)
	case CmdReload:
		s.Refresh(ctx)
		return nil
	}
	return ErrUnknownCommand
}

// MarkReady moves an order to ready. The list itself refreshes from the
// change feed.
func (s *Kitchen) MarkReady(ctx context.Context, id uuid.UUID) error {
	_, err := s.orders.MarkReady(ctx, id)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.setErr(err)
	return err
}

func (s *Kitchen) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.notify()
}

func (s *Kitchen) Snapshot() any {
	return s.State()
}

func (s *Kitchen) State() KitchenState {
	out := KitchenState{Orders: s.list.State()}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		out.Error = s.err.Error()
	}
	return out
}
