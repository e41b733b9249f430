package screen

import (
	"context"
	"time"

	"github.com/restify-pos/api/internal/backend"
	"github.com/restify-pos/api/internal/database"
	"github.com/restify-pos/api/internal/enum"
	"github.com/restify-pos/api/internal/metrics"
)

// Ready-board defaults.
const (
	DefaultPollInterval = 10 * time.Second
	MaxBoardLimit       = 10
)

// ReadyBoardState is the snapshot of the customer-facing ready board.
type ReadyBoardState struct {
	Orders Loaded[[]database.Order] `json:"orders"`
}

// ReadyBoard shows the most recently readied orders and re-reads them on a
// fixed interval. It accepts no commands.
type ReadyBoard struct {
	notifier
	backend backend.Client
	metrics *metrics.Metrics
	source  Source
	limit   int32

	list View[[]database.Order]
}

func NewReadyBoard(deps Deps) *ReadyBoard {
	interval := deps.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	limit := deps.BoardLimit
	if limit <= 0 || limit > MaxBoardLimit {
		limit = MaxBoardLimit
	}
	return &ReadyBoard{
		notifier: newNotifier(),
		backend:  deps.Backend,
		metrics:  deps.Metrics,
		source:   Poll(interval),
		limit:    limit,
	}
}

func (s *ReadyBoard) Name() string { return enum.ScreenReadyBoard }

func (s *ReadyBoard) Mount(ctx context.Context) {
	go func() { _ = s.source.Run(ctx, s.Refresh) }()
}

// Refresh reloads the ready orders, newest update first.
func (s *ReadyBoard) Refresh(ctx context.Context) {
	applied, err := s.list.Load(ctx, func(ctx context.Context) ([]database.Order, error) {
		return s.backend.ListOrders(ctx, database.ListOrdersParams{
			Status: enum.OrderStatusReady,
			Sort:   enum.SortUpdatedDesc,
			Limit:  s.limit,
		})
	})
	if !applied {
		return
	}
	s.metrics.ScreenRefreshed(s.Name(), err)
	s.notify()
}

func (s *ReadyBoard) Dispatch(context.Context, Command) error {
	return ErrReadOnly
}

func (s *ReadyBoard) Snapshot() any {
	return s.State()
}

func (s *ReadyBoard) State() ReadyBoardState {
	return ReadyBoardState{Orders: s.list.State()}
}
