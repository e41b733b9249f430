// Package screen holds the server-side controllers behind each page. A
// screen lives exactly as long as the context it was mounted with.
package screen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/restify-pos/api/internal/backend"
	"github.com/restify-pos/api/internal/enum"
	"github.com/restify-pos/api/internal/metrics"
	"github.com/restify-pos/api/internal/service"
)

var (
	ErrUnknownScreen  = errors.New("unknown screen")
	ErrUnknownCommand = errors.New("unknown command")
	ErrReadOnly       = errors.New("screen is read-only")
	ErrUnknownTable   = errors.New("table is not on this screen")
	ErrUnknownProduct = errors.New("product is not on this screen")
	ErrNoTable        = errors.New("no table selected")
	ErrCartEmpty      = errors.New("cart is empty")
)

// Command types accepted by Dispatch.
const (
	CmdSelectTable = "select_table"
	CmdAddToCart   = "add_to_cart"
	CmdSubmit      = "submit"
	CmdMarkReady   = "mark_ready"
	CmdReload      = "reload"
)

// Command is a user action sent by the page.
type Command struct {
	Type      string    `json:"type"`
	TableID   uuid.UUID `json:"table_id"`
	ProductID uuid.UUID `json:"product_id"`
	OrderID   uuid.UUID `json:"order_id"`
}

// Screen is a mounted page controller. Dispatch is called from a single
// goroutine; Snapshot and Changed may be used concurrently with it.
type Screen interface {
	Name() string
	// Mount starts the screen's background reads. They stop when ctx ends.
	Mount(ctx context.Context)
	Dispatch(ctx context.Context, cmd Command) error
	Snapshot() any
	// Changed signals that Snapshot may return something new.
	Changed() <-chan struct{}
}

// Deps are the collaborators shared by all screens.
type Deps struct {
	Backend      backend.Client
	Orders       *service.OrderService
	Metrics      *metrics.Metrics
	PollInterval time.Duration
	BoardLimit   int32
}

// New builds the screen registered under name.
func New(name string, deps Deps) (Screen, error) {
	switch name {
	case enum.ScreenOrderTaking:
		return NewOrderTaking(deps), nil
	case enum.ScreenKitchen:
		return NewKitchen(deps), nil
	case enum.ScreenReadyBoard:
		return NewReadyBoard(deps), nil
	case enum.ScreenWaiter:
		return NewWaiter(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownScreen, name)
}

// IsNoop reports whether err only means the command had nothing to do,
// like submitting an empty cart. The screen state is unchanged.
func IsNoop(err error) bool {
	return errors.Is(err, ErrCartEmpty) || errors.Is(err, ErrNoTable)
}

// IsInputError reports whether err was caused by the command rather than
// the backend.
func IsInputError(err error) bool {
	for _, target := range []error{
		ErrUnknownCommand, ErrReadOnly, ErrUnknownTable, ErrUnknownProduct,
		ErrNoTable, ErrCartEmpty,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// notifier coalesces change notifications into a single pending signal.
type notifier struct {
	ch chan struct{}
}

func newNotifier() notifier {
	return notifier{ch: make(chan struct{}, 1)}
}

func (n notifier) notify() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

func (n notifier) Changed() <-chan struct{} { return n.ch }
