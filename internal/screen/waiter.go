package screen

import (
	"context"

	"github.com/restify-pos/api/internal/enum"
)

// WaiterState is the static content of the waiter panel.
type WaiterState struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Waiter is a placeholder panel with no data and no commands.
type Waiter struct {
	notifier
}

func NewWaiter() *Waiter {
	return &Waiter{notifier: newNotifier()}
}

func (s *Waiter) Name() string { return enum.ScreenWaiter }

func (s *Waiter) Mount(context.Context) {}

func (s *Waiter) Dispatch(context.Context, Command) error {
	return ErrReadOnly
}

func (s *Waiter) Snapshot() any {
	return WaiterState{
		Title:   "Panel Mesero",
		Message: "Aquí vas por mesas y tomas pedidos rápidos.",
	}
}
