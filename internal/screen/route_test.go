package screen

import (
	"context"
	"testing"

	"github.com/restify-pos/api/internal/enum"
	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", enum.ScreenOrderTaking},
		{"/cocina", enum.ScreenKitchen},
		{"/clientes", enum.ScreenReadyBoard},
		{"/mesero", enum.ScreenWaiter},
		{"/cocina/", enum.ScreenOrderTaking},
		{"/Cocina", enum.ScreenOrderTaking},
		{"/admin", enum.ScreenOrderTaking},
		{"", enum.ScreenOrderTaking},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.want, Resolve(tc.path))
		})
	}
}

func TestNew(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{enum.ScreenOrderTaking, enum.ScreenKitchen, enum.ScreenReadyBoard, enum.ScreenWaiter} {
		s, err := New(name, f.deps)
		if assert.NoError(t, err, name) {
			assert.Equal(t, name, s.Name())
		}
	}

	_, err := New("admin", f.deps)
	assert.ErrorIs(t, err, ErrUnknownScreen)
}

func TestWaiter_ReadOnly(t *testing.T) {
	w := NewWaiter()
	assert.ErrorIs(t, w.Dispatch(context.Background(), Command{Type: CmdSubmit}), ErrReadOnly)
	state, ok := w.Snapshot().(WaiterState)
	if assert.True(t, ok) {
		assert.Equal(t, "Panel Mesero", state.Title)
	}
}
