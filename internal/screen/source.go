package screen

import (
	"context"
	"sync"
	"time"

	"github.com/restify-pos/api/internal/feed"
)

// Source decides when a screen refreshes. Run calls refresh once on start
// and then once per trigger, sequentially, until ctx is done. A screen may
// also refresh on demand; View orders those reads against the source's.
type Source interface {
	Run(ctx context.Context, refresh func(context.Context)) error
}

// Subscriber is the change-feed half of backend.Client.
type Subscriber interface {
	Subscribe(ctx context.Context, table string) (*feed.Subscription, error)
}

// Push returns a Source triggered by change signals on table.
func Push(sub Subscriber, table string) Source {
	return pushSource{sub: sub, table: table}
}

type pushSource struct {
	sub   Subscriber
	table string
}

func (p pushSource) Run(ctx context.Context, refresh func(context.Context)) error {
	// Subscribe before the first read so a change landing in between still
	// triggers a refresh.
	s, err := p.sub.Subscribe(ctx, p.table)
	if err != nil {
		return err
	}
	defer s.Close()

	refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-s.C():
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return feed.ErrClosed
			}
			refresh(ctx)
		}
	}
}

// Poll returns a Source triggered every interval.
func Poll(interval time.Duration) Source {
	return pollSource{interval: interval}
}

type pollSource struct {
	interval time.Duration
}

func (p pollSource) Run(ctx context.Context, refresh func(context.Context)) error {
	refresh(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			refresh(ctx)
		}
	}
}

// Loaded is the JSON form of a View.
type Loaded[T any] struct {
	Data     T          `json:"data"`
	Error    string     `json:"error,omitempty"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
}

// View holds the last result of a screen read. A failed read keeps the
// previous data and records the error next to it. Reads may overlap; a read
// that started before the last applied one is dropped when it finishes.
type View[T any] struct {
	mu       sync.RWMutex
	data     T
	err      error
	loadedAt time.Time
	started  uint64
	applied  uint64
}

// Load runs fetch and applies its result unless ctx ended meanwhile or a
// newer read was applied first. It reports whether the result was applied.
func (v *View[T]) Load(ctx context.Context, fetch func(context.Context) (T, error)) (bool, error) {
	v.mu.Lock()
	v.started++
	seq := v.started
	v.mu.Unlock()

	data, err := fetch(ctx)
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if seq < v.applied {
		return false, err
	}
	v.applied = seq
	v.err = err
	if err == nil {
		v.data = data
		v.loadedAt = time.Now()
	}
	return true, err
}

// Get returns the current data and the error of the last read.
func (v *View[T]) Get() (T, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.data, v.err
}

func (v *View[T]) State() Loaded[T] {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := Loaded[T]{Data: v.data}
	if v.err != nil {
		out.Error = v.err.Error()
	}
	if !v.loadedAt.IsZero() {
		at := v.loadedAt
		out.LoadedAt = &at
	}
	return out
}
