package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/restify-pos/api/internal/database"
	"github.com/restify-pos/api/internal/enum"
	"github.com/restify-pos/api/internal/feed"
)

// OpResync is published after the listener reconnects: notifications sent
// while it was down are lost, so subscribers must refetch.
const OpResync = "RESYNC"

var resyncTables = []string{enum.TableTables, enum.TableCategories, enum.TableProducts, enum.TableOrders}

// notifyConn is the slice of a database connection the listener needs.
type notifyConn interface {
	Listen(ctx context.Context, channel string) error
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Release()
}

// Listener holds one pooled connection on LISTEN and republishes every
// notification into a feed.Hub.
type Listener struct {
	hub     *feed.Hub
	channel string

	connect    func(ctx context.Context) (notifyConn, error)
	newBackOff func() *backoff.ExponentialBackOff
	onRetry    func(err error, wait time.Duration)
}

func NewListener(pool *pgxpool.Pool, hub *feed.Hub) *Listener {
	return &Listener{
		hub:     hub,
		channel: database.ChangeChannel,
		connect: func(ctx context.Context) (notifyConn, error) {
			conn, err := pool.Acquire(ctx)
			if err != nil {
				return nil, err
			}
			return pooledConn{conn}, nil
		},
		newBackOff: func() *backoff.ExponentialBackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
		onRetry: func(err error, wait time.Duration) {
			slog.Warn("change-feed listener disconnected", "error", err, "retry_in", wait)
		},
	}
}

// Run listens until ctx is done, reconnecting with exponential backoff when
// the connection drops. The backoff starts over after every successful LISTEN.
func (l *Listener) Run(ctx context.Context) error {
	b := l.newBackOff()
	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := l.listen(ctx, attempt > 1, b.Reset)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}, backoff.WithContext(b, ctx), l.onRetry)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (l *Listener) listen(ctx context.Context, reconnect bool, listening func()) error {
	conn, err := l.connect(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen conn: %w", err)
	}
	defer conn.Release()

	if err := conn.Listen(ctx, l.channel); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	slog.Info("change-feed listening", "channel", l.channel)
	listening()

	if reconnect {
		for _, table := range resyncTables {
			l.hub.Publish(feed.Change{Table: table, Op: OpResync})
		}
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		change, err := decodeNotification(n.Payload)
		if err != nil {
			slog.Warn("ignoring malformed change notification", "payload", n.Payload, "error", err)
			continue
		}
		l.hub.Publish(change)
	}
}

type pooledConn struct {
	conn *pgxpool.Conn
}

func (c pooledConn) Listen(ctx context.Context, channel string) error {
	_, err := c.conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize())
	return err
}

func (c pooledConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	return c.conn.Conn().WaitForNotification(ctx)
}

// Release unlistens and returns the connection. A dead connection is
// dropped by the pool on release.
func (c pooledConn) Release() {
	_, _ = c.conn.Exec(context.Background(), "UNLISTEN *")
	c.conn.Release()
}

func decodeNotification(payload string) (feed.Change, error) {
	var msg struct {
		Table string `json:"table"`
		Op    string `json:"op"`
	}
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return feed.Change{}, err
	}
	if msg.Table == "" {
		return feed.Change{}, fmt.Errorf("missing table")
	}
	return feed.Change{Table: msg.Table, Op: msg.Op, At: time.Now()}, nil
}
