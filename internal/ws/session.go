// Package ws serves mounted screens over WebSocket connections. One
// connection drives exactly one screen for its whole lifetime.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/restify-pos/api/internal/metrics"
	"github.com/restify-pos/api/internal/screen"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum command size allowed from peer
	maxMessageSize = 1024

	sendBuffer = 16
)

// Frame types written to the page.
const (
	FrameState = "state"
	FrameError = "error"
)

// Frame is a message written to the page.
type Frame struct {
	Type    string `json:"type"`
	Screen  string `json:"screen"`
	Payload any    `json:"payload"`
}

// ErrorPayload carries a failed command's error.
type ErrorPayload struct {
	Error string `json:"error"`
}

// Factory builds a fresh screen for a connection.
type Factory func(name string) (screen.Screen, error)

// Server upgrades screen requests and runs their sessions.
type Server struct {
	factory  Factory
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
}

// NewServer returns a Server accepting same-origin pages and the browser
// origins in allowedOrigins. An empty list or "*" accepts any origin.
func NewServer(factory Factory, m *metrics.Metrics, allowedOrigins []string) *Server {
	return &Server{
		factory: factory,
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// ServeScreen handles WS /ws/screens/{screen}. It blocks until the
// connection closes; the screen is torn down before it returns.
func (s *Server) ServeScreen(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "screen")
	scr, err := s.factory(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "screen", name, "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := &session{
		conn:   conn,
		screen: scr,
		send:   make(chan Frame, sendBuffer),
	}

	s.metrics.ScreenMounted(name)
	defer s.metrics.ScreenUnmounted(name)
	slog.Debug("screen mounted", "screen", name, "remote", r.RemoteAddr)

	scr.Mount(ctx)
	go func() {
		sess.readPump(ctx)
		cancel()
	}()
	sess.writePump(ctx)
	slog.Debug("screen unmounted", "screen", name, "remote", r.RemoteAddr)
}

// session couples one connection to one mounted screen.
type session struct {
	conn   *websocket.Conn
	screen screen.Screen
	send   chan Frame
}

// readPump decodes commands and dispatches them to the screen, in order.
func (c *session) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read failed", "screen", c.screen.Name(), "error", err)
			}
			return
		}

		var cmd screen.Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.fail(errors.New("invalid command"))
			continue
		}
		if err := c.screen.Dispatch(ctx, cmd); err != nil {
			if ctx.Err() != nil {
				return
			}
			if screen.IsNoop(err) {
				continue
			}
			if screen.IsInputError(err) {
				slog.Debug("command rejected", "screen", c.screen.Name(), "command", cmd.Type, "error", err)
			} else {
				slog.Error("command failed", "screen", c.screen.Name(), "command", cmd.Type, "error", err)
			}
			c.fail(err)
		}
	}
}

// fail queues an error frame, dropping it if the writer is backed up.
func (c *session) fail(err error) {
	select {
	case c.send <- Frame{Type: FrameError, Screen: c.screen.Name(), Payload: ErrorPayload{Error: err.Error()}}:
	default:
	}
}

// writePump writes a state frame on mount and after every change signal,
// error frames as they are queued, and pings.
func (c *session) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	if err := c.write(c.state()); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-c.screen.Changed():
			if err := c.write(c.state()); err != nil {
				return
			}

		case frame := <-c.send:
			if err := c.write(frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *session) state() Frame {
	return Frame{Type: FrameState, Screen: c.screen.Name(), Payload: c.screen.Snapshot()}
}

func (c *session) write(frame Frame) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(frame)
}
