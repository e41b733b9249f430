//go:build integration

package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/restify-pos/api/internal/backend"
	"github.com/restify-pos/api/internal/config"
	"github.com/restify-pos/api/internal/database"
	"github.com/restify-pos/api/internal/enum"
	"github.com/restify-pos/api/internal/feed"
	"github.com/restify-pos/api/internal/metrics"
	"github.com/restify-pos/api/internal/router"
	"github.com/restify-pos/api/internal/seed"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestIntegrationFlow runs the full stack against PostgreSQL: migrations,
// seed, REST lifecycle, and a kitchen screen refreshed by NOTIFY.
func TestIntegrationFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connStr := setupPostgresContainer(t, ctx)

	if err := database.Migrate(connStr); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// A second run is a no-op.
	if err := database.Migrate(connStr); err != nil {
		t.Fatalf("migrate again: %v", err)
	}

	pool, err := backend.Connect(ctx, connStr)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	fx, err := seed.Default()
	if err != nil {
		t.Fatalf("default fixture: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := seed.ApplyPostgres(ctx, pool, fx); err != nil {
			t.Fatalf("seed run %d: %v", i, err)
		}
	}

	hub := feed.NewHub()
	go hub.Run(ctx)
	listener := backend.NewListener(pool, hub)
	go listener.Run(ctx)
	client := backend.NewPostgres(pool, hub)

	cfg := &config.Config{ReadyPollInterval: time.Second, ReadyBoardLimit: config.MaxReadyBoardLimit}
	r, err := router.New(cfg, client, metrics.New())
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	server := httptest.NewServer(r)
	defer server.Close()

	// --- Catalog ---
	var tables []map[string]interface{}
	getJSON(t, server.URL+"/api/tables", &tables)
	if len(tables) != 10 {
		t.Fatalf("tables: got %d, want 10 (seed must be idempotent)", len(tables))
	}
	var products []map[string]interface{}
	getJSON(t, server.URL+"/api/products", &products)
	var tacoID string
	for _, p := range products {
		if p["name"] == "Pozole" {
			t.Fatal("inactive product listed")
		}
		if p["name"] == "Taco al pastor" {
			tacoID = p["id"].(string)
		}
	}
	if tacoID == "" {
		t.Fatal("taco not found in products")
	}

	// --- Kitchen screen ---
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/screens/" + enum.ScreenKitchen
	kitchen, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial kitchen: %v", err)
	}
	defer kitchen.Close()
	waitFrame(t, kitchen, `"loaded_at"`)

	// --- Submit ---
	body, _ := json.Marshal(map[string]interface{}{
		"table_id": tables[4]["id"],
		"items":    []map[string]interface{}{{"product_id": tacoID, "quantity": 2}},
	})
	resp, err := http.Post(server.URL+"/api/orders", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	var order map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&order)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create order: status %d, body %v", resp.StatusCode, order)
	}
	if order["total"] != "50.00" || order["table_number"].(float64) != 5 {
		t.Fatalf("order: got %v", order)
	}
	orderID := order["id"].(string)

	// The NOTIFY trigger reaches the kitchen without any reload.
	waitFrame(t, kitchen, orderID)

	// --- Mark ready ---
	resp, err = http.Post(server.URL+"/api/orders/"+orderID+"/ready", "application/json", nil)
	if err != nil {
		t.Fatalf("mark ready: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark ready: status %d", resp.StatusCode)
	}
	resp, err = http.Post(server.URL+"/api/orders/"+orderID+"/ready", "application/json", nil)
	if err != nil {
		t.Fatalf("mark ready again: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("mark ready again: status %d, want 409", resp.StatusCode)
	}

	var ready []map[string]interface{}
	getJSON(t, server.URL+"/api/orders?status=ready&sort=updated_desc&limit=10", &ready)
	if len(ready) != 1 || ready[0]["id"] != orderID {
		t.Fatalf("ready board: got %v", ready)
	}

	// --- Listener reconnect ---
	resync, err := hub.Subscribe(ctx, enum.TableOrders)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer resync.Close()

	oldPID := listenerPID(t, ctx, pool, 0)
	if _, err := pool.Exec(ctx, `SELECT pg_terminate_backend($1)`, oldPID); err != nil {
		t.Fatalf("terminate listener: %v", err)
	}
	listenerPID(t, ctx, pool, oldPID)
	waitChange(t, resync, backend.OpResync)

	body, _ = json.Marshal(map[string]interface{}{
		"table_id": tables[0]["id"],
		"items":    []map[string]interface{}{{"product_id": tacoID, "quantity": 1}},
	})
	resp, err = http.Post(server.URL+"/api/orders", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("create order after reconnect: %v", err)
	}
	var second map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&second)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create order after reconnect: status %d", resp.StatusCode)
	}
	// Notifications flow again on the new connection.
	waitFrame(t, kitchen, second["id"].(string))

	// The trigger refuses to move an order back.
	if _, err := pool.Exec(ctx, `UPDATE orders SET status = 'new' WHERE id = $1`, orderID); err == nil {
		t.Fatal("expected trigger to reject ready -> new")
	}
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) string {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("pos_test"),
		tcpostgres.WithUsername("pos"),
		tcpostgres.WithPassword("pos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}
	return connStr
}

func getJSON(t *testing.T, url string, v interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("GET %s: decode: %v", url, err)
	}
}

// listenerPID waits for a backend sitting on LISTEN whose pid is not
// exclude and returns it.
func listenerPID(t *testing.T, ctx context.Context, pool *pgxpool.Pool, exclude int32) int32 {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		var pid int32
		err := pool.QueryRow(ctx,
			`SELECT pid FROM pg_stat_activity WHERE query LIKE 'LISTEN %' AND pid <> pg_backend_pid() AND pid <> $1 LIMIT 1`,
			exclude).Scan(&pid)
		if err == nil {
			return pid
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("no listening connection")
	return 0
}

func waitChange(t *testing.T, sub *feed.Subscription, op string) {
	t.Helper()
	timeout := time.After(30 * time.Second)
	for {
		select {
		case c, ok := <-sub.C():
			if !ok {
				t.Fatal("subscription closed")
			}
			if c.Op == op {
				return
			}
		case <-timeout:
			t.Fatalf("no %s change", op)
		}
	}
}

// waitFrame reads frames until one contains want.
func waitFrame(t *testing.T, conn *websocket.Conn, want string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read frame waiting for %q: %v", want, err)
		}
		if strings.Contains(string(msg), want) {
			return
		}
	}
	t.Fatalf("no frame contained %q", want)
}
