package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/restify-pos/api/internal/backend"
	"github.com/restify-pos/api/internal/config"
	"github.com/restify-pos/api/internal/handler"
	"github.com/restify-pos/api/internal/metrics"
	mw "github.com/restify-pos/api/internal/middleware"
	"github.com/restify-pos/api/internal/screen"
	"github.com/restify-pos/api/internal/service"
	"github.com/restify-pos/api/internal/web"
	"github.com/restify-pos/api/internal/ws"
)

// Version is reported by /health. Set at build time.
var Version = "dev"

// New creates a Chi router with the pages, screen sockets, REST API,
// health and metrics endpoints wired to client.
func New(cfg *config.Config, client backend.Client, m *metrics.Metrics) (chi.Router, error) {
	pages, err := web.New(cfg.APIKey)
	if err != nil {
		return nil, err
	}

	orders := service.NewOrderService(client, m)
	deps := screen.Deps{
		Backend:      client,
		Orders:       orders,
		Metrics:      m,
		PollInterval: cfg.ReadyPollInterval,
		BoardLimit:   int32(cfg.ReadyBoardLimit),
	}
	screens := ws.NewServer(func(name string) (screen.Screen, error) {
		return screen.New(name, deps)
	}, m, cfg.AllowedOrigins)

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "apikey"},
		MaxAge:         300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"` + Version + `"}`))
	})
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}
	r.Handle("/static/*", web.Static())

	// Pages. Anything unrecognised falls back to the order-taking screen.
	for _, path := range []string{screen.PathOrderTaking, screen.PathKitchen, screen.PathReadyBoard, screen.PathWaiter} {
		r.Get(path, pages.ServeHTTP)
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/ws/") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"not found"}`))
			return
		}
		pages.ServeHTTP(w, r)
	})

	// Key-protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAPIKey(cfg.APIKey))

		r.Get("/ws/screens/{screen}", screens.ServeScreen)

		r.Route("/api", func(r chi.Router) {
			handler.NewCatalogHandler(client).RegisterRoutes(r)

			orderHandler := handler.NewOrderHandler(orders, client)
			r.Route("/orders", orderHandler.RegisterRoutes)
		})
	})

	return r, nil
}
