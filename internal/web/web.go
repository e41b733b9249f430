// Package web serves the page shells. Each page only connects its screen's
// WebSocket and renders the snapshots it receives.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/restify-pos/api/internal/enum"
	"github.com/restify-pos/api/internal/screen"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var titles = map[string]string{
	enum.ScreenOrderTaking: "Restify Iván - POS",
	enum.ScreenKitchen:     "Cocina - Pedidos Nuevos",
	enum.ScreenReadyBoard:  "¡Pedidos Listos!",
	enum.ScreenWaiter:      "Panel Mesero",
}

type pageData struct {
	Screen string
	Title  string
	APIKey string
}

// Pages renders the shell of whichever screen the request path resolves to.
type Pages struct {
	tmpl   *template.Template
	apiKey string
}

// New parses the embedded templates. apiKey is handed to the page so its
// WebSocket can pass the key check.
func New(apiKey string) (*Pages, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Pages{tmpl: tmpl, apiKey: apiKey}, nil
}

func (p *Pages) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := screen.Resolve(r.URL.Path)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := p.tmpl.ExecuteTemplate(w, "page.html", pageData{
		Screen: name,
		Title:  titles[name],
		APIKey: p.apiKey,
	})
	if err != nil {
		slog.Error("render page", "screen", name, "error", err)
	}
}

// Static serves the page script and stylesheet under /static/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
