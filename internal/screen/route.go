package screen

import "github.com/restify-pos/api/internal/enum"

// Paths of the page routes.
const (
	PathOrderTaking = "/"
	PathKitchen     = "/cocina"
	PathReadyBoard  = "/clientes"
	PathWaiter      = "/mesero"
)

// Resolve maps a location path to a screen name. Matching is exact and any
// unrecognised path shows the order-taking screen.
func Resolve(path string) string {
	switch path {
	case PathKitchen:
		return enum.ScreenKitchen
	case PathReadyBoard:
		return enum.ScreenReadyBoard
	case PathWaiter:
		return enum.ScreenWaiter
	}
	return enum.ScreenOrderTaking
}
