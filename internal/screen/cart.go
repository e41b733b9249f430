package screen

import (
	"github.com/restify-pos/api/internal/database"
	"github.com/restify-pos/api/internal/service"
	"github.com/shopspring/decimal"
)

// Cart is the in-progress selection of one order-taking screen. It is not
// safe for concurrent use; the owning screen serialises access.
type Cart struct {
	lines []database.OrderItem
}

// Add puts one unit of p in the cart, incrementing its line if present.
func (c *Cart) Add(p database.Product) {
	for i := range c.lines {
		if c.lines[i].ProductID == p.ID {
			c.lines[i].Quantity++
			return
		}
	}
	c.lines = append(c.lines, database.OrderItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  1,
	})
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []database.OrderItem {
	out := make([]database.OrderItem, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int { return len(c.lines) }

// Total is recomputed from the lines on every call.
func (c *Cart) Total() decimal.Decimal {
	return service.Total(c.lines)
}

func (c *Cart) Clear() { c.lines = nil }
