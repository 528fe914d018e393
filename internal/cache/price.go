// internal/cache/price.go
package cache

import (
	"context"

	"github.com/newthinker/polydash/internal/ticker"
)

// PriceSource is the exchange ticker read by the header
type PriceSource interface {
	Symbol() string
	Price(ctx context.Context) (ticker.Quote, error)
}

type price struct {
	next  PriceSource
	group *Group
}

// NewPriceSource coalesces ticker reads the same way NewSource does.
func NewPriceSource(next PriceSource, g *Group) PriceSource {
	return &price{next: next, group: g}
}

func (p *price) Symbol() string {
	return p.next.Symbol()
}

func (p *price) Price(ctx context.Context) (ticker.Quote, error) {
	return Fetch(ctx, p.group, "ticker/"+p.next.Symbol(), p.next.Price)
}
