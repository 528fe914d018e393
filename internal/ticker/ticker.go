package ticker

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/newthinker/polydash/internal/core"
)

const (
	defaultBaseURL = "https://api.binance.com"
	defaultSymbol  = "BTCUSDT"
)

// Quote is the last traded spot price of a symbol
type Quote struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Time   time.Time `json:"time"`
}

// Config selects the exchange endpoint and symbol
type Config struct {
	BaseURL string
	Symbol  string
	Timeout time.Duration
}

// Binance reads spot prices from the public Binance REST API
type Binance struct {
	client *binance.Client
	symbol string
	now    func() time.Time
}

// New creates a Binance price source. No credentials are needed.
func New(cfg Config) *Binance {
	c := binance.NewClient("", "")
	c.BaseURL = defaultBaseURL
	if cfg.BaseURL != "" {
		c.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c.HTTPClient = &http.Client{Timeout: timeout}

	symbol := strings.ToUpper(cfg.Symbol)
	if symbol == "" {
		symbol = defaultSymbol
	}
	return &Binance{client: c, symbol: symbol, now: time.Now}
}

func (b *Binance) Name() string {
	return "binance"
}

func (b *Binance) Symbol() string {
	return b.symbol
}

// Price fetches the latest price of the configured symbol.
func (b *Binance) Price(ctx context.Context) (Quote, error) {
	prices, err := b.client.NewListPricesService().Symbol(b.symbol).Do(ctx)
	if err != nil {
		return Quote{}, core.WrapError(core.ErrTransport, fmt.Errorf("binance %s: %w", b.symbol, err))
	}

	for _, p := range prices {
		if p == nil || p.Symbol != b.symbol {
			continue
		}
		price, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			return Quote{}, core.WrapError(core.ErrDecode, fmt.Errorf("binance price %q: %w", p.Price, err))
		}
		return Quote{Symbol: b.symbol, Price: price, Time: b.now().UTC()}, nil
	}
	return Quote{}, core.WrapError(core.ErrNoData, fmt.Errorf("binance returned no price for %s", b.symbol))
}
