// Package dashboard assembles the pages of the dashboard. Each page is a
// polling controller with typed slots plus a model builder that runs the
// signal pipeline and the derived bands over the latest snapshots.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/newthinker/polydash/internal/client"
	"github.com/newthinker/polydash/internal/poller"
	"github.com/newthinker/polydash/internal/ticker"
	"go.uber.org/zap"
)

// Page names
const (
	PageOverview = "overview"
	PageSignals  = "signals"
	PageWallets  = "wallets"
	PageSettings = "settings"
	PageHeader   = "header"
)

// PriceSource provides the BTC spot price shown in the header
type PriceSource interface {
	Price(ctx context.Context) (ticker.Quote, error)
}

// Settings echoes the connection configuration on the settings page
type Settings struct {
	APIURL       string
	APIKeySet    bool
	PollInterval time.Duration
}

// Deps are shared by every page
type Deps struct {
	Source       client.Source
	Ticker       PriceSource
	Interval     time.Duration
	SignalsLimit int
	Settings     Settings
	Logger       *zap.Logger
	Recorder     poller.Recorder
}

func (d Deps) controller(name string) *poller.Controller {
	opts := []poller.Option{}
	if d.Logger != nil {
		opts = append(opts, poller.WithLogger(d.Logger))
	}
	if d.Recorder != nil {
		opts = append(opts, poller.WithRecorder(d.Recorder))
	}
	return poller.New(name, d.Interval, opts...)
}

// View is one polled page
type View interface {
	Name() string
	Controller() *poller.Controller
	// Model builds the page model from the current snapshots
	Model() any
}

// Querier is implemented by views whose fetch parameters can change while live
type Querier interface {
	SetQuery(ctx context.Context, values url.Values) error
}

// New builds the named page. values carries page parameters such as the
// signals filters.
func New(page string, deps Deps, values url.Values) (View, error) {
	switch page {
	case PageOverview:
		return NewOverview(deps), nil
	case PageSignals:
		return NewSignals(deps, ParseSignalsParams(values)), nil
	case PageWallets:
		return NewWallets(deps), nil
	case PageSettings:
		return NewSettings(deps), nil
	case PageHeader:
		return NewHeader(deps), nil
	default:
		return nil, fmt.Errorf("unknown page %q", page)
	}
}

// Load runs one refresh cycle and returns the fresh model.
func Load(ctx context.Context, v View) (any, error) {
	if err := v.Controller().RefreshNow(ctx); err != nil {
		return nil, err
	}
	return v.Model(), nil
}

// Resource is the render state of one slot
type Resource struct {
	State     poller.State `json:"state"`
	Stale     bool         `json:"stale"`
	Error     string       `json:"error,omitempty"`
	AuthError bool         `json:"auth_error,omitempty"`
	UpdatedAt *time.Time   `json:"updated_at,omitempty"`
}

// Loading, Empty and Failed are used by templates to pick a placeholder
func (r Resource) Loading() bool { return r.State == poller.StateLoading }
func (r Resource) Empty() bool   { return r.State == poller.StateEmpty }
func (r Resource) Failed() bool  { return r.State == poller.StateFailed }

func resourceOf[T any](snap poller.Snapshot[T], n int) Resource {
	r := Resource{State: snap.State(n), Stale: snap.Stale}
	if snap.Err != nil {
		r.Error = snap.Err.Error()
		var apiErr *client.APIError
		r.AuthError = errors.As(snap.Err, &apiErr) && apiErr.IsAuth()
	}
	if !snap.UpdatedAt.IsZero() {
		at := snap.UpdatedAt.UTC()
		r.UpdatedAt = &at
	}
	return r
}

// one counts a non-slice resource as a single item once loaded
func one[T any](snap poller.Snapshot[T]) int {
	if snap.Loaded {
		return 1
	}
	return 0
}
