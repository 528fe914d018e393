package dashboard

import (
	"github.com/newthinker/polydash/internal/band"
	"github.com/newthinker/polydash/internal/core"
	"github.com/newthinker/polydash/internal/poller"
	"github.com/newthinker/polydash/internal/ticker"
)

// SettingsPage shows the connection settings and bot information
type SettingsPage struct {
	c        *poller.Controller
	settings Settings
	status   *poller.Slot[core.Status]
}

func NewSettings(d Deps) *SettingsPage {
	c := d.controller(PageSettings)
	s := d.Settings
	if s.PollInterval == 0 {
		s.PollInterval = d.Interval
	}
	return &SettingsPage{
		c:        c,
		settings: s,
		status:   poller.Bind(c, "status", d.Source.Status),
	}
}

func (s *SettingsPage) Name() string                   { return PageSettings }
func (s *SettingsPage) Controller() *poller.Controller { return s.c }
func (s *SettingsPage) Model() any                     { return s.Build() }

type SettingsModel struct {
	APIURL       string      `json:"api_url"`
	APIKeySet    bool        `json:"api_key_set"`
	PollInterval string      `json:"poll_interval"`
	Status       core.Status `json:"status"`
	Uptime       string      `json:"uptime"`
	Resource     Resource    `json:"resource"`
}

func (s *SettingsPage) Build() SettingsModel {
	status := s.status.Snapshot()
	return SettingsModel{
		APIURL:       s.settings.APIURL,
		APIKeySet:    s.settings.APIKeySet,
		PollInterval: s.settings.PollInterval.String(),
		Status:       status.Data,
		Uptime:       band.FormatUptime(status.Data.UptimeSeconds),
		Resource:     resourceOf(status, one(status)),
	}
}

// Header is the status strip shown on every page
type Header struct {
	c      *poller.Controller
	status *poller.Slot[core.Status]
	price  *poller.Slot[ticker.Quote]
}

func NewHeader(d Deps) *Header {
	c := d.controller(PageHeader)
	h := &Header{c: c, status: poller.Bind(c, "status", d.Source.Status)}
	if d.Ticker != nil {
		h.price = poller.Bind(c, "ticker", d.Ticker.Price)
	}
	return h
}

func (h *Header) Name() string                   { return PageHeader }
func (h *Header) Controller() *poller.Controller { return h.c }
func (h *Header) Model() any                     { return h.Build() }

type HeaderModel struct {
	BotRunning bool          `json:"bot_running"`
	Version    string        `json:"version"`
	Uptime     string        `json:"uptime"`
	Price      *ticker.Quote `json:"price,omitempty"`
	PriceStale bool          `json:"price_stale"`
	Status     Resource      `json:"status"`
}

func (h *Header) Build() HeaderModel {
	status := h.status.Snapshot()
	m := HeaderModel{
		BotRunning: status.Data.BotRunning,
		Version:    status.Data.Version,
		Uptime:     band.FormatUptime(status.Data.UptimeSeconds),
		Status:     resourceOf(status, one(status)),
	}
	if h.price != nil {
		if p := h.price.Snapshot(); p.Loaded {
			q := p.Data
			m.Price = &q
			m.PriceStale = p.Stale
		}
	}
	return m
}
