package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/polydash/internal/core"
)

// Alert kinds
const (
	KindConsensus = "consensus"
	KindRule      = "rule"
)

// Alert is one notification: a consensus announcement or a fired KPI rule
type Alert struct {
	Kind      string         `json:"kind"`
	Severity  string         `json:"severity,omitempty"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Market    string         `json:"market,omitempty"`
	Direction core.Direction `json:"direction,omitempty"`
	Wallets   int            `json:"wallets,omitempty"`
	Total     int            `json:"total,omitempty"`
	Level     string         `json:"level,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Text renders the alert as a short plain-text message
func (a Alert) Text() string {
	return fmt.Sprintf("%s\n%s\nTime: %s UTC", a.Title, a.Message, a.Timestamp.UTC().Format("2006-01-02 15:04:05"))
}

// Notifier delivers alerts to one channel
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Send delivers a single alert
	Send(ctx context.Context, alert Alert) error
}
