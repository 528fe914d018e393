// internal/storage/alertlog/interface.go

// Package alertlog keeps the history of consensus alerts sent by the dashboard.
package alertlog

import (
	"context"
	"time"

	"github.com/newthinker/polydash/internal/core"
	"github.com/newthinker/polydash/internal/notifier"
)

// Record is one announced consensus event and its delivery outcome.
type Record struct {
	ID     string            `json:"id"`
	Alert  notifier.Alert    `json:"alert"`
	SentAt time.Time         `json:"sent_at"`
	Failed map[string]string `json:"failed,omitempty"`
}

// Delivered reports whether at least one notifier accepted the alert.
func (r Record) Delivered(notifiers int) bool {
	return len(r.Failed) < notifiers
}

// Store defines the interface for alert persistence.
type Store interface {
	// Save persists a record and assigns an ID.
	Save(ctx context.Context, rec Record) (Record, error)

	// GetByID retrieves a record by its ID.
	GetByID(ctx context.Context, id string) (*Record, error)

	// List retrieves records matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]Record, error)

	// Count returns the number of records matching the filter.
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter defines criteria for listing records.
type ListFilter struct {
	Market    string
	Direction core.Direction
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}
