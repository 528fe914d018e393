// internal/core/timestamp.go
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Layouts accepted for backend timestamps without a zone. They are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseTimestamp reads RFC 3339, or ISO 8601 without an offset as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Timestamp is a backend datetime together with the text it was sent as.
type Timestamp struct {
	time.Time
	Raw string
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = Timestamp{Time: parsed, Raw: s}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return t.Time.MarshalJSON()
}

func (s *Signal) UnmarshalJSON(b []byte) error {
	type plain Signal
	aux := struct {
		*plain
		Timestamp Timestamp `json:"timestamp"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	s.Timestamp, s.TimestampRaw = aux.Timestamp.Time, aux.Timestamp.Raw
	return nil
}

func (p *ChartPoint) UnmarshalJSON(b []byte) error {
	type plain ChartPoint
	aux := struct {
		*plain
		Timestamp Timestamp `json:"timestamp"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	p.Timestamp = aux.Timestamp.Time
	return nil
}

func (c *ConsensusSignal) UnmarshalJSON(b []byte) error {
	type plain ConsensusSignal
	aux := struct {
		*plain
		Timestamp Timestamp `json:"timestamp"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	c.Timestamp = aux.Timestamp.Time
	return nil
}

func (s *Status) UnmarshalJSON(b []byte) error {
	type plain Status
	aux := struct {
		*plain
		Timestamp Timestamp `json:"timestamp"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	s.Timestamp = aux.Timestamp.Time
	return nil
}

func (w *BasketWallet) UnmarshalJSON(b []byte) error {
	type plain BasketWallet
	aux := struct {
		*plain
		LastTrade *Timestamp `json:"last_trade"`
	}{plain: (*plain)(w)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	w.LastTrade = nil
	if aux.LastTrade != nil && !aux.LastTrade.IsZero() {
		at := aux.LastTrade.Time
		w.LastTrade = &at
	}
	return nil
}
