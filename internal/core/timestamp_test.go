// internal/core/timestamp_test.go
package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-03-01T12:05:00Z", time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)},
		{"2026-03-01T14:05:00+02:00", time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)},
		{"2026-03-01T12:05:00.123456", time.Date(2026, 3, 1, 12, 5, 0, 123456000, time.UTC)},
		{"2026-03-01T12:05:00", time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)},
		{"2026-03-01 12:05:00", time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)},
		{"2026-03-01T12:05", time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if err != nil {
				t.Fatalf("ParseTimestamp(%q): %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}

	if _, err := ParseTimestamp("03/01/2026"); err == nil {
		t.Error("expected an error for an unknown layout")
	}
}

func TestTimestamp_NullAndEmpty(t *testing.T) {
	for _, raw := range []string{`null`, `""`} {
		var ts Timestamp
		if err := json.Unmarshal([]byte(raw), &ts); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		if !ts.IsZero() || ts.Raw != "" {
			t.Errorf("decode %s: expected zero timestamp, got %v", raw, ts)
		}
	}
}

func TestSignal_DecodeNaiveTimestamp(t *testing.T) {
	raw := `{"timestamp":"2026-03-01T12:05:00.123456","direction":"DOWN","score":0.6,"pnl_theoretical":{"won":true,"net_profit":2}}`

	var sig Signal
	if err := json.Unmarshal([]byte(raw), &sig); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if want := time.Date(2026, 3, 1, 12, 5, 0, 123456000, time.UTC); !sig.Timestamp.Equal(want) {
		t.Errorf("timestamp = %s, want %s", sig.Timestamp, want)
	}
	if sig.TimestampRaw != "2026-03-01T12:05:00.123456" {
		t.Errorf("raw timestamp = %q", sig.TimestampRaw)
	}
	if sig.Direction != DirectionDown || sig.Score != 0.6 || !sig.Won() {
		t.Errorf("other fields not decoded: %+v", sig)
	}
}

func TestSignal_EncodeOmitsRaw(t *testing.T) {
	sig := Signal{Timestamp: time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC), TimestampRaw: "2026-03-01T12:05:00"}
	b, err := json.Marshal(sig)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var back Signal
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !back.Timestamp.Equal(sig.Timestamp) || back.TimestampRaw != "2026-03-01T12:05:00Z" {
		t.Errorf("unexpected round trip: %+v", back)
	}
}
