package pipeline

import (
	"sort"
	"strings"

	"github.com/newthinker/polydash/internal/core"
)

// SortKey is a sortable signal column
type SortKey string

const (
	SortTime       SortKey = "timestamp"
	SortScore      SortKey = "score"
	SortConfidence SortKey = "confidence"
	SortBTCPrice   SortKey = "btc_price"
	SortDelta      SortKey = "delta_pct"
	SortROI        SortKey = "roi_pct"
	SortPnL        SortKey = "pnl"
)

// Order is the sort direction
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// SortState is the column and direction currently applied to a table
type SortState struct {
	Key   SortKey `json:"key"`
	Order Order   `json:"order"`
}

// DefaultSort is newest first.
var DefaultSort = SortState{Key: SortTime, Order: Desc}

// ParseSortKey maps a column name to a key; "time" is accepted for timestamp.
func ParseSortKey(s string) (SortKey, bool) {
	switch k := SortKey(strings.ToLower(s)); k {
	case "time":
		return SortTime, true
	case SortTime, SortScore, SortConfidence, SortBTCPrice, SortDelta, SortROI, SortPnL:
		return k, true
	default:
		return "", false
	}
}

// ParseOrder defaults to descending.
func ParseOrder(s string) Order {
	if strings.EqualFold(s, string(Asc)) {
		return Asc
	}
	return Desc
}

// ToggleSort flips the order when key is already active; a new key starts descending.
func ToggleSort(cur SortState, key SortKey) SortState {
	if cur.Key == key {
		if cur.Order == Asc {
			return SortState{Key: key, Order: Desc}
		}
		return SortState{Key: key, Order: Asc}
	}
	return SortState{Key: key, Order: Desc}
}

// Sort returns a stably sorted copy. Ties keep fetch order.
// Pending signals sort as 0 on roi_pct and pnl.
func Sort(signals []core.Signal, st SortState) []core.Signal {
	out := append([]core.Signal(nil), signals...)
	value := sortValue(st.Key)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := value(out[i]), value(out[j])
		if st.Order == Asc {
			return a < b
		}
		return a > b
	})
	return out
}

func sortValue(key SortKey) func(core.Signal) float64 {
	switch key {
	case SortScore:
		return func(s core.Signal) float64 { return s.Score }
	case SortConfidence:
		return func(s core.Signal) float64 { return s.Confidence }
	case SortBTCPrice:
		return func(s core.Signal) float64 { return s.BTCPrice }
	case SortDelta:
		return func(s core.Signal) float64 { return s.DeltaPct }
	case SortROI:
		return func(s core.Signal) float64 { return s.ROI() }
	case SortPnL:
		return func(s core.Signal) float64 { return s.NetProfit() }
	default:
		return func(s core.Signal) float64 { return float64(s.Timestamp.UnixNano()) }
	}
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
