package pipeline

import (
	"strconv"

	"github.com/newthinker/polydash/internal/core"
)

// Hourly buckets signals by UTC hour of day. Only hours with signals are
// returned, in ascending hour order.
func Hourly(signals []core.Signal) []core.HourlySignal {
	var counts [24]int
	for _, s := range signals {
		counts[s.Timestamp.UTC().Hour()]++
	}

	out := []core.HourlySignal{}
	for h, n := range counts {
		if n > 0 {
			out = append(out, core.HourlySignal{Hour: h, Count: n})
		}
	}
	return out
}

// BestHour returns the hour with the highest count. Ties go to the first
// bucket seen. ok is false when there are no buckets.
func BestHour(hours []core.HourlySignal) (hour int, ok bool) {
	if len(hours) == 0 {
		return 0, false
	}
	best := hours[0]
	for _, h := range hours[1:] {
		if h.Count > best.Count {
			best = h
		}
	}
	return best.Hour, true
}

// Split is the UP/DOWN distribution of a signal window
type Split struct {
	Up      int    `json:"up"`
	Down    int    `json:"down"`
	Total   int    `json:"total"`
	UpPct   string `json:"up_pct"`
	DownPct string `json:"down_pct"`
}

// SplitDirections counts UP and DOWN signals in the loaded window.
// Percentages carry one decimal and are "0" for an empty window.
func SplitDirections(signals []core.Signal) Split {
	var sp Split
	for _, s := range signals {
		switch s.Direction {
		case core.DirectionUp:
			sp.Up++
		case core.DirectionDown:
			sp.Down++
		}
	}
	sp.Total = sp.Up + sp.Down
	sp.UpPct = share(sp.Up, sp.Total)
	sp.DownPct = share(sp.Down, sp.Total)
	return sp
}

func share(n, total int) string {
	if total == 0 {
		return "0"
	}
	return strconv.FormatFloat(float64(n)/float64(total)*100, 'f', 1, 64)
}
