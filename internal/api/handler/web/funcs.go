// internal/api/handler/web/funcs.go
package web

import (
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/newthinker/polydash/internal/band"
	"github.com/newthinker/polydash/internal/core"
	"github.com/newthinker/polydash/internal/dashboard"
	"github.com/newthinker/polydash/internal/pipeline"
)

var funcs = template.FuncMap{
	"fixed": func(v float64, prec int) string {
		return strconv.FormatFloat(v, 'f', prec, 64)
	},
	"signed": func(v float64) string {
		return fmt.Sprintf("%+.2f", v)
	},
	"signColor": band.Sign,
	"levelColor": func(l band.Level) string {
		return l.Color()
	},
	"confidence": band.Confidence,
	"ts":         formatTime,
	"tsPtr": func(t *time.Time) string {
		if t == nil {
			return "never"
		}
		return formatTime(*t)
	},
	"outcome": func(s core.Signal) string {
		return string(s.Outcome())
	},
	"barWidth": func(count, max int) int {
		if max <= 0 {
			return 0
		}
		return count * 100 / max
	},
	"sortHref": func(p dashboard.SignalsParams, st pipeline.SortState) template.URL {
		p.Sort = st
		return signalsHref(p)
	},
	"pageHref": func(p dashboard.SignalsParams, page int) template.URL {
		p.Page = page
		return signalsHref(p)
	},
	"sortMark": func(cur pipeline.SortState, key string) string {
		if string(cur.Key) != key {
			return ""
		}
		if cur.Order == pipeline.Asc {
			return "▲"
		}
		return "▼"
	},
	"sortLink": func(links map[pipeline.SortKey]pipeline.SortState, key string) pipeline.SortState {
		return links[pipeline.SortKey(key)]
	},
	"add": func(a, b int) int {
		return a + b
	},
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func signalsHref(p dashboard.SignalsParams) template.URL {
	return template.URL("/signals?" + p.Values().Encode())
}
