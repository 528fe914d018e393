// Package pipeline turns a fetched signal window into what a page displays.
// Every function is pure and returns new slices.
package pipeline

import "github.com/newthinker/polydash/internal/core"

// Table is one rendered page of the signals table
type Table struct {
	Rows   []core.Signal `json:"rows"`
	Sort   SortState     `json:"sort"`
	Page   int           `json:"page"`
	Pages  int           `json:"pages"`
	Total  int           `json:"total"`
	Window []int         `json:"window"`
}

// BuildTable sorts a server-side page for display and computes the pager.
func BuildTable(p core.SignalsPage, page int, st SortState) Table {
	pages := PageCount(p.Total, PageSize)
	page = ClampPage(page, pages)
	return Table{
		Rows:   Sort(p.Data, st),
		Sort:   st,
		Page:   page,
		Pages:  pages,
		Total:  p.Total,
		Window: PageWindow(page, pages, WindowSize),
	}
}

// Query builds the backend request for a zero-based page.
func Query(dir core.Direction, res core.Result, page int) core.SignalQuery {
	return core.SignalQuery{
		Direction: dir,
		Result:    res,
		Limit:     PageSize,
		Offset:    Offset(page, PageSize),
	}
}
