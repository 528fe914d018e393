package pipeline

// PageSize is the fixed number of rows per signals page
const PageSize = 20

// WindowSize is the number of page buttons shown at once
const WindowSize = 5

// PageCount returns ceil(total/size); zero when there is nothing to show.
func PageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Offset is the backend offset of a zero-based page.
func Offset(page, size int) int {
	if page < 0 {
		page = 0
	}
	return page * size
}

// ClampPage keeps a zero-based page inside [0, pages).
func ClampPage(page, pages int) int {
	if pages <= 0 || page < 0 {
		return 0
	}
	if page >= pages {
		return pages - 1
	}
	return page
}

// PageWindow returns the zero-based page numbers to render as buttons,
// keeping the current page centred once it moves away from the edges.
func PageWindow(page, pages, size int) []int {
	n := min(pages, size)
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		var p int
		switch {
		case pages <= size || page < size/2+1:
			p = i
		case page > pages-size+1:
			p = pages - size + i
		default:
			p = page - size/2 + i
		}
		out = append(out, p)
	}
	return out
}
