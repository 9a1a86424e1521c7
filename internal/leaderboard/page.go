package leaderboard

// PageSize is the fixed number of rows per leaderboard page.
const PageSize = 100

// Direction is a page navigation step.
type Direction string

const (
	First Direction = "first"
	Prev  Direction = "prev"
	Next  Direction = "next"
	Last  Direction = "last"
)

// TotalPages is ceil(count/size). An empty set has zero pages.
func TotalPages(count, size int) int {
	if count <= 0 || size <= 0 {
		return 0
	}
	return (count + size - 1) / size
}

// ClampPage moves page into [1, totalPages]. With no pages the result is 1.
func ClampPage(page, totalPages int) int {
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}

// Navigate applies a navigation step and clamps the result.
func Navigate(page, totalPages int, dir Direction) int {
	switch dir {
	case First:
		page = 1
	case Prev:
		page--
	case Next:
		page++
	case Last:
		page = totalPages
	}
	return ClampPage(page, totalPages)
}

// PageOf returns the slice of rows on page (1-based).
func PageOf[T any](rows []T, page, size int) []T {
	if size <= 0 {
		return nil
	}
	page = ClampPage(page, TotalPages(len(rows), size))
	start := (page - 1) * size
	if start >= len(rows) {
		return nil
	}
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}
