// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// PageSize is the number of rows in a paged list response. Kept as an
// int because call sites add one and then cast to int64 for Mongo
// Find().SetLimit().
const PageSize = 50

// LimitPlusOne returns PageSize+1 as int64 for look-ahead pagination
// (fetch one extra document to detect hasNext).
func LimitPlusOne() int64 { return int64(PageSize + 1) }

// ParsePage reads the 1-based "page" query parameter. An absent
// parameter is page 1; a malformed or non-positive one reports false.
func ParsePage(r *http.Request) (int, bool) {
	s := query.Get(r, "page")
	if s == "" {
		return 1, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Offset returns the Mongo skip value for a page.
func Offset(page int) int64 {
	return int64((page - 1) * PageSize)
}

// Trim drops the look-ahead row fetched with LimitPlusOne, modifying
// the slice in place, and reports whether another page exists.
func Trim[T any](rows *[]T) bool {
	if len(*rows) > PageSize {
		*rows = (*rows)[:PageSize]
		return true
	}
	return false
}
