package freight

import "math"

const (
	DefaultPageSize = 50
	LargePageSize   = 100
)

// Page selects a window of the newest-first result list.
type Page struct {
	Index int
	Size  int
}

// NewPage clamps index into [0, MaxPageIndex(size)] and accepts only the
// supported page sizes, falling back to def (or DefaultPageSize when def is
// unsupported too).
func NewPage(index, size, def int) Page {
	if index < 0 {
		index = 0
	}
	if !validPageSize(size) {
		size = def
		if !validPageSize(size) {
			size = DefaultPageSize
		}
	}
	if last := MaxPageIndex(size); index > last {
		index = last
	}
	return Page{Index: index, Size: size}
}

// MaxPageIndex is the largest index whose offset plus one page still fits in
// an int.
func MaxPageIndex(size int) int {
	if size <= 0 {
		return 0
	}
	return math.MaxInt/size - 1
}

func validPageSize(size int) bool {
	return size == DefaultPageSize || size == LargePageSize
}

// Offset is the number of rows skipped before this page.
func (p Page) Offset() int {
	return p.Index * p.Size
}

// Limit is the page size.
func (p Page) Limit() int {
	return p.Size
}
