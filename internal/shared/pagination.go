package shared

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Page carries limit/offset for listings.
type Page struct {
	Limit  int
	Offset int
}

// NewPage clamps limit and offset to sane bounds.
func NewPage(limit, offset int) Page {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}
