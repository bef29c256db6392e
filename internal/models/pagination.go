package models

// Pagination describes paging metadata returned alongside list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	LastPage   int `json:"last_page"`
}

// NewPagination builds pagination metadata, deriving the last page from the
// total count. A zero total yields last page 1 so clients always have a
// valid page range.
func NewPagination(page, size, total int) *Pagination {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	last := (total + size - 1) / size
	if last < 1 {
		last = 1
	}
	return &Pagination{Page: page, PageSize: size, TotalCount: total, LastPage: last}
}
