package filter

// Pagination requests one page of a result set.
//
// Total is nil until the owning pager counts the rows. Once set it is
// treated as cached and is not recomputed until ClearTotal is called.
type Pagination struct {
	PageNumber int    `json:"page_number" yaml:"page_number"` // 1-based
	PageSize   int    `json:"page_size" yaml:"page_size"`     // > 0
	Total      *int64 `json:"total,omitempty" yaml:"total,omitempty"`
}

// NewPagination returns a request for page number of size with no cached
// total.
func NewPagination(number, size int) *Pagination {
	return &Pagination{PageNumber: number, PageSize: size}
}

// Validate checks the page number and size.
func (p *Pagination) Validate() error {
	if p == nil {
		return NewError(CodeInvalidPagination, "", "pagination is nil")
	}
	if p.PageNumber < 1 {
		return NewError(CodeInvalidPagination, "", "page number must be >= 1, got %d", p.PageNumber)
	}
	if p.PageSize < 1 {
		return NewError(CodeInvalidPagination, "", "page size must be > 0, got %d", p.PageSize)
	}
	return nil
}

// Offset returns the number of rows before the page window.
func (p *Pagination) Offset() int64 {
	return int64(p.PageNumber-1) * int64(p.PageSize)
}

// Limit returns the page window size.
func (p *Pagination) Limit() int64 {
	return int64(p.PageSize)
}

// HasTotal reports whether a total is cached.
func (p *Pagination) HasTotal() bool {
	return p.Total != nil
}

// SetTotal caches n as the total row count.
func (p *Pagination) SetTotal(n int64) {
	p.Total = &n
}

// ClearTotal drops the cached total so the next page request recounts.
func (p *Pagination) ClearTotal() {
	p.Total = nil
}

// PageCount returns ceil(total/size). ok is false when no total is cached.
func (p *Pagination) PageCount() (count int64, ok bool) {
	if p.Total == nil || p.PageSize < 1 {
		return 0, false
	}
	size := int64(p.PageSize)
	return (*p.Total + size - 1) / size, true
}
