package pagination

import "gorm.io/gorm"

// Pagination is a 0-indexed page request as bound from a query string.
type Pagination struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

type PageInfo struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
	HasMore    bool  `json:"has_more"`
}

func (p Pagination) Offset() int {
	if p.Page <= 0 || p.PageSize <= 0 {
		return 0
	}
	return p.Page * p.PageSize
}

// WithDefault fills a zero page size.
func (p Pagination) WithDefault(size int) Pagination {
	if p.PageSize == 0 {
		p.PageSize = size
	}
	return p
}

// Apply adds LIMIT/OFFSET to stmt. A non-positive limit leaves stmt unbounded.
func Apply(stmt *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if offset > 0 {
		stmt = stmt.Offset(offset)
	}
	return stmt
}

func BuildPageInfo(p Pagination, total int64) PageInfo {
	return PageInfo{
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalCount: total,
		HasMore:    int64(p.Offset()+p.PageSize) < total,
	}
}
