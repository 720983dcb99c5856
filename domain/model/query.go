package model

import (
	"fmt"
	"math"
)

// QueryParams describes a cross-table query. Filters are substring matches;
// an empty filter matches everything.
type QueryParams struct {
	// TableFilter restricts the query to tables whose name contains it.
	TableFilter string
	// IDFilter restricts rows to ids containing it.
	IDFilter string
	// NameFilter restricts rows to names containing it.
	NameFilter string
	// Page is 1-based.
	Page int
	// PageSize is the per-table row limit.
	PageSize int
}

// Validate rejects non-positive pages and page sizes.
func (p QueryParams) Validate() error {
	if p.Page < 1 {
		return fmt.Errorf("%w: page must be positive, got %d", ErrValidation, p.Page)
	}
	if p.PageSize < 1 {
		return fmt.Errorf("%w: page size must be positive, got %d", ErrValidation, p.PageSize)
	}
	return nil
}

// Offset returns the per-table row offset of the requested page. An offset
// that does not fit in an int is clamped to math.MaxInt, which is past the
// last row of any table.
func (p QueryParams) Offset() int {
	if p.PageSize > 0 && p.Page-1 > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PageSize
}

// PaginatedResult is the merged answer of a cross-table query.
type PaginatedResult struct {
	// Items are ordered by table discovery order, then by the engine's native
	// row order within each table.
	Items []Item `json:"data"`
	// TotalPages is ceil(TotalCount / page size).
	TotalPages int `json:"total_pages"`
	// TotalCount is the number of matching rows across all counted tables.
	TotalCount int `json:"total_count"`
}

// TotalPages returns ceil(total / pageSize). pageSize must be positive.
func TotalPages(total, pageSize int) int {
	if total <= 0 {
		return 0
	}
	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}
	return pages
}
