// internal/api/types/response.go
package types

// Page is one page of a listing. Data is never null in JSON.
type Page[T any] struct {
	Data       []T   `json:"data"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	TotalCount int64 `json:"total_count"`
	HasMore    bool  `json:"has_more"`
}

// NewPage builds a Page for rows fetched at offset out of total.
func NewPage[T any](rows []T, limit, offset int, total int64) Page[T] {
	if rows == nil {
		rows = []T{}
	}
	return Page[T]{
		Data:       rows,
		Limit:      limit,
		Offset:     offset,
		TotalCount: total,
		HasMore:    int64(offset+len(rows)) < total,
	}
}
