package utils

type PaginationMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

func NewPaginationMeta(page, limit int, total int64) *PaginationMeta {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return &PaginationMeta{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// NormalizePage defaults to page 1 of 20 and caps the limit at 100.
func NormalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
