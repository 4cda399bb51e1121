package common

type Pagination struct {
	Total  int64 `json:"total"`
	Limit  int   `json:"limit,omitempty"`
	Offset int   `json:"offset,omitempty"`
}

type SearchResponse struct {
	Data       any        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

func NewSearchResponse(data any, total int64) *SearchResponse {
	return &SearchResponse{
		Data: data,
		Pagination: Pagination{
			Total: total,
		},
	}
}

func NewPageResponse(data any, total int64, limit, offset int) *SearchResponse {
	r := NewSearchResponse(data, total)
	r.Pagination.Limit = limit
	r.Pagination.Offset = offset
	return r
}
