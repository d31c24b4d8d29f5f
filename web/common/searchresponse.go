package common

type Pagination struct {
	Total int64 `json:"total"`
}

// ListResponse wraps a full (unpaged) collection with its size.
type ListResponse struct {
	Data       any        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

func NewListResponse[T any](items []T) *ListResponse {
	if items == nil {
		items = []T{}
	}
	return &ListResponse{
		Data:       items,
		Pagination: Pagination{Total: int64(len(items))},
	}
}
