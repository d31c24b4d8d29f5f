package common

type SuccessResponse[T any] struct {
	Data T `json:"data"`
}

func NewSuccessResponse[T any](data T) *SuccessResponse[T] {
	return &SuccessResponse[T]{
		Data: data,
	}
}
