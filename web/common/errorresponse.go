package common

type ErrorResponse struct {
	Message string `json:"message"`
	// Category is the sync error category, when the failure has one.
	Category string `json:"category,omitempty"`
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{
		Message: message,
	}
}

func NewCategorizedError(category, message string) *ErrorResponse {
	return &ErrorResponse{
		Message:  message,
		Category: category,
	}
}
