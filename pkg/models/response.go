package models

// ErrorType categorizes API failures for clients.
type ErrorType string

const (
	GeneralErrorType    ErrorType = "general"
	ValidationErrorType ErrorType = "validation"
	NotFoundErrorType   ErrorType = "not_found"
)

// APIResponse is the uniform envelope returned by every handler.
type APIResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// APIError is the envelope for failed requests.
type APIError struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	ErrorType ErrorType `json:"error_type"`
}
