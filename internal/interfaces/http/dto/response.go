package dto

import "time"

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Details   []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail describes a single field validation failure
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data interface{}) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      code,
			Message:   message,
			Timestamp: time.Now(),
		},
	}
}

// NewErrorResponseWithRequestID creates an error response carrying the
// request ID for correlation with logs
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      code,
			Message:   message,
			RequestID: requestID,
			Timestamp: time.Now(),
		},
	}
}

// NewValidationErrorResponse creates a 400-style response with per-field details
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      ErrCodeValidation,
			Message:   message,
			RequestID: requestID,
			Timestamp: time.Now(),
			Details:   details,
		},
	}
}

// IDRequest represents a request with an ID path parameter
type IDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}
