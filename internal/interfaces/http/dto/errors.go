package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeMixedReconciliationGroup is used when a credit note would span
	// more than one reconciliation group
	ErrCodeMixedReconciliationGroup = "ERR_MIXED_RECONCILIATION_GROUP"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound: http.StatusNotFound,
	ErrCodeConflict: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:             http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:             http.StatusUnprocessableEntity,
	ErrCodeMixedReconciliationGroup: http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to transport-level codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                  ErrCodeNotFound,
	"SESSION_NOT_FOUND":          ErrCodeNotFound,
	"LINE_NOT_FOUND":             ErrCodeNotFound,
	"PERCEPTION_NOT_FOUND":       ErrCodeNotFound,
	"OUTSTANDING_NOT_FOUND":      ErrCodeNotFound,
	"INVALID_INPUT":              ErrCodeInvalidInput,
	"INVALID_DOCUMENT":           ErrCodeInvalidInput,
	"INVALID_KIND":               ErrCodeInvalidInput,
	"INVALID_STATE":              ErrCodeInvalidState,
	"MIXED_RECONCILIATION_GROUP": ErrCodeMixedReconciliationGroup,
	"VALIDATION_ERROR":           ErrCodeValidation,
	"BAD_REQUEST":                ErrCodeBadRequest,
	"INTERNAL_ERROR":             ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the transport format
// If the code is already in the transport format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
