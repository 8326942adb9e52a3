package dto

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeBusinessRule, http.StatusUnprocessableEntity},
		{ErrCodeMixedReconciliationGroup, http.StatusUnprocessableEntity},
		{ErrCodeInternal, http.StatusInternalServerError},
		{"SOME_UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"SESSION_NOT_FOUND", ErrCodeNotFound},
		{"LINE_NOT_FOUND", ErrCodeNotFound},
		{"MIXED_RECONCILIATION_GROUP", ErrCodeMixedReconciliationGroup},
		{"INVALID_DOCUMENT", ErrCodeInvalidInput},
		{ErrCodeNotFound, ErrCodeNotFound},
		{"CUSTOM_CODE", "CUSTOM_CODE"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	requestID := "req-123-456"
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Resource not found", requestID)

	assert.False(t, resp.Success)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Resource not found", resp.Error.Message)
	assert.Equal(t, requestID, resp.Error.RequestID)
	assert.NotZero(t, resp.Error.Timestamp)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "quantity", Message: "Must be a decimal"},
		{Field: "kind", Message: "Unknown document kind"},
	}

	resp := NewValidationErrorResponse("Validation failed", "req-789", details)

	assert.False(t, resp.Success)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-789", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "quantity", resp.Error.Details[0].Field)
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Session not found", "req-test-123")

	data, err := json.Marshal(resp)
	assert.NoError(t, err)

	var decoded Response
	err = json.Unmarshal(data, &decoded)
	assert.NoError(t, err)

	assert.False(t, decoded.Success)
	assert.NotNil(t, decoded.Error)
	assert.Equal(t, ErrCodeNotFound, decoded.Error.Code)
	assert.Equal(t, "req-test-123", decoded.Error.RequestID)
}

func TestErrorResponseTimestamp(t *testing.T) {
	before := time.Now()
	resp := NewErrorResponse(ErrCodeInternal, "Server error")
	after := time.Now()

	assert.False(t, resp.Error.Timestamp.Before(before))
	assert.False(t, resp.Error.Timestamp.After(after))
}
