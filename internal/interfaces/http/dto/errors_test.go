package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeUnavailable, http.StatusServiceUnavailable},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeInvalidCredentials, http.StatusUnauthorized},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeTokenRevoked, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeModelNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeUserError, http.StatusBadRequest},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodePrintingDisabled, http.StatusServiceUnavailable},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewErrorResponse_CarriesStatus(t *testing.T) {
	resp := NewErrorResponse(ErrCodeNotFound, "Record not found")

	assert.False(t, resp.Success)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Record not found", resp.Error.Message)
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewErrorResponseWithStatus(http.StatusForbidden, ErrCodeForbidden, "Access denied", "req-1")

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, false, decoded["success"])
	assert.Equal(t, float64(403), decoded["status"])
	errObj := decoded["error"].(map[string]any)
	assert.Equal(t, "FORBIDDEN", errObj["code"])
	assert.Equal(t, "req-1", errObj["request_id"])
	assert.NotContains(t, decoded, "data")
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{{Field: "login", Message: "This field is required"}}
	resp := NewValidationErrorResponse("Request validation failed", "req-2", details)

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Len(t, resp.Error.Details, 1)
}

func TestNewListResponse(t *testing.T) {
	resp := NewListResponse([]int{1, 2}, 40, 2, 80, 0)

	assert.True(t, resp.Success)
	assert.Zero(t, resp.Status)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(40), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Count)
}

func TestDecimalsSerializeAsNumbers(t *testing.T) {
	data, err := json.Marshal(NewSuccessResponse(map[string]decimal.Decimal{"total": decimal.RequireFromString("12.50")}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"total":12.5}}`, string(data))
}
