// Package dto holds the JSON envelope shared by every gateway endpoint.
package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are read by dashboards that expect JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// Response is the envelope of every JSON response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Status  int        `json:"status,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo describes a failed request
type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
	Details   []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail names one rejected field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Meta carries list totals
type Meta struct {
	Total  int64 `json:"total"`
	Count  int   `json:"count"`
	Limit  int   `json:"limit,omitempty"`
	Offset int   `json:"offset,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{Success: true, Data: data}
}

// NewListResponse creates a success response with list totals
func NewListResponse(data any, total int64, count, limit, offset int) Response {
	return Response{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Total:  total,
			Count:  count,
			Limit:  limit,
			Offset: offset,
		},
	}
}

// NewErrorResponse creates an error response whose status follows the code
func NewErrorResponse(code, message string) Response {
	return NewErrorResponseWithStatus(GetHTTPStatus(code), code, message, "")
}

// NewErrorResponseWithStatus creates an error response with an explicit status
func NewErrorResponseWithStatus(status int, code, message, requestID string) Response {
	return Response{
		Success: false,
		Status:  status,
		Error: &ErrorInfo{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	}
}

// NewValidationErrorResponse creates a 400 response listing rejected fields
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	resp := NewErrorResponseWithStatus(GetHTTPStatus(ErrCodeValidation), ErrCodeValidation, message, requestID)
	resp.Error.Details = details
	return resp
}

// ListRequest holds the paging parameters shared by list endpoints. It binds
// from the query string or from a JSON body.
type ListRequest struct {
	Domain RawDomain `form:"domain" json:"domain"`
	Limit  int       `form:"limit" json:"limit" binding:"omitempty,min=1,max=1000"`
	Offset int       `form:"offset" json:"offset" binding:"omitempty,min=0"`
}

// RawDomain is an Odoo domain kept as JSON text. A JSON body may carry it
// as an array or as a string holding the array.
type RawDomain string

func (d *RawDomain) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*d = RawDomain(s)
		return nil
	}
	if string(b) == "null" {
		*d = ""
		return nil
	}
	*d = RawDomain(b)
	return nil
}

// IDRequest binds a numeric Odoo id path parameter
type IDRequest struct {
	ID int `uri:"id" binding:"required,min=1"`
}
