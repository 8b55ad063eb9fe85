package records

import "github.com/safee-analytics/odoo/internal/infrastructure/odoo"

// ListQuery holds the raw list parameters of GET /api/:model
type ListQuery struct {
	Model  string
	Domain string
	Fields string
	Limit  int
	Offset int
	Order  string
}

// ListResult is one page of records
type ListResult struct {
	Records []odoo.Record
	Count   int
	Total   int
	Limit   int
	Offset  int
}

// ModelInfo describes an installed model
type ModelInfo struct {
	Model string `json:"model"`
	Name  string `json:"name"`
	Info  string `json:"info"`
}

// FieldInfo describes one model field
type FieldInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	String   string `json:"string"`
	Help     string `json:"help"`
	Required bool   `json:"required"`
	Readonly bool   `json:"readonly"`
}

// FieldsResult lists a model's fields
type FieldsResult struct {
	Model      string      `json:"model"`
	Fields     []FieldInfo `json:"fields"`
	FieldCount int         `json:"field_count"`
}

// MethodInfo describes a callable method
type MethodInfo struct {
	Name       string `json:"name"`
	Label      string `json:"label,omitempty"`
	IsPrivate  bool   `json:"is_private"`
	ModelLevel bool   `json:"model_level"`
	Discovered bool   `json:"discovered"`
}

// MethodsResult lists a model's public methods
type MethodsResult struct {
	Model       string       `json:"model"`
	Methods     []MethodInfo `json:"methods"`
	MethodCount int          `json:"method_count"`
}
