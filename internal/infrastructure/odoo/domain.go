package odoo

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Common model names used across the gateway
const (
	ModelPartner             = "res.partner"
	ModelUsers               = "res.users"
	ModelCompany             = "res.company"
	ModelIrModel             = "ir.model"
	ModelIrUIView            = "ir.ui.view"
	ModelIrModelData         = "ir.model.data"
	ModelSaleOrder           = "sale.order"
	ModelSaleOrderLine       = "sale.order.line"
	ModelSaleAdvancePayment  = "sale.advance.payment.inv"
	ModelAccountAccount      = "account.account"
	ModelAccountMove         = "account.move"
	ModelAccountMoveLine     = "account.move.line"
	ModelAccountPayment      = "account.payment"
	ModelAccountBankStmt     = "account.bank.statement"
	ModelAccountBankStmtLine = "account.bank.statement.line"
	ModelAccountTax          = "account.tax"
	ModelMailTemplate        = "mail.template"
	ModelProduct             = "product.product"
	ModelStockPicking        = "stock.picking"
	ModelHrEmployee          = "hr.employee"
	ModelHrDepartment        = "hr.department"
	ModelHrLeave             = "hr.leave"
	ModelCrmLead             = "crm.lead"
)

// Domain logical operators
const (
	OpAnd = "&"
	OpOr  = "|"
	OpNot = "!"
)

// Condition is one element of an Odoo search domain. A Condition with only
// Operator set and an empty Field is a prefix logical operator.
type Condition struct {
	Field    string
	Operator string
	Value    any
}

// Domain is an Odoo search domain in prefix notation
type Domain []Condition

// Where starts a domain with a single condition
func Where(field, operator string, value any) Domain {
	return Domain{{Field: field, Operator: operator, Value: value}}
}

// And returns a copy of d with one more condition; Odoo joins consecutive
// terms with an implicit AND. d itself is never modified, so a base domain
// can be extended in several directions.
func (d Domain) And(field, operator string, value any) Domain {
	out := make(Domain, len(d), len(d)+1)
	copy(out, d)
	return append(out, Condition{Field: field, Operator: operator, Value: value})
}

// ToRPC converts the domain into the nested list Odoo expects
func (d Domain) ToRPC() []any {
	out := make([]any, 0, len(d))
	for _, c := range d {
		if c.Field == "" {
			out = append(out, c.Operator)
			continue
		}
		out = append(out, []any{c.Field, c.Operator, c.Value})
	}
	return out
}

// ParseDomain decodes the JSON domain accepted by the REST API, e.g.
// [["state","=","posted"],"|",["a","=",1],["b","=",2]]
func ParseDomain(raw string) (Domain, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Domain{}, nil
	}
	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("invalid domain: %w", err)
	}
	return DomainFromList(items)
}

// DomainFromList converts an already decoded JSON list into a Domain
func DomainFromList(items []any) (Domain, error) {
	d := make(Domain, 0, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case string:
			if v != OpAnd && v != OpOr && v != OpNot {
				return nil, fmt.Errorf("invalid domain operator %q at position %d", v, i)
			}
			d = append(d, Condition{Operator: v})
		case []any:
			if len(v) != 3 {
				return nil, fmt.Errorf("domain term at position %d must have 3 elements", i)
			}
			field, ok := v[0].(string)
			if !ok || field == "" {
				return nil, fmt.Errorf("domain term at position %d has an invalid field", i)
			}
			op, ok := v[1].(string)
			if !ok || op == "" {
				return nil, fmt.Errorf("domain term at position %d has an invalid operator", i)
			}
			d = append(d, Condition{Field: field, Operator: op, Value: normalizeJSONValue(v[2])})
		default:
			return nil, fmt.Errorf("invalid domain element at position %d", i)
		}
	}
	return d, nil
}

// ParseFields decodes a JSON list of field names
func ParseFields(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var fields []string
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("invalid fields: %w", err)
	}
	return fields, nil
}

// normalizeJSONValue turns integral JSON numbers back into ints so Odoo
// receives <int> instead of <double> for ids.
func normalizeJSONValue(v any) any {
	switch t := v.(type) {
	case float64:
		if t == float64(int64(t)) {
			return int64(t)
		}
		return t
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = normalizeJSONValue(t[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeJSONValue(val)
		}
		return out
	}
	return v
}

// NormalizeValues applies JSON number normalization to a values map
func NormalizeValues(vals map[string]any) map[string]any {
	if vals == nil {
		return map[string]any{}
	}
	out, _ := normalizeJSONValue(vals).(map[string]any)
	return out
}

// NormalizeArgs applies JSON number normalization to positional arguments
func NormalizeArgs(args []any) []any {
	if args == nil {
		return []any{}
	}
	out, _ := normalizeJSONValue(args).([]any)
	return out
}

// Options holds the keyword arguments shared by search-style calls
type Options struct {
	Fields  []string
	Limit   int
	Offset  int
	Order   string
	Context map[string]any
}

// kwargs renders options as execute_kw keyword arguments
func (o Options) kwargs() map[string]any {
	kw := map[string]any{}
	if len(o.Fields) > 0 {
		kw["fields"] = o.Fields
	}
	if o.Limit > 0 {
		kw["limit"] = o.Limit
	}
	if o.Offset > 0 {
		kw["offset"] = o.Offset
	}
	if o.Order != "" {
		kw["order"] = o.Order
	}
	if len(o.Context) > 0 {
		kw["context"] = o.Context
	}
	return kw
}
