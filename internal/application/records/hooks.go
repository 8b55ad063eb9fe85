package records

import (
	"time"

	"github.com/safee-analytics/odoo/internal/domain/hr"
	"github.com/safee-analytics/odoo/internal/domain/partner"
	"github.com/safee-analytics/odoo/internal/domain/pricing"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
)

var now = time.Now

// valueHook rewrites values sent to a model. fields lists what a write needs
// from the stored record.
type valueHook struct {
	fields []string
	create func(vals map[string]any) (map[string]any, error)
	write  func(vals map[string]any, existing odoo.Record) (map[string]any, error)
}

func defaultHooks(order partner.NamesOrder, required partner.Required) map[string]valueHook {
	names := valueHook{
		fields: partner.NameFields,
		create: func(vals map[string]any) (map[string]any, error) {
			out := partner.ApplyNames(vals, nil, order)
			if err := partner.ValidateNames(out, nil, required); err != nil {
				return nil, err
			}
			return out, nil
		},
		write: func(vals map[string]any, existing odoo.Record) (map[string]any, error) {
			out := partner.ApplyNames(vals, existing, order)
			if !partner.TouchesNames(vals) {
				return out, nil
			}
			if err := partner.ValidateNames(out, existing, required); err != nil {
				return nil, err
			}
			return out, nil
		},
	}
	discounts := valueHook{
		fields: pricing.DiscountFields,
		create: pricing.NormalizeCreate,
		write:  writeDiscounts,
	}
	return map[string]valueHook{
		odoo.ModelPartner:         names,
		odoo.ModelSaleOrderLine:   discounts,
		odoo.ModelAccountMoveLine: discounts,
	}
}

// writeDiscounts fills components the caller left out from the stored line,
// so a partial write still aggregates all three.
func writeDiscounts(vals map[string]any, existing odoo.Record) (map[string]any, error) {
	if _, direct := vals[pricing.FieldDiscount]; direct {
		return pricing.NormalizeWrite(vals)
	}
	touched := false
	for _, f := range pricing.DiscountFields {
		if _, ok := vals[f]; ok {
			touched = true
			break
		}
	}
	if !touched {
		return vals, nil
	}

	merged := make(map[string]any, len(vals)+len(pricing.DiscountFields))
	for _, f := range pricing.DiscountFields {
		if v, ok := existing[f]; ok {
			merged[f] = v
		}
	}
	for k, v := range vals {
		merged[k] = v
	}
	return pricing.NormalizeWrite(merged)
}

// decorate adds computed hr values to records read back from Odoo
func decorate(model string, recs []odoo.Record) {
	switch model {
	case odoo.ModelHrDepartment:
		for _, r := range recs {
			if _, ok := r["name"]; !ok {
				continue
			}
			r["display_name"] = hr.DepartmentDisplayName(r.String("code"), r.String("name"))
		}
	case odoo.ModelHrEmployee:
		today := now()
		for _, r := range recs {
			if _, ok := r["birthday"]; !ok {
				continue
			}
			r["age"] = hr.EmployeeAge(r.Date("birthday"), today)
		}
	}
}
