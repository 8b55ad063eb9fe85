package partner

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/safee-analytics/odoo/internal/domain/shared"
)

// NamesOrder controls how firstname and lastname combine into the display name
type NamesOrder string

const (
	OrderFirstLast      NamesOrder = "first_last"
	OrderLastFirst      NamesOrder = "last_first"
	OrderLastFirstComma NamesOrder = "last_first_comma"
)

// DefaultNamesOrder is used when the database does not configure one
const DefaultNamesOrder = OrderFirstLast

// ParseNamesOrder returns the order for s, falling back to the default
func ParseNamesOrder(s string) NamesOrder {
	switch NamesOrder(s) {
	case OrderFirstLast, OrderLastFirst, OrderLastFirstComma:
		return NamesOrder(s)
	}
	return DefaultNamesOrder
}

// CleanName normalizes a name to NFC and collapses whitespace. With comma
// set, spaces around commas are removed as well.
func CleanName(name string, comma bool) string {
	name = norm.NFC.String(name)
	name = strings.Join(strings.Fields(name), " ")
	if comma {
		name = strings.ReplaceAll(name, " ,", ",")
		name = strings.ReplaceAll(name, ", ", ",")
	}
	return name
}

// ComputeName builds the display name from its parts
func ComputeName(firstname, lastname string, order NamesOrder) string {
	firstname = CleanName(firstname, false)
	lastname = CleanName(lastname, false)

	var parts []string
	switch order {
	case OrderLastFirstComma:
		parts = nonEmpty(lastname, firstname)
		return strings.Join(parts, ", ")
	case OrderLastFirst:
		parts = nonEmpty(lastname, firstname)
	default:
		parts = nonEmpty(firstname, lastname)
	}
	return strings.Join(parts, " ")
}

// SplitName derives firstname and lastname from a full name. Companies keep
// the whole name as lastname. The last_first_comma order splits on the first
// comma, every other order on the first space. A name without separator is
// a lastname.
func SplitName(name string, isCompany bool, order NamesOrder) (firstname, lastname string) {
	if isCompany || strings.TrimSpace(name) == "" {
		return "", CleanName(name, false)
	}

	comma := order == OrderLastFirstComma
	sep := " "
	if comma {
		sep = ","
	}
	parts := strings.SplitN(CleanName(name, comma), sep, 2)
	if len(parts) < 2 {
		return "", parts[0]
	}
	if order == OrderFirstLast {
		return parts[0], parts[1]
	}
	return parts[1], parts[0]
}

// Required flags which name parts a person must carry
type Required struct {
	Firstname bool
	Lastname  bool
}

// ParseRequired reads the required fields setting: firstname, lastname or
// firstname_lastname. Anything else requires only one of the two.
func ParseRequired(s string) Required {
	return Required{
		Firstname: s == "firstname" || s == "firstname_lastname",
		Lastname:  s == "lastname" || s == "firstname_lastname",
	}
}

// CheckRequired validates the names of a partner. A company needs a name; a
// person needs at least one part plus whatever required demands.
func CheckRequired(name, firstname, lastname string, isCompany bool, required Required) error {
	if isCompany {
		if strings.TrimSpace(name) == "" {
			return shared.NewInvalidInputError("Company name is required")
		}
		return nil
	}
	firstname = strings.TrimSpace(firstname)
	lastname = strings.TrimSpace(lastname)

	if required.Firstname && firstname == "" {
		return shared.NewInvalidInputError("Firstname is required")
	}
	if required.Lastname && lastname == "" {
		return shared.NewInvalidInputError("Lastname is required")
	}
	if firstname == "" && lastname == "" {
		return shared.NewInvalidInputError("No name is set")
	}
	return nil
}

// NameFields are the res.partner fields name validation reads
var NameFields = []string{"name", "firstname", "lastname", "is_company", "type"}

// ValidateNames checks the names a partner ends up with once vals (the
// output of ApplyNames) is applied over existing. Only contacts are held to
// the person rules; other address types are exempt.
func ValidateNames(vals, existing map[string]any, required Required) error {
	isCompany := boolValue(vals, existing, "is_company")
	if !isCompany {
		if t := stringValue(vals, existing, "type"); t != "" && t != "contact" {
			return nil
		}
	}
	return CheckRequired(
		stringValue(vals, existing, "name"),
		stringValue(vals, existing, "firstname"),
		stringValue(vals, existing, "lastname"),
		isCompany,
		required,
	)
}

// TouchesNames reports whether a write changes anything name validation reads
func TouchesNames(vals map[string]any) bool {
	for _, f := range NameFields {
		if _, ok := vals[f]; ok {
			return true
		}
	}
	return false
}

// ApplyNames rewrites res.partner values so the stored name agrees with
// firstname/lastname. A bare name is split into its parts; otherwise the
// name is recomputed from the parts. existing holds the current values for
// writes and is nil on create.
func ApplyNames(vals, existing map[string]any, order NamesOrder) map[string]any {
	out := make(map[string]any, len(vals)+2)
	for k, v := range vals {
		out[k] = v
	}

	_, hasFirst := vals["firstname"]
	_, hasLast := vals["lastname"]
	isCompany := boolValue(out, existing, "is_company")

	if !hasFirst && !hasLast {
		if name, ok := vals["name"].(string); ok {
			first, last := SplitName(name, isCompany, order)
			out["firstname"] = nullable(first)
			out["lastname"] = nullable(last)
			out["name"] = CleanName(name, false)
		}
		return out
	}

	first := stringValue(out, existing, "firstname")
	last := stringValue(out, existing, "lastname")
	if name := ComputeName(first, last, order); name != "" {
		out["name"] = name
	}
	return out
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func nullable(s string) any {
	if s == "" {
		return false
	}
	return s
}

func stringValue(vals, existing map[string]any, field string) string {
	v, ok := vals[field]
	if !ok && existing != nil {
		v = existing[field]
	}
	s, _ := v.(string)
	return s
}

func boolValue(vals, existing map[string]any, field string) bool {
	v, ok := vals[field]
	if !ok && existing != nil {
		v = existing[field]
	}
	b, _ := v.(bool)
	return b
}
