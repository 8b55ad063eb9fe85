package webhook

var modelEndpoints = map[string]string{
	"account.move":    "/webhooks/odoo/invoices",
	"account.payment": "/webhooks/odoo/payments",
	"crm.lead":        "/webhooks/odoo/leads",
	"hr.department":   "/webhooks/odoo/departments",
	"hr.employee":     "/webhooks/odoo/employees",
	"hr.leave":        "/webhooks/odoo/leaves",
	"res.partner":     "/webhooks/odoo/contacts",
}

// EndpointFor returns the receiver path of a model's record events
func EndpointFor(model string) (string, bool) {
	ep, ok := modelEndpoints[model]
	return ep, ok
}

// Notifies reports whether changes to model produce webhook events
func Notifies(model string) bool {
	_, ok := modelEndpoints[model]
	return ok
}

// Models lists the models that notify
func Models() []string {
	out := make([]string, 0, len(modelEndpoints))
	for m := range modelEndpoints {
		out = append(out, m)
	}
	return out
}
