package webhook

import "strings"

// Settings configure delivery
type Settings struct {
	Enabled        bool
	URL            string
	Secret         string
	OrganizationID string
}

// Complete reports whether every field needed to deliver is set
func (s Settings) Complete() bool {
	return s.URL != "" && s.Secret != "" && s.OrganizationID != ""
}

// Target joins the base URL and an endpoint path
func (s Settings) Target(endpoint string) string {
	return strings.TrimRight(s.URL, "/") + endpoint
}
