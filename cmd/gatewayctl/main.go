// Command gatewayctl is the operator CLI of the Odoo gateway.
package main

import (
	"os"

	"github.com/safee-analytics/odoo/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
