// Package migrations embeds the gateway store schema.
package migrations

import "embed"

// FS holds the golang-migrate files
//
//go:embed *.sql
var FS embed.FS
