// Package migrations embeds the goose migrations of the service's schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
