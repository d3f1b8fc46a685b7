package migrations

import "embed"

// FS holds the storefront schema migrations.
//
//go:embed *.sql
var FS embed.FS
