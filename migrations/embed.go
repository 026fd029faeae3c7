package migrations

import "embed"

// FS holds the schema migrations applied by cmd/migrate.
//
//go:embed *.sql
var FS embed.FS
