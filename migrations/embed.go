// Package migrations embeds SQL schema files.
package migrations

import "embed"

// FS contains the schema migrations applied by cmd/seed.
//
//go:embed sql/*.sql
var FS embed.FS

// Dir is the directory within FS where migrations live.
const Dir = "sql"
