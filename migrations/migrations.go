// migrations/migrations.go
package migrations

import "embed"

// FS holds the SQL migrations applied at startup.
//
//go:embed *.sql
var FS embed.FS
