package migrations

import "embed"

// FS migraciones SQL del almacén PostgreSQL.
//
//go:embed *.sql
var FS embed.FS
