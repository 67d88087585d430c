// Package migrations holds the ordered SQL schema migrations for talentboard.
//
// Files follow the NNNNNN_name.up.sql / NNNNNN_name.down.sql convention and are
// applied in version order by db.Migrate.
package migrations

import "embed"

// FS contains every migration file.
//
//go:embed *.sql
var FS embed.FS
