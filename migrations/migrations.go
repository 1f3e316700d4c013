// Package migrations embeds the SQL schema applied at startup.
package migrations

import "embed"

// FS holds every *.up.sql file, applied in name order.
//
//go:embed *.sql
var FS embed.FS
