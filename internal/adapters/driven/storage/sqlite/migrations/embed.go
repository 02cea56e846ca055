// Package migrations embeds the schema migrations for the metadata store.
package migrations

import "embed"

// FS holds the numbered .up.sql files applied in order at open time.
//
//go:embed *.sql
var FS embed.FS
