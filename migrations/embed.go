// Package migrations embeds the SmartBin schema migrations into the binary.
//
// Pass FS to database.DB.Migrate at startup.
package migrations

import "embed"

// FS holds every *.sql migration file in this directory.
//
//go:embed *.sql
var FS embed.FS
