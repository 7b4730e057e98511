// Package migrations embeds the goose schema migrations so the binary
// can migrate on startup without shipping the .sql files alongside it.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
