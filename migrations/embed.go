// Package migrations embeds the SQL schema so the server binary and the
// integration suite apply the same files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
