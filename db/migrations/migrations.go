// Package migrations embeds the schema migrations so the binary carries
// them and needs no migrations directory on disk.
package migrations

import "embed"

//go:embed *.up.sql
var Files embed.FS
