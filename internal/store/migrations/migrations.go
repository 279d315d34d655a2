// Package migrations embeds the SQL schema for the persistent store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
