// Package migrations embeds the goose SQL files for the Postgres store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
