// Package migrations embeds the PostgreSQL schema applied by golang-migrate.
package migrations

import "embed"

// FS holds the numbered up/down SQL files at its root.
//
//go:embed *.sql
var FS embed.FS
