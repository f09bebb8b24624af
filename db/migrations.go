// Package db embeds the goose SQL migrations so both the server binary
// and the test helper apply the same schema.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
