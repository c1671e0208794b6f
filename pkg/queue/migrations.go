package queue

import "embed"

// MigrationsFS embeds the queue schema migrations so binaries can apply them
// at startup via pg.MigrateFS.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
