// Package migrations embeds SQL migration files into the binary so the
// schema can be applied without the files present on the filesystem.
package migrations

import (
	"embed"

	"github.com/amparo-saude/amparo-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // files are at the root of the embedded FS
}
