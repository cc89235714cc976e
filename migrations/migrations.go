// Package migrations embeds the Postgres schema.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

// FS holds the migration files, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS

// Apply runs every migration. The statements are idempotent.
func Apply(ctx context.Context, db *sql.DB) error {
	names, err := fs.Glob(FS, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := fs.ReadFile(FS, name)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}
