package database

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// ApplyMigrations executes every *.up.sql file in fsys in lexical order.
// Migrations are written for Postgres; SQLite pools create their schema from
// the store models instead.
func (p *Pool) ApplyMigrations(ctx context.Context, fsys fs.FS) error {
	if p.driver != DriverPostgres {
		return fmt.Errorf("sql migrations require postgres, pool uses %s", p.driver)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := p.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", file, err)
		}
	}
	return nil
}
