package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

//go:embed migrations/*.surql
var migrationFiles embed.FS

// Migrations returns the embedded migration names in apply order.
func Migrations() ([]string, error) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".surql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Migrate applies embedded SurrealQL migrations that have not run yet.
// Applied names are recorded in the schema_migration table.
func Migrate(ctx context.Context, db Database) error {
	names, err := Migrations()
	if err != nil {
		return err
	}

	for _, name := range names {
		_, err := db.QueryOne(ctx, `SELECT name FROM schema_migration WHERE name = $name LIMIT 1`, map[string]interface{}{
			"name": name,
		})
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("check migration %s: %w", name, err)
		}

		body, err := migrationFiles.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if err := db.Execute(ctx, string(body), nil); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if err := db.Execute(ctx, `CREATE schema_migration CONTENT { name: $name, applied_on: time::now() }`, map[string]interface{}{
			"name": name,
		}); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}

		slog.Info("applied migration", slog.String("name", name))
	}

	return nil
}
