package migrate

import (
	"fmt"
	"io/fs"
	"regexp"
	"strings"
)

var (
	migrationNameRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	createTableRe   = regexp.MustCompile(`(?i)CREATE TABLE IF NOT EXISTS\s+([a-z_]+)`)
)

// Validate checks migration file names, goose annotations, and that every
// table the Postgres migrations create is mirrored in the SQLite schema.
func Validate(fsys fs.FS) error {
	if fsys == nil {
		return fmt.Errorf("migrations fs is required")
	}
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	versions := map[string]string{}
	var tables []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		match := migrationNameRe.FindStringSubmatch(name)
		if match == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := versions[match[1]]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", match[1], prev, name)
		}
		versions[match[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %q: %w", name, err)
		}
		text := string(body)
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(text, marker) {
				return fmt.Errorf("migration %q missing %q", name, marker)
			}
		}
		for _, m := range createTableRe.FindAllStringSubmatch(text, -1) {
			tables = append(tables, strings.ToLower(m[1]))
		}
	}

	mirrored := map[string]bool{}
	for _, m := range createTableRe.FindAllStringSubmatch(sqliteSchema, -1) {
		mirrored[strings.ToLower(m[1])] = true
	}
	for _, table := range tables {
		if !mirrored[table] {
			return fmt.Errorf("table %q has no sqlite mirror in sqlite/schema.sql", table)
		}
	}
	return nil
}
