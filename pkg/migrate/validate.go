package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

var (
	sqlFileRe     = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	createTableRe = regexp.MustCompile(`(?i)CREATE TABLE (?:IF NOT EXISTS )?(\w+) \(`)
)

type migrationFile struct {
	version string
	name    string
	body    string
}

// ValidateDir runs ValidateFS over a migrations directory on disk.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return ValidateFS(os.DirFS(dir), ".")
}

// ValidateFS checks the goose files under dir and reports every problem, not
// just the first. Names must be YYYYMMDDHHMMSS_name.sql with unique versions,
// each file needs Up and Down sections, and every table the files create must
// also be created by SQLiteSchema.
func ValidateFS(fsys fs.FS, dir string) error {
	files, err := readMigrationFiles(fsys, dir)
	if err != nil {
		return err
	}

	var problems error
	byVersion := map[string]string{}
	created := map[string]string{}
	for _, f := range files {
		if f.version == "" {
			problems = multierr.Append(problems, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", f.name))
			continue
		}
		if prev, ok := byVersion[f.version]; ok {
			problems = multierr.Append(problems, fmt.Errorf("duplicate migration version %s in %q and %q", f.version, prev, f.name))
		}
		byVersion[f.version] = f.name

		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(f.body, marker) {
				problems = multierr.Append(problems, fmt.Errorf("migration %q missing %q", f.name, marker))
			}
		}
		for _, m := range createTableRe.FindAllStringSubmatch(upSection(f.body), -1) {
			created[strings.ToLower(m[1])] = f.name
		}
	}

	mirrored := sqliteTables()
	tables := make([]string, 0, len(created))
	for table := range created {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		if !mirrored[table] {
			problems = multierr.Append(problems, fmt.Errorf("table %s from %q has no sqlite schema", table, created[table]))
		}
	}
	return problems
}

func readMigrationFiles(fsys fs.FS, dir string) ([]migrationFile, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}
	var out []migrationFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		b, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read file %q: %w", e.Name(), err)
		}
		f := migrationFile{name: e.Name(), body: string(b)}
		if m := sqlFileRe.FindStringSubmatch(e.Name()); m != nil {
			f.version = m[1]
		}
		out = append(out, f)
	}
	return out, nil
}

// upSection drops the Down half so tables recreated by a rollback are ignored.
func upSection(body string) string {
	if i := strings.Index(body, "-- +goose Down"); i >= 0 {
		return body[:i]
	}
	return body
}

func sqliteTables() map[string]bool {
	out := map[string]bool{}
	for _, stmt := range SQLiteSchema {
		for _, m := range createTableRe.FindAllStringSubmatch(stmt, -1) {
			out[strings.ToLower(m[1])] = true
		}
	}
	return out
}
