package server

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS schemes (
		name       TEXT PRIMARY KEY,
		fields     TEXT NOT NULL,
		condition  TEXT NOT NULL DEFAULT '',
		combo      TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS extractions (
		job_id      TEXT PRIMARY KEY,
		scheme      TEXT NOT NULL,
		format      TEXT NOT NULL,
		received_at TIMESTAMPTZ NOT NULL,
		processed   INTEGER NOT NULL,
		matched     INTEGER NOT NULL,
		malformed   INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS extraction_values (
		id           BIGSERIAL PRIMARY KEY,
		job_id       TEXT NOT NULL REFERENCES extractions(job_id),
		record_index INTEGER NOT NULL,
		columns      TEXT NOT NULL
	)`,
}

// InitSchema creates the tables. When MARCPICK_MIGRATIONS_PATH points at a
// directory of .sql files those run instead, in lexicographic order.
func (s *AppServer) InitSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if dir := os.Getenv("MARCPICK_MIGRATIONS_PATH"); dir != "" {
		return s.RunMigrations(dir)
	}
	for _, stmt := range schemaDDL {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// RunMigrations executes all SQL files in the given directory in
// lexicographic order. Each file may contain multiple statements separated
// by ';'.
func (s *AppServer) RunMigrations(dir string) error {
	entries := make([]string, 0)
	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			entries = append(entries, path)
		}
		return nil
	}
	if err := filepath.WalkDir(dir, walkFn); err != nil {
		return err
	}
	sort.Strings(entries)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, p := range entries {
		b, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", p, err)
		}
		for _, c := range strings.Split(string(b), ";") {
			stmt := strings.TrimSpace(c)
			if stmt == "" {
				continue
			}
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("exec migration %s: %w", p, err)
			}
		}
	}
	return nil
}
