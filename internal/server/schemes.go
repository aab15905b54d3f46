package server

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/bibkit/marcpick/pkg/scheme"
)

// LoadSchemesFromDir walks a directory recursively and installs every
// .yml/.yaml scheme document that compiles, persisting each to the schemes
// table. Documents that fail to load are skipped, not fatal.
// Returns (loaded_count, skipped_count, error).
func (s *AppServer) LoadSchemesFromDir(ctx context.Context, dir string) (int, int, error) {
	loaded, skipped := 0, 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(d.Name())
		if ext != ".yml" && ext != ".yaml" {
			return nil
		}
		b, rerr := os.ReadFile(path)
		if rerr != nil {
			skipped++
			return nil
		}
		doc, rerr := scheme.Load(b)
		if rerr != nil {
			log.Printf("skip scheme %s: %v", path, rerr)
			skipped++
			return nil
		}
		if uerr := s.UpsertScheme(ctx, doc); uerr != nil {
			return fmt.Errorf("upsert scheme %s: %w", doc.Name, uerr)
		}
		s.InstallScheme(doc)
		loaded++
		return nil
	})
	if err != nil {
		return loaded, skipped, fmt.Errorf("walk dir: %w", err)
	}
	return loaded, skipped, nil
}
