package schemes

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bibkit/marcpick/pkg/scheme"
)

func isYAML(p string) bool {
	l := strings.ToLower(p)
	return strings.HasSuffix(l, ".yml") || strings.HasSuffix(l, ".yaml")
}

// LoadDirRecursive loads every .yml/.yaml scheme document under root.
func LoadDirRecursive(root string) ([]scheme.Document, error) {
	var out []scheme.Document
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAML(p) {
			return nil
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		doc, err := scheme.Load(b)
		if err != nil {
			return err
		}
		out = append(out, doc)
		return nil
	})
	return out, err
}
