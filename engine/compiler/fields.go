package compiler

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/bibkit/marcpick/engine"
)

// CompileFields parses the tab-separated field-selector text into an ordered
// list of field queries. Each entry must be at least 6 characters long with a
// printable 6-character prefix; entries are lower-cased whole. Output columns
// are positional, so input order is preserved.
func CompileFields(text string) ([]engine.FieldQuery, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty field selector")
	}
	parts := strings.Split(text, "\t")
	out := make([]engine.FieldQuery, 0, len(parts))
	for _, p := range parts {
		rs := []rune(p)
		if len(rs) < 6 {
			return nil, fmt.Errorf("field query %q shorter than 6 characters", p)
		}
		if !isPrintable(rs[:6]) {
			return nil, fmt.Errorf("field query %q has a non-printable prefix", p)
		}
		out = append(out, engine.FieldQuery(strings.ToLower(p)))
	}
	return out, nil
}

func isPrintable(rs []rune) bool {
	for _, r := range rs {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
