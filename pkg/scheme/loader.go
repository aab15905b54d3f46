// Package scheme loads named extraction schemes from YAML documents. A
// document pairs a field selector with an optional condition and compiles to
// an engine.Scheme on load, so an installed scheme is always valid.
package scheme

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bibkit/marcpick/engine"
	"github.com/bibkit/marcpick/engine/compiler"
)

type rawDocument struct {
	Name      string `yaml:"name"`
	Fields    any    `yaml:"fields"`
	Condition string `yaml:"condition"`
}

// Document is one loaded scheme file.
type Document struct {
	Name      string
	FieldText string
	Condition string
	Scheme    *engine.Scheme
}

// Load parses and compiles one YAML scheme document. `fields` may be a single
// tab-separated string or a list of selectors.
func Load(b []byte) (Document, error) {
	var raw rawDocument
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return Document{}, err
	}
	if strings.TrimSpace(raw.Name) == "" {
		return Document{}, errors.New("missing scheme name")
	}
	text, err := fieldText(raw.Fields)
	if err != nil {
		return Document{}, fmt.Errorf("scheme %s: %w", raw.Name, err)
	}
	s, err := compiler.Compile(text, raw.Condition)
	if err != nil {
		return Document{}, fmt.Errorf("scheme %s: %w", raw.Name, err)
	}
	return Document{
		Name:      strings.TrimSpace(raw.Name),
		FieldText: text,
		Condition: raw.Condition,
		Scheme:    s,
	}, nil
}

func fieldText(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []any:
		parts := make([]string, 0, len(t))
		for i, it := range t {
			s, ok := it.(string)
			if !ok {
				return "", fmt.Errorf("fields entry %d is not a string", i)
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, "\t"), nil
	case nil:
		return "", errors.New("missing fields")
	default:
		return "", errors.New("fields must be a string or a list of strings")
	}
}
