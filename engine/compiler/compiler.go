// Package compiler turns the user-supplied field-selector and condition text
// into a compiled engine.Scheme.
package compiler

import (
	"fmt"

	"github.com/bibkit/marcpick/engine"
)

// Compile builds a Scheme from the tab-separated field-selector text and the
// condition text. Compilation is atomic: any error in either input yields a
// nil Scheme, never a partially usable one. An empty condition is valid and
// means no filtering.
func Compile(fieldText, condText string) (*engine.Scheme, error) {
	fields, err := CompileFields(fieldText)
	if err != nil {
		return nil, fmt.Errorf("field selector: %w", err)
	}
	conds, combo, skeleton, err := CompileCondition(condText)
	if err != nil {
		return nil, fmt.Errorf("condition: %w", err)
	}
	return &engine.Scheme{
		Fields:     fields,
		Conditions: conds,
		Combo:      combo,
		ComboText:  skeleton,
	}, nil
}
