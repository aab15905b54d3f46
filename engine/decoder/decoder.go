// Package decoder turns raw MARC21, MARCXML and Aleph sequential input into
// per-record outcomes. Each format has a pure decode function producing
// normalized fields and a scanner that splits a continuous source into record
// units; matching itself lives in the matcher package and is shared by all
// three formats.
package decoder

import (
	"fmt"
	"io"
	"strings"

	"github.com/bibkit/marcpick/engine"
	"github.com/bibkit/marcpick/engine/matcher"
)

// Format names accepted by New.
const (
	FormatMARC21  = "marc21"
	FormatMARCXML = "marcxml"
	FormatAleph   = "aleph"
)

// MARC21 structural delimiters.
const (
	recordTerminator  = '\x1D'
	fieldTerminator   = '\x1E'
	subfieldDelimiter = '\x1F'
)

// anyAll is the wildcard variant+selector suffix of control-style labels.
var anyAll = strings.Repeat(string(engine.Any), 3)

// Scanner is a pull-based iterator over the record units of one source.
// After Next returns false, Err reports any failure of the underlying reader;
// malformed units are outcomes, not errors.
type Scanner interface {
	Next() bool
	Outcome() engine.Outcome
	Err() error
}

// New returns the scanner for the named format.
func New(format string, r io.Reader, m *matcher.Matcher, cfg engine.Config) (Scanner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch format {
	case FormatMARC21:
		return NewMARC21Scanner(r, m, cfg), nil
	case FormatMARCXML:
		return NewMARCXMLScanner(r, m), nil
	case FormatAleph:
		return NewAlephScanner(r, m), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// appendField adds one normalized field unless the value is empty; empty
// decoded fields can never satisfy a query or a condition.
func appendField(fields []engine.NormalizedField, label, value string, conditional bool) []engine.NormalizedField {
	if value == "" {
		return fields
	}
	return append(fields, engine.NormalizedField{Label: label, Value: value, Conditional: conditional})
}

func allDigits(rs []rune) bool {
	for _, r := range rs {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// tailRunes returns the string from rune position n on, or "" when shorter.
func tailRunes(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return ""
	}
	return string(rs[n:])
}
