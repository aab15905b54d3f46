// Package engine holds the core data model of the marcpick pipeline: the
// field-label alphabet, compiled scheme IR, normalized fields produced by the
// format decoders, and per-record outcomes.
package engine

import (
	"regexp"
	"unicode"
)

// Wildcard sentinels used inside 6-character field labels.
// Any stands for "any value" at its position; Ind selects the literal
// 2-character indicator string of a data field.
const (
	Any rune = '@'
	Ind rune = '#'
)

// Pseudo-tags emitted by the decoders for non-data-field content.
const (
	TagLeader       = "LDR" // record leader
	TagSystemNumber = "ASN" // Aleph document/system number
)

// FieldQuery is a compiled field-selector pattern: a lower-cased string of at
// least 6 printable characters. The first 6 characters are positionally
// meaningful ([tag:3][variant:2][selector:1]); anything beyond position 6 is
// retained but never compared.
type FieldQuery string

// Matches reports whether the query selects the given field label.
func (q FieldQuery) Matches(label string) bool {
	return matchLabel(string(q), label)
}

// Condition is one compiled filter term: a 6-character label pattern plus an
// optional regex. A nil Regex means "match on presence". Condition values are
// immutable after compilation; per-record match flags live in the matcher,
// never here.
type Condition struct {
	Label string
	Regex *regexp.Regexp
}

// Matches reports whether the condition targets the given field label.
func (c Condition) Matches(label string) bool {
	return matchLabel(c.Label, label)
}

// matchLabel compares a compiled pattern (field query or condition label)
// against a decoded label, position by position, case-insensitively on the
// label side. Comparison stops at the shorter of the two; the Any wildcard is
// honored on the pattern side at the two variant positions only.
func matchLabel(pattern, label string) bool {
	p := []rune(pattern)
	l := []rune(label)
	n := len(p)
	if len(l) < n {
		n = len(l)
	}
	for j := 0; j < n; j++ {
		if p[j] == unicode.ToLower(l[j]) {
			continue
		}
		if (j == 3 || j == 4) && p[j] == Any {
			continue
		}
		return false
	}
	return true
}

// ComboKind enumerates the node kinds of the boolean-combination AST.
type ComboKind int

const (
	ComboPlaceholder ComboKind = iota
	ComboAnd
	ComboOr
	ComboNot
)

// ComboNode is one node of the boolean expression combining condition
// outcomes. Placeholders are indexed in condition order.
type ComboNode struct {
	Kind ComboKind

	// Placeholder
	Index int

	// Binary
	Left, Right *ComboNode

	// Unary
	Operand *ComboNode
}

// Eval substitutes each placeholder with its condition's computed boolean and
// evaluates the expression. Out-of-range placeholders evaluate to false.
func (n *ComboNode) Eval(vals []bool) bool {
	switch n.Kind {
	case ComboPlaceholder:
		if n.Index >= 0 && n.Index < len(vals) {
			return vals[n.Index]
		}
		return false
	case ComboAnd:
		return n.Left.Eval(vals) && n.Right.Eval(vals)
	case ComboOr:
		return n.Left.Eval(vals) || n.Right.Eval(vals)
	case ComboNot:
		return !n.Operand.Eval(vals)
	default:
		return false
	}
}

// Scheme is a fully compiled extraction scheme. A Scheme is only ever
// produced whole: if either the field selector or the condition text fails to
// compile, no Scheme exists at all.
type Scheme struct {
	Fields     []FieldQuery
	Conditions []Condition
	// Combo is nil when there are no conditions; every well-formed record
	// then matches.
	Combo *ComboNode
	// ComboText is the placeholder skeleton the Combo was parsed from,
	// kept for display and persistence.
	ComboText string
}

// NormalizedField is one labeled value decoded from a record unit.
// Conditional marks emissions that participate in condition evaluation
// (leader, control fields, system numbers and subfields); whole-field and
// indicator-string emissions only feed field queries.
type NormalizedField struct {
	Label       string
	Value       string
	Conditional bool
}

// OutcomeKind distinguishes the three per-record results.
type OutcomeKind int

const (
	OutcomeMalformed OutcomeKind = iota
	OutcomeNoMatch
	OutcomeMatched
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeMalformed:
		return "malformed"
	case OutcomeNoMatch:
		return "no_match"
	case OutcomeMatched:
		return "matched"
	default:
		return "unknown"
	}
}

// Outcome is the result of decoding and evaluating one record unit. For
// Matched outcomes, Values holds one slice per field query, in query order,
// each listing the values that matched in document order.
type Outcome struct {
	Kind   OutcomeKind
	Values [][]string
}

func Malformed() Outcome { return Outcome{Kind: OutcomeMalformed} }

func NoMatch() Outcome { return Outcome{Kind: OutcomeNoMatch} }

func Matched(values [][]string) Outcome {
	return Outcome{Kind: OutcomeMatched, Values: values}
}
