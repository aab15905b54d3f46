package matcher

import (
	"regexp"

	ac "github.com/petar-dambovaliev/aho-corasick"

	"github.com/bibkit/marcpick/engine"
)

// Prefilter is an Aho-Corasick automaton over the literal bodies of the
// scheme's condition regexes. When none of the literals occur in any
// condition-eligible field value, no condition can hold and the record is a
// NoMatch without running a single regex.
type Prefilter struct {
	automaton ac.AhoCorasick
	patterns  []string
}

// BuildPrefilter returns a prefilter for the scheme, or nil when one cannot
// be built soundly. Eligibility requires that every condition carries a
// purely literal regex (a presence-only condition or any regex metacharacter
// disqualifies) and that the combo evaluates false with all conditions false
// (a combo satisfied by absence, e.g. a bare "not", cannot be short-cut).
func BuildPrefilter(s *engine.Scheme) *Prefilter {
	if len(s.Conditions) == 0 {
		return nil
	}
	patterns := make([]string, 0, len(s.Conditions))
	for _, c := range s.Conditions {
		if c.Regex == nil {
			return nil
		}
		pat := c.Regex.String()
		if regexp.QuoteMeta(pat) != pat {
			return nil
		}
		patterns = append(patterns, pat)
	}
	if s.Combo.Eval(make([]bool, len(s.Conditions))) {
		return nil
	}
	builder := ac.NewAhoCorasickBuilder(ac.Opts{
		AsciiCaseInsensitive: false, // condition regexes are case-sensitive
		MatchKind:            ac.LeftMostLongestMatch,
	})
	return &Prefilter{
		automaton: builder.Build(patterns),
		patterns:  patterns,
	}
}

// PatternCount reports how many literals the automaton holds.
func (p *Prefilter) PatternCount() int { return len(p.patterns) }

// MayMatch reports whether any condition-eligible field value contains at
// least one condition literal. False means the record cannot satisfy the
// scheme's combo.
func (p *Prefilter) MayMatch(fields []engine.NormalizedField) bool {
	for _, f := range fields {
		if !f.Conditional || f.Value == "" {
			continue
		}
		if len(p.automaton.FindAll(f.Value)) > 0 {
			return true
		}
	}
	return false
}
