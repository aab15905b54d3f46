// Package matcher evaluates decoded records against one compiled scheme. The
// matching logic is shared by all three format decoders; per-record state
// (condition match flags) is local to each EvaluateRecord call and never
// survives between records.
package matcher

import (
	"github.com/bibkit/marcpick/engine"
)

// Stats counts per-matcher activity. A Matcher is driven sequentially, so no
// synchronization is carried here.
type Stats struct {
	Records         int `json:"records"`
	Matched         int `json:"matched"`
	NoMatch         int `json:"no_match"`
	Malformed       int `json:"malformed"`
	PrefilterHits   int `json:"prefilter_hits"`
	PrefilterMisses int `json:"prefilter_misses"`
}

// Matcher binds a compiled scheme to its (optional) literal prefilter and
// running counters.
type Matcher struct {
	scheme    *engine.Scheme
	prefilter *Prefilter
	stats     Stats
}

// New builds a Matcher for the scheme. The prefilter is only attached when
// the configuration enables it and the scheme proves eligible.
func New(s *engine.Scheme, cfg engine.Config) *Matcher {
	m := &Matcher{scheme: s}
	if cfg.EnablePrefilter {
		m.prefilter = BuildPrefilter(s)
	}
	return m
}

func (m *Matcher) Scheme() *engine.Scheme { return m.scheme }

func (m *Matcher) Stats() Stats { return m.stats }

// PrefilterEnabled reports whether a literal prefilter was built.
func (m *Matcher) PrefilterEnabled() bool { return m.prefilter != nil }

// NoteMalformed counts a record unit the decoder rejected.
func (m *Matcher) NoteMalformed() {
	m.stats.Records++
	m.stats.Malformed++
}

// EvaluateRecord runs one decoded record through field-query extraction and
// condition evaluation. Condition accumulators are allocated per call; empty
// values never participate.
func (m *Matcher) EvaluateRecord(fields []engine.NormalizedField) engine.Outcome {
	m.stats.Records++

	if m.prefilter != nil {
		if !m.prefilter.MayMatch(fields) {
			m.stats.PrefilterMisses++
			m.stats.NoMatch++
			return engine.NoMatch()
		}
		m.stats.PrefilterHits++
	}

	values := make([][]string, len(m.scheme.Fields))
	for i := range values {
		values[i] = []string{}
	}
	matched := make([][]bool, len(m.scheme.Conditions))

	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		for i, q := range m.scheme.Fields {
			if q.Matches(f.Label) {
				values[i] = append(values[i], f.Value)
			}
		}
		if !f.Conditional {
			continue
		}
		for j := range m.scheme.Conditions {
			c := &m.scheme.Conditions[j]
			if !c.Matches(f.Label) {
				continue
			}
			ok := c.Regex == nil || c.Regex.MatchString(f.Value)
			matched[j] = append(matched[j], ok)
		}
	}

	if len(m.scheme.Conditions) > 0 {
		bools := make([]bool, len(matched))
		for j, flags := range matched {
			for _, b := range flags {
				if b {
					bools[j] = true
					break
				}
			}
		}
		if !m.scheme.Combo.Eval(bools) {
			m.stats.NoMatch++
			return engine.NoMatch()
		}
	}

	m.stats.Matched++
	return engine.Matched(values)
}
