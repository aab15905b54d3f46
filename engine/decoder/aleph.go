package decoder

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/bibkit/marcpick/engine"
	"github.com/bibkit/marcpick/engine/matcher"
)

// alephDelimiter separates subfields inside an Aleph sequential value.
const alephDelimiter = "$$"

// DecodeAleph decodes one Aleph sequential record unit: a run of lines
// sharing the same 9-digit leading document number. Short lines and lines
// with a non-numeric prefix are skipped rather than fatal; only an empty unit
// or undecodable bytes are malformed.
func DecodeAleph(lines []string) ([]engine.NormalizedField, bool) {
	if len(lines) == 0 {
		return nil, false
	}
	for _, l := range lines {
		if !utf8.ValidString(l) {
			return nil, false
		}
	}

	var fields []engine.NormalizedField
	if first := []rune(strings.TrimSpace(lines[0])); len(first) > 18 && allDigits(first[:9]) {
		fields = appendField(fields, engine.TagSystemNumber+anyAll, string(first[:9]), true)
	}
	for _, line := range lines {
		rs := []rune(strings.TrimSpace(line))
		if len(rs) < 19 || !allDigits(rs[:9]) {
			continue
		}
		tag := string(rs[10:13])
		value := string(rs[18:])
		if tag == "FMT" || tag == engine.TagLeader || strings.HasPrefix(tag, "00") {
			fields = appendField(fields, tag+anyAll, value, true)
			continue
		}
		ind := string(rs[13:15])
		fields = appendField(fields, tag+ind+string(engine.Any), value, false)
		fields = appendField(fields, tag+ind+string(engine.Ind), ind, false)
		for _, sf := range strings.Split(value, alephDelimiter) {
			sr := []rune(sf)
			if len(sr) > 1 {
				fields = appendField(fields, tag+ind+string(sr[0]), string(sr[1:]), true)
			}
		}
	}
	return fields, true
}

// AlephScanner groups consecutive lines by their 9-character document number
// prefix; a prefix change closes the current record unit.
type AlephScanner struct {
	sc      *bufio.Scanner
	m       *matcher.Matcher
	asn     string
	group   []string
	outcome engine.Outcome
	err     error
	done    bool
}

func NewAlephScanner(r io.Reader, m *matcher.Matcher) *AlephScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &AlephScanner{sc: sc, m: m}
}

func (s *AlephScanner) Next() bool {
	if s.done {
		return false
	}
	for s.sc.Scan() {
		line := strings.TrimSpace(s.sc.Text())
		rs := []rune(line)
		if len(rs) < 19 {
			continue
		}
		prefix := string(rs[:9])
		if s.asn != "" && s.asn != prefix {
			group := s.group
			s.asn = prefix
			s.group = []string{line}
			s.outcome = s.evaluate(group)
			return true
		}
		s.asn = prefix
		s.group = append(s.group, line)
	}
	if err := s.sc.Err(); err != nil {
		s.err = err
		s.done = true
		return false
	}
	s.done = true
	if s.asn != "" {
		group := s.group
		s.asn = ""
		s.group = nil
		s.outcome = s.evaluate(group)
		return true
	}
	return false
}

func (s *AlephScanner) Outcome() engine.Outcome { return s.outcome }

func (s *AlephScanner) Err() error { return s.err }

func (s *AlephScanner) evaluate(lines []string) engine.Outcome {
	fields, ok := DecodeAleph(lines)
	if !ok {
		s.m.NoteMalformed()
		return engine.Malformed()
	}
	return s.m.EvaluateRecord(fields)
}
