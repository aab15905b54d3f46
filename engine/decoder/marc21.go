package decoder

import (
	"io"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bibkit/marcpick/engine"
	"github.com/bibkit/marcpick/engine/matcher"
)

// DecodeMARC21 decodes one MARC21 binary record unit into normalized fields.
// The second result is false when the unit is structurally malformed: bad
// length, field terminator off the 12-byte directory grid, terminator count
// not matching the directory, or non-digit directory entries.
func DecodeMARC21(record string) ([]engine.NormalizedField, bool) {
	if record == "" || !utf8.ValidString(record) {
		return nil, false
	}
	record = strings.TrimLeftFunc(record, unicode.IsSpace)
	record = strings.NewReplacer("\t", "", "\r", "", "\n", "").Replace(record)
	rs := []rune(record)
	if len(rs) < 40 || len(rs) >= 99999 {
		return nil, false
	}

	base, terminators := -1, 0
	for i, r := range rs {
		if r == fieldTerminator {
			if base < 0 {
				base = i
			}
			terminators++
		}
	}
	if base < 0 || base%12 != 0 {
		return nil, false
	}
	if terminators != base/12-1 {
		return nil, false
	}
	for i := 24 + 3; i < base; i += 12 {
		if !allDigits(rs[i : i+9]) {
			return nil, false
		}
	}

	var fields []engine.NormalizedField
	fields = appendField(fields, engine.TagLeader+anyAll, string(rs[:24]), true)

	// Directory entries keyed by start position; resolving through the map
	// keeps the last entry for a duplicated start, then start order decides
	// which data field each tag pairs with.
	entries := make(map[string]string, (base-24)/12)
	for i := 24; i < base; i += 12 {
		entries[string(rs[i+7:i+12])] = string(rs[i : i+3])
	}
	starts := make([]string, 0, len(entries))
	for s := range entries {
		starts = append(starts, s)
	}
	sort.Strings(starts)

	data := strings.Split(string(rs[base+1:]), string(fieldTerminator))
	for k, start := range starts {
		if k >= len(data) {
			break
		}
		tag, field := entries[start], data[k]
		if strings.HasPrefix(tag, "00") {
			fields = appendField(fields, tag+anyAll, field, true)
			continue
		}
		parts := strings.Split(field, string(subfieldDelimiter))
		ind := parts[0]
		fields = appendField(fields, tag+ind+string(engine.Any), tailRunes(field, 2), false)
		fields = appendField(fields, tag+ind+string(engine.Ind), ind, false)
		for _, sf := range parts[1:] {
			sr := []rune(sf)
			if len(sr) > 1 {
				fields = appendField(fields, tag+ind+string(sr[0]), string(sr[1:]), true)
			}
		}
	}
	return fields, true
}

// MARC21Scanner splits a byte stream into record units on the 0x1D record
// terminator, reading in fixed-size chunks and carrying incomplete trailing
// fragments over to the next chunk.
type MARC21Scanner struct {
	r       io.Reader
	m       *matcher.Matcher
	buf     []byte
	tail    string
	pending []string
	outcome engine.Outcome
	err     error
	eof     bool
	done    bool
}

func NewMARC21Scanner(r io.Reader, m *matcher.Matcher, cfg engine.Config) *MARC21Scanner {
	size := cfg.ChunkSize
	if size <= 0 {
		size = engine.DefaultConfig().ChunkSize
	}
	return &MARC21Scanner{r: r, m: m, buf: make([]byte, size)}
}

func (s *MARC21Scanner) Next() bool {
	if s.done {
		return false
	}
	for {
		if len(s.pending) > 0 {
			unit := s.pending[0]
			s.pending = s.pending[1:]
			s.outcome = s.evaluate(unit)
			return true
		}
		if s.eof {
			if s.tail != "" {
				unit := s.tail
				s.tail = ""
				s.outcome = s.evaluate(unit)
				return true
			}
			s.done = true
			return false
		}
		n, err := s.r.Read(s.buf)
		if n > 0 {
			chunk := string(s.buf[:n])
			parts := strings.Split(strings.Trim(chunk, "\r\n"), string(recordTerminator))
			if len(parts) <= 1 {
				s.tail += chunk
			} else {
				s.pending = append(s.pending, s.tail+parts[0])
				s.pending = append(s.pending, parts[1:len(parts)-1]...)
				s.tail = parts[len(parts)-1]
			}
		}
		if err == io.EOF {
			s.eof = true
			continue
		}
		if err != nil {
			s.err = err
			s.done = true
			return false
		}
	}
}

func (s *MARC21Scanner) Outcome() engine.Outcome { return s.outcome }

func (s *MARC21Scanner) Err() error { return s.err }

func (s *MARC21Scanner) evaluate(unit string) engine.Outcome {
	fields, ok := DecodeMARC21(unit)
	if !ok {
		s.m.NoteMalformed()
		return engine.Malformed()
	}
	return s.m.EvaluateRecord(fields)
}
