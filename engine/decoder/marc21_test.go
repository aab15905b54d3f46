package decoder

import (
	"reflect"
	"strings"
	"testing"

	"github.com/bibkit/marcpick/engine"
	"github.com/bibkit/marcpick/engine/compiler"
	"github.com/bibkit/marcpick/engine/matcher"
)

const marcLeader = "00128nam a2200061 a 4500"

// marcRecord builds a two-field record: control field 001 and data field 245
// with indicators "1 " and subfield a. The directory lengths are plausible
// but not validated against the data, which mirrors how lenient real-world
// MARC processing has to be.
func marcRecord(title string) string {
	dir := "001000400000" + "245001000004"
	return marcLeader + dir + "\x1e" + "123\x1e" + "1 \x1fa" + title + "\x1e"
}

func mustMatcher(t *testing.T, fields, cond string) *matcher.Matcher {
	t.Helper()
	s, err := compiler.Compile(fields, cond)
	if err != nil {
		t.Fatalf("Compile(%q, %q): %v", fields, cond, err)
	}
	return matcher.New(s, engine.DefaultConfig())
}

func collect(t *testing.T, sc Scanner) []engine.Outcome {
	t.Helper()
	var out []engine.Outcome
	for sc.Next() {
		out = append(out, sc.Outcome())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestDecodeMARC21(t *testing.T) {
	fields, ok := DecodeMARC21(marcRecord("Title"))
	if !ok {
		t.Fatalf("record rejected")
	}
	want := []engine.NormalizedField{
		{Label: "LDR@@@", Value: marcLeader, Conditional: true},
		{Label: "001@@@", Value: "123", Conditional: true},
		{Label: "2451 @", Value: "\x1faTitle", Conditional: false},
		{Label: "2451 #", Value: "1 ", Conditional: false},
		{Label: "2451 a", Value: "Title", Conditional: true},
	}
	if !reflect.DeepEqual(fields, want) {
		t.Errorf("fields = %+v\nwant %+v", fields, want)
	}
}

func TestDecodeMARC21StripsNoise(t *testing.T) {
	// leading whitespace and embedded CR/LF/TAB are removed before any
	// offset arithmetic
	noisy := "\n  " + strings.Replace(marcRecord("Title"), "\x1e123", "\x1e1\r\n23", 1)
	fields, ok := DecodeMARC21(noisy)
	if !ok {
		t.Fatalf("noisy record rejected")
	}
	if fields[1].Value != "123" {
		t.Errorf("control value = %q, want 123", fields[1].Value)
	}
}

func TestDecodeMARC21Malformed(t *testing.T) {
	valid := marcRecord("Title")
	cases := []struct {
		name   string
		record string
	}{
		{"empty", ""},
		{"too short", "0012"},
		{"too long", strings.Repeat("0", 100000)},
		{"terminator off grid", valid[:48] + "Z" + valid[48:]},
		{"terminator count", valid + "\x1e"},
		{"non-digit directory", valid[:27] + "A" + valid[28:]},
		{"invalid utf8", "\xff" + valid},
	}
	for _, c := range cases {
		if _, ok := DecodeMARC21(c.record); ok {
			t.Errorf("%s: record accepted", c.name)
		}
	}
}

func TestDecodeMARC21DuplicateStart(t *testing.T) {
	// two directory entries pointing at the same start position: the later
	// entry wins
	dir := "100000400000" + "245000400000"
	record := marcLeader + dir + "\x1e" + "1 \x1faX\x1e" + "ignored\x1e"
	fields, ok := DecodeMARC21(record)
	if !ok {
		t.Fatalf("record rejected")
	}
	for _, f := range fields {
		if strings.HasPrefix(f.Label, "100") {
			t.Errorf("shadowed entry emitted: %+v", f)
		}
	}
	found := false
	for _, f := range fields {
		if f.Label == "2451 a" && f.Value == "X" {
			found = true
		}
	}
	if !found {
		t.Errorf("winning entry not emitted: %+v", fields)
	}
}

func TestMARC21ScannerSplitsRecords(t *testing.T) {
	input := marcRecord("Title") + "\x1d" + marcRecord("Other") + "\x1d"
	m := mustMatcher(t, "245@@a", "")
	sc := NewMARC21Scanner(strings.NewReader(input), m, engine.DefaultConfig())
	outs := collect(t, sc)
	if len(outs) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outs))
	}
	if !reflect.DeepEqual(outs[0].Values, [][]string{{"Title"}}) {
		t.Errorf("record 0 values = %v", outs[0].Values)
	}
	if !reflect.DeepEqual(outs[1].Values, [][]string{{"Other"}}) {
		t.Errorf("record 1 values = %v", outs[1].Values)
	}
}

func TestMARC21ScannerNoTrailingTerminator(t *testing.T) {
	input := marcRecord("Title") + "\x1d" + marcRecord("Other")
	m := mustMatcher(t, "245@@a", "")
	sc := NewMARC21Scanner(strings.NewReader(input), m, engine.DefaultConfig())
	outs := collect(t, sc)
	if len(outs) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outs))
	}
	if outs[1].Kind != engine.OutcomeMatched {
		t.Errorf("final record = %v, want matched", outs[1].Kind)
	}
}

// Records split across chunk boundaries must reassemble identically whatever
// the chunk size.
func TestMARC21ScannerChunkBoundaries(t *testing.T) {
	input := marcRecord("Title") + "\x1d" + marcRecord("Other") + "\x1d" + marcRecord("Third") + "\x1d"
	run := func(chunk int) []engine.Outcome {
		m := mustMatcher(t, "245@@a", "")
		sc := NewMARC21Scanner(strings.NewReader(input), m, engine.Config{ChunkSize: chunk, EnablePrefilter: true})
		return collect(t, sc)
	}
	want := run(4096)
	for _, chunk := range []int{1, 5, 7, 63, 64, 65} {
		if got := run(chunk); !reflect.DeepEqual(got, want) {
			t.Errorf("chunk size %d: outcomes diverge: %v vs %v", chunk, got, want)
		}
	}
}

func TestMARC21ScannerMalformedUnit(t *testing.T) {
	input := marcRecord("Title") + "\x1d" + "garbage" + "\x1d" + marcRecord("Other") + "\x1d"
	m := mustMatcher(t, "245@@a", "")
	sc := NewMARC21Scanner(strings.NewReader(input), m, engine.DefaultConfig())
	outs := collect(t, sc)
	if len(outs) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outs))
	}
	kinds := []engine.OutcomeKind{outs[0].Kind, outs[1].Kind, outs[2].Kind}
	want := []engine.OutcomeKind{engine.OutcomeMatched, engine.OutcomeMalformed, engine.OutcomeMatched}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("kinds = %v, want %v", kinds, want)
	}
	if st := m.Stats(); st.Malformed != 1 || st.Records != 3 {
		t.Errorf("stats = %+v", st)
	}
}

func TestMARC21ScannerEmptyInput(t *testing.T) {
	m := mustMatcher(t, "245@@a", "")
	sc := NewMARC21Scanner(strings.NewReader(""), m, engine.DefaultConfig())
	if outs := collect(t, sc); len(outs) != 0 {
		t.Errorf("got %d outcomes from empty input", len(outs))
	}
}
