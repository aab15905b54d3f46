package decoder

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/bibkit/marcpick/engine"
	"github.com/bibkit/marcpick/engine/matcher"
)

// Unqualified element names match any namespace, which keeps the decoding
// tolerant of both namespaced and plain MARCXML.
type xmlRecord struct {
	Leader   *xmlLeader        `xml:"leader"`
	Controls []xmlControlField `xml:"controlfield"`
	Datas    []xmlDataField    `xml:"datafield"`
}

type xmlLeader struct {
	Text string `xml:",chardata"`
}

type xmlControlField struct {
	Tag  string `xml:"tag,attr"`
	Text string `xml:",chardata"`
}

type xmlDataField struct {
	Tag       string        `xml:"tag,attr"`
	Ind1      *string       `xml:"ind1,attr"`
	Ind2      *string       `xml:"ind2,attr"`
	Subfields []xmlSubfield `xml:"subfield"`
}

type xmlSubfield struct {
	Code string `xml:"code,attr"`
	Text string `xml:",chardata"`
}

// decodeXMLRecord converts one record element into normalized fields. The
// leader is emitted at most once: a controlfield tagged LDR is dropped unless
// it differs from the leader element's text.
func decodeXMLRecord(rec xmlRecord) []engine.NormalizedField {
	var fields []engine.NormalizedField

	leader := ""
	if rec.Leader != nil {
		leader = rec.Leader.Text
	}
	fields = appendField(fields, engine.TagLeader+anyAll, leader, true)

	for _, cf := range rec.Controls {
		if cf.Tag == "" || cf.Text == "" {
			continue
		}
		if cf.Tag == engine.TagLeader && (leader == "" || leader == cf.Text) {
			continue
		}
		fields = appendField(fields, cf.Tag+anyAll, cf.Text, true)
	}

	for _, df := range rec.Datas {
		if df.Tag == "" {
			continue
		}
		ind1 := attrOr(df.Ind1, " ")
		ind2 := attrOr(df.Ind2, " ")
		ti := df.Tag + ind1 + ind2
		if len([]rune(ti)) != 5 {
			continue
		}
		fields = appendField(fields, ti+string(engine.Ind), ind1+ind2, false)
		var sfs []string
		for _, sf := range df.Subfields {
			if sf.Code == "" || sf.Text == "" {
				continue
			}
			fields = appendField(fields, ti+sf.Code, sf.Text, true)
			sfs = append(sfs, sf.Code+sf.Text)
		}
		whole := string(fieldTerminator) + strings.Join(sfs, string(fieldTerminator))
		fields = appendField(fields, ti+string(engine.Any), whole, false)
	}
	return fields
}

func attrOr(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}

// MARCXMLScanner iterates the record elements of one XML document: the root
// itself when it is a record, otherwise the record children of the root. XML
// parsing is not unit-resumable, so a parse failure anywhere yields exactly
// one Malformed outcome for the whole source.
type MARCXMLScanner struct {
	r       io.Reader
	m       *matcher.Matcher
	loaded  bool
	failed  bool
	emitted bool
	records []xmlRecord
	idx     int
	outcome engine.Outcome
}

func NewMARCXMLScanner(r io.Reader, m *matcher.Matcher) *MARCXMLScanner {
	return &MARCXMLScanner{r: r, m: m}
}

func (s *MARCXMLScanner) Next() bool {
	if !s.loaded {
		s.load()
	}
	if s.failed {
		if s.emitted {
			return false
		}
		s.emitted = true
		s.m.NoteMalformed()
		s.outcome = engine.Malformed()
		return true
	}
	if s.idx >= len(s.records) {
		return false
	}
	rec := s.records[s.idx]
	s.idx++
	s.outcome = s.m.EvaluateRecord(decodeXMLRecord(rec))
	return true
}

func (s *MARCXMLScanner) Outcome() engine.Outcome { return s.outcome }

func (s *MARCXMLScanner) Err() error { return nil }

func (s *MARCXMLScanner) load() {
	s.loaded = true
	dec := xml.NewDecoder(s.r)
	depth := 0
	sawElement := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			// the decoder tolerates top-level text, so a source that never
			// produced an element is not a document at all
			if !sawElement {
				s.failed = true
				s.records = nil
			}
			return
		}
		if err != nil {
			s.failed = true
			s.records = nil
			return
		}
		switch t := tok.(type) {
		case xml.StartElement:
			sawElement = true
			if t.Name.Local == "record" && depth <= 1 {
				var rec xmlRecord
				if err := dec.DecodeElement(&rec, &t); err != nil {
					s.failed = true
					s.records = nil
					return
				}
				s.records = append(s.records, rec)
				continue
			}
			if depth >= 1 {
				// Not a record child of the root: records nested any
				// deeper are not units.
				if err := dec.Skip(); err != nil {
					s.failed = true
					s.records = nil
					return
				}
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
}
