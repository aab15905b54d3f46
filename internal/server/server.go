// Package server exposes the extraction pipeline over HTTP and persists
// schemes and extraction results in Postgres.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bibkit/marcpick/engine"
	"github.com/bibkit/marcpick/engine/compiler"
	"github.com/bibkit/marcpick/engine/decoder"
	"github.com/bibkit/marcpick/engine/matcher"
	"github.com/bibkit/marcpick/pkg/scheme"
)

// maxExtractBody caps the request body of one extraction call.
const maxExtractBody = 64 << 20

type AppServer struct {
	db      *sql.DB
	cfg     engine.Config
	mu      sync.RWMutex // protects the installed scheme map
	evalMu  sync.Mutex   // serialize matcher usage (matchers are not goroutine-safe)
	schemes map[string]*installedScheme
}

type installedScheme struct {
	doc     scheme.Document
	matcher *matcher.Matcher
}

func NewAppServer(db *sql.DB, cfg engine.Config) *AppServer {
	return &AppServer{db: db, cfg: cfg, schemes: make(map[string]*installedScheme)}
}

// RegisterRoutes wires HTTP handlers.
func (s *AppServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/schemes", s.handleSchemes)
	mux.HandleFunc("/api/v1/extract", s.handleExtract)
}

// InstallScheme makes a compiled scheme document available for extraction.
func (s *AppServer) InstallScheme(doc scheme.Document) {
	inst := &installedScheme{doc: doc, matcher: matcher.New(doc.Scheme, s.cfg)}
	s.mu.Lock()
	s.schemes[doc.Name] = inst
	s.mu.Unlock()
}

func (s *AppServer) lookupScheme(name string) *installedScheme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schemes[name]
}

// ---- Handlers ----

func (s *AppServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *AppServer) handleStats(w http.ResponseWriter, r *http.Request) {
	type schemeStats struct {
		Scheme    string        `json:"scheme"`
		Queries   int           `json:"queries"`
		Prefilter bool          `json:"prefilter"`
		Stats     matcher.Stats `json:"stats"`
	}
	s.mu.RLock()
	out := make([]schemeStats, 0, len(s.schemes))
	for name, inst := range s.schemes {
		out = append(out, schemeStats{
			Scheme:    name,
			Queries:   len(inst.doc.Scheme.Fields),
			Prefilter: inst.matcher.PrefilterEnabled(),
			Stats:     inst.matcher.Stats(),
		})
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Scheme < out[j].Scheme })
	writeJSON(w, http.StatusOK, out)
}

// handleSchemes supports GET (list installed schemes) and POST (compile and
// install one scheme). POST body: {name, fields, condition}.
func (s *AppServer) handleSchemes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		type item struct {
			Name       string `json:"name"`
			Fields     string `json:"fields"`
			Condition  string `json:"condition"`
			Queries    int    `json:"queries"`
			Conditions int    `json:"conditions"`
		}
		s.mu.RLock()
		out := make([]item, 0, len(s.schemes))
		for _, inst := range s.schemes {
			out = append(out, item{
				Name:       inst.doc.Name,
				Fields:     inst.doc.FieldText,
				Condition:  inst.doc.Condition,
				Queries:    len(inst.doc.Scheme.Fields),
				Conditions: len(inst.doc.Scheme.Conditions),
			})
		}
		s.mu.RUnlock()
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var req struct {
			Name      string `json:"name"`
			Fields    string `json:"fields"`
			Condition string `json:"condition"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		if req.Name == "" {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("missing scheme name"))
			return
		}
		compiled, err := compiler.Compile(req.Fields, req.Condition)
		if err != nil {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		doc := scheme.Document{Name: req.Name, FieldText: req.Fields, Condition: req.Condition, Scheme: compiled}
		if err := s.UpsertScheme(r.Context(), doc); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		s.InstallScheme(doc)
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"scheme":  doc.Name,
			"queries": len(compiled.Fields),
		})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleExtract runs the request body through the pipeline:
// POST /api/v1/extract?scheme=NAME&format=marc21|marcxml|aleph.
func (s *AppServer) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	name := r.URL.Query().Get("scheme")
	format := r.URL.Query().Get("format")
	inst := s.lookupScheme(name)
	if inst == nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("unknown scheme %q", name))
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxExtractBody)
	sc, err := decoder.New(format, body, inst.matcher, s.cfg)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	type result struct {
		Record int        `json:"record"`
		Status string     `json:"status"`
		Values [][]string `json:"values,omitempty"`
	}
	jobID := uuid.NewString()
	results := []result{}
	processed, matched, malformed := 0, 0, 0

	s.evalMu.Lock()
	for sc.Next() {
		out := sc.Outcome()
		res := result{Record: processed, Status: out.Kind.String()}
		switch out.Kind {
		case engine.OutcomeMatched:
			matched++
			res.Values = out.Values
		case engine.OutcomeMalformed:
			malformed++
		}
		results = append(results, res)
		processed++
	}
	scanErr := sc.Err()
	s.evalMu.Unlock()
	if scanErr != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("read input: %w", scanErr))
		return
	}

	if err := s.insertExtraction(r.Context(), jobID, name, format, processed, matched, malformed); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	for _, res := range results {
		if res.Status != engine.OutcomeMatched.String() {
			continue
		}
		if err := s.insertExtractionValues(r.Context(), jobID, res.Record, res.Values); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
	}

	log.Printf("extract job=%s scheme=%s format=%s processed=%d matched=%d malformed=%d",
		jobID, name, format, processed, matched, malformed)
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":    jobID,
		"scheme":    name,
		"format":    format,
		"processed": processed,
		"matched":   matched,
		"malformed": malformed,
		"results":   results,
	})
}

// ---- Persistence ----

func (s *AppServer) UpsertScheme(ctx context.Context, doc scheme.Document) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO schemes(name, fields, condition, combo, updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (name) DO UPDATE SET fields=EXCLUDED.fields, condition=EXCLUDED.condition, combo=EXCLUDED.combo, updated_at=EXCLUDED.updated_at`,
		doc.Name, doc.FieldText, doc.Condition, doc.Scheme.ComboText, time.Now().UTC(),
	)
	return err
}

func (s *AppServer) insertExtraction(ctx context.Context, jobID, schemeName, format string, processed, matched, malformed int) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO extractions(job_id, scheme, format, received_at, processed, matched, malformed)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		jobID, schemeName, format, time.Now().UTC(), processed, matched, malformed)
	return err
}

func (s *AppServer) insertExtractionValues(ctx context.Context, jobID string, recordIndex int, values [][]string) error {
	b, err := json.Marshal(values)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO extraction_values(job_id, record_index, columns)
		VALUES ($1,$2,$3)`, jobID, recordIndex, string(b))
	return err
}

// ---- Helpers ----

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON error: %v", err)
	}
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": err.Error()})
}
