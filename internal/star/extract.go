// Package star turns raw dimension sources into deduplicated extracts and
// promotes staged churn rows into the fact table.
//
// Every extractor tolerates missing or renamed columns without erroring:
// export vintages disagree on naming, so the policy is fixed vocabularies
// plus alias normalization, never strict schema validation.
package star

import (
	"strings"

	"telcodw/internal/schema"
	"telcodw/internal/source"
	"telcodw/internal/storage"
	"telcodw/internal/transform"
)

// Extract is one deduplicated dimension candidate set, positionally aligned
// to Spec's columns. A nil cell is a missing value.
type Extract struct {
	Spec    storage.TableSpec
	Columns []string
	Rows    [][]any
}

// Empty reports whether the extract carries no candidate rows.
func (e Extract) Empty() bool { return len(e.Rows) == 0 }

// boolWords normalizes boolean-like source strings to 0/1. Unrecognized
// values map to a missing marker, never an error.
var boolWords = map[string]int64{
	"yes": 1, "y": 1, "true": 1, "1": 1,
	"no": 0, "n": 0, "false": 0, "0": 0,
}

func normalizeBool(s string) any {
	if v, ok := boolWords[strings.ToLower(strings.TrimSpace(s))]; ok {
		return v
	}
	return nil
}

// customerAttrs maps each output attribute to its accepted source spellings
// and whether it gets boolean normalization.
var customerAttrs = []struct {
	name    string
	aliases []string
	boolean bool
}{
	{"gender", []string{"gender"}, false},
	{"senior_citizen", []string{"SeniorCitizen", "senior_citizen"}, true},
	{"partner", []string{"Partner", "partner"}, true},
	{"dependents", []string{"Dependents", "dependents"}, true},
	{"age_group", []string{"AgeGroup", "age_group"}, false},
}

// ExtractCustomers collects distinct customer ids from the core export
// (preferred) or the demographics export, then left-joins the demographic
// attributes by customer id. All five attribute columns are always present
// in the output, nil-filled when the source lacked them.
func ExtractCustomers(core, demo *source.RecordSet) Extract {
	out := Extract{Spec: schema.Customer(), Columns: schema.CustomerColumns}

	var ids []string
	if core != nil {
		if col, ok := transform.Resolve(core.Columns, transform.AliasCustomerID); ok {
			ids = core.Column(col)
		}
	}
	if len(ids) == 0 && demo != nil {
		if col, ok := transform.Resolve(demo.Columns, transform.AliasCustomerID); ok {
			ids = demo.Column(col)
		}
	}

	seen := make(map[string]struct{}, len(ids))
	var distinct []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		distinct = append(distinct, id)
	}
	if len(distinct) == 0 {
		return out
	}

	// Attribute lookup tables keyed by customer id, one per demographic
	// attribute the export actually carries.
	attrByID := make([]map[string]any, len(customerAttrs))
	if demo != nil && !demo.Empty() {
		if keyCol, ok := transform.Resolve(demo.Columns, transform.AliasCustomerID); ok {
			keys := demo.Column(keyCol)
			for i, attr := range customerAttrs {
				col, ok := transform.Resolve(demo.Columns, attr.aliases)
				if !ok {
					continue
				}
				vals := demo.Column(col)
				m := make(map[string]any, len(keys))
				for r, k := range keys {
					k = strings.TrimSpace(k)
					if k == "" || r >= len(vals) {
						continue
					}
					if attr.boolean {
						m[k] = normalizeBool(vals[r])
					} else if v := strings.TrimSpace(vals[r]); v != "" {
						m[k] = v
					}
				}
				attrByID[i] = m
			}
		}
	}

	for _, id := range distinct {
		row := make([]any, len(schema.CustomerColumns))
		row[0] = id
		for i := range customerAttrs {
			if m := attrByID[i]; m != nil {
				row[i+1] = m[id]
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// ExtractServices scans the services and core exports for the fixed
// 12-attribute vocabulary, unions whatever matches, and dedupes by full-row
// equality. If neither export matches, the result is an empty typed extract.
func ExtractServices(svc, core *source.RecordSet) Extract {
	out := Extract{Spec: schema.Services(), Columns: schema.ServiceColumns}
	dedupe := newRowSet()
	for _, rs := range []*source.RecordSet{svc, core} {
		for _, row := range vocabularyRows(rs, schema.ServiceColumns) {
			if dedupe.add(row) {
				out.Rows = append(out.Rows, row)
			}
		}
	}
	return out
}

// ExtractGeography pulls the fixed 6-column location subset, row-deduplicated.
func ExtractGeography(loc *source.RecordSet) Extract {
	return singleSourceExtract(schema.Geography(), schema.GeographyColumns, loc)
}

// ExtractPopulation pulls the fixed 6-column population subset, row-deduplicated.
func ExtractPopulation(pop *source.RecordSet) Extract {
	return singleSourceExtract(schema.Population(), schema.PopulationColumns, pop)
}

func singleSourceExtract(spec storage.TableSpec, vocab []string, rs *source.RecordSet) Extract {
	out := Extract{Spec: spec, Columns: vocab}
	dedupe := newRowSet()
	for _, row := range vocabularyRows(rs, vocab) {
		if dedupe.add(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// vocabularyRows maps a record set onto a fixed column vocabulary. Source
// headers match after trim + lowercase + space→underscore normalization.
// Returns nil when the source is absent or matches no vocabulary column.
func vocabularyRows(rs *source.RecordSet, vocab []string) [][]any {
	if rs.Empty() {
		return nil
	}

	pos := make(map[string]int, len(vocab))
	for i, v := range vocab {
		pos[v] = i
	}

	srcIdx := make([]int, len(vocab))
	for i := range srcIdx {
		srcIdx[i] = -1
	}
	matched := false
	for i, c := range rs.Columns {
		k := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(c)), " ", "_")
		if t, ok := pos[k]; ok && srcIdx[t] < 0 {
			srcIdx[t] = i
			matched = true
		}
	}
	if !matched {
		return nil
	}

	rows := make([][]any, 0, len(rs.Rows))
	for _, src := range rs.Rows {
		row := make([]any, len(vocab))
		for t, i := range srcIdx {
			if i < 0 || i >= len(src) {
				continue
			}
			if v := strings.TrimSpace(src[i]); v != "" {
				row[t] = v
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// rowSet dedupes rows by full-row identity using normalized cell values.
type rowSet struct {
	seen map[string]struct{}
}

func newRowSet() *rowSet { return &rowSet{seen: map[string]struct{}{}} }

// add returns true the first time a row identity is seen.
func (s *rowSet) add(row []any) bool {
	var b strings.Builder
	for i, v := range row {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		if v == nil {
			// Missing differs from empty-string.
			b.WriteByte(0x00)
			continue
		}
		b.WriteString(storage.NormalizeKey(v))
	}
	k := b.String()
	if _, dup := s.seen[k]; dup {
		return false
	}
	s.seen[k] = struct{}{}
	return true
}
