// Package bench aligns extracted records against ground-truth benchmark
// records and reports per-field matches, mismatches, and three-way triage.
package bench

import (
	"github.com/cbp-tools/rulings-review/internal/common"
	"github.com/cbp-tools/rulings-review/internal/schema"
)

// FieldComparison is one field's comparison outcome. Empty strings stand
// for "not found" on either side; both-empty counts as a match.
type FieldComparison struct {
	Field     string `json:"field"`
	Extracted string `json:"extracted,omitempty"`
	Benchmark string `json:"benchmark,omitempty"`
	Matched   bool   `json:"matched"`
}

// ComparisonResult holds the per-field comparison for one ruling.
type ComparisonResult struct {
	RulingID string            `json:"ruling_id"`
	Fields   []FieldComparison `json:"fields"`
}

// Matches counts matched fields.
func (r ComparisonResult) Matches() int {
	n := 0
	for _, f := range r.Fields {
		if f.Matched {
			n++
		}
	}
	return n
}

// Mismatched returns the names of mismatched fields.
func (r ComparisonResult) Mismatched() []string {
	var out []string
	for _, f := range r.Fields {
		if !f.Matched {
			out = append(out, f.Field)
		}
	}
	return out
}

// valuesEqual applies the field's comparison mode: line-exact for fields the
// spec marks exact (the signer field keeps its <br> delimiters and embedded
// spacing significant), whitespace-insensitive for everything else.
func valuesEqual(spec *schema.Spec, field, a, b string) bool {
	if spec.Exact(field) {
		return a == b
	}
	return common.CollapseWS(a) == common.CollapseWS(b)
}

// Compare evaluates an extracted record against its benchmark record field
// by field, in the benchmark spec's declared order. A field absent on one side only
// is a mismatch; absent on both sides is a match.
func Compare(extracted, benchmark schema.GoalRecord, spec *schema.Spec) ComparisonResult {
	result := ComparisonResult{RulingID: extracted.RulingID()}
	for _, field := range spec.FieldOrder {
		ev, eok := extracted.Value(field)
		bv, bok := benchmark.Value(field)

		var matched bool
		switch {
		case !eok && !bok:
			matched = true
		case eok != bok:
			matched = false
		default:
			matched = valuesEqual(spec, field, ev, bv)
		}

		result.Fields = append(result.Fields, FieldComparison{
			Field:     field,
			Extracted: ev,
			Benchmark: bv,
			Matched:   matched,
		})
	}
	return result
}

// CompareAll compares every extracted record that has a benchmark record,
// keyed by ruling id. Records without a benchmark counterpart are skipped;
// the benchmark set does not have to cover the whole run.
func CompareAll(extracted []schema.GoalRecord, benchmarks []schema.GoalRecord, spec *schema.Spec) []ComparisonResult {
	byID := recordsByID(benchmarks)
	var out []ComparisonResult
	for _, rec := range extracted {
		bench, ok := byID[rec.RulingID()]
		if !ok {
			continue
		}
		out = append(out, Compare(rec, bench, spec))
	}
	return out
}

func recordsByID(recs []schema.GoalRecord) map[string]schema.GoalRecord {
	byID := make(map[string]schema.GoalRecord, len(recs))
	for _, r := range recs {
		if id := r.RulingID(); id != "" {
			byID[id] = r
		}
	}
	return byID
}
