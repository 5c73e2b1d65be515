package bench

import (
	"github.com/cbp-tools/rulings-review/internal/schema"
)

// TriageEntry shows all three values for one flagged field. Empty means the
// value was not found (or that no record exists for that side).
type TriageEntry struct {
	Bench string `json:"bench,omitempty"`
	Regex string `json:"regex,omitempty"`
	LLM   string `json:"llm,omitempty"`
}

// TriageReport is ruling id -> field -> flagged values, covering only
// fields worth manual review.
type TriageReport map[string]map[string]TriageEntry

// DisagreementReport lists, per ruling id, the fields where the regex and
// LLM paths disagree. Compact by design: field names only.
func DisagreementReport(regexRecs, llmRecs []schema.GoalRecord, spec *schema.Spec) map[string][]string {
	byIDLLM := recordsByID(llmRecs)

	report := make(map[string][]string)
	for _, rr := range regexRecs {
		id := rr.RulingID()
		lr, ok := byIDLLM[id]
		if id == "" || !ok {
			continue
		}
		var diffs []string
		for _, field := range spec.FieldOrder {
			rv, _ := rr.Value(field)
			lv, _ := lr.Value(field)
			if !valuesEqual(spec, field, rv, lv) {
				diffs = append(diffs, field)
			}
		}
		if len(diffs) > 0 {
			report[id] = diffs
		}
	}
	return report
}

// Triage combines regex, LLM and benchmark values into a manual-review
// report. A field is included when the LLM record is missing entirely, when
// regex and LLM disagree, or (optionally) when either method disagrees with
// the benchmark. Original values are stored uncollapsed so the report keeps
// its formatting context.
func Triage(regexRecs, llmRecs, benchRecs []schema.GoalRecord, spec *schema.Spec, includeMethodVsBench bool) TriageReport {
	byIDLLM := recordsByID(llmRecs)
	byIDBench := recordsByID(benchRecs)

	report := make(TriageReport)
	for _, regexRec := range regexRecs {
		id := regexRec.RulingID()
		if id == "" {
			continue
		}

		llmRec, llmOK := byIDLLM[id]
		benchRec, benchOK := byIDBench[id]

		diffs := make(map[string]TriageEntry)
		for _, field := range spec.FieldOrder {
			regexVal, _ := regexRec.Value(field)
			var llmVal, benchVal string
			if llmOK {
				llmVal, _ = llmRec.Value(field)
			}
			if benchOK {
				benchVal, _ = benchRec.Value(field)
			}

			regexVsLLM := llmOK && !valuesEqual(spec, field, regexVal, llmVal)
			regexVsBench := benchOK && !valuesEqual(spec, field, regexVal, benchVal)
			llmVsBench := benchOK && !valuesEqual(spec, field, llmVal, benchVal)

			include := !llmOK || regexVsLLM ||
				(includeMethodVsBench && (regexVsBench || llmVsBench))
			if !include {
				continue
			}

			diffs[field] = TriageEntry{Bench: benchVal, Regex: regexVal, LLM: llmVal}
		}

		if len(diffs) > 0 {
			report[id] = diffs
		}
	}
	return report
}
