package bench

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbp-tools/rulings-review/constants"
	"github.com/cbp-tools/rulings-review/internal/extract"
	"github.com/cbp-tools/rulings-review/internal/fetch"
	"github.com/cbp-tools/rulings-review/internal/schema"
)

func goalRec(t *testing.T, id, provenance string, values map[string]string) schema.GoalRecord {
	t.Helper()
	rec, err := schema.ToGoalSchema(extract.NewRecord(id, provenance, values), schema.DefaultSpec())
	require.NoError(t, err)
	return rec
}

func TestValuesEqual(t *testing.T) {
	spec := schema.DefaultSpec()

	// Whitespace-insensitive fields tolerate spacing differences.
	assert.True(t, valuesEqual(spec, constants.FieldProductDescription, "Wool  Sweater", "Wool Sweater"))
	assert.True(t, valuesEqual(spec, constants.FieldImporter, " Acme,\tLtd ", "Acme, Ltd"))
	assert.False(t, valuesEqual(spec, constants.FieldImporter, "Acme, Ltd", "Acme Ltd"))

	// The signer field compares line-exact: spacing around <br> is significant.
	assert.True(t, valuesEqual(spec, constants.FieldReplyingPerson, "Jane Doe<br>Director", "Jane Doe<br>Director"))
	assert.False(t, valuesEqual(spec, constants.FieldReplyingPerson, "Jane Doe<br>Director", "Jane Doe <br> Director"))
	assert.False(t, valuesEqual(spec, constants.FieldReplyingPerson, "Jane Doe<br>Director", "Jane Doe<br>Acting Director"))
}

func TestCompare(t *testing.T) {
	spec := schema.DefaultSpec()
	extracted := goalRec(t, "N340865", constants.ProvenanceRegex, map[string]string{
		constants.FieldImporter:       "Toby  Company",
		constants.FieldHTSDecision:    "6110.20.2079",
		constants.FieldReplyingPerson: "Steven A. Mack<br>Director",
	})
	benchmark := goalRec(t, "N340865", constants.ProvenanceBenchmark, map[string]string{
		constants.FieldImporter:       "Toby Company",
		constants.FieldHTSDecision:    "6110.20.2075",
		constants.FieldReplyingPerson: "Steven A. Mack<br>Director",
	})

	result := Compare(extracted, benchmark, spec)
	assert.Equal(t, "N340865", result.RulingID)
	assert.Len(t, result.Fields, len(spec.FieldOrder))

	byField := make(map[string]FieldComparison, len(result.Fields))
	for _, f := range result.Fields {
		byField[f.Field] = f
	}

	assert.True(t, byField[constants.FieldRulingID].Matched)
	assert.True(t, byField[constants.FieldImporter].Matched, "collapsed whitespace must compare equal")
	assert.False(t, byField[constants.FieldHTSDecision].Matched)
	assert.True(t, byField[constants.FieldReplyingPerson].Matched)

	// Absent on both sides counts as a match; absent on one side only does not.
	assert.True(t, byField[constants.FieldDutyRate].Matched)
	assert.Equal(t, []string{constants.FieldHTSDecision}, result.Mismatched())
	assert.Equal(t, len(spec.FieldOrder)-1, result.Matches())
}

func TestCompareOneSidedNull(t *testing.T) {
	spec := schema.DefaultSpec()
	extracted := goalRec(t, "N1", constants.ProvenanceRegex, map[string]string{
		constants.FieldDutyRate: "Free",
	})
	benchmark := goalRec(t, "N1", constants.ProvenanceBenchmark, nil)

	result := Compare(extracted, benchmark, spec)
	assert.Contains(t, result.Mismatched(), constants.FieldDutyRate)
}

func TestCompareAllSkipsUnbenchmarked(t *testing.T) {
	spec := schema.DefaultSpec()
	extracted := []schema.GoalRecord{
		goalRec(t, "N1", constants.ProvenanceRegex, nil),
		goalRec(t, "N2", constants.ProvenanceRegex, nil),
	}
	benchmarks := []schema.GoalRecord{
		goalRec(t, "N2", constants.ProvenanceBenchmark, nil),
	}

	results := CompareAll(extracted, benchmarks, spec)
	require.Len(t, results, 1)
	assert.Equal(t, "N2", results[0].RulingID)
}

// Cached text stating the decision in HOLDING form must flow through
// extraction and land as a matching hts_decision against the benchmark.
func TestCompareHoldingDecisionEndToEnd(t *testing.T) {
	spec := schema.DefaultSpec()
	normalized := "HOLDING: The applicable subheading for the knit pullover is 6110.20.2079, HTSUS."

	engine := extract.NewEngine(nil)
	rec := engine.ExtractRecord(fetch.Result{
		RulingID:       "H300001",
		NormalizedText: normalized,
		PrettyText:     normalized,
		CacheHit:       true,
	})
	extracted, err := schema.ToGoalSchema(rec, spec)
	require.NoError(t, err)

	v, ok := extracted.Value(constants.FieldHTSDecision)
	require.True(t, ok)
	assert.Equal(t, "6110.20.2079", v)

	benchmark, err := schema.RestrictFields(extract.NewRecord("H300001", constants.ProvenanceBenchmark, map[string]string{
		constants.FieldHTSDecision: "6110.20.2079",
	}), spec)
	require.NoError(t, err)

	result := Compare(extracted, benchmark, spec)
	for _, f := range result.Fields {
		if f.Field == constants.FieldHTSDecision {
			assert.True(t, f.Matched)
		}
	}
}
