package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbp-tools/rulings-review/internal/common"
)

// samplePretty is a condensed but structurally faithful NY ruling letter.
const samplePretty = `N340865
March 14, 2025
CLA-2-61:OT:RR:NC:N3:348
CATEGORY: Classification
TARIFF NO.: 6110.20.2079
Ms. Kristina Barry
Barthco International, Inc.
2200 Broening Highway, Suite 200
Baltimore, MD 21224
RE: The tariff classification of a women's sweater from China
Dear Ms. Barry:
In your letter dated February 27, 2025, you requested a tariff classification ruling on behalf of your client, Toby Company.
The sample, style 123, is a women's sweater constructed of 100 percent cotton knit fabric. The garment features a rib knit crew neckline and long sleeves.
In your ruling request, you suggest classification under 6110.20.1010. We disagree.
The applicable subheading for style 123 will be 6110.20.2079, Harmonized Tariff Schedule of the United States (HTSUS), which provides for sweaters, knitted, of cotton.
The rate of duty will be 16.5 percent ad valorem.
Duty rates are provided for your convenience and are subject to change.
This ruling is being issued under the provisions of Part 177 of the Customs Regulations.
If you have any questions regarding the ruling, contact National Import Specialist Kim Wachtel at kimberly.wachtel@cbp.dhs.gov.
Sincerely,
Steven A. Mack
Director
National Commodity Specialist Division`

func sampleNormalized() string { return common.CollapseWS(samplePretty) }

func TestFieldExtractors(t *testing.T) {
	normalized := sampleNormalized()

	tests := []struct {
		field string
		want  string
	}{
		{"submitting_firm", "Barthco International, Inc."},
		{"submitter", "Ms. Kristina Barry"},
		{"importer", "Toby Company"},
		{"date_submitted", "February 27, 2025"},
		{"date_replied", "March 14, 2025"},
		{"replying_person", "Steven A. Mack<br>Director<br>National Commodity Specialist Division"},
		{"case_handler", "Kim Wachtel"},
		{"hts_suggestion", "6110.20.1010"},
		{"hts_decision", "6110.20.2079"},
		{"duty_rate", "16.5 percent ad valorem"},
	}

	byField := make(map[string]FieldFunc)
	for _, e := range Extractors() {
		byField[e.Field] = e.Extract
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			fn, ok := byField[tt.field]
			require.True(t, ok, "extractor registered for %s", tt.field)
			assert.Equal(t, tt.want, fn(normalized, samplePretty))
		})
	}
}

func TestExtractProductDescription(t *testing.T) {
	got := extractProductDescription(sampleNormalized(), samplePretty)
	assert.True(t, strings.HasPrefix(got, "The sample, style 123,"), "got %q", got)
	assert.True(t, strings.HasSuffix(got, "crew neckline and long sleeves."), "got %q", got)
	assert.NotContains(t, got, "In your ruling request", "description stops before the analysis section")
}

func TestExtractProductDescriptionEdges(t *testing.T) {
	t.Run("no opener", func(t *testing.T) {
		assert.Empty(t, extractProductDescription("This letter has no merchandise paragraph.", ""))
	})
	t.Run("too short", func(t *testing.T) {
		assert.Empty(t, extractProductDescription("The sample, a cup. The rate of duty will be free.", ""))
	})
	t.Run("typographic quotes normalized", func(t *testing.T) {
		in := "The subject merchandise is a “deluxe” stainless steel travel mug with a locking lid. Sincerely,"
		got := extractProductDescription(in, "")
		assert.Contains(t, got, `"deluxe"`)
	})
}

func TestExtractHTSDecisionFallback(t *testing.T) {
	// No decision phrasing: the last distinct code wins.
	text := "Codes 1234.56.7890 and 9876.54.3210 were discussed, then 1234.56.7890 again."
	assert.Equal(t, "9876.54.3210", extractHTSDecision(text, ""))

	assert.Empty(t, extractHTSDecision("no codes here", ""))
}

func TestExtractHTSDecisionHoldingPhrasing(t *testing.T) {
	// Headquarters rulings state the decision in a HOLDING section with
	// "is" instead of "will be".
	t.Run("applicable subheading is", func(t *testing.T) {
		text := "HOLDING: The applicable subheading for the knit pullover is 6110.20.2079, HTSUS."
		assert.Equal(t, "6110.20.2079", extractHTSDecision(text, ""))
	})
	t.Run("applicable tariff classification is", func(t *testing.T) {
		text := "The applicable tariff classification for the travel mug is 9617.00.1000."
		assert.Equal(t, "9617.00.1000", extractHTSDecision(text, ""))
	})
	t.Run("decision phrasing beats a later code", func(t *testing.T) {
		text := "HOLDING: The applicable subheading for style 123 is 6110.20.2079. Compare 9999.99.9999 elsewhere."
		assert.Equal(t, "6110.20.2079", extractHTSDecision(text, ""))
	})
}

func TestExtractHTSSuggestionNoFallback(t *testing.T) {
	// A code with no requester attribution must not be guessed.
	assert.Empty(t, extractHTSSuggestion("The applicable subheading will be 6110.20.2079.", ""))
}

func TestExtractDutyRate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"canonical percent", "The rate of duty will be 7 percent ad valorem.", "7 percent ad valorem"},
		{"canonical free", "The rate of duty will be Free.", "Free"},
		{"loose percent", "dutiable at 3.4 percent ad valorem under HTSUS", "3.4 percent ad valorem"},
		{"bare free", "This merchandise enters free of duty.", "free"},
		{"nothing", "no duty information at all", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractDutyRate(tt.in, ""))
		})
	}
}

func TestExtractDateRepliedWithoutSalutation(t *testing.T) {
	pretty := "N339572\nJanuary 3, 2025\nCLA-2-84:OT:RR:NC\nTARIFF NO.: 8479.81.0000"
	assert.Equal(t, "January 3, 2025", extractDateReplied("", pretty))
}

func TestRecipientBlockMissingTariffLine(t *testing.T) {
	submitter, firm := recipientBlock("N340183\nMarch 1, 2025\nDear Mr. Jones:")
	assert.Empty(t, submitter)
	assert.Empty(t, firm)
}

func TestExtractSubmitterHonorificFallback(t *testing.T) {
	pretty := "N340183\nMarch 1, 2025\nMr. David Prata was identified in the request."
	assert.Equal(t, "Mr. David Prata", extractSubmitter("", pretty))
}

func TestExtractImporterTrailingComma(t *testing.T) {
	got := extractImporter("you requested a ruling on behalf of Acme Imports, Ltd. The item is a mug.", "")
	assert.Equal(t, "Acme Imports, Ltd", got)
}

func TestExtractorsAreIndependent(t *testing.T) {
	normalized := sampleNormalized()

	// Each extractor run in isolation must match its output in the full set.
	full := make(map[string]string)
	for _, e := range Extractors() {
		full[e.Field] = e.Extract(normalized, samplePretty)
	}
	for _, e := range Extractors() {
		assert.Equal(t, full[e.Field], e.Extract(normalized, samplePretty), e.Field)
	}
}
