package constants

// Canonical field names for an extracted ruling record. These match the
// benchmark goal schema key names exactly.
const (
	FieldRulingID           = "ruling_id"
	FieldSubmittingFirm     = "submitting_firm"
	FieldSubmitter          = "submitter"
	FieldImporter           = "importer"
	FieldDateSubmitted      = "date_submitted"
	FieldDateReplied        = "date_replied"
	FieldReplyingPerson     = "replying_person"
	FieldCaseHandler        = "case_handler"
	FieldHTSSuggestion      = "hts_suggestion"
	FieldHTSDecision        = "hts_decision"
	FieldDutyRate           = "duty_rate"
	FieldProductDescription = "product_description"
)

// DefaultFieldOrder is used when the benchmark spec does not declare one.
// The benchmark spec's output.field_order always wins when present.
var DefaultFieldOrder = []string{
	FieldRulingID,
	FieldSubmittingFirm,
	FieldSubmitter,
	FieldImporter,
	FieldDateSubmitted,
	FieldDateReplied,
	FieldReplyingPerson,
	FieldCaseHandler,
	FieldHTSSuggestion,
	FieldHTSDecision,
	FieldDutyRate,
	FieldProductDescription,
}

// FallbackRulingIDs allows a clean out-of-the-box run when no ruling-id
// input file is present.
var FallbackRulingIDs = []string{"N340865", "N340183", "N339572", "N275583"}

// Provenance labels for extracted records.
const (
	ProvenanceRegex     = "regex"
	ProvenanceLLM       = "llm"
	ProvenanceBenchmark = "benchmark"
)
