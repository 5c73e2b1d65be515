package openai

import "strings"

const systemPrompt = "You extract structured fields from customs ruling letters. Output JSON only."

// fieldDefinitions is the data dictionary the model must follow. Keys must
// stay aligned with the goal schema field names.
var fieldDefinitions = map[string]string{
	"ruling_id":           `The ruling control number like N340865.`,
	"submitting_firm":     `The firm/company submitting the request, often a law firm.`,
	"submitter":           `The person submitting the request, e.g., "Ms. Kristina Barry".`,
	"importer":            `The client/on-behalf-of entity, e.g., "Toby Company".`,
	"date_submitted":      `The date in "In your letter dated Month DD, YYYY ...."`,
	"date_replied":        `Reply date near top (before "Dear ..."), format "Month DD, YYYY".`,
	"replying_person":     `Signature lines after "Sincerely,". Use "<br>" between lines.`,
	"case_handler":        `National Import Specialist name only (no email).`,
	"hts_suggestion":      `Requester's proposed HTS code.`,
	"hts_decision":        `CBP final HTS code.`,
	"duty_rate":           `After "The rate of duty will be ...".`,
	"product_description": `Paragraph starting "The sample," describing merchandise.`,
}

// buildUserPrompt renders the strict JSON-only instruction block followed by
// the ruling text. The key list comes from fieldOrder so the prompt and the
// goal schema can never drift apart.
func buildUserPrompt(fieldOrder []string, text string) string {
	var b strings.Builder
	b.WriteString("You will be given the full text of a CBP customs classification ruling letter. ")
	b.WriteString("Return ONLY valid JSON with EXACTLY these keys:\n")
	b.WriteString(strings.Join(fieldOrder, ", "))
	b.WriteString(".\n\nUse null when unknown. Do not add extra keys. No commentary.\n\n")
	b.WriteString("DATA DICTIONARY DEFINITIONS (use these strictly):\n")
	for _, f := range fieldOrder {
		if def, ok := fieldDefinitions[f]; ok {
			b.WriteString("- " + f + ": " + def + "\n")
		}
	}
	b.WriteString("\nOUTPUT RULES:\n")
	b.WriteString("- dates must be \"Month DD, YYYY\" (not ISO).\n")
	b.WriteString("- HTS codes must look like ####.##.#### when present.\n")
	b.WriteString("- Do not invent values; only extract from given text.\n")
	b.WriteString("\nTEXT:\n")
	b.WriteString(text)
	return b.String()
}
