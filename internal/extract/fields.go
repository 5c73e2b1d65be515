package extract

import (
	"regexp"
	"strings"

	"github.com/cbp-tools/rulings-review/constants"
	"github.com/cbp-tools/rulings-review/internal/common"
)

// FieldFunc extracts one field. Empty return means "not found". Body fields
// read the normalized text (robust against line-wrap variance); header and
// signature fields read the pretty text, whose line structure carries the
// delimiters they rely on.
type FieldFunc func(normalized, pretty string) string

// NamedExtractor pairs a goal-schema field name with its extraction function.
type NamedExtractor struct {
	Field   string
	Extract FieldFunc
}

// Extractors returns the full extractor set in goal-schema order. Each entry
// is independent: removing one never changes another's output.
func Extractors() []NamedExtractor {
	return []NamedExtractor{
		{constants.FieldSubmittingFirm, extractSubmittingFirm},
		{constants.FieldSubmitter, extractSubmitter},
		{constants.FieldImporter, extractImporter},
		{constants.FieldDateSubmitted, extractDateSubmitted},
		{constants.FieldDateReplied, extractDateReplied},
		{constants.FieldReplyingPerson, extractReplyingPerson},
		{constants.FieldCaseHandler, extractCaseHandler},
		{constants.FieldHTSSuggestion, extractHTSSuggestion},
		{constants.FieldHTSDecision, extractHTSDecision},
		{constants.FieldDutyRate, extractDutyRate},
		{constants.FieldProductDescription, extractProductDescription},
	}
}

// =========================
// Dates
// =========================

var dateSubmittedPatterns = compileAll(
	`(?i)in your letter dated\s+([A-Za-z]+\s+\d{1,2},\s+\d{4})`,
	`(?i)your letter dated\s+([A-Za-z]+\s+\d{1,2},\s+\d{4})`,
)

// extractDateSubmitted finds the "in your letter dated Month D, YYYY"
// phrasing that opens most ruling letters.
func extractDateSubmitted(_, pretty string) string {
	return firstMatch(dateSubmittedPatterns, pretty)
}

var anyLetterDate = compileAll(`(?i)\b([A-Za-z]+\s+\d{1,2},\s+\d{4})\b`)

// extractDateReplied picks the reply date from the letter header: the first
// date before the "Dear ..." salutation, falling back to the early lines
// when no salutation is present.
func extractDateReplied(_, pretty string) string {
	header := pretty
	if idx := strings.Index(pretty, "Dear"); idx >= 0 {
		header = pretty[:idx]
	} else {
		lines := strings.Split(pretty, "\n")
		if len(lines) > 40 {
			lines = lines[:40]
		}
		header = strings.Join(lines, "\n")
	}
	return firstMatch(anyLetterDate, header)
}

// =========================
// HTS codes and duty rate
// =========================

var htsSuggestionPatterns = compileAll(
	// "In your ruling request, you suggest ... under 6301.90.0010"
	`(?is)\byou suggest\b.*?\bunder\s+(\d{4}\.\d{2}\.\d{4})\b`,
	`(?is)\bin your ruling request\b.*?\bunder\s+(\d{4}\.\d{2}\.\d{4})\b`,
	// "You have suggested classification in subheading 1902.19.2090"
	`(?is)\byou have suggested\b.*?\bsubheading\s+(\d{4}\.\d{2}\.\d{4})\b`,
	// "You proposed classification ... in subheading 7326.19.0080"
	`(?is)\byou proposed\b.*?\bsubheading\s+(\d{4}\.\d{2}\.\d{4})\b`,
	// "you propose classifying ... under subheading 8479.81.0000"
	`(?is)\byou propose classifying\b.*?\bsubheading\s+(\d{4}\.\d{2}\.\d{4})\b`,
)

// extractHTSSuggestion captures the requester-proposed code only when the
// text explicitly attributes it to the requester. No fallback: guessing the
// suggestion from "the first code seen" creates false positives whenever a
// ruling cites several codes.
func extractHTSSuggestion(normalized, _ string) string {
	return firstMatch(htsSuggestionPatterns, normalized)
}

var htsDecisionPatterns = compileAll(
	`(?is)\bthe applicable subheading\b.*?\bwill be\s+(\d{4}\.\d{2}\.\d{4})\b`,
	`(?is)\bthe applicable subheading\b.*?\bis\s+(\d{4}\.\d{2}\.\d{4})\b`,
	`(?is)\bthe applicable tariff classification\b.*?\bwill be\s+(\d{4}\.\d{2}\.\d{4})\b`,
	`(?is)\bthe applicable tariff classification\b.*?\bis\s+(\d{4}\.\d{2}\.\d{4})\b`,
	`(?is)\bthe applicable subheading for\b.*?\bwill be\s+(\d{4}\.\d{2}\.\d{4})\b`,
)

var htsCodeAny = regexp.MustCompile(`\b\d{4}\.\d{2}\.\d{4}\b`)

// extractHTSDecision captures the final classification. When no explicit
// decision phrasing matches, fall back to the last distinct HTS-shaped code
// in the document; the decision is customarily restated near the end.
func extractHTSDecision(normalized, _ string) string {
	if v := firstMatch(htsDecisionPatterns, normalized); v != "" {
		return v
	}
	codes := htsCodeAny.FindAllString(normalized, -1)
	seen := make(map[string]struct{}, len(codes))
	uniq := codes[:0]
	for _, c := range codes {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		uniq = append(uniq, c)
	}
	if len(uniq) == 0 {
		return ""
	}
	return uniq[len(uniq)-1]
}

var (
	dutyRateCanonical = compileAll(
		`(?i)the rate of duty will be\s+(\d+(?:\.\d+)?\s*percent\s+ad\s+valorem|free)\b`,
	)
	dutyRatePercent = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*percent\s+ad\s+valorem\b`)
	dutyRateFree    = regexp.MustCompile(`(?i)\bfree\b`)
)

// extractDutyRate prefers the canonical "the rate of duty will be ..."
// phrase, then any "X percent ad valorem", then a bare "free" signal.
func extractDutyRate(normalized, _ string) string {
	if v := firstMatch(dutyRateCanonical, normalized); v != "" {
		return v
	}
	if m := dutyRatePercent.FindStringSubmatch(normalized); m != nil {
		return m[1] + " percent ad valorem"
	}
	if dutyRateFree.MatchString(normalized) {
		return "free"
	}
	return ""
}

// =========================
// Product description
// =========================

var descriptionOpeners = compileAll(
	`(?is)\b(The sample,.*)`,
	`(?is)\b(The subject merchandise is\b.*)`,
	`(?is)\b(The articles under consideration\b.*)`,
	`(?is)\b(The product under consideration\b.*)`,
	`(?is)\b(The item under consideration\b.*)`,
)

// descriptionStop finds the sentence boundary before the analysis and
// classification sections that follow the merchandise description.
var descriptionStop = regexp.MustCompile(`(?i)\.\s+(?:` +
	`In your ruling request|` +
	`In your letter,\s+you propose|` +
	`You\s+(?:have\s+)?(?:suggested|proposed)\b|` +
	`This office\s+(?:agrees|disagrees?)|` +
	`Heading\s+\d{4}|` +
	`The applicable\s+(?:subheading|tariff classification)|` +
	`The rate of duty|` +
	`Duty rates are provided|` +
	`This ruling is being issued|` +
	`A copy of the ruling|` +
	`If you have any questions|` +
	`Sincerely,)`)

var asciiQuotes = strings.NewReplacer(
	"“", `"`, "”", `"`,
	"‘", "'", "’", "'",
)

// extractProductDescription captures the narrative merchandise paragraph:
// start at a common opener, stop before the analysis section, collapse
// whitespace and normalize typographic quotes for stable comparisons.
func extractProductDescription(normalized, _ string) string {
	start := firstMatch(descriptionOpeners, normalized)
	if start == "" {
		return ""
	}

	chunk := start
	if loc := descriptionStop.FindStringIndex(chunk); loc != nil {
		chunk = chunk[:loc[0]]
	}
	chunk = asciiQuotes.Replace(common.CollapseWS(chunk))

	// Normalize terminal punctuation so exact benchmark comparison holds.
	if chunk != "" && isAlnum(chunk[len(chunk)-1]) {
		chunk += "."
	}
	if len(chunk) <= 30 {
		return ""
	}
	return chunk
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// =========================
// Parties and people
// =========================

var (
	addressKeyword = regexp.MustCompile(`(?i)\b(Street|St\.|Avenue|Ave\.|Road|Rd\.|Boulevard|Blvd\.|Suite|Ste\.|Floor|FL)\b`)
	stateZip       = regexp.MustCompile(`\b[A-Z]{2}\s+\d{5}(-\d{4})?\b`)
	poBox          = regexp.MustCompile(`(?i)\bP\.?\s*O\.?\s*Box\b`)
	houseNumber    = regexp.MustCompile(`\b\d{1,6}\b`)
	firmKeyword    = regexp.MustCompile(`(?i)\b(LLP|LLC|L\.L\.C\.|Inc\.|Incorporated|Company|Co\.|Corp\.|Corporation|Brokers|Customs|Law|Partners)\b`)
	tariffNoLine   = regexp.MustCompile(`(?i)\bTARIFF\s+NO\.?\b`)
	blockEnd       = regexp.MustCompile(`(?i)^(RE\s*:|Dear\b)`)
	honorificName  = regexp.MustCompile(`^(Mr\.|Ms\.|Mrs\.)\s+([A-Z][A-Za-z.\-']+(?:\s+[A-Z][A-Za-z.\-']+){0,3})\b`)
)

func isAddressLine(s string) bool {
	if s == "" {
		return false
	}
	if addressKeyword.MatchString(s) {
		return true
	}
	if stateZip.MatchString(s) {
		return true
	}
	if poBox.MatchString(s) {
		return true
	}
	if houseNumber.MatchString(s) && strings.Contains(s, ",") {
		return true
	}
	return false
}

func looksLikeFirm(s string) bool {
	if s == "" || isAddressLine(s) {
		return false
	}
	return firmKeyword.MatchString(s) || strings.Contains(s, "&")
}

func headLines(pretty string, n int) []string {
	lines := make([]string, 0, n)
	for _, ln := range strings.Split(pretty, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
		if len(lines) >= n {
			break
		}
	}
	return lines
}

// recipientBlock parses the header recipient block: a submitter (person) and
// submitting firm (organization) appear between the TARIFF NO line and the
// RE:/Dear markers. Heuristic, so it tries hard to skip address lines.
func recipientBlock(pretty string) (submitter, firm string) {
	head := headLines(pretty, 200)

	tariffIdx := -1
	for i, ln := range head {
		if tariffNoLine.MatchString(ln) {
			tariffIdx = i
			break
		}
	}
	if tariffIdx < 0 {
		return "", ""
	}

	end := tariffIdx + 25
	if end > len(head) {
		end = len(head)
	}
	var block []string
	for _, ln := range head[tariffIdx+1 : end] {
		if blockEnd.MatchString(ln) {
			break
		}
		block = append(block, ln)
	}

	for _, ln := range block {
		if submitter == "" && !isAddressLine(ln) {
			submitter = ln
			continue
		}
		if submitter != "" && firm == "" && looksLikeFirm(ln) {
			firm = ln
			break
		}
	}
	return submitter, firm
}

func extractSubmittingFirm(_, pretty string) string {
	_, firm := recipientBlock(pretty)
	return firm
}

// extractSubmitter falls back to honorific-based detection when the header
// block heuristic comes up empty.
func extractSubmitter(_, pretty string) string {
	submitter, _ := recipientBlock(pretty)
	if submitter != "" {
		return submitter
	}
	for _, ln := range headLines(pretty, 200) {
		if m := honorificName.FindStringSubmatch(ln); m != nil {
			return common.CollapseWS(m[1] + " " + m[2])
		}
	}
	return ""
}

var importerPatterns = compileAll(
	`(?is)\bon behalf of\s+(?:your\s+client,?\s*)?(.+?)(?:\.\s|\.?$)`,
	`(?is)\bon behalf of\s+(.+?)(?:\.\s|\.?$)`,
)

// extractImporter captures the on-behalf-of entity from the body text.
func extractImporter(normalized, _ string) string {
	v := firstMatch(importerPatterns, normalized)
	if v == "" {
		return ""
	}
	return strings.TrimRight(common.CollapseWS(v), ",")
}

var caseHandlerPatterns = compileAll(
	// "National Import Specialist Kim Wachtel at kimberly.a.wachtel@..."
	`(?i)\bNational Import Specialist\s+([A-Z][A-Za-z.'-]+(?:\s+[A-Z][A-Za-z.'-]+){0,3})\s+(?:at\b|,|\.|\)|$)`,
	// Sometimes appears without "National"
	`(?i)\bImport Specialist\s+([A-Z][A-Za-z.'-]+(?:\s+[A-Z][A-Za-z.'-]+){0,3})\s+(?:at\b|,|\.|\)|$)`,
)

// extractCaseHandler finds the Import Specialist referenced in the closing
// paragraph, name only.
func extractCaseHandler(_, pretty string) string {
	return firstMatch(caseHandlerPatterns, pretty)
}
