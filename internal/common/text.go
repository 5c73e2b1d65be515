package common

import (
	"regexp"
	"strings"
)

var (
	horizontalWS = regexp.MustCompile(`[ \t]+`)
	manyNewlines = regexp.MustCompile(`\n{3,}`)
)

// CollapseWS collapses all whitespace runs (spaces, tabs, newlines) to single
// spaces and strips the ends. Used everywhere extracted text is compared.
func CollapseWS(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeText is the full cleanup applied to fetched document text:
// Windows line endings converted, horizontal whitespace collapsed,
// consecutive newlines limited to double spacing, ends stripped.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r", "\n")
	text = horizontalWS.ReplaceAllString(text, " ")
	text = manyNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
