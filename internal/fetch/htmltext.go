package fetch

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/cbp-tools/rulings-review/internal/cache"
	"github.com/cbp-tools/rulings-review/internal/common"
)

// Word field codes that leak into text extracted from Word-generated HTML.
var (
	mergeformatPage = regexp.MustCompile(`(?i)PAGE\s*\\\*\s*MERGEFORMAT\s*\d*`)
	mergeformatBare = regexp.MustCompile(`(?i)\\\*\s*MERGEFORMAT\s*\d*`)
)

// TextPairFromHTML converts an HTML payload into the normalized/pretty text
// pair. Script, style and noscript content is dropped; block boundaries
// become line breaks so the pretty form keeps letter-like structure.
func TextPairFromHTML(raw []byte) (cache.Entry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return cache.Entry{}, err
	}
	doc.Find("script, style, noscript").Remove()

	var sb strings.Builder
	for _, n := range doc.Selection.Nodes {
		collectText(n, &sb)
	}
	return textPair(sb.String()), nil
}

// collectText walks the node tree appending text node content, one segment
// per line. This mirrors extracting visible text with a newline separator,
// so sibling blocks never run together.
func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			sb.WriteString(t)
			sb.WriteByte('\n')
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

// textPair derives both text forms from one extracted text blob, which is
// what keeps the normalized/pretty equivalence invariant true for every tier.
func textPair(text string) cache.Entry {
	text = mergeformatPage.ReplaceAllString(text, "")
	text = mergeformatBare.ReplaceAllString(text, "")

	lines := make([]string, 0, 64)
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	pretty := strings.Join(lines, "\n")
	return cache.Entry{
		NormalizedText: common.CollapseWS(pretty),
		PrettyText:     pretty,
	}
}
