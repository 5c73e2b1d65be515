package extract

import (
	"regexp"
	"strings"

	"github.com/cbp-tools/rulings-review/internal/common"
)

// The signature block follows "Sincerely," and holds up to three lines:
// name, title, office. Downstream comparison keeps the lines joined with a
// literal <br>, matching the benchmark's formatting.

var (
	sincerelyTail = regexp.MustCompile(`(?is)\bSincerely\b[:,]?\s*(.+)$`)

	nameLine   = regexp.MustCompile(`^[A-Z][A-Za-z.'\-]+(?:\s+[A-Z][A-Za-z.'\-]+){0,4}$`)
	officeWord = regexp.MustCompile(`(?i)\b(Division|Branch|Office|Center|Directorate|Team|Unit|Commodity|Specialist)\b`)
	titleWord  = regexp.MustCompile(`(?i)\b(Director|Chief|Specialist|Supervisor|Manager|Officer|Attorney|Analyst|Coordinator|Executive|Acting|Deputy|Assistant)\b`)

	// "Deborah C. Marinucci Acting Director" glued on one line: split into
	// name and title.
	nameThenTitle = regexp.MustCompile(`^(.*?)\s+((?:Acting|Deputy|Assistant|Associate|Executive)\s+)?` +
		`(Director|Chief|Manager|Officer|Specialist|Supervisor|Attorney|Analyst|Coordinator)\s*$`)

	// Collapsed one-line signatures with the title in the middle: split at the
	// first title word so "Steven A. Mack Director National Commodity
	// Specialist Division" lands as name, title, office.
	midTitle = regexp.MustCompile(`^(.*?\S)\s+((?:(?:Acting|Deputy|Assistant|Associate|Executive)\s+)?` +
		`(?:Director|Chief|Manager|Officer|Supervisor|Attorney|Analyst|Coordinator))\s+(\S.*)$`)

	// Collapsed one-line signatures: peel office then title off the end.
	trailingOffice = regexp.MustCompile(`^(.*\S)\s+((?:[A-Z][A-Za-z&.\-]+\s+){0,6}` +
		`(?:Division|Branch|Office|Center|Directorate|Laboratory|Port))\s*$`)
	trailingTitle = regexp.MustCompile(`^(.*\S)\s+((?:Acting|Deputy|Assistant|Associate|Executive)\s+)?` +
		`(Director|Chief|Manager|Officer|Specialist|Supervisor|Attorney|Analyst|Coordinator)\s*$`)
)

var signatureStopMarkers = []string{
	"If you have any questions",
	"National Import Specialist",
	"cc:",
	"Enclosure",
}

// extractReplyingPerson parses the signature block from the pretty text.
// The pretty form matters here: line boundaries are the only thing
// separating name from title from office.
func extractReplyingPerson(_, pretty string) string {
	m := sincerelyTail.FindStringSubmatch(pretty)
	if m == nil {
		return ""
	}
	tail := m[1]
	for _, marker := range signatureStopMarkers {
		if idx := strings.Index(tail, marker); idx >= 0 {
			tail = tail[:idx]
		}
	}

	var lines []string
	for _, ln := range strings.Split(tail, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	if len(lines) == 0 {
		return ""
	}

	// Everything on one line that carries both a title and an office word is
	// a collapsed signature and needs reconstruction instead of line reads.
	collapsed := titleWord.MatchString(lines[0]) && officeWord.MatchString(lines[0])

	if len(lines) >= 2 && !collapsed {
		return signatureFromLines(lines)
	}
	return signatureFromCollapsed(lines[0])
}

func signatureFromLines(lines []string) string {
	// Merge a name broken across two lines ("Steven A." / "Mack") when the
	// third line already looks like a title or office.
	if len(lines) >= 3 && (titleWord.MatchString(lines[2]) || officeWord.MatchString(lines[2])) {
		if nameLine.MatchString(lines[0]) && nameLine.MatchString(lines[1]) {
			merged := []string{lines[0] + " " + lines[1]}
			lines = append(merged, lines[2:]...)
		}
	}

	var sig []string
	if m := nameThenTitle.FindStringSubmatch(lines[0]); m != nil {
		sig = append(sig, strings.TrimSpace(m[1]), strings.TrimSpace(m[2]+m[3]))
	} else {
		sig = append(sig, lines[0])
	}

	for _, ln := range lines[1:] {
		if len(sig) >= 3 {
			break
		}
		if strings.HasPrefix(strings.ToLower(ln), "sincerely") {
			continue
		}
		sig = append(sig, ln)
	}

	if len(sig) > 3 {
		sig = sig[:3]
	}
	return strings.Join(sig, "<br>")
}

func signatureFromCollapsed(one string) string {
	one = common.CollapseWS(one)

	if m := midTitle.FindStringSubmatch(one); m != nil {
		return strings.TrimSpace(m[1]) + "<br>" + m[2] + "<br>" + strings.TrimSpace(m[3])
	}

	var office, title string
	if m := trailingOffice.FindStringSubmatch(one); m != nil {
		one = strings.TrimSpace(m[1])
		office = strings.TrimSpace(m[2])
	}
	if m := trailingTitle.FindStringSubmatch(one); m != nil {
		one = strings.TrimSpace(m[1])
		title = strings.TrimSpace(m[2] + m[3])
	}

	var sig []string
	for _, part := range []string{strings.TrimSpace(one), title, office} {
		if part != "" {
			sig = append(sig, part)
		}
		if len(sig) >= 3 {
			break
		}
	}
	if len(sig) == 0 {
		return ""
	}
	return strings.Join(sig, "<br>")
}
