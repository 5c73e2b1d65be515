package extract

import (
	"regexp"

	"github.com/cbp-tools/rulings-review/internal/common"
)

// firstMatch tries patterns in order and returns the first pattern's first
// capture group, whitespace-collapsed. Extractors use this everywhere:
// ordered candidates, first non-empty match wins.
func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, pat := range patterns {
		if m := pat.FindStringSubmatch(text); m != nil && len(m) > 1 {
			if v := common.CollapseWS(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}
