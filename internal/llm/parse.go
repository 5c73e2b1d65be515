package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseReply decodes the model's text reply into a field-value map.
// Models occasionally wrap JSON in markdown fences or prose; both are
// tolerated. A reply with no recoverable JSON object returns an error,
// which callers convert into an all-null record plus a reported *Error.
func ParseReply(content string) (map[string]string, []byte, error) {
	cleaned := stripFences(content)
	raw := []byte(cleaned)

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		// Recover the outermost {...} from surrounding prose.
		start := strings.Index(cleaned, "{")
		end := strings.LastIndex(cleaned, "}")
		if start < 0 || end <= start {
			return nil, raw, fmt.Errorf("no JSON object in model reply: %w", err)
		}
		raw = []byte(cleaned[start : end+1])
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, raw, fmt.Errorf("decode model reply: %w", err)
		}
	}

	values := make(map[string]string, len(decoded))
	for k, v := range decoded {
		values[k] = coerceString(v)
	}
	return values, raw, nil
}

// stripFences removes a leading/trailing markdown code fence, with or
// without a language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "{}") {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// coerceString maps JSON values onto the string-or-absent field model.
// null becomes the empty string.
func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
