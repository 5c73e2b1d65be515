package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    map[string]string
	}{
		{
			name:    "plain object",
			content: `{"importer": "Toby Company", "duty_rate": null}`,
			want:    map[string]string{"importer": "Toby Company", "duty_rate": ""},
		},
		{
			name:    "fenced with language tag",
			content: "```json\n{\"importer\": \"Acme, Ltd\"}\n```",
			want:    map[string]string{"importer": "Acme, Ltd"},
		},
		{
			name:    "fenced without language tag",
			content: "```\n{\"duty_rate\": \"Free\"}\n```",
			want:    map[string]string{"duty_rate": "Free"},
		},
		{
			name:    "object buried in prose",
			content: "Here are the extracted fields:\n{\"submitter\": \"Ms. Kristina Barry\"}\nLet me know if you need anything else.",
			want:    map[string]string{"submitter": "Ms. Kristina Barry"},
		},
		{
			name:    "values trimmed and coerced",
			content: `{"importer": "  Acme  ", "hts_decision": 6110.2, "flag": true}`,
			want:    map[string]string{"importer": "Acme", "hts_decision": "6110.2", "flag": "true"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, raw, err := ParseReply(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, raw)
		})
	}
}

func TestParseReplyFailure(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty reply", ""},
		{"prose only", "I could not extract any fields from this document."},
		{"broken json object", `{"importer": "Acme`},
		{"array not object", `["importer", "Acme"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseReply(tt.content)
			assert.Error(t, err)
		})
	}
}

func TestCoerceString(t *testing.T) {
	assert.Equal(t, "", coerceString(nil))
	assert.Equal(t, "x", coerceString(" x "))
	assert.Equal(t, "16.5", coerceString(16.5))
	assert.Equal(t, "false", coerceString(false))
	assert.Equal(t, `["a","b"]`, coerceString([]any{"a", "b"}))
}

func TestErrorUnwrap(t *testing.T) {
	cause := assert.AnError
	err := &Error{Reason: "parse reply", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "parse reply")
}
