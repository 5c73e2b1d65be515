package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildRulingJSONSchema returns a JSON schema for a ruling field record:
// every field is required and either a string or null, and no extra keys
// are allowed. Used both in the model prompt and to validate the reply.
func BuildRulingJSONSchema(fieldOrder []string) map[string]any {
	props := make(map[string]any, len(fieldOrder))
	required := make([]any, 0, len(fieldOrder))
	for _, f := range fieldOrder {
		props[f] = map[string]any{"type": []any{"string", "null"}}
		required = append(required, f)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

// CompileSchema turns the schema map into a validator. Compilation failure
// is a programming error in the field set and is surfaced as such.
func CompileSchema(fieldOrder []string) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(BuildRulingJSONSchema(fieldOrder))
	if err != nil {
		return nil, fmt.Errorf("marshal ruling schema: %w", err)
	}
	sch, err := jsonschema.CompileString("ruling-fields.json", string(raw))
	if err != nil {
		return nil, fmt.Errorf("compile ruling schema: %w", err)
	}
	return sch, nil
}

// ValidateDecodedReply checks a decoded model reply against the ruling schema.
// Violations are logged and reported but do not discard the values that
// did parse; the caller decides how strict to be.
func ValidateDecodedReply(sch *jsonschema.Schema, logger *slog.Logger, rulingID string, decoded any) error {
	if err := sch.Validate(decoded); err != nil {
		logger.Warn("llm.reply.schema_violation",
			slog.String("ruling_id", rulingID),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}
