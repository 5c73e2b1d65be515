package llm

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbp-tools/rulings-review/constants"
)

func TestBuildRulingJSONSchema(t *testing.T) {
	sch := BuildRulingJSONSchema([]string{"ruling_id", "importer"})

	assert.Equal(t, "object", sch["type"])
	assert.Equal(t, false, sch["additionalProperties"])
	assert.ElementsMatch(t, []any{"ruling_id", "importer"}, sch["required"])

	props, ok := sch["properties"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, props, 2)
	assert.Equal(t, map[string]any{"type": []any{"string", "null"}}, props["importer"])
}

func TestCompileSchemaValidation(t *testing.T) {
	sch, err := CompileSchema(constants.DefaultFieldOrder)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	valid := map[string]any{}
	for _, f := range constants.DefaultFieldOrder {
		valid[f] = nil
	}
	valid[constants.FieldImporter] = "Acme, Ltd"
	assert.NoError(t, ValidateDecodedReply(sch, logger, "N1", valid))

	missing := map[string]any{constants.FieldImporter: "Acme, Ltd"}
	assert.Error(t, ValidateDecodedReply(sch, logger, "N1", missing))

	extra := map[string]any{}
	for _, f := range constants.DefaultFieldOrder {
		extra[f] = nil
	}
	extra["unexpected"] = "x"
	assert.Error(t, ValidateDecodedReply(sch, logger, "N1", extra))

	wrongType := map[string]any{}
	for _, f := range constants.DefaultFieldOrder {
		wrongType[f] = nil
	}
	wrongType[constants.FieldImporter] = map[string]any{"name": "Acme"}
	assert.Error(t, ValidateDecodedReply(sch, logger, "N1", wrongType))
}
