package perflog

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	path := filepath.Join(t.TempDir(), "perf", "perflog.db")
	l, err := Open(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestOpenCreatesSchema(t *testing.T) {
	l := openTestLog(t)
	assert.NotEmpty(t, l.SessionID())

	for _, table := range []string{"fetches", "llm_calls", "sessions"} {
		var n int
		err := l.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)
		require.NoError(t, err, table)
		assert.Zero(t, n)
	}
}

func TestRecordFetch(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	l.RecordFetch(ctx, "N1", "api", 120*time.Millisecond, false, true)
	l.RecordFetch(ctx, "N2", "", 1*time.Millisecond, true, true)
	l.RecordFetch(ctx, "N3", "doc", 300*time.Millisecond, false, false)

	var rows, cached, failed int
	require.NoError(t, l.db.QueryRow("SELECT COUNT(*) FROM fetches WHERE session_id = ?", l.sessionID).Scan(&rows))
	require.NoError(t, l.db.QueryRow("SELECT COUNT(*) FROM fetches WHERE cache_hit = 1").Scan(&cached))
	require.NoError(t, l.db.QueryRow("SELECT COUNT(*) FROM fetches WHERE ok = 0").Scan(&failed))
	assert.Equal(t, 3, rows)
	assert.Equal(t, 1, cached)
	assert.Equal(t, 1, failed)
}

func TestRecordLLMCallAndCost(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	assert.Zero(t, l.Cost(), "no model usage yet")

	l.RecordLLMCall(ctx, "N1", "gpt-4o-mini", 2*time.Second, 1000, 500, true)
	l.RecordLLMCall(ctx, "N2", "gpt-4o-mini", 1*time.Second, 1000, 500, false)

	var rows, tokens int
	require.NoError(t, l.db.QueryRow("SELECT COUNT(*), COALESCE(SUM(prompt_tokens), 0) FROM llm_calls").Scan(&rows, &tokens))
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2000, tokens)

	// 2000 prompt and 1000 completion tokens at gpt-4o-mini rates.
	assert.InDelta(t, 2*0.00015+1*0.0006, l.Cost(), 1e-9)
}

func TestCostUnknownModel(t *testing.T) {
	l := openTestLog(t)
	l.RecordLLMCall(context.Background(), "N1", "some-other-model", time.Second, 1000, 1000, true)
	assert.Zero(t, l.Cost())
}

func TestWriteSummary(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	l.RecordFetch(ctx, "N1", "api", 50*time.Millisecond, false, true)
	l.RecordFetch(ctx, "N2", "", time.Millisecond, true, true)
	l.RecordLLMCall(ctx, "N1", "gpt-4o-mini", time.Second, 100, 50, true)

	require.NoError(t, l.WriteSummary(ctx, "ny"))

	var jurisdiction string
	var total, cached, llmEnabled, inTokens int
	err := l.db.QueryRow(
		`SELECT jurisdiction, total_rulings, cached_rulings, llm_enabled, total_input_tokens
		 FROM sessions WHERE session_id = ?`, l.sessionID).
		Scan(&jurisdiction, &total, &cached, &llmEnabled, &inTokens)
	require.NoError(t, err)

	assert.Equal(t, "ny", jurisdiction)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, cached)
	assert.Equal(t, 1, llmEnabled)
	assert.Equal(t, 100, inTokens)
}
