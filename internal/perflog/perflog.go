// Package perflog records per-call and per-session performance metrics in a
// local sqlite database: fetch timings, cache hit rates, LLM token usage and
// the estimated cost of a run.
package perflog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// modelPricing is USD per 1K tokens. Models not listed cost out at zero.
var modelPricing = map[string]struct{ inPer1K, outPer1K float64 }{
	"gpt-5-nano-2025-08-07": {0.0002, 0.0008},
	"gpt-4o-mini":           {0.00015, 0.0006},
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS fetches (
	session_id         TEXT NOT NULL,
	ruling_id          TEXT NOT NULL,
	tier               TEXT NOT NULL,
	elapsed_ms         INTEGER NOT NULL,
	cache_hit          INTEGER NOT NULL,
	ok                 INTEGER NOT NULL,
	created_at         TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS llm_calls (
	session_id         TEXT NOT NULL,
	ruling_id          TEXT NOT NULL,
	model              TEXT NOT NULL,
	elapsed_ms         INTEGER NOT NULL,
	prompt_tokens      INTEGER NOT NULL,
	completion_tokens  INTEGER NOT NULL,
	ok                 INTEGER NOT NULL,
	created_at         TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS sessions (
	session_id              TEXT PRIMARY KEY,
	jurisdiction            TEXT NOT NULL,
	started_at              TEXT NOT NULL,
	total_rulings           INTEGER NOT NULL,
	new_rulings             INTEGER NOT NULL,
	cached_rulings          INTEGER NOT NULL,
	llm_enabled             INTEGER NOT NULL,
	llm_model               TEXT,
	total_input_tokens      INTEGER NOT NULL,
	total_output_tokens     INTEGER NOT NULL,
	total_cost_usd          REAL NOT NULL,
	elapsed_seconds         REAL NOT NULL
);`

// Log is a per-run metrics collector backed by sqlite. Per-call rows are
// written as they happen so a crashed run still leaves its timings behind;
// the session summary row is written once at the end.
type Log struct {
	db        *sql.DB
	logger    *slog.Logger
	sessionID string
	started   time.Time

	mu            sync.Mutex
	totalRulings  int
	newRulings    int
	cachedRulings int
	llmEnabled    bool
	llmModel      string
	inputTokens   int
	outputTokens  int
}

// Open creates or opens the metrics database at path.
func Open(path string, logger *slog.Logger) (*Log, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create perflog dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open perflog db: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init perflog schema: %w", err)
	}
	now := time.Now()
	return &Log{
		db:        db,
		logger:    logger,
		sessionID: now.Format("20060102_150405"),
		started:   now,
	}, nil
}

func (l *Log) SessionID() string { return l.sessionID }

// RecordFetch stores one fetch attempt outcome and updates the session
// cache-hit counters.
func (l *Log) RecordFetch(ctx context.Context, rulingID, tier string, elapsed time.Duration, cacheHit, ok bool) {
	l.mu.Lock()
	l.totalRulings++
	if cacheHit {
		l.cachedRulings++
	} else {
		l.newRulings++
	}
	l.mu.Unlock()

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO fetches (session_id, ruling_id, tier, elapsed_ms, cache_hit, ok, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.sessionID, rulingID, tier, elapsed.Milliseconds(), boolInt(cacheHit), boolInt(ok),
		time.Now().Format(time.RFC3339))
	if err != nil {
		l.logger.Warn("perflog.fetch.write_failed", "ruling_id", rulingID, "error", err)
	}
}

// RecordLLMCall stores one model call and accumulates token totals. Satisfies
// the openai client's CallRecorder.
func (l *Log) RecordLLMCall(ctx context.Context, rulingID, model string, elapsed time.Duration, promptTokens, completionTokens int, ok bool) {
	l.mu.Lock()
	l.llmEnabled = true
	l.llmModel = model
	l.inputTokens += promptTokens
	l.outputTokens += completionTokens
	l.mu.Unlock()

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO llm_calls (session_id, ruling_id, model, elapsed_ms, prompt_tokens, completion_tokens, ok, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.sessionID, rulingID, model, elapsed.Milliseconds(), promptTokens, completionTokens, boolInt(ok),
		time.Now().Format(time.RFC3339))
	if err != nil {
		l.logger.Warn("perflog.llm.write_failed", "ruling_id", rulingID, "error", err)
	}
}

// Cost returns the estimated USD cost of the session's model usage.
func (l *Log) Cost() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.costLocked()
}

func (l *Log) costLocked() float64 {
	p, ok := modelPricing[l.llmModel]
	if !l.llmEnabled || !ok {
		return 0
	}
	return float64(l.inputTokens)/1000*p.inPer1K + float64(l.outputTokens)/1000*p.outPer1K
}

// WriteSummary persists the session summary row. Call once per run.
func (l *Log) WriteSummary(ctx context.Context, jurisdiction string) error {
	l.mu.Lock()
	total := l.totalRulings
	newR := l.newRulings
	cached := l.cachedRulings
	llmEnabled := l.llmEnabled
	model := l.llmModel
	in := l.inputTokens
	out := l.outputTokens
	cost := l.costLocked()
	l.mu.Unlock()

	elapsed := time.Since(l.started).Seconds()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, jurisdiction, started_at, total_rulings, new_rulings,
		 cached_rulings, llm_enabled, llm_model, total_input_tokens, total_output_tokens,
		 total_cost_usd, elapsed_seconds)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.sessionID, jurisdiction, l.started.Format(time.RFC3339), total, newR, cached,
		boolInt(llmEnabled), model, in, out, cost, elapsed)
	if err != nil {
		return fmt.Errorf("write session summary: %w", err)
	}
	l.logger.Info("perflog.session.written",
		"session_id", l.sessionID,
		"jurisdiction", jurisdiction,
		"total_rulings", total,
		"cached_rulings", cached,
		"llm_enabled", llmEnabled,
		"total_cost_usd", cost,
		"elapsed_seconds", elapsed)
	return nil
}

func (l *Log) Close() error { return l.db.Close() }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
