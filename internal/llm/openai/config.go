// Package openai implements llm.FieldExtractor against an OpenAI-compatible
// chat/completions endpoint.
package openai

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Config for the chat-completions client.
type Config struct {
	APIKey      string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // e.g. "gpt-4o-mini"
	Temperature float32       // 0..2
	Timeout     time.Duration // http client timeout
}

// CallRecorder receives per-call accounting. Optional.
type CallRecorder interface {
	RecordLLMCall(ctx context.Context, rulingID, model string, elapsed time.Duration, promptTokens, completionTokens int, ok bool)
}

type Client struct {
	cfg      Config
	http     *http.Client
	logger   *slog.Logger
	recorder CallRecorder
}

func NewClient(cfg Config, logger *slog.Logger, recorder CallRecorder) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
		recorder: recorder,
	}
}
