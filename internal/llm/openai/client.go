package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cbp-tools/rulings-review/constants"
	"github.com/cbp-tools/rulings-review/internal/extract"
	"github.com/cbp-tools/rulings-review/internal/llm"
)

// ExtractFields implements llm.FieldExtractor using text-only chat/completions.
// The model sees the pretty text so that signature line breaks survive into
// the replying_person value.
func (c *Client) ExtractFields(ctx context.Context, req llm.ExtractRequest) (extract.Record, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()
	fieldOrder := req.FieldOrder
	if len(fieldOrder) == 0 {
		fieldOrder = constants.DefaultFieldOrder
	}

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"ruling_id", req.RulingID,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(req.PrettyText),
	)

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": buildUserPrompt(fieldOrder, req.PrettyText)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, httpErr := c.post(ctx, endpoint, body)
	if httpErr != nil {
		c.record(ctx, req.RulingID, start, 0, 0, false)
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "ruling_id", req.RulingID, "error", httpErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return extract.Record{}, nil, &llm.Error{Reason: "http request", Cause: httpErr}
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.record(ctx, req.RulingID, start, 0, 0, false)
		c.logger.Error("llm.extract.decode_error",
			"req_id", rid, "ruling_id", req.RulingID, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return extract.Record{}, raw, &llm.Error{Reason: "decode response", Cause: err}
	}
	if len(cc.Choices) == 0 {
		c.record(ctx, req.RulingID, start, cc.Usage.PromptTokens, cc.Usage.CompletionTokens, false)
		c.logger.Error("llm.extract.no_choices",
			"req_id", rid, "ruling_id", req.RulingID,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return extract.Record{}, raw, &llm.Error{Reason: "no choices in response"}
	}

	values, rawContent, parseErr := llm.ParseReply(cc.Choices[0].Message.Content)
	if parseErr != nil {
		// A reply we cannot parse still yields a record: all fields null,
		// so the disagreement report flags every field for review.
		c.record(ctx, req.RulingID, start, cc.Usage.PromptTokens, cc.Usage.CompletionTokens, false)
		c.logger.Error("llm.extract.parse_error",
			"req_id", rid, "ruling_id", req.RulingID, "error", parseErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		empty := extract.NewRecord(req.RulingID, constants.ProvenanceLLM, nil)
		return empty, rawContent, &llm.Error{Reason: "parse reply", Cause: parseErr}
	}

	if sch, err := llm.CompileSchema(fieldOrder); err == nil {
		var decoded any
		if json.Unmarshal(rawContent, &decoded) == nil {
			_ = llm.ValidateDecodedReply(sch, c.logger, req.RulingID, decoded)
		}
	}

	rec := extract.NewRecord(req.RulingID, constants.ProvenanceLLM, values)
	found := 0
	for _, f := range fieldOrder {
		if _, ok := rec.Value(f); ok {
			found++
		}
	}
	c.record(ctx, req.RulingID, start, cc.Usage.PromptTokens, cc.Usage.CompletionTokens, true)
	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"ruling_id", req.RulingID,
		"fields_found", found,
		"fields_total", len(fieldOrder),
		"prompt_tokens", cc.Usage.PromptTokens,
		"completion_tokens", cc.Usage.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, rawContent, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat completions http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.logger.Warn("response body close error", "error", cerr)
		}
	}(resp.Body)

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("chat completions status %d: %s", resp.StatusCode, buf.String())
	}
	return buf.Bytes(), nil
}

func (c *Client) record(ctx context.Context, rulingID string, start time.Time, promptTokens, completionTokens int, ok bool) {
	if c.recorder == nil {
		return
	}
	c.recorder.RecordLLMCall(ctx, rulingID, c.cfg.Model, time.Since(start), promptTokens, completionTokens, ok)
}
