// Package llm implements the chat-completion client behind strategy parsing
// and signal generation.
//
// Every request in the process flows through one FIFO queue with a single
// worker: the worker enforces a minimum spacing between upstream requests,
// sleeps briefly after each one, and on an upstream 429 sleeps a penalty
// interval and retries the same job before touching the next. That queue is
// the one globally contended resource in the arena and the pacing knob for
// the whole system.
//
// Raw model output is never trusted: responses pass through tolerant JSON
// extraction and a schema-repair pass, so ParseStrategy and GenerateSignal
// always return values satisfying their invariants even when the model
// returns gibberish or the upstream is down.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"trade-arena/internal/config"
	"trade-arena/pkg/types"
)

// chatRequest is the OpenAI-compatible completion request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type job struct {
	ctx    context.Context
	system string
	user   string
	result chan jobResult
}

type jobResult struct {
	raw string
	err error
}

// Client is the serialized LLM client. One worker goroutine owns all
// upstream traffic; public methods enqueue and wait.
type Client struct {
	http   *resty.Client
	cfg    config.LLMConfig
	logger *slog.Logger
	jobs   chan *job
	quit   chan struct{}
}

// NewClient creates the client and starts its worker.
func NewClient(cfg config.LLMConfig, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		httpClient.SetAuthToken(cfg.APIKey)
	}

	c := &Client{
		http:   httpClient,
		cfg:    cfg,
		logger: logger.With("component", "llm"),
		jobs:   make(chan *job, 64),
		quit:   make(chan struct{}),
	}
	go c.worker()
	return c
}

// Close stops the worker. In-flight jobs complete; queued jobs are dropped.
func (c *Client) Close() {
	close(c.quit)
}

// worker drains the queue one job at a time. A 429 re-runs the same job
// after the penalty sleep, which is equivalent to re-inserting it at the
// head of the queue.
func (c *Client) worker() {
	var lastRequest time.Time
	for {
		select {
		case <-c.quit:
			return
		case j := <-c.jobs:
			for {
				if wait := c.cfg.MinInterval - time.Since(lastRequest); wait > 0 {
					time.Sleep(wait)
				}
				lastRequest = time.Now()

				raw, status, err := c.post(j.ctx, j.system, j.user)
				if status == http.StatusTooManyRequests {
					c.logger.Warn("llm rate limited, backing off", "backoff", c.cfg.Backoff)
					time.Sleep(c.cfg.Backoff)
					continue
				}

				j.result <- jobResult{raw: raw, err: err}
				time.Sleep(c.cfg.PostDelay)
				break
			}
		}
	}
}

func (c *Client) post(ctx context.Context, system, user string) (string, int, error) {
	req := chatRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	var result chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/chat/completions")
	if err != nil {
		return "", 0, types.LLMUpstream(err)
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return "", resp.StatusCode(), nil
	}
	if resp.StatusCode() != http.StatusOK {
		return "", resp.StatusCode(), types.LLMUpstream(fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String()))
	}
	if len(result.Choices) == 0 {
		return "", resp.StatusCode(), types.LLMUpstream(fmt.Errorf("empty choices"))
	}
	return result.Choices[0].Message.Content, resp.StatusCode(), nil
}

// Complete enqueues one completion and waits for the worker.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	j := &job{ctx: ctx, system: system, user: user, result: make(chan jobResult, 1)}
	select {
	case c.jobs <- j:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case res := <-j.result:
		return res.raw, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ParseStrategy converts a prose trading strategy into its structured form.
// Upstream failures and unparseable output degrade to the repaired default
// rather than propagating.
func (c *Client) ParseStrategy(ctx context.Context, text string) (types.ParsedStrategy, error) {
	raw, err := c.Complete(ctx, parseSystemPrompt, parseUserPrompt(text))
	if err != nil {
		c.logger.Warn("strategy parse degraded to default", "error", err)
		return DefaultParsed(), nil
	}

	fields, ok := decodeObject(raw)
	if !ok {
		c.logger.Warn("strategy parse output unparseable, using default")
		return DefaultParsed(), nil
	}
	return RepairParsed(fields), nil
}

// GenerateSignal asks the model for a trading directive for one symbol and
// repairs the answer into a valid Signal. Never fails: upstream errors yield
// the repaired default (HOLD at the snapshot price).
func (c *Client) GenerateSignal(ctx context.Context, snap types.MarketSnapshot, parsed types.ParsedStrategy) (types.Signal, error) {
	raw, err := c.Complete(ctx, signalSystemPrompt, signalUserPrompt(snap, parsed))
	if err != nil {
		c.logger.Warn("signal degraded to default", "symbol", snap.Symbol, "error", err)
		return DefaultSignal(snap), nil
	}

	fields, ok := decodeObject(raw)
	if !ok {
		c.logger.Warn("signal output unparseable, using default", "symbol", snap.Symbol)
		return DefaultSignal(snap), nil
	}
	return RepairSignal(fields, snap), nil
}

// Insight returns free-form market commentary for a symbol. Unlike the
// structured operations this surfaces upstream errors to the caller.
func (c *Client) Insight(ctx context.Context, snap types.MarketSnapshot, timeframe string) (string, error) {
	return c.Complete(ctx, insightSystemPrompt, insightUserPrompt(snap, timeframe))
}

// decodeObject runs tolerant extraction and parses the result into a field map.
func decodeObject(raw string) (map[string]any, bool) {
	cleaned, ok := ExtractJSON(raw)
	if !ok {
		return nil, false
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, false
	}
	return fields, true
}
