// Package enrich turns a raw pattern alert into a trade plan by calling
// an OpenAI-compatible chat completions endpoint. Enrichment is
// best-effort: a failed or malformed completion drops the alert, it is
// never retried past the per-alert deadline.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"trading-alertsv1/internal/model"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4.1-mini"
	defaultTimeout = 20 * time.Second
)

const systemPrompt = "You are a professional intraday ICT trader. " +
	"Given a symbol, timeframe, detected pattern (FVG, MSS, liquidity sweep) and last candles, " +
	"you return a JSON trade idea with fields: " +
	"direction, bias_reason, entry, stop, targets (array of 3), risk_to_reward, notes."

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string

	// Timeout bounds one BuildTradePlan call including all retries.
	Timeout time.Duration

	// RequestsPerSecond caps outbound completion calls across all
	// sessions. Zero disables client-side limiting.
	RequestsPerSecond float64

	HTTPClient *http.Client
}

// Client is a rate-limited chat completions client.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	http    *http.Client
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	c := &Client{
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		model:   opts.Model,
		timeout: opts.Timeout,
		http:    opts.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// BuildTradePlan asks the model for a trade plan for the alert. The
// call is bounded by the client timeout; transient HTTP failures are
// retried with exponential backoff inside that bound.
func (c *Client) BuildTradePlan(ctx context.Context, alert model.Alert) (*model.TradePlan, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("enrich: rate limit wait: %w", err)
		}
	}

	body, err := json.Marshal(c.buildRequest(alert))
	if err != nil {
		return nil, fmt.Errorf("enrich: marshal request: %w", err)
	}

	var content string
	op := func() error {
		got, err := c.complete(ctx, body)
		if err != nil {
			return err
		}
		content = got
		return nil
	}

	bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, fmt.Errorf("enrich: completion: %w", err)
	}

	var plan model.TradePlan
	if err := json.Unmarshal([]byte(content), &plan); err != nil {
		return nil, fmt.Errorf("enrich: parse trade plan: %w", err)
	}
	return &plan, nil
}

func (c *Client) buildRequest(alert model.Alert) chatRequest {
	req := chatRequest{Model: c.model}
	req.ResponseFormat.Type = "json_object"
	req.Messages = []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf(
			"Symbol: %s\nTimeframe: %s\nPattern: %s (%s)\nDetail: %s\nLast candle: %s\nReturn ONLY the JSON object.",
			alert.Symbol, alert.Timeframe, alert.Pattern, alert.Direction, alert.Detail, alert.LastCandle.JSON(),
		)},
	}
	return req
}

func (c *Client) complete(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err // transient, retry
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		log.Printf("[enrich] completion status %d, retrying", resp.StatusCode)
		return "", fmt.Errorf("status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", backoff.Permanent(fmt.Errorf("status %d: %s", resp.StatusCode, raw))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return "", backoff.Permanent(fmt.Errorf("empty choices"))
	}
	return parsed.Choices[0].Message.Content, nil
}
