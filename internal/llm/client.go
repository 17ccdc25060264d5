// Package llm implements the model gateway: a thin adapter over an
// OpenAI-compatible streaming text-generation endpoint.
//
// The gateway makes a single attempt per invocation. No retry, no backoff,
// no circuit breaking; configuration is passed through to the provider and
// not validated beyond requiring a non-empty prompt and endpoint.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"
)

var (
	// ErrEmptyPrompt indicates Stream was called with an empty prompt.
	ErrEmptyPrompt = errors.New("empty prompt")

	// ErrNoEndpoint indicates no provider endpoint is configured.
	ErrNoEndpoint = errors.New("no model endpoint configured")
)

// doneMarker terminates an OpenAI-compatible completion stream.
const doneMarker = "[DONE]"

// maxErrorBody bounds how much of a provider error response is read.
const maxErrorBody = 4 * 1024

// Config is the fixed generation configuration for the gateway.
type Config struct {
	BaseURL     string  // endpoint root, e.g. https://api.openai.com/v1
	APIKey      string  // bearer credential
	Model       string  // target model identifier
	Temperature float32
	MaxTokens   int
}

// Client streams completions from the configured provider.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// New creates a gateway client. A nil logger falls back to slog.Default().
// No request timeout is set; the transport and provider limits apply.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: logger,
	}
}

// completionRequest is the provider request body.
type completionRequest struct {
	Model       string              `json:"model"`
	Messages    []completionMessage `json:"messages"`
	Temperature float32             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
	Stream      bool                `json:"stream"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// completionChunk is one decoded stream event from the provider.
type completionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Stream sends the assembled prompt to the provider and returns the model
// output as a lazy sequence of text fragments, in generation order.
//
// The sequence is finite, not restartable, and must be consumed exactly
// once. It terminates normally when the provider signals completion; any
// failure (connect, rejection, mid-stream abort) is yielded once as the
// final element. Fragments already yielded before a failure are not
// retracted — whether to keep partial output is the caller's decision.
func (c *Client) Stream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if strings.TrimSpace(prompt) == "" {
			yield("", ErrEmptyPrompt)
			return
		}
		if c.cfg.BaseURL == "" {
			yield("", ErrNoEndpoint)
			return
		}

		body, err := json.Marshal(completionRequest{
			Model:       c.cfg.Model,
			Messages:    []completionMessage{{Role: "user", Content: prompt}},
			Temperature: c.cfg.Temperature,
			MaxTokens:   c.cfg.MaxTokens,
			Stream:      true,
		})
		if err != nil {
			yield("", fmt.Errorf("encoding generation request: %w", err))
			return
		}

		url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			yield("", fmt.Errorf("building generation request: %w", err))
			return
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			yield("", fmt.Errorf("calling model provider: %w", err))
			return
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				c.logger.Debug("closing provider response body", "error", err)
			}
		}()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			yield("", fmt.Errorf("model provider rejected request: status %d: %s",
				resp.StatusCode, strings.TrimSpace(string(detail))))
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == doneMarker {
				return
			}

			var chunk completionChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				c.logger.Debug("skipping malformed stream chunk", "error", err)
				continue
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			if !yield(chunk.Choices[0].Delta.Content, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield("", fmt.Errorf("model stream interrupted: %w", err))
		}
	}
}
