package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Generator turns a prompt into the model's free-text reply.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

var ErrEmptyReply = errors.New("llm returned an empty reply")

// OllamaClient talks to an Ollama-compatible /api/generate endpoint.
type OllamaClient struct {
	url   string
	model string
	hc    *http.Client
	log   *slog.Logger
}

// NewOllamaClient creates a new client. If httpClient is nil, one bounded by timeout is used.
func NewOllamaClient(url, model string, timeout time.Duration, httpClient *http.Client, log *slog.Logger) *OllamaClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &OllamaClient{url: url, model: model, hc: httpClient, log: log}
}

// Generate sends a non-streaming request and extracts the returned text.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("llm marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("llm new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	c.log.Debug("llm request", slog.String("url", c.url), slog.String("model", c.model),
		slog.Duration("latency", time.Since(start)), slog.Any("err", err))
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("llm request failed: status=%d body=%s", resp.StatusCode, truncate(string(respBody), 300))
	}

	text := extractText(respBody)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

// extractText understands the common reply shapes:
// {"response": ...} (Ollama), {"text": ...}, {"choices":[{"text"|"message":{"content"}}]}
// and {"results":[{"response"|"text"}]}. Anything else is returned raw.
func extractText(body []byte) string {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return string(bytes.TrimSpace(body))
	}

	if s, ok := m["response"].(string); ok && s != "" {
		return s
	}
	if s, ok := m["text"].(string); ok && s != "" {
		return s
	}
	if arr, ok := m["choices"].([]any); ok && len(arr) > 0 {
		if first, ok := arr[0].(map[string]any); ok {
			if s, ok := first["text"].(string); ok && s != "" {
				return s
			}
			if msg, ok := first["message"].(map[string]any); ok {
				if s, ok := msg["content"].(string); ok && s != "" {
					return s
				}
			}
		}
	}
	if arr, ok := m["results"].([]any); ok {
		var buf strings.Builder
		for _, it := range arr {
			oo, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if s, ok := oo["response"].(string); ok {
				buf.WriteString(s)
			} else if s, ok := oo["text"].(string); ok {
				buf.WriteString(s)
			}
		}
		if buf.Len() > 0 {
			return buf.String()
		}
	}

	return string(bytes.TrimSpace(body))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
