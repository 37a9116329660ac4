package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// OpenAI is a client for any OpenAI-compatible /embeddings endpoint (OpenAI, Ollama, vLLM).
type OpenAI struct {
	baseURL    string
	apiKey     string
	model      string
	client     *http.Client
	maxRetries int
	backoff    time.Duration
}

func NewOpenAI(baseURL, apiKey, model string, client *http.Client) *OpenAI {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &OpenAI{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		client:     client,
		maxRetries: 4,
		backoff:    200 * time.Millisecond,
	}
}

func (c *OpenAI) Name() string { return "openai/" + c.model }

func (c *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(map[string]any{"model": c.model, "input": texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.delay(attempt - 1)):
			}
		}

		vecs, retryAfter, err := c.once(ctx, payload, len(texts))
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		if retryAfter < 0 {
			return nil, err
		}
		if retryAfter > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryAfter):
			}
		}
	}
	return nil, fmt.Errorf("embeddings failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// once performs one request. retryAfter < 0 means the error is permanent.
func (c *OpenAI) once(ctx context.Context, payload []byte, n int) ([][]float32, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, -1, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, -1, ctx.Err()
		}
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		var wait time.Duration
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			wait = time.Duration(secs) * time.Second
		}
		return nil, wait, fmt.Errorf("embeddings endpoint returned %s", resp.Status)
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, -1, fmt.Errorf("embeddings endpoint returned %s: %s", resp.Status, body)
	}

	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, 0, fmt.Errorf("failed to decode embeddings: %w", err)
	}
	if len(out.Data) != n {
		return nil, -1, fmt.Errorf("expected %d embeddings, got %d", n, len(out.Data))
	}
	vecs := make([][]float32, n)
	for i, d := range out.Data {
		idx := d.Index
		if idx < 0 || idx >= n {
			idx = i
		}
		vecs[idx] = d.Embedding
	}
	return vecs, 0, nil
}

// delay is exponential backoff capped at five seconds.
func (c *OpenAI) delay(attempt int) time.Duration {
	d := c.backoff << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
