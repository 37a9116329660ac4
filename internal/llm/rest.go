package llm

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"rag-assistant/pkg/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// refusalPhrases mark answers where the vision model declined instead of transcribing.
var refusalPhrases = []string{
	"не могу помочь",
	"не могу обработать",
	"предоставьте содержимое",
	"не могу извлечь",
	"cannot help",
	"cannot process",
	"please provide",
	"i'm unable to",
}

// REST talks to the GigaChat HTTP API directly for the endpoints the SDK does not cover:
// files, vision attachments, function calling and embeddings.
type REST struct {
	cfg        *config.GigaChatConfig
	httpClient *http.Client
	logger     *zap.Logger

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func NewHTTPClient(cfg *config.GigaChatConfig) *http.Client {
	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.InsecureSkipVerify {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return client
}

func NewREST(cfg *config.GigaChatConfig, httpClient *http.Client, logger *zap.Logger) *REST {
	return &REST{cfg: cfg, httpClient: httpClient, logger: logger}
}

// accessToken returns a cached OAuth token, requesting a new one when expired or forced.
// The API key is already Base64-encoded client credentials.
func (r *REST) accessToken(ctx context.Context, force bool) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !force && r.token != "" && time.Now().Before(r.expiry.Add(-time.Minute)) {
		return r.token, nil
	}

	rqUID := uuid.New().String()
	form := url.Values{}
	form.Set("scope", r.cfg.Scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.OAuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create OAuth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", rqUID)
	req.Header.Set("Authorization", "Basic "+r.cfg.APIKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		r.logger.Error("OAuth request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("rq_uid", rqUID),
		)
		return "", &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var oauth struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&oauth); err != nil {
		return "", fmt.Errorf("failed to decode OAuth response: %w", err)
	}
	if oauth.AccessToken == "" {
		return "", errors.New("empty access token in OAuth response")
	}

	switch {
	case oauth.ExpiresAt > 0:
		r.expiry = time.UnixMilli(oauth.ExpiresAt)
	case oauth.ExpiresIn > 0:
		r.expiry = time.Now().Add(time.Duration(oauth.ExpiresIn) * time.Second)
	default:
		r.expiry = time.Now().Add(25 * time.Minute)
	}
	r.token = oauth.AccessToken
	r.logger.Debug("Access token obtained", zap.Time("expires", r.expiry))
	return r.token, nil
}

// do sends an authorized request and decodes a JSON response into out.
// A 401 refreshes the token and retries once.
func (r *REST) do(ctx context.Context, method, path, contentType string, body []byte, out any) error {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := r.accessToken(ctx, attempt > 0)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to call %s: %w", path, err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			r.logger.Info("Access token rejected, refreshing", zap.String("path", path))
			continue
		}

		err = decodeResponse(resp, out)
		resp.Body.Close()
		return err
	}
	return &StatusError{Code: http.StatusUnauthorized, Body: "token refresh did not help"}
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// UploadFile stores a file for use as a chat attachment and returns its id.
func (r *REST) UploadFile(ctx context.Context, reader io.Reader, fileName string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	// "general" lets the file be referenced from generation requests
	if err := writer.WriteField("purpose", "general"); err != nil {
		return "", fmt.Errorf("failed to write purpose field: %w", err)
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName)))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	part, err := writer.CreatePart(map[string][]string{
		"Content-Type":        {mimeType},
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, reader); err != nil {
		return "", fmt.Errorf("failed to copy file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := r.do(ctx, http.MethodPost, "/files", writer.FormDataContentType(), body.Bytes(), &uploaded); err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	if uploaded.ID == "" {
		return "", errors.New("upload response has no file id")
	}

	r.logger.Debug("File uploaded", zap.String("file_id", uploaded.ID), zap.String("name", fileName))
	return uploaded.ID, nil
}

// Chat runs one chat completion, optionally with functions the model may call.
func (r *REST) Chat(ctx context.Context, chatReq ChatRequest) (*ChatResponse, error) {
	if chatReq.Model == "" {
		chatReq.Model = r.cfg.Model
	}
	payload, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var completion struct {
		Choices []ChatResponse `json:"choices"`
	}
	if err := r.do(ctx, http.MethodPost, "/chat/completions", "application/json", payload, &completion); err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("no choices in chat completion")
	}
	return &completion.Choices[0], nil
}

// ExtractTextFromFile asks the vision model to transcribe an uploaded image.
func (r *REST) ExtractTextFromFile(ctx context.Context, fileID, prompt string) (string, error) {
	resp, err := r.Chat(ctx, ChatRequest{
		Model: r.cfg.VisionModel,
		Messages: []Message{{
			Role:        RoleUser,
			Content:     prompt,
			Attachments: []string{fileID},
		}},
		Temperature: 0.1,
	})
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Message.Content)
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			r.logger.Warn("Vision model declined to transcribe", zap.String("answer", text))
			return "", fmt.Errorf("model returned refusal: %s", text)
		}
	}
	return text, nil
}

// Embed returns one vector per input, in input order.
func (r *REST) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	payload, err := json.Marshal(map[string]any{"model": model, "input": inputs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := r.do(ctx, http.MethodPost, "/embeddings", "application/json", payload, &result); err != nil {
		return nil, err
	}
	if len(result.Data) != len(inputs) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(inputs), len(result.Data))
	}

	out := make([][]float32, len(inputs))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
