package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"rag-assistant/internal/monitoring"
	"rag-assistant/pkg/config"

	"github.com/Role1776/gigago"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Client is the single entry point to GigaChat. Text generation goes through the
// gigago SDK, everything else through REST. All calls share one circuit breaker.
type Client struct {
	sdk     *gigago.Client
	rest    *REST
	breaker *Breaker
	model   string
	temp    float64
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

func New(ctx context.Context, cfg *config.GigaChatConfig, metrics *monitoring.Metrics, logger *zap.Logger) (*Client, error) {
	opts := []gigago.Option{gigago.WithCustomScope(cfg.Scope)}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	sdk, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	c := newClient(NewREST(cfg, NewHTTPClient(cfg), logger), cfg.Model, metrics, logger)
	c.sdk = sdk
	c.temp = cfg.Temperature

	logger.Info("GigaChat client ready",
		zap.String("model", cfg.Model),
		zap.String("vision_model", cfg.VisionModel),
	)
	return c, nil
}

func newClient(rest *REST, model string, metrics *monitoring.Metrics, logger *zap.Logger) *Client {
	return &Client{
		rest:  rest,
		model: model,
		breaker: NewBreaker("gigachat", DefaultBreakerConfig(), logger, func(to gobreaker.State) {
			metrics.SetBreakerState("gigachat", int(to))
		}),
		metrics: metrics,
		logger:  logger,
	}
}

func call[T any](c *Client, operation string, fn func() (T, error)) (T, error) {
	start := time.Now()
	res, err := c.breaker.Execute(func() (any, error) { return fn() })
	c.metrics.ObserveLLM(operation, start, err)

	var zero T
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}

// Generate answers prompt under the given system instruction.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	if c.sdk == nil {
		return "", errors.New("generation is not configured")
	}
	return call(c, "generate", func() (string, error) {
		model := c.sdk.GenerativeModel(c.model)
		model.SystemInstruction = system
		model.Temperature = c.temp

		resp, err := model.Generate(ctx, []gigago.Message{
			{Role: gigago.RoleUser, Content: prompt},
		})
		if err != nil {
			return "", fmt.Errorf("failed to generate: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("no response from model")
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	})
}

func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return call(c, "chat", func() (*ChatResponse, error) {
		return c.rest.Chat(ctx, req)
	})
}

func (c *Client) UploadFile(ctx context.Context, r io.Reader, fileName string) (string, error) {
	// buffered so a retry can resend the same bytes
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	return call(c, "upload", func() (string, error) {
		return c.rest.UploadFile(ctx, bytes.NewReader(data), fileName)
	})
}

func (c *Client) ExtractTextFromFile(ctx context.Context, fileID, prompt string) (string, error) {
	return call(c, "vision", func() (string, error) {
		return c.rest.ExtractTextFromFile(ctx, fileID, prompt)
	})
}

func (c *Client) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	return call(c, "embed", func() ([][]float32, error) {
		return c.rest.Embed(ctx, model, inputs)
	})
}

func (c *Client) Close() error {
	if c.sdk != nil {
		c.sdk.Close()
	}
	return nil
}
