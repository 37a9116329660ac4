package ocr

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// ErrNoText means no engine produced any text for the image.
var ErrNoText = errors.New("no text recognized")

// Engine recognizes text in a PNG or JPEG image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Chain tries engines in order and returns the first non-empty result.
type Chain struct {
	engines []Engine
	logger  *zap.Logger
}

func NewChain(logger *zap.Logger, engines ...Engine) *Chain {
	var active []Engine
	for _, e := range engines {
		if e != nil {
			active = append(active, e)
		}
	}
	return &Chain{engines: active, logger: logger}
}

func (c *Chain) Name() string {
	names := make([]string, 0, len(c.engines))
	for _, e := range c.engines {
		names = append(names, e.Name())
	}
	return strings.Join(names, "+")
}

// Available reports whether at least one engine is configured.
func (c *Chain) Available() bool {
	return len(c.engines) > 0
}

func (c *Chain) Recognize(ctx context.Context, image []byte) (string, error) {
	for _, engine := range c.engines {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := engine.Recognize(ctx, image)
		if err != nil {
			c.logger.Warn("OCR engine failed, trying next",
				zap.String("engine", engine.Name()),
				zap.Error(err),
			)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			c.logger.Debug("OCR succeeded",
				zap.String("engine", engine.Name()),
				zap.Int("text_length", len(text)),
			)
			return text, nil
		}
		c.logger.Debug("OCR engine returned empty text", zap.String("engine", engine.Name()))
	}
	return "", ErrNoText
}
