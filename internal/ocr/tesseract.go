package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"
)

// DefaultPageSegModes are tried in order until one yields text:
// uniform block, single word, sparse text, raw line.
var DefaultPageSegModes = []gosseract.PageSegMode{
	gosseract.PSM_SINGLE_BLOCK,
	gosseract.PSM_SINGLE_WORD,
	gosseract.PSM_SPARSE_TEXT,
	gosseract.PSM_RAW_LINE,
}

type Tesseract struct {
	languages []string
	modes     []gosseract.PageSegMode
	logger    *zap.Logger
}

func NewTesseract(languages []string, logger *zap.Logger) *Tesseract {
	return &Tesseract{
		languages: languages,
		modes:     DefaultPageSegModes,
		logger:    logger,
	}
}

func (t *Tesseract) Name() string { return "tesseract" }

func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if len(t.languages) > 0 {
		if err := client.SetLanguage(t.languages...); err != nil {
			return "", fmt.Errorf("failed to set tesseract languages: %w", err)
		}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to load image into tesseract: %w", err)
	}

	var lastErr error
	for _, mode := range t.modes {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := client.SetPageSegMode(mode); err != nil {
			lastErr = err
			continue
		}
		text, err := client.Text()
		if err != nil {
			t.logger.Debug("Tesseract mode failed", zap.Int("psm", int(mode)), zap.Error(err))
			lastErr = err
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			t.logger.Debug("Tesseract recognized text", zap.Int("psm", int(mode)), zap.Int("text_length", len(text)))
			return text, nil
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("tesseract failed in every mode: %w", lastErr)
	}
	return "", nil
}
