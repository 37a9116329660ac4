package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	// NoReadableText is returned as content when a document holds only images
	// and no OCR engine could read them.
	NoReadableText = "=== Document contains only images with no readable text ==="

	ocrHeader = "=== Text extracted from images using OCR ==="
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyDocument     = errors.New("no readable text found")
)

// Recognizer reads text from a raster image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// SupportedExtensions lists the file types Extract accepts.
var SupportedExtensions = []string{".pdf", ".docx", ".txt"}

// Supported reports whether name has an extension Extract can handle.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

type Extractor struct {
	pdf    PDFOpener
	ocr    Recognizer
	dpi    float64
	logger *zap.Logger
}

// New builds an extractor. ocr may be nil when no OCR engine is available.
func New(pdf PDFOpener, ocr Recognizer, dpi float64, logger *zap.Logger) *Extractor {
	if dpi <= 0 {
		dpi = 200
	}
	return &Extractor{pdf: pdf, ocr: ocr, dpi: dpi, logger: logger}
}

// Extract converts the file at path into plain text. A document made of
// unreadable images yields NoReadableText with a nil error.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	var (
		text string
		err  error
	)
	switch ext {
	case ".pdf":
		text, err = e.extractPDF(ctx, path)
	case ".docx":
		text, err = e.extractDOCX(ctx, path)
	case ".txt":
		text, err = extractTXT(path)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return "", err
	}

	text = sanitize(text)
	e.logger.Info("Document extracted",
		zap.String("file", filepath.Base(path)),
		zap.String("format", ext),
		zap.Int("text_length", len(text)),
		zap.Bool("readable", text != NoReadableText),
	)
	return text, nil
}

// ExtractFile extracts an in-memory upload. The bytes are written to a
// temporary directory that is removed before returning.
func (e *Extractor) ExtractFile(ctx context.Context, name string, data []byte) (string, error) {
	if !Supported(name) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}

	dir, err := os.MkdirTemp("", "extract-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	return e.Extract(ctx, path)
}

// recognize runs OCR and returns empty text when no engine is configured or all fail.
func (e *Extractor) recognize(ctx context.Context, image []byte, what string) string {
	if e.ocr == nil {
		return ""
	}
	text, err := e.ocr.Recognize(ctx, image)
	if err != nil {
		e.logger.Warn("OCR produced no text", zap.String("image", what), zap.Error(err))
		return ""
	}
	return strings.TrimSpace(text)
}

// sanitize drops invalid UTF-8 and NUL bytes which break JSON and postgres text columns.
func sanitize(s string) string {
	s = strings.ToValidUTF8(s, "")
	return strings.ReplaceAll(s, "\x00", "")
}
