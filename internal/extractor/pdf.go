package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// PDFDocument is the subset of a rendered PDF the extractor needs.
type PDFDocument interface {
	NumPage() int
	Text(page int) (string, error)
	ImagePNG(page int, dpi float64) ([]byte, error)
	Close() error
}

type PDFOpener interface {
	Open(path string) (PDFDocument, error)
}

// FitzOpener opens PDFs with MuPDF.
type FitzOpener struct{}

func (FitzOpener) Open(path string) (PDFDocument, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (string, error) {
	doc, err := e.pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var (
		parts      []string
		ocrParts   []string
		imagePages int
		textPages  int
	)
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		pageText, err := doc.Text(i)
		if err != nil {
			e.logger.Warn("Failed to extract text from page",
				zap.Int("page", i+1),
				zap.String("file", filepath.Base(path)),
				zap.Error(err),
			)
		}

		if strings.TrimSpace(pageText) != "" {
			textPages++
			parts = append(parts, pageText)
			for _, table := range detectTables(pageText) {
				parts = append(parts, markdownTable("### Table Data", table))
			}
			continue
		}

		// empty text layer: rasterize the page and try OCR
		imagePages++
		img, err := doc.ImagePNG(i, e.dpi)
		if err != nil {
			e.logger.Warn("Failed to render page", zap.Int("page", i+1), zap.Error(err))
			continue
		}
		if text := e.recognize(ctx, img, fmt.Sprintf("page %d", i+1)); text != "" {
			block := fmt.Sprintf("--- Text from page %d ---\n%s", i+1, text)
			ocrParts = append(ocrParts, block)
			parts = append(parts, block)
		}
	}

	switch {
	case textPages == 0 && len(ocrParts) > 0:
		return ocrHeader + "\n" + strings.Join(ocrParts, "\n\n"), nil
	case textPages == 0 && imagePages > 0:
		return NoReadableText, nil
	case len(parts) == 0:
		return "", fmt.Errorf("%w in PDF", ErrEmptyDocument)
	}
	return strings.Join(parts, "\n\n"), nil
}
