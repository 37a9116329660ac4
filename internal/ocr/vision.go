package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

const visionPrompt = `Extract all text content from this image. Include:
- All visible text, numbers, and symbols
- The original layout and structure as much as possible
- Table data if present
- Any handwritten text

Return only the extracted text content without any additional commentary. If there is no readable text, return an empty answer.`

// VisionClient uploads an image and asks a vision-capable model about it.
type VisionClient interface {
	UploadFile(ctx context.Context, r io.Reader, fileName string) (string, error)
	ExtractTextFromFile(ctx context.Context, fileID, prompt string) (string, error)
}

// Vision recognizes text with a multimodal language model.
type Vision struct {
	client VisionClient
}

func NewVision(client VisionClient) *Vision {
	return &Vision{client: client}
}

func (v *Vision) Name() string { return "vision" }

func (v *Vision) Recognize(ctx context.Context, image []byte) (string, error) {
	name := "page.png"
	if http.DetectContentType(image) == "image/jpeg" {
		name = "page.jpg"
	}

	fileID, err := v.client.UploadFile(ctx, bytes.NewReader(image), name)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	text, err := v.client.ExtractTextFromFile(ctx, fileID, visionPrompt)
	if err != nil {
		return "", fmt.Errorf("vision model failed: %w", err)
	}
	return text, nil
}
