package ocr

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEngine struct {
	name  string
	text  string
	err   error
	calls int
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Recognize(context.Context, []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestChainPrefersFirstEngine(t *testing.T) {
	vision := &fakeEngine{name: "vision", text: "  handwritten note  "}
	tess := &fakeEngine{name: "tesseract", text: "printed"}

	text, err := NewChain(zap.NewNop(), vision, tess).Recognize(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "handwritten note", text)
	assert.Equal(t, 0, tess.calls)
}

func TestChainFallsBack(t *testing.T) {
	vision := &fakeEngine{name: "vision", err: errors.New("upload refused")}
	empty := &fakeEngine{name: "empty", text: "   "}
	tess := &fakeEngine{name: "tesseract", text: "Gain 15 dBi"}

	c := NewChain(zap.NewNop(), vision, empty, tess)
	text, err := c.Recognize(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "Gain 15 dBi", text)
	assert.Equal(t, "vision+empty+tesseract", c.Name())
}

func TestChainNoText(t *testing.T) {
	c := NewChain(zap.NewNop(), &fakeEngine{name: "a"}, nil)
	_, err := c.Recognize(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoText)

	_, err = NewChain(zap.NewNop()).Recognize(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoText)
	assert.False(t, NewChain(zap.NewNop()).Available())
}

type fakeVisionClient struct {
	uploaded string
	fileID   string
	prompt   string
	answer   string
}

func (f *fakeVisionClient) UploadFile(_ context.Context, r io.Reader, name string) (string, error) {
	data, _ := io.ReadAll(r)
	f.uploaded = name + ":" + string(data)
	return "file-1", nil
}

func (f *fakeVisionClient) ExtractTextFromFile(_ context.Context, fileID, prompt string) (string, error) {
	f.fileID = fileID
	f.prompt = prompt
	return f.answer, nil
}

func TestVisionUploadsThenAsks(t *testing.T) {
	client := &fakeVisionClient{answer: "Table 1: link parameters"}
	text, err := NewVision(client).Recognize(context.Background(), []byte("\x89PNG\r\n\x1a\nrest"))
	require.NoError(t, err)
	assert.Equal(t, "Table 1: link parameters", text)
	assert.Equal(t, "file-1", client.fileID)
	assert.Contains(t, client.uploaded, "page.png")
	assert.Contains(t, client.prompt, "Extract all text")
}
