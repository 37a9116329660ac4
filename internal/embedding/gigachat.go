package embedding

import "context"

// EmbeddingClient is the provider call used by GigaChat; llm.Client implements it.
type EmbeddingClient interface {
	Embed(ctx context.Context, model string, inputs []string) ([][]float32, error)
}

type GigaChat struct {
	client EmbeddingClient
	model  string
}

func NewGigaChat(client EmbeddingClient, model string) *GigaChat {
	return &GigaChat{client: client, model: model}
}

func (g *GigaChat) Name() string { return "gigachat/" + g.model }

func (g *GigaChat) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return g.client.Embed(ctx, g.model, texts)
}
