package embed

import (
	"context"
	"errors"
	"fmt"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

var _ contractx.Embedder = (*OpenAI)(nil)

// OpenAI embeds through any OpenAI-compatible /embeddings endpoint.
type OpenAI struct {
	client *openaisdk.Client
	model  string
}

func NewOpenAI(client *openaisdk.Client, model string) (*OpenAI, error) {
	if client == nil {
		return nil, errors.New("openai client is required")
	}
	if model == "" {
		model = string(openaisdk.EmbeddingModelTextEmbedding3Small)
	}
	return &OpenAI{client: client, model: model}, nil
}

func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := o.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openaisdk.EmbeddingModel(o.model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai embeddings: %v", contractx.ErrEmbedding, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: openai returned %d embeddings for %d inputs", contractx.ErrEmbedding, len(resp.Data), len(texts))
	}

	out := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("%w: openai embedding index %d out of range", contractx.ErrEmbedding, d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
