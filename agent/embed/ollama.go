package embed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	ollama "github.com/ollama/ollama/api"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

var _ contractx.Embedder = (*Ollama)(nil)

// Ollama embeds with a local Ollama server.
type Ollama struct {
	client *ollama.Client
	model  string
}

func NewOllama(host string, model string, timeout time.Duration) (*Ollama, error) {
	if host == "" {
		host = "http://localhost:11434"
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Ollama{
		client: ollama.NewClient(u, &http.Client{Timeout: timeout}),
		model:  model,
	}, nil
}

func (o *Ollama) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	res, err := o.client.Embed(ctx, &ollama.EmbedRequest{
		Model: o.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: ollama embed: %v", contractx.ErrEmbedding, err)
	}
	if res == nil || len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: ollama returned wrong number of embeddings", contractx.ErrEmbedding)
	}

	out := make([][]float64, len(res.Embeddings))
	for i, vec := range res.Embeddings {
		row := make([]float64, len(vec))
		for j, v := range vec {
			row[j] = float64(v)
		}
		out[i] = row
	}
	return out, nil
}
