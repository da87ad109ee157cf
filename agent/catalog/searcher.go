package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

var tracer = otel.Tracer("github.com/tanpawarit/Ivabot/agent/catalog")

var _ contractx.ProductSearcher = (*Searcher)(nil)

// Searcher resolves a free-text query to the single closest product.
type Searcher struct {
	embedder contractx.Embedder
	index    Index
}

func NewSearcher(embedder contractx.Embedder, index Index) (*Searcher, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", contractx.ErrValidation)
	}
	if index == nil {
		return nil, fmt.Errorf("%w: index is required", contractx.ErrValidation)
	}
	return &Searcher{embedder: embedder, index: index}, nil
}

func (s *Searcher) Search(ctx context.Context, query string) (*contractx.ProductRecord, error) {
	ctx, span := tracer.Start(ctx, "product_retrieval", trace.WithAttributes(
		attribute.Int("query.length", len(query)),
	))
	defer span.End()

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: embed query: %v", contractx.ErrEmbedding, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for one query", contractx.ErrEmbedding, len(vectors))
	}

	match, err := s.index.Nearest(ctx, vectors[0])
	if err != nil {
		if !errors.Is(err, contractx.ErrProductNotFound) {
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.String("product.name", match.Product.Name),
		attribute.Float64("product.score", match.Score),
	)
	log.Debug().
		Str("product", match.Product.Name).
		Float64("score", match.Score).
		Msg("product retrieved")

	product := match.Product
	return &product, nil
}

type collectionEnsurer interface {
	EnsureCollection(ctx context.Context, size int) error
}

// Seed embeds each product's search text and upserts it into index.
func Seed(ctx context.Context, embedder contractx.Embedder, index Index, products []contractx.ProductRecord) error {
	if len(products) == 0 {
		return nil
	}
	texts := make([]string, 0, len(products))
	for _, p := range products {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: seed product without name", contractx.ErrValidation)
		}
		texts = append(texts, p.SearchText())
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: embed catalog: %v", contractx.ErrEmbedding, err)
	}
	if len(vectors) != len(products) {
		return fmt.Errorf("%w: got %d vectors for %d products", contractx.ErrEmbedding, len(vectors), len(products))
	}

	if e, ok := index.(collectionEnsurer); ok {
		if err := e.EnsureCollection(ctx, len(vectors[0])); err != nil {
			return fmt.Errorf("ensure collection: %w", err)
		}
	}

	docs := make([]Document, 0, len(products))
	for i, p := range products {
		docs = append(docs, Document{ID: DocumentID(p.Name), Product: p, Vector: vectors[i]})
	}
	if err := index.Upsert(ctx, docs); err != nil {
		return err
	}

	log.Info().Int("products", len(docs)).Msg("catalog seeded")
	return nil
}
