package intent

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
	embedx "github.com/tanpawarit/Ivabot/agent/embed"
)

// DefaultThreshold is the similarity a route must strictly exceed.
const DefaultThreshold = 0.45

var tracer = otel.Tracer("github.com/tanpawarit/Ivabot/agent/intent")

var _ contractx.IntentClassifier = (*Classifier)(nil)

type embeddedRoute struct {
	name    string
	vectors [][]float64
}

// Classifier picks the route whose closest example is most similar to the
// input. Example vectors are computed once in New and never change.
type Classifier struct {
	embedder contractx.Embedder
	routes   []embeddedRoute
}

func New(ctx context.Context, embedder contractx.Embedder, routes []Route) (*Classifier, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", contractx.ErrValidation)
	}
	if err := validateRoutes(routes); err != nil {
		return nil, err
	}

	embedded := make([]embeddedRoute, 0, len(routes))
	for _, r := range routes {
		vectors, err := embedder.Embed(ctx, r.Examples)
		if err != nil {
			return nil, fmt.Errorf("%w: embed route %s: %v", contractx.ErrEmbedding, r.Name, err)
		}
		if len(vectors) != len(r.Examples) {
			return nil, fmt.Errorf("%w: route %s got %d vectors for %d examples", contractx.ErrEmbedding, r.Name, len(vectors), len(r.Examples))
		}
		embedded = append(embedded, embeddedRoute{name: r.Name, vectors: vectors})
	}

	log.Info().Int("routes", len(embedded)).Msg("intent classifier ready")
	return &Classifier{embedder: embedder, routes: embedded}, nil
}

// Routes lists route names in catalog order.
func (c *Classifier) Routes() []string {
	names := make([]string, len(c.routes))
	for i, r := range c.routes {
		names[i] = r.name
	}
	return names
}

// Classify returns the best route when its score is strictly above threshold,
// otherwise contract.IntentDefault.
func (c *Classifier) Classify(ctx context.Context, input string, threshold float64) (contractx.ClassificationResult, error) {
	ctx, span := tracer.Start(ctx, "classify_query", trace.WithAttributes(
		attribute.String("input.value", input),
	))
	defer span.End()

	vectors, err := c.embedder.Embed(ctx, []string{input})
	if err != nil {
		span.RecordError(err)
		return contractx.ClassificationResult{}, fmt.Errorf("%w: embed input: %v", contractx.ErrEmbedding, err)
	}
	if len(vectors) != 1 {
		return contractx.ClassificationResult{}, fmt.Errorf("%w: got %d vectors for one input", contractx.ErrEmbedding, len(vectors))
	}
	query := vectors[0]

	bestRoute := ""
	bestScore := 0.0
	for _, r := range c.routes {
		score := routeScore(query, r.vectors)
		if score > bestScore {
			bestScore = score
			bestRoute = r.name
		}
	}

	result := contractx.ClassificationResult{Intent: contractx.IntentDefault, Score: bestScore}
	if bestScore > threshold {
		result.Intent = bestRoute
	}

	span.SetAttributes(
		attribute.String("classification.intent", result.Intent),
		attribute.Float64("classification.score", result.Score),
	)
	log.Debug().Str("intent", result.Intent).Float64("score", result.Score).Msg("input classified")
	return result, nil
}

func routeScore(query []float64, examples [][]float64) float64 {
	best := math.Inf(-1)
	for _, v := range examples {
		if s := embedx.Cosine(query, v); s > best {
			best = s
		}
	}
	return best
}
