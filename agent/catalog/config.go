package catalog

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendQdrant   = "qdrant"
)

type Config struct {
	Backend      string `envconfig:"BACKEND" split_words:"true" default:"memory"`
	PostgresDSN  string `envconfig:"POSTGRES_DSN" split_words:"true"`
	QdrantURL    string `envconfig:"QDRANT_URL" split_words:"true" default:"http://localhost:6333"`
	QdrantAPIKey string `envconfig:"QDRANT_API_KEY" split_words:"true"`
	Collection   string `envconfig:"COLLECTION" split_words:"true" default:"products"`
	Seed         bool   `envconfig:"SEED" split_words:"true" default:"true"`
}

func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case BackendMemory, BackendQdrant:
	case BackendPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("%w: postgres dsn is required for catalog backend postgres", contractx.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown catalog backend %q", contractx.ErrValidation, c.Backend)
	}
	return nil
}

// Open builds the configured index. The returned close func is never nil.
func Open(ctx context.Context, c Config) (Index, func() error, error) {
	noop := func() error { return nil }
	if err := c.Validate(); err != nil {
		return nil, noop, err
	}
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case BackendPostgres:
		idx, err := OpenPostgres(ctx, c.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}
		return idx, idx.Close, nil
	case BackendQdrant:
		return NewQdrantIndex(c.QdrantURL, c.Collection, c.QdrantAPIKey), noop, nil
	default:
		return NewMemoryIndex(), noop, nil
	}
}

// OpenSearcher opens the configured index, seeds it when c.Seed is set or the
// index lives in memory, and returns a searcher over it. On failure the index
// is already closed.
func OpenSearcher(ctx context.Context, c Config, embedder contractx.Embedder) (*Searcher, func() error, error) {
	index, closeFn, err := Open(ctx, c)
	if err != nil {
		return nil, closeFn, err
	}
	seed := c.Seed || strings.EqualFold(strings.TrimSpace(c.Backend), BackendMemory)
	return newSeededSearcher(ctx, index, closeFn, seed, embedder)
}

func newSeededSearcher(ctx context.Context, index Index, closeFn func() error, seed bool, embedder contractx.Embedder) (*Searcher, func() error, error) {
	noop := func() error { return nil }
	fail := func(err error) (*Searcher, func() error, error) {
		if cerr := closeFn(); cerr != nil {
			err = fmt.Errorf("%w (close index: %v)", err, cerr)
		}
		return nil, noop, err
	}

	if seed {
		products, err := SeedProducts()
		if err != nil {
			return fail(err)
		}
		if err := Seed(ctx, embedder, index, products); err != nil {
			return fail(fmt.Errorf("seed catalog: %w", err))
		}
	}

	searcher, err := NewSearcher(embedder, index)
	if err != nil {
		return fail(err)
	}
	return searcher, closeFn, nil
}
