package catalog

import (
	"context"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

// Document is one embedded catalog entry.
type Document struct {
	ID      string
	Product contractx.ProductRecord
	Vector  []float64
}

// Match is the nearest document and its cosine similarity to the query.
type Match struct {
	Product contractx.ProductRecord
	Score   float64
}

// Index stores product vectors. Nearest returns ErrProductNotFound when the
// index holds nothing.
type Index interface {
	Upsert(ctx context.Context, docs []Document) error
	Nearest(ctx context.Context, vector []float64) (*Match, error)
}
