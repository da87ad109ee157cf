package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

var _ contractx.Embedder = (*Hashing)(nil)

// Hashing is a deterministic bag-of-words embedder that needs no model. Each
// lower-cased word is hashed into one of Dimensions buckets and the result is
// L2-normalised. Useful offline and in tests.
type Hashing struct {
	Dimensions int
}

func NewHashing(dimensions int) *Hashing {
	if dimensions <= 0 {
		dimensions = 256
	}
	return &Hashing{Dimensions: dimensions}
}

func (h *Hashing) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *Hashing) vector(text string) []float64 {
	vec := make([]float64, h.Dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		hasher := fnv.New64a()
		hasher.Write([]byte(w))
		vec[hasher.Sum64()%uint64(h.Dimensions)]++
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
