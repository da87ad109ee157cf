package catalog

import (
	"context"
	"math"
	"sync"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
	embedx "github.com/tanpawarit/Ivabot/agent/embed"
)

var _ Index = (*MemoryIndex)(nil)

// MemoryIndex is a brute-force cosine index. Ties go to the earliest inserted
// document.
type MemoryIndex struct {
	mu    sync.RWMutex
	order []string
	docs  map[string]Document
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: make(map[string]Document)}
}

func (m *MemoryIndex) Upsert(_ context.Context, docs []Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range docs {
		id := d.ID
		if id == "" {
			id = DocumentID(d.Product.Name)
		}
		if _, ok := m.docs[id]; !ok {
			m.order = append(m.order, id)
		}
		d.ID = id
		d.Vector = append([]float64(nil), d.Vector...)
		m.docs[id] = d
	}
	return nil
}

func (m *MemoryIndex) Nearest(_ context.Context, vector []float64) (*Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.order) == 0 {
		return nil, contractx.ErrProductNotFound
	}

	var best *Document
	bestScore := math.Inf(-1)
	for _, id := range m.order {
		d := m.docs[id]
		if s := embedx.Cosine(vector, d.Vector); s > bestScore {
			bestScore = s
			best = &d
		}
	}
	if best == nil {
		return nil, contractx.ErrProductNotFound
	}
	return &Match{Product: best.Product, Score: bestScore}, nil
}

func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}
