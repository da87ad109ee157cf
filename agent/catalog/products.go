package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

//go:embed data/products.json
var seedJSON []byte

// SeedProducts returns the bundled demo catalog.
func SeedProducts() ([]contractx.ProductRecord, error) {
	var products []contractx.ProductRecord
	if err := json.Unmarshal(seedJSON, &products); err != nil {
		return nil, fmt.Errorf("decode seed catalog: %w", err)
	}
	return products, nil
}

// DocumentID is stable per product name so reseeding overwrites instead of
// duplicating.
func DocumentID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
