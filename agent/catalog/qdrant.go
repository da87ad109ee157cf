package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

var _ Index = (*QdrantIndex)(nil)

const DefaultCollection = "products"

type qdrantEnvelope[T any] struct {
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
	Result T               `json:"result"`
}

type qdrantPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// QdrantIndex talks to a Qdrant collection over its REST API. The payload
// carries the product fields so a search needs no second lookup.
type QdrantIndex struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client
}

type QdrantOption func(*QdrantIndex)

func WithQdrantHTTPClient(c *http.Client) QdrantOption {
	return func(q *QdrantIndex) {
		if c != nil {
			q.client = c
		}
	}
}

func NewQdrantIndex(baseURL, collection, apiKey string, opts ...QdrantOption) *QdrantIndex {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "http://localhost:6333"
	}
	if strings.TrimSpace(collection) == "" {
		collection = DefaultCollection
	}
	q := &QdrantIndex{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		collection: collection,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// EnsureCollection creates the collection with cosine distance. An existing
// collection is left alone.
func (q *QdrantIndex) EnsureCollection(ctx context.Context, size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: qdrant vector size must be positive", contractx.ErrValidation)
	}
	body := map[string]any{
		"vectors": map[string]any{"size": size, "distance": "Cosine"},
	}
	err := q.do(ctx, http.MethodPut, "/collections/"+url.PathEscape(q.collection), body, nil)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "already exists") {
		return nil
	}
	return err
}

func (q *QdrantIndex) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	points := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		id := d.ID
		if id == "" {
			id = DocumentID(d.Product.Name)
		}
		points = append(points, map[string]any{
			"id":     id,
			"vector": d.Vector,
			"payload": map[string]any{
				"name":        d.Product.Name,
				"description": d.Product.Description,
				"price":       d.Product.Price,
				"specs_url":   d.Product.SpecsURL,
			},
		})
	}
	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(q.collection))
	return q.do(ctx, http.MethodPut, path, map[string]any{"points": points}, nil)
}

func (q *QdrantIndex) Nearest(ctx context.Context, vector []float64) (*Match, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        1,
		"with_payload": true,
	}
	var resp qdrantEnvelope[[]qdrantPoint]
	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(q.collection))
	if err := q.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 {
		return nil, contractx.ErrProductNotFound
	}

	hit := resp.Result[0]
	return &Match{
		Product: contractx.ProductRecord{
			Name:        payloadString(hit.Payload, "name"),
			Description: payloadString(hit.Payload, "description"),
			Price:       payloadString(hit.Payload, "price"),
			SpecsURL:    payloadString(hit.Payload, "specs_url", "specs_pdf"),
		},
		Score: hit.Score,
	}, nil
}

func (q *QdrantIndex) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("qdrant: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
		req.Header.Set("Authorization", "Bearer "+q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("qdrant: do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("qdrant: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env struct {
			Status struct {
				Error string `json:"error"`
			} `json:"status"`
		}
		if json.Unmarshal(data, &env) == nil && env.Status.Error != "" {
			return fmt.Errorf("qdrant: %s", env.Status.Error)
		}
		return fmt.Errorf("qdrant: http %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("qdrant: decode response: %w", err)
	}
	return nil
}

func payloadString(payload map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := payload[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
