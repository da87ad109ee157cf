package contract

import (
	"context"

	statex "github.com/tanpawarit/Ivabot/agent/state"
)

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

type IntentClassifier interface {
	Classify(ctx context.Context, input string, threshold float64) (ClassificationResult, error)
}

// ProductSearcher returns the single nearest catalog entry or ErrProductNotFound.
type ProductSearcher interface {
	Search(ctx context.Context, query string) (*ProductRecord, error)
}

type ToolGateway interface {
	Has(name string) bool
	Arguments(name string, input string) (map[string]any, error)
	Invoke(ctx context.Context, name string, params map[string]any) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, request string) (*ToolSpec, error)
}

type Executor interface {
	Execute(spec ToolSpec, userInput string) (Execution, error)
}

type PurchaseHandler interface {
	Handle(ctx context.Context, session *statex.Session, input string, product *ProductRecord) (string, error)
}
