package contract

import (
	"fmt"
	"strings"
)

// ReplyType tells the caller which strategy produced a reply.
type ReplyType string

const (
	ReplyTypeToolResult  ReplyType = "tool_result"
	ReplyTypeLLMResponse ReplyType = "llm_response"
	ReplyTypeSalesPitch  ReplyType = "sales_pitch"
	ReplyTypeFallback    ReplyType = "fallback"
)

const (
	IntentDefault  = "default"
	IntentPurchase = "purchase"
	ToolNone       = "none"
)

type Reply struct {
	Type    ReplyType `json:"type"`
	Content string    `json:"content"`
	Tool    string    `json:"tool"`
}

type ClassificationResult struct {
	Intent string  `json:"intent"`
	Score  float64 `json:"score"`
}

type ProductRecord struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	Price             string `json:"price"`
	SpecsURL          string `json:"specs_url"`
	CalculationResult string `json:"calculation_result,omitempty"`
}

// SearchText is the text embedded for nearest-neighbour lookup.
func (p ProductRecord) SearchText() string {
	return strings.TrimSpace(p.Name + ". " + p.Description)
}

type ToolParameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ToolSpec is a model-generated tool definition. Code is untrusted.
type ToolSpec struct {
	ToolName   string          `json:"tool_name"`
	Parameters []ToolParameter `json:"parameters"`
	Code       string          `json:"code"`
}

func (s ToolSpec) Validate() error {
	if strings.TrimSpace(s.ToolName) == "" {
		return fmt.Errorf("%w: tool_name is required", ErrSchemaViolation)
	}
	if strings.TrimSpace(s.Code) == "" {
		return fmt.Errorf("%w: code is required", ErrSchemaViolation)
	}
	for i, p := range s.Parameters {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: parameters[%d].name is required", ErrSchemaViolation, i)
		}
	}
	return nil
}

// Execution is the outcome of running a synthesized tool.
type Execution struct {
	Quantity    int       `json:"quantity"`
	Args        []float64 `json:"args"`
	Value       float64   `json:"value"`
	Description string    `json:"description"`
}
