package purchase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
	statex "github.com/tanpawarit/Ivabot/agent/state"
)

// Apology is returned when a requested calculation cannot be produced.
const Apology = "There was an error calculating the requested information."

// CalculationKeywords switch a purchase request to the calculation path.
var CalculationKeywords = []string{"calculate", "roi", "discount", "total", "shipping", "bulk"}

var tracer = otel.Tracer("github.com/tanpawarit/Ivabot/agent/agents/purchase")

var _ contractx.PurchaseHandler = (*Service)(nil)

// Service answers purchase requests about one product, optionally running a
// synthesized pricing tool first.
type Service struct {
	gateway     einomodel.BaseChatModel
	synthesizer contractx.Synthesizer
	executor    contractx.Executor
	sales       einoprompt.ChatTemplate

	runner compose.Runnable[request, string]
}

func New(
	gateway einomodel.BaseChatModel,
	synthesizer contractx.Synthesizer,
	executor contractx.Executor,
	salesPrompt string,
) (*Service, error) {
	if gateway == nil {
		return nil, fmt.Errorf("%w: generation gateway is required", contractx.ErrValidation)
	}
	if synthesizer == nil {
		return nil, fmt.Errorf("%w: synthesizer is required", contractx.ErrValidation)
	}
	if executor == nil {
		return nil, fmt.Errorf("%w: executor is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(salesPrompt) == "" {
		return nil, fmt.Errorf("%w: sales", contractx.ErrPromptMissing)
	}

	s := &Service{
		gateway:     gateway,
		synthesizer: synthesizer,
		executor:    executor,
		sales:       einoprompt.FromMessages(schema.GoTemplate, schema.UserMessage(salesPrompt)),
	}
	runner, err := s.compileGraph(context.Background())
	if err != nil {
		return nil, err
	}
	s.runner = runner
	return s, nil
}

// RequestsCalculation reports whether input names any calculation keyword,
// ignoring case.
func RequestsCalculation(input string) bool {
	lower := strings.ToLower(input)
	for _, k := range CalculationKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func (s *Service) Handle(ctx context.Context, session *statex.Session, input string, product *contractx.ProductRecord) (string, error) {
	if session == nil {
		return "", statex.ErrNilSessionState
	}
	if product == nil {
		return "", fmt.Errorf("%w: product is required", contractx.ErrInternal)
	}

	ctx, span := tracer.Start(ctx, "purchase_router")
	defer span.End()
	span.SetAttributes(
		attribute.String("purchase_router.user_input", input),
		attribute.String("purchase_router.product", product.Name),
	)

	return s.runner.Invoke(ctx, request{Session: session, Text: input, Product: *product})
}

// calculate runs synthesis and execution. A nil spec or a failed execution
// marks the request as failed; a gateway failure is returned as is.
func (s *Service) calculate(ctx context.Context, st *graphState) (*graphState, error) {
	spec, err := s.synthesizer.Synthesize(ctx, st.Text)
	if err != nil && !errors.Is(err, contractx.ErrSynthesisExhausted) {
		return nil, err
	}
	if spec == nil {
		log.Warn().Err(err).Msg("no usable pricing tool")
		st.Failed = true
		return st, nil
	}

	result, err := s.executor.Execute(*spec, st.Text)
	if err != nil {
		log.Error().Err(err).Str("tool_name", spec.ToolName).Msg("pricing tool failed")
		st.Failed = true
		return st, nil
	}

	log.Info().
		Str("tool_name", spec.ToolName).
		Int("quantity", result.Quantity).
		Float64("value", result.Value).
		Msg("pricing tool executed")
	st.Product.CalculationResult = result.Description
	return st, nil
}

// pitch renders the sales prompt into the session history and asks the
// gateway for the reply.
func (s *Service) pitch(ctx context.Context, st *graphState) (string, error) {
	vars := map[string]any{
		"name":               st.Product.Name,
		"description":        st.Product.Description,
		"price":              st.Product.Price,
		"specs_url":          st.Product.SpecsURL,
		"calculation_result": st.Product.CalculationResult,
	}
	rendered, err := s.sales.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("%w: render sales prompt: %v", contractx.ErrPromptMissing, err)
	}
	if len(rendered) == 0 {
		return "", fmt.Errorf("%w: sales prompt rendered empty", contractx.ErrPromptMissing)
	}

	history := st.Session.History()
	history.Append(statex.UserEntry(rendered[0].Content))

	out, err := s.gateway.Generate(ctx, statex.ToMessages(history.Snapshot()))
	if err != nil {
		return "", fmt.Errorf("%w: sales pitch: %v", contractx.ErrModelInvoke, err)
	}
	reply := ""
	if out != nil {
		reply = strings.TrimSpace(out.Content)
	}
	history.Append(statex.AssistantEntry(reply))
	return reply, nil
}
