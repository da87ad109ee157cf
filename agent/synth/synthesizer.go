package synth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

const DefaultMaxAttempts = 10

var tracer = otel.Tracer("github.com/tanpawarit/Ivabot/agent/synth")

// greedy: first '{' to last '}'
var jsonSpan = regexp.MustCompile(`(?s)\{.*\}`)

var _ contractx.Synthesizer = (*Synthesizer)(nil)

type Option func(*Synthesizer)

func WithMaxAttempts(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithStopSequences(stop []string) Option {
	return func(s *Synthesizer) {
		s.stop = append([]string(nil), stop...)
	}
}

// Synthesizer asks the model for a ToolSpec, retrying malformed output with
// the previous attempt's error as feedback. It never reads or writes session
// history.
type Synthesizer struct {
	gateway     einomodel.BaseChatModel
	builder     *PromptBuilder
	maxAttempts int
	stop        []string
}

func New(gateway einomodel.BaseChatModel, builder *PromptBuilder, opts ...Option) (*Synthesizer, error) {
	if gateway == nil {
		return nil, fmt.Errorf("%w: generation gateway is required", contractx.ErrValidation)
	}
	if builder == nil {
		return nil, fmt.Errorf("%w: synthesis prompt builder", contractx.ErrPromptMissing)
	}
	s := &Synthesizer{
		gateway:     gateway,
		builder:     builder,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Synthesize returns the first decodable ToolSpec. After maxAttempts
// malformed answers it returns a nil spec and ErrSynthesisExhausted. A failed
// model call aborts immediately with ErrModelInvoke.
func (s *Synthesizer) Synthesize(ctx context.Context, request string) (*contractx.ToolSpec, error) {
	ctx, span := tracer.Start(ctx, "dynamic_tool_synthesis")
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		var feedback []string
		if lastErr != nil {
			feedback = append(feedback, lastErr.Error())
		}

		msgs, err := s.builder.Build(ctx, request, feedback...)
		if err != nil {
			return nil, err
		}

		out, err := s.gateway.Generate(ctx, msgs, einomodel.WithStop(s.stop))
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("%w: synthesis attempt %d: %v", contractx.ErrModelInvoke, attempt, err)
		}

		raw := ""
		if out != nil {
			raw = out.Content
		}
		spec, err := decodeToolSpec(raw)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("synthesized tool rejected")
			lastErr = err
			continue
		}

		if verr := spec.Validate(); verr != nil {
			log.Warn().Err(verr).Str("tool_name", spec.ToolName).Msg("synthesized tool is incomplete")
		}
		span.SetAttributes(
			attribute.Int("synthesis.attempts", attempt),
			attribute.String("synthesis.tool_name", spec.ToolName),
		)
		log.Info().Int("attempt", attempt).Str("tool_name", spec.ToolName).Msg("tool synthesized")
		return spec, nil
	}

	span.SetAttributes(attribute.Int("synthesis.attempts", s.maxAttempts))
	return nil, fmt.Errorf("%w after %d attempts: %v", contractx.ErrSynthesisExhausted, s.maxAttempts, lastErr)
}

func decodeToolSpec(raw string) (*contractx.ToolSpec, error) {
	span := jsonSpan.FindString(raw)
	if span == "" {
		return nil, fmt.Errorf("%w: no JSON object found in the response", contractx.ErrSynthesisFormat)
	}

	var spec contractx.ToolSpec
	if err := json.Unmarshal([]byte(span), &spec); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syntaxErr):
			return nil, fmt.Errorf("%w: invalid JSON at byte offset %d: %s", contractx.ErrSynthesisFormat, syntaxErr.Offset, syntaxErr.Error())
		case errors.As(err, &typeErr):
			return nil, fmt.Errorf("%w: field %q at byte offset %d: %s", contractx.ErrSynthesisFormat, typeErr.Field, typeErr.Offset, typeErr.Error())
		default:
			return nil, fmt.Errorf("%w: %v", contractx.ErrSynthesisFormat, err)
		}
	}
	return &spec, nil
}
