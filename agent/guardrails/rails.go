// Package guardrails wraps a chat model with input and output rails. Input
// rails screen the latest user turn for prompt injection and blocked
// phrases and answer with a canned refusal instead of calling the model.
// Output rails replace replies that contain blocked phrases.
package guardrails

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

const DefaultRefusal = "I'm sorry, I can't help with that request. Is there anything else about our products I can help you with?"

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions|prompts|rules)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above)`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|prior|your)\s+(instructions|rules|training)`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+a`),
	regexp.MustCompile(`(?i)new\s+instructions?\s*:`),
	regexp.MustCompile(`(?i)system\s*:\s*you\s+are`),
	regexp.MustCompile(`(?i)\bdo\s+anything\s+now\b`),
	regexp.MustCompile(`(?i)\bjailbreak\b`),
	regexp.MustCompile(`(?i)pretend\s+(that\s+)?you\s+(have\s+no|don'?t\s+have)\s+(restrictions|rules|limits)`),
	regexp.MustCompile(`(?i)act\s+as\s+if\s+you\s+have\s+no\s+(restrictions|rules|limits)`),
}

var _ einomodel.BaseChatModel = (*Rails)(nil)

// Rails is a guarded chat model. It is safe for concurrent use when the
// wrapped model is.
type Rails struct {
	model   einomodel.BaseChatModel
	persona string
	blocked []string
	refusal string
}

type Option func(*Rails)

// WithPersona sets the system message prepended to conversations that carry
// none of their own.
func WithPersona(persona string) Option {
	return func(r *Rails) { r.persona = strings.TrimSpace(persona) }
}

// WithBlockedPhrases adds case-insensitive phrases checked on both rails.
func WithBlockedPhrases(phrases ...string) Option {
	return func(r *Rails) {
		for _, p := range phrases {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				r.blocked = append(r.blocked, p)
			}
		}
	}
}

func WithRefusal(text string) Option {
	return func(r *Rails) {
		if text = strings.TrimSpace(text); text != "" {
			r.refusal = text
		}
	}
}

func New(model einomodel.BaseChatModel, opts ...Option) (*Rails, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	r := &Rails{model: model, refusal: DefaultRefusal}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// CheckInput reports why text would be refused, or "" when it passes.
func (r *Rails) CheckInput(text string) string {
	for _, re := range injectionPatterns {
		if re.MatchString(text) {
			return "prompt injection"
		}
	}
	if phrase := r.blockedPhrase(text); phrase != "" {
		return "blocked phrase"
	}
	return ""
}

func (r *Rails) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if reason := r.CheckInput(lastUserContent(input)); reason != "" {
		log.Warn().Str("rail", "input").Str("reason", reason).Msg("request refused")
		return schema.AssistantMessage(r.refusal, nil), nil
	}

	out, err := r.model.Generate(ctx, r.withPersona(input), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: empty model response", contractx.ErrModelInvoke)
	}
	if r.blockedPhrase(out.Content) != "" {
		log.Warn().Str("rail", "output").Msg("response replaced")
		return schema.AssistantMessage(r.refusal, nil), nil
	}
	return out, nil
}

// Stream applies the input rail only; chunks are passed through as they
// arrive.
func (r *Rails) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	if reason := r.CheckInput(lastUserContent(input)); reason != "" {
		log.Warn().Str("rail", "input").Str("reason", reason).Msg("stream refused")
		return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage(r.refusal, nil)}), nil
	}
	sr, err := r.model.Stream(ctx, r.withPersona(input), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	return sr, nil
}

func (r *Rails) withPersona(input []*schema.Message) []*schema.Message {
	if r.persona == "" {
		return input
	}
	for _, m := range input {
		if m != nil && m.Role == schema.System {
			return input
		}
	}
	out := make([]*schema.Message, 0, len(input)+1)
	out = append(out, schema.SystemMessage(r.persona))
	return append(out, input...)
}

func (r *Rails) blockedPhrase(text string) string {
	if len(r.blocked) == 0 {
		return ""
	}
	lower := strings.ToLower(text)
	for _, p := range r.blocked {
		if strings.Contains(lower, p) {
			return p
		}
	}
	return ""
}

func lastUserContent(input []*schema.Message) string {
	for i := len(input) - 1; i >= 0; i-- {
		if input[i] != nil && input[i].Role == schema.User {
			return input[i].Content
		}
	}
	return ""
}
