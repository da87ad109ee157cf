package llm

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
	"github.com/tanpawarit/Ivabot/agent/guardrails"
)

// Gateways holds one guarded chat model per role.
type Gateways struct {
	Chat  einomodel.BaseChatModel
	Sales einomodel.BaseChatModel
	Synth einomodel.BaseChatModel
}

// ModelFactory builds the raw chat model for a role.
type ModelFactory func(ctx context.Context, role Role) (einomodel.BaseChatModel, error)

// OpenRouterFactory builds models from cfg through OpenRouter.
func OpenRouterFactory(cfg Config) ModelFactory {
	return func(ctx context.Context, role Role) (einomodel.BaseChatModel, error) {
		c := cfg.OpenRouterFor(role)
		return c.New(ctx)
	}
}

// NewGateways wraps each role's model with guardrails. Chat and sales share
// persona; synthesis carries its own system prompt.
func NewGateways(ctx context.Context, cfg Config, persona string, factory ModelFactory) (*Gateways, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		factory = OpenRouterFactory(cfg)
	}

	build := func(role Role, opts ...guardrails.Option) (einomodel.BaseChatModel, error) {
		m, err := factory(ctx, role)
		if err != nil {
			return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, role, err)
		}
		opts = append(opts, guardrails.WithBlockedPhrases(cfg.BlockedPhrases...))
		rails, err := guardrails.New(m, opts...)
		if err != nil {
			return nil, err
		}
		return rails, nil
	}

	chat, err := build(RoleChat, guardrails.WithPersona(persona))
	if err != nil {
		return nil, err
	}
	sales, err := build(RoleSales, guardrails.WithPersona(persona))
	if err != nil {
		return nil, err
	}
	synth, err := build(RoleSynth)
	if err != nil {
		return nil, err
	}

	return &Gateways{Chat: chat, Sales: sales, Synth: synth}, nil
}
