package llm

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

func TestOpenRouterForAppliesRoleOverrides(t *testing.T) {
	t.Parallel()

	cfg := Config{
		APIKey:             "key",
		Model:              "openai/gpt-4o-mini",
		MaxCompletionToken: 512,
		Temperature:        0.5,
		SynthModel:         "qwen/qwen-2.5-coder",
		SynthTemperature:   0,
		ChatTemperature:    -1,
		SalesTemperature:   0.9,
	}

	synth := cfg.OpenRouterFor(RoleSynth)
	if synth.Model != "qwen/qwen-2.5-coder" || synth.Temperature != 0 {
		t.Fatalf("synth = %s/%v", synth.Model, synth.Temperature)
	}
	chat := cfg.OpenRouterFor(RoleChat)
	if chat.Model != "openai/gpt-4o-mini" || chat.Temperature != 0.5 {
		t.Fatalf("chat = %s/%v", chat.Model, chat.Temperature)
	}
	sales := cfg.OpenRouterFor(RoleSales)
	if sales.Temperature != 0.9 {
		t.Fatalf("sales temperature = %v", sales.Temperature)
	}
	if sales.MaxCompletionToken == nil || *sales.MaxCompletionToken != 512 {
		t.Fatalf("max tokens = %v", sales.MaxCompletionToken)
	}
}

func TestValidateRequiresKeyAndModel(t *testing.T) {
	t.Parallel()

	if err := (Config{Model: "m"}).Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("missing key error = %v", err)
	}
	if err := (Config{APIKey: "k"}).Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("missing model error = %v", err)
	}
	if err := (Config{APIKey: "k", Model: "m"}).Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

type stubModel struct{ role Role }

func (s *stubModel) Generate(context.Context, []*schema.Message, ...einomodel.Option) (*schema.Message, error) {
	return schema.AssistantMessage(string(s.role), nil), nil
}

func (s *stubModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func TestNewGatewaysBuildsOneModelPerRole(t *testing.T) {
	t.Parallel()

	var roles []Role
	factory := func(_ context.Context, role Role) (einomodel.BaseChatModel, error) {
		roles = append(roles, role)
		return &stubModel{role: role}, nil
	}

	gw, err := NewGateways(context.Background(), Config{APIKey: "k", Model: "m"}, "You are Ivabot.", factory)
	if err != nil {
		t.Fatalf("NewGateways() error = %v", err)
	}
	if len(roles) != 3 {
		t.Fatalf("factory calls = %v", roles)
	}

	out, err := gw.Synth.Generate(context.Background(), []*schema.Message{schema.UserMessage("compute")})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out.Content != string(RoleSynth) {
		t.Fatalf("synth gateway answered as %q", out.Content)
	}
}

func TestNewGatewaysWrapsFactoryError(t *testing.T) {
	t.Parallel()

	factory := func(context.Context, Role) (einomodel.BaseChatModel, error) {
		return nil, errors.New("bad model id")
	}
	_, err := NewGateways(context.Background(), Config{APIKey: "k", Model: "m"}, "", factory)
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("NewGateways() error = %v, want ErrModelInvoke", err)
	}
}

func TestNewGatewaysDefaultsToOpenRouter(t *testing.T) {
	t.Parallel()

	cfg := Config{APIKey: "k", Model: "openai/gpt-4o-mini", BaseURL: "http://127.0.0.1:1/api/v1"}
	gw, err := NewGateways(context.Background(), cfg, "You are Ivabot.", nil)
	if err != nil {
		t.Fatalf("NewGateways() error = %v", err)
	}
	if gw.Chat == nil || gw.Sales == nil || gw.Synth == nil {
		t.Fatalf("gateways = %+v, want all roles", gw)
	}
}
