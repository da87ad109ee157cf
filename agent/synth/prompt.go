package synth

import (
	"context"
	"fmt"
	"strings"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

// PromptBuilder composes the fixed synthesis instructions, the user's request
// and optional annotations about earlier failed attempts.
type PromptBuilder struct {
	template einoprompt.ChatTemplate
}

func NewPromptBuilder(instructions string) (*PromptBuilder, error) {
	if strings.TrimSpace(instructions) == "" {
		return nil, fmt.Errorf("%w: synthesis instructions", contractx.ErrPromptMissing)
	}
	return &PromptBuilder{
		template: einoprompt.FromMessages(
			schema.GoTemplate,
			schema.SystemMessage(instructions),
			schema.UserMessage("{{.request}}"),
		),
	}, nil
}

// Build renders the prompt. Each annotation becomes a corrective user turn
// after the request.
func (b *PromptBuilder) Build(ctx context.Context, request string, annotations ...string) ([]*schema.Message, error) {
	msgs, err := b.template.Format(ctx, map[string]any{"request": request})
	if err != nil {
		return nil, fmt.Errorf("%w: render synthesis prompt: %v", contractx.ErrPromptMissing, err)
	}
	for _, note := range annotations {
		if note = strings.TrimSpace(note); note == "" {
			continue
		}
		msgs = append(msgs, schema.UserMessage(
			"Your previous answer could not be used: "+note+"\nReply again with only the JSON object.",
		))
	}
	return msgs, nil
}
