package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
	statex "github.com/tanpawarit/Ivabot/agent/state"
)

// Converse records the user turn, sends the whole transcript to the gateway
// and records the reply.
func Converse(ctx context.Context, in *GraphState, gateway einomodel.BaseChatModel) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrInternal, errNilState)
	}

	history := in.Session.History()
	history.Append(statex.UserEntry(in.Text))

	out, err := gateway.Generate(ctx, statex.ToMessages(history.Snapshot()))
	if err != nil {
		return nil, fmt.Errorf("%w: chat: %v", contractx.ErrModelInvoke, err)
	}
	content := ""
	if out != nil {
		content = strings.TrimSpace(out.Content)
	}
	history.Append(statex.AssistantEntry(content))

	in.Reply = contractx.Reply{Type: contractx.ReplyTypeLLMResponse, Content: content, Tool: contractx.ToolNone}
	return in, nil
}
