package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

func InvokeTool(ctx context.Context, in *GraphState, tools contractx.ToolGateway) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrInternal, errNilState)
	}

	name := in.Intent.Intent
	params, err := tools.Arguments(name, in.Text)
	if err != nil {
		return nil, err
	}
	content, err := tools.Invoke(ctx, name, params)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("tool", name).Interface("params", params).Msg("tool invoked")
	in.Reply = contractx.Reply{Type: contractx.ReplyTypeToolResult, Content: content, Tool: name}
	return in, nil
}
