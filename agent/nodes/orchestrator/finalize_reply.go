package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: %v", contractx.ErrInternal, errNilState)
	}
	if in.Reply.Type == "" {
		return GraphOutput{}, fmt.Errorf("%w: no handler produced a reply", contractx.ErrInternal)
	}
	return GraphOutput{Reply: in.Reply}, nil
}
