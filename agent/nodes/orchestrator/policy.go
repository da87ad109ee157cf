package orchestratornode

import (
	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

const (
	StepInvokeTool = "invoke_tool"
	StepPurchase   = "purchase"
	StepConverse   = "converse"
)

// NextStep picks the handler for a classified message. A registered tool
// wins over the purchase route; everything else is conversation.
func NextStep(in *GraphState, tools contractx.ToolGateway) string {
	if in == nil {
		return StepConverse
	}
	switch intent := in.Intent.Intent; {
	case intent == contractx.IntentDefault:
		return StepConverse
	case tools.Has(intent):
		return StepInvokeTool
	case intent == contractx.IntentPurchase:
		return StepPurchase
	default:
		return StepConverse
	}
}
