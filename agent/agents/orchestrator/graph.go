package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
	nodex "github.com/tanpawarit/Ivabot/agent/nodes/orchestrator"
)

func (o *Orchestrator) compileRouteGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("classify_intent",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ClassifyIntent(ctx, in, o.classifier, o.threshold)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node classify_intent: %w", err)
	}

	if err := graph.AddLambdaNode(nodex.StepInvokeTool,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.InvokeTool(ctx, in, o.tools)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node invoke_tool: %w", err)
	}

	if err := graph.AddLambdaNode(nodex.StepPurchase,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.HandlePurchase(ctx, in, o.products, o.purchase)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node purchase: %w", err)
	}

	if err := graph.AddLambdaNode(nodex.StepConverse,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Converse(ctx, in, o.gateway)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node converse: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: orchestrator graph state is nil", contractx.ErrInternal)
			}
			return nodex.NextStep(in, o.tools), nil
		},
		map[string]bool{
			nodex.StepInvokeTool: true,
			nodex.StepPurchase:   true,
			nodex.StepConverse:   true,
		},
	)
	if err := graph.AddBranch("classify_intent", branch); err != nil {
		return nil, fmt.Errorf("add route branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "classify_intent"},
		{nodex.StepInvokeTool, "finalize_reply"},
		{nodex.StepPurchase, "finalize_reply"},
		{nodex.StepConverse, "finalize_reply"},
		{"finalize_reply", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.route"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
