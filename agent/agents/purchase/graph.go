package purchase

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
	statex "github.com/tanpawarit/Ivabot/agent/state"
)

type request struct {
	Session *statex.Session
	Text    string
	Product contractx.ProductRecord
}

type graphState struct {
	request
	Calculate bool
	Failed    bool
}

const (
	nodeGate      = "gate"
	nodeCalculate = "calculate"
	nodePitch     = "pitch"
	nodeApologize = "apologize"
)

func (s *Service) compileGraph(ctx context.Context) (compose.Runnable[request, string], error) {
	graph := compose.NewGraph[request, string]()

	if err := graph.AddLambdaNode(nodeGate,
		compose.InvokableLambda(func(ctx context.Context, in request) (*graphState, error) {
			return &graphState{request: in, Calculate: RequestsCalculation(in.Text)}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add purchase node gate: %w", err)
	}

	if err := graph.AddLambdaNode(nodeCalculate,
		compose.InvokableLambda(s.calculate),
	); err != nil {
		return nil, fmt.Errorf("add purchase node calculate: %w", err)
	}

	if err := graph.AddLambdaNode(nodePitch,
		compose.InvokableLambda(s.pitch),
	); err != nil {
		return nil, fmt.Errorf("add purchase node pitch: %w", err)
	}

	if err := graph.AddLambdaNode(nodeApologize,
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (string, error) {
			return Apology, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add purchase node apologize: %w", err)
	}

	gate := compose.NewGraphBranch(
		func(ctx context.Context, in *graphState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: purchase graph state is nil", contractx.ErrInternal)
			}
			if in.Calculate {
				return nodeCalculate, nil
			}
			return nodePitch, nil
		},
		map[string]bool{nodeCalculate: true, nodePitch: true},
	)
	if err := graph.AddBranch(nodeGate, gate); err != nil {
		return nil, fmt.Errorf("add purchase branch gate: %w", err)
	}

	outcome := compose.NewGraphBranch(
		func(ctx context.Context, in *graphState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: purchase graph state is nil", contractx.ErrInternal)
			}
			if in.Failed {
				return nodeApologize, nil
			}
			return nodePitch, nil
		},
		map[string]bool{nodeApologize: true, nodePitch: true},
	)
	if err := graph.AddBranch(nodeCalculate, outcome); err != nil {
		return nil, fmt.Errorf("add purchase branch calculate: %w", err)
	}

	edges := [][2]string{
		{compose.START, nodeGate},
		{nodePitch, compose.END},
		{nodeApologize, compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("purchase.handle"))
	if err != nil {
		return nil, fmt.Errorf("compile purchase graph: %w", err)
	}
	return runner, nil
}
