package orchestrator

import (
	"context"
	"errors"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
	"github.com/tanpawarit/Ivabot/agent/intent"
	nodex "github.com/tanpawarit/Ivabot/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/Ivabot/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = statex.ErrInvalidSession
)

type Config struct {
	// Threshold is the similarity a route must exceed; nil means
	// intent.DefaultThreshold.
	Threshold *float64
}

// Dependencies are the collaborators the orchestrator routes between.
type Dependencies struct {
	Classifier contractx.IntentClassifier
	Tools      contractx.ToolGateway
	Products   contractx.ProductSearcher
	Purchase   contractx.PurchaseHandler
	Gateway    einomodel.BaseChatModel
	Sessions   *statex.Manager
}

type Orchestrator struct {
	classifier contractx.IntentClassifier
	tools      contractx.ToolGateway
	products   contractx.ProductSearcher
	purchase   contractx.PurchaseHandler
	gateway    einomodel.BaseChatModel
	sessions   *statex.Manager

	threshold float64

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]
}

func New(deps Dependencies, cfg Config) (*Orchestrator, error) {
	switch {
	case deps.Classifier == nil:
		return nil, errors.New("intent classifier is required")
	case deps.Tools == nil:
		return nil, errors.New("tool gateway is required")
	case deps.Products == nil:
		return nil, errors.New("product searcher is required")
	case deps.Purchase == nil:
		return nil, errors.New("purchase handler is required")
	case deps.Gateway == nil:
		return nil, errors.New("generation gateway is required")
	case deps.Sessions == nil:
		return nil, errors.New("session manager is required")
	}

	threshold := intent.DefaultThreshold
	if cfg.Threshold != nil {
		threshold = *cfg.Threshold
	}

	o := &Orchestrator{
		classifier: deps.Classifier,
		tools:      deps.Tools,
		products:   deps.Products,
		purchase:   deps.Purchase,
		gateway:    deps.Gateway,
		sessions:   deps.Sessions,
		threshold:  threshold,
	}

	graphRunner, err := o.compileRouteGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Route answers one message within session. Errors from collaborators are
// returned unchanged.
func (o *Orchestrator) Route(ctx context.Context, session *statex.Session, text string) (contractx.Reply, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{Session: session, Text: text})
	if err != nil {
		return contractx.Reply{}, err
	}
	return out.Reply, nil
}

// HandleMessage loads or creates the session, routes text and persists the
// updated history.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID string, text string) (contractx.Reply, error) {
	session, err := o.sessions.Acquire(ctx, sessionID)
	if err != nil {
		return contractx.Reply{}, err
	}

	reply, err := o.Route(ctx, session, text)
	if err != nil {
		return contractx.Reply{}, err
	}

	if err := o.sessions.Save(ctx, session); err != nil {
		return contractx.Reply{}, fmt.Errorf("save session %s: %w", session.ID, err)
	}
	return reply, nil
}

// History returns the transcript of an existing session, oldest first.
func (o *Orchestrator) History(ctx context.Context, sessionID string) ([]statex.Entry, error) {
	session, err := o.sessions.Lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.History().Snapshot(), nil
}

func (o *Orchestrator) ResetSession(ctx context.Context, sessionID string) error {
	return o.sessions.Reset(ctx, sessionID)
}
