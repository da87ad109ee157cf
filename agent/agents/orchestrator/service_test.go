package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
	nodex "github.com/tanpawarit/Ivabot/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/Ivabot/agent/state"
	"github.com/tanpawarit/Ivabot/agent/tool"
)

type fakeClassifier struct {
	intents map[string]string
	err     error
	seen    []float64
}

func (f *fakeClassifier) Classify(_ context.Context, input string, threshold float64) (contractx.ClassificationResult, error) {
	f.seen = append(f.seen, threshold)
	if f.err != nil {
		return contractx.ClassificationResult{}, f.err
	}
	if name, ok := f.intents[input]; ok {
		return contractx.ClassificationResult{Intent: name, Score: 0.9}, nil
	}
	return contractx.ClassificationResult{Intent: contractx.IntentDefault, Score: 0.1}, nil
}

type fakeModel struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
	last  []*schema.Message
}

func (f *fakeModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

type fakeSearcher struct {
	product *contractx.ProductRecord
	err     error
}

func (f *fakeSearcher) Search(context.Context, string) (*contractx.ProductRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := *f.product
	return &p, nil
}

type fakePurchase struct {
	reply   string
	err     error
	calls   int
	session *statex.Session
	product *contractx.ProductRecord
}

func (f *fakePurchase) Handle(_ context.Context, session *statex.Session, _ string, product *contractx.ProductRecord) (string, error) {
	f.calls++
	f.session = session
	f.product = product
	return f.reply, f.err
}

type fixture struct {
	classifier *fakeClassifier
	model      *fakeModel
	searcher   *fakeSearcher
	purchase   *fakePurchase
	cities     []string
	orch       *Orchestrator
	sessions   *statex.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		classifier: &fakeClassifier{intents: map[string]string{
			"What's the weather in Paris?":         "weather",
			"good morning":                         "greeting",
			"I want to buy the industrial pump":    contractx.IntentPurchase,
			"5 pumps, calculate the bulk price":    contractx.IntentPurchase,
			"compound interest on 1000 at 5 for 2": tool.ToolCalendar,
		}},
		model:    &fakeModel{reply: "Hello! How can I help you today?"},
		searcher: &fakeSearcher{product: &contractx.ProductRecord{Name: "Industrial Pump PX-500", Price: "$1,200"}},
		purchase: &fakePurchase{reply: "The PX-500 costs $1,200."},
	}

	weather := tool.Handler{
		Info: &schema.ToolInfo{Name: tool.ToolWeather},
		Args: tool.WeatherArgs,
		Invoke: func(_ context.Context, params map[string]any) (string, error) {
			city := tool.CleanCity(params["city"].(string))
			f.cities = append(f.cities, city)
			return "Sunny in " + city, nil
		},
	}
	registry, err := tool.NewRegistry(weather, tool.Calendar())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	sessions, err := statex.NewManager(statex.NewMemoryStore())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	f.sessions = sessions

	f.orch, err = New(Dependencies{
		Classifier: f.classifier,
		Tools:      registry,
		Products:   f.searcher,
		Purchase:   f.purchase,
		Gateway:    f.model,
		Sessions:   sessions,
	}, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return f
}

func (f *fixture) session(t *testing.T, id string) *statex.Session {
	t.Helper()
	s, err := f.sessions.Acquire(context.Background(), id)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	return s
}

func TestRouteDefaultGoesToGateway(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	session := f.session(t, "s-1")

	reply, err := f.orch.Route(context.Background(), session, "Hello, bot!")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	want := contractx.Reply{Type: contractx.ReplyTypeLLMResponse, Content: "Hello! How can I help you today?", Tool: contractx.ToolNone}
	if reply != want {
		t.Fatalf("Route() = %+v, want %+v", reply, want)
	}

	entries := session.History().Snapshot()
	if len(entries) != 2 || entries[0].Content != "Hello, bot!" || entries[1].Role != statex.RoleAssistant {
		t.Fatalf("history = %+v", entries)
	}
	if len(f.model.last) != 1 || f.model.last[0].Content != "Hello, bot!" {
		t.Fatalf("gateway input = %+v", f.model.last)
	}
	if f.classifier.seen[0] != 0.45 {
		t.Fatalf("threshold = %v, want 0.45", f.classifier.seen[0])
	}
}

func TestRouteHonoursExplicitZeroThreshold(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	zero := 0.0
	orch, err := New(Dependencies{
		Classifier: f.classifier,
		Tools:      f.orch.tools,
		Products:   f.searcher,
		Purchase:   f.purchase,
		Gateway:    f.model,
		Sessions:   f.sessions,
	}, Config{Threshold: &zero})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := orch.Route(context.Background(), f.session(t, "zero"), "Hello, bot!"); err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(f.classifier.seen) != 1 || f.classifier.seen[0] != 0 {
		t.Fatalf("thresholds seen = %v, want [0]", f.classifier.seen)
	}
}

func TestRouteWeatherUsesCityAfterIn(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	session := f.session(t, "s-1")

	reply, err := f.orch.Route(context.Background(), session, "What's the weather in Paris?")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if reply.Type != contractx.ReplyTypeToolResult || reply.Tool != "weather" || reply.Content != "Sunny in Paris" {
		t.Fatalf("Route() = %+v", reply)
	}
	if len(f.cities) != 1 || f.cities[0] != "Paris" {
		t.Fatalf("cities = %v", f.cities)
	}
	if f.model.calls != 0 || session.History().Len() != 0 {
		t.Fatal("tool path touched the gateway or the history")
	}
}

func TestRouteCalendarTool(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	reply, err := f.orch.Route(context.Background(), f.session(t, "s-1"), "compound interest on 1000 at 5 for 2")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if reply.Tool != tool.ToolCalendar || reply.Content != "After 2 years, your investment will be worth 1102.50." {
		t.Fatalf("Route() = %+v", reply)
	}
}

func TestRouteIntentWithoutToolConverses(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	reply, err := f.orch.Route(context.Background(), f.session(t, "s-1"), "good morning")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if reply.Type != contractx.ReplyTypeLLMResponse || reply.Tool != contractx.ToolNone {
		t.Fatalf("Route() = %+v", reply)
	}
}

func TestRoutePurchaseDelegates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	session := f.session(t, "s-1")

	reply, err := f.orch.Route(context.Background(), session, "I want to buy the industrial pump")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	want := contractx.Reply{Type: contractx.ReplyTypeSalesPitch, Content: "The PX-500 costs $1,200.", Tool: contractx.IntentPurchase}
	if reply != want {
		t.Fatalf("Route() = %+v, want %+v", reply, want)
	}
	if f.purchase.session != session {
		t.Fatal("purchase handler got a different session")
	}
	if f.purchase.product == nil || f.purchase.product.Name != "Industrial Pump PX-500" {
		t.Fatalf("purchase product = %+v", f.purchase.product)
	}
}

func TestRoutePurchaseWithoutProduct(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.searcher.err = contractx.ErrProductNotFound

	reply, err := f.orch.Route(context.Background(), f.session(t, "s-1"), "I want to buy the industrial pump")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if reply.Content != nodex.ProductNotFoundReply || reply.Tool != contractx.IntentPurchase {
		t.Fatalf("Route() = %+v", reply)
	}
	if f.purchase.calls != 0 {
		t.Fatal("purchase handler called without a product")
	}
}

func TestRoutePropagatesErrors(t *testing.T) {
	t.Parallel()

	t.Run("gateway", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.model.err = errors.New("upstream timeout")
		_, err := f.orch.Route(context.Background(), f.session(t, "s-1"), "Hello, bot!")
		if !errors.Is(err, contractx.ErrModelInvoke) {
			t.Fatalf("Route() error = %v, want ErrModelInvoke", err)
		}
	})

	t.Run("classifier", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.classifier.err = contractx.ErrEmbedding
		_, err := f.orch.Route(context.Background(), f.session(t, "s-1"), "Hello, bot!")
		if !errors.Is(err, contractx.ErrEmbedding) {
			t.Fatalf("Route() error = %v, want ErrEmbedding", err)
		}
	})

	t.Run("purchase", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.purchase.err = contractx.ErrModelInvoke
		_, err := f.orch.Route(context.Background(), f.session(t, "s-1"), "5 pumps, calculate the bulk price")
		if !errors.Is(err, contractx.ErrModelInvoke) {
			t.Fatalf("Route() error = %v, want ErrModelInvoke", err)
		}
	})
}

func TestRouteRejectsEmptyMessageAndNilSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if _, err := f.orch.Route(context.Background(), f.session(t, "s-1"), "   "); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("empty message error = %v", err)
	}
	if _, err := f.orch.Route(context.Background(), nil, "hi"); !errors.Is(err, statex.ErrNilSessionState) {
		t.Fatalf("nil session error = %v", err)
	}
}

func TestHandleMessageKeepsBoundedHistoryPerSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	for _, msg := range []string{"one", "two", "three"} {
		if _, err := f.orch.HandleMessage(ctx, "alice", msg); err != nil {
			t.Fatalf("HandleMessage() error = %v", err)
		}
	}
	if _, err := f.orch.HandleMessage(ctx, "bob", "hi"); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	alice, err := f.orch.History(ctx, "alice")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(alice) != statex.DefaultHistoryCapacity {
		t.Fatalf("alice history len = %d, want %d", len(alice), statex.DefaultHistoryCapacity)
	}
	if alice[0].Role != statex.RoleAssistant || alice[1].Content != "two" {
		t.Fatalf("oldest entry not evicted: %+v", alice)
	}

	bob, _ := f.orch.History(ctx, "bob")
	if len(bob) != 2 || bob[0].Content != "hi" {
		t.Fatalf("bob history = %+v", bob)
	}

	if err := f.orch.ResetSession(ctx, "alice"); err != nil {
		t.Fatalf("ResetSession() error = %v", err)
	}
	if _, err := f.orch.History(ctx, "alice"); !errors.Is(err, statex.ErrStateNotFound) {
		t.Fatalf("History() after reset error = %v", err)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := New(Dependencies{}, Config{}); err == nil {
		t.Fatal("New() without dependencies succeeded")
	}
}
