package tool

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

// Handler is one static tool. Args derives invocation parameters from the raw
// user message; Invoke runs the tool synchronously.
type Handler struct {
	Info   *schema.ToolInfo
	Args   func(input string) (map[string]any, error)
	Invoke func(ctx context.Context, params map[string]any) (string, error)
}

var _ contractx.ToolGateway = (*Registry)(nil)

// Registry maps intent names to static tools.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry(handlers ...Handler) (*Registry, error) {
	r := &Registry{handlers: make(map[string]Handler, len(handlers))}
	for _, h := range handlers {
		if err := r.Register(h); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(h Handler) error {
	if h.Info == nil || strings.TrimSpace(h.Info.Name) == "" {
		return fmt.Errorf("%w: tool info with name is required", contractx.ErrValidation)
	}
	if h.Args == nil || h.Invoke == nil {
		return fmt.Errorf("%w: tool %s needs Args and Invoke", contractx.ErrValidation, h.Info.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.handlers[h.Info.Name]; dup {
		return fmt.Errorf("%w: tool %s already registered", contractx.ErrValidation, h.Info.Name)
	}
	r.handlers[h.Info.Name] = h
	return nil
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

func (r *Registry) Arguments(name, input string) (map[string]any, error) {
	h, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return h.Args(input)
}

func (r *Registry) Invoke(ctx context.Context, name string, params map[string]any) (string, error) {
	h, err := r.lookup(name)
	if err != nil {
		return "", err
	}
	return h.Invoke(ctx, params)
}

// Infos lists tool descriptions sorted by name.
func (r *Registry) Infos() []*schema.ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*schema.ToolInfo, 0, len(r.handlers))
	for _, h := range r.handlers {
		out = append(out, h.Info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) lookup(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	if !ok {
		return Handler{}, fmt.Errorf("%w: %s", contractx.ErrToolNotFound, name)
	}
	return h, nil
}

func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

func floatParam(params map[string]any, key string) (float64, bool) {
	switch v := params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
