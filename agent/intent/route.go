package intent

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

// Route is a named intent with example utterances.
type Route struct {
	Name     string   `json:"name"`
	Examples []string `json:"examples"`
}

// DefaultRoutes is the built-in catalog. Order matters: on equal scores the
// earlier route wins.
func DefaultRoutes() []Route {
	return []Route{
		{Name: "weather", Examples: []string{"what is the weather like", "is it raining outside", "temperature today"}},
		{Name: "time", Examples: []string{"calculate this", "what is the square root", "sum of these numbers"}},
		{Name: "greeting", Examples: []string{"hello", "hi there", "good morning", "hey"}},
		{Name: "calendar", Examples: []string{"compound interest on my investment", "how much will my savings grow", "investment value after years"}},
		{Name: contractx.IntentPurchase, Examples: []string{"I want to buy", "how much does this product cost", "price of the industrial pump", "order units in bulk", "I need a quote"}},
	}
}

// LoadRoutes reads a JSON array of routes from path.
func LoadRoutes(path string) ([]Route, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routes file: %w", err)
	}
	var routes []Route
	if err := json.Unmarshal(raw, &routes); err != nil {
		return nil, fmt.Errorf("%w: decode routes file: %v", contractx.ErrValidation, err)
	}
	if err := validateRoutes(routes); err != nil {
		return nil, err
	}
	return routes, nil
}

func validateRoutes(routes []Route) error {
	if len(routes) == 0 {
		return fmt.Errorf("%w: at least one route is required", contractx.ErrValidation)
	}
	seen := make(map[string]struct{}, len(routes))
	for i, r := range routes {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return fmt.Errorf("%w: routes[%d].name is required", contractx.ErrValidation, i)
		}
		if name == contractx.IntentDefault {
			return fmt.Errorf("%w: route name %q is reserved", contractx.ErrValidation, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate route %q", contractx.ErrValidation, name)
		}
		seen[name] = struct{}{}
		if len(r.Examples) == 0 {
			return fmt.Errorf("%w: route %q has no examples", contractx.ErrValidation, name)
		}
	}
	return nil
}
