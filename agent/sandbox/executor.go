package sandbox

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

const (
	DefaultQuantity = 10
	DefaultTaxRate  = 0.15
)

var digitRun = regexp.MustCompile(`\d+`)

var _ contractx.Executor = (*Executor)(nil)

type Option func(*Executor)

func WithDenyList(tokens []string) Option {
	return func(e *Executor) {
		if len(tokens) > 0 {
			e.denyList = append([]string(nil), tokens...)
		}
	}
}

// Executor screens and runs synthesized pricing code.
type Executor struct {
	denyList []string
}

func NewExecutor(opts ...Option) *Executor {
	e := &Executor{denyList: DefaultDenyList}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Execute runs spec.Code against the quantity found in userInput. Code with
// two parameters receives (quantity, DefaultTaxRate); anything else receives
// (quantity) alone, with later parameters taking their declared defaults.
func (e *Executor) Execute(spec contractx.ToolSpec, userInput string) (contractx.Execution, error) {
	if err := Screen(spec.Code, e.denyList); err != nil {
		log.Warn().Err(err).Str("tool_name", spec.ToolName).Msg("synthesized code rejected")
		return contractx.Execution{}, err
	}

	declared := make([]string, len(spec.Parameters))
	for i, p := range spec.Parameters {
		declared[i] = p.Name
	}
	program, err := Compile(spec.Code, declared)
	if err != nil {
		return contractx.Execution{}, err
	}

	quantity, err := ExtractQuantity(userInput)
	if err != nil {
		return contractx.Execution{}, err
	}

	args := []float64{float64(quantity)}
	if program.Arity() == 2 {
		args = append(args, DefaultTaxRate)
	}

	value, err := program.Call(args...)
	if err != nil {
		return contractx.Execution{}, err
	}

	log.Debug().
		Str("tool_name", spec.ToolName).
		Int("quantity", quantity).
		Int("arity", program.Arity()).
		Float64("value", value).
		Msg("synthesized tool executed")

	return contractx.Execution{
		Quantity:    quantity,
		Args:        args,
		Value:       value,
		Description: fmt.Sprintf("Total cost for %d units is $%.2f", quantity, value),
	}, nil
}

// ExtractQuantity returns the first run of digits in input, or DefaultQuantity.
func ExtractQuantity(input string) (int, error) {
	match := digitRun.FindString(input)
	if match == "" {
		return DefaultQuantity, nil
	}
	quantity, err := strconv.Atoi(match)
	if err != nil {
		return 0, fmt.Errorf("%w: quantity %q: %v", contractx.ErrExecution, match, err)
	}
	return quantity, nil
}
