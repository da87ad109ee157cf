package tool

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/cloudwego/eino/schema"
)

const ToolCalendar = "calendar"

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Calendar computes compound interest. The handler name follows the route
// name it serves.
func Calendar() Handler {
	return Handler{
		Info: &schema.ToolInfo{
			Name: ToolCalendar,
			Desc: "Calculates compound interest for an investment.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"principal": {Type: schema.Number, Desc: "Initial amount", Required: true},
				"rate":      {Type: schema.Number, Desc: "Yearly rate in percent", Required: true},
				"years":     {Type: schema.Integer, Desc: "Number of years", Required: true},
			}),
		},
		Args:   CalendarArgs,
		Invoke: invokeCalendar,
	}
}

// CalendarArgs reads principal, rate and years from the first three numbers
// in input, in that order. Missing numbers are left out.
func CalendarArgs(input string) (map[string]any, error) {
	keys := []string{"principal", "rate", "years"}
	params := make(map[string]any, len(keys))
	for i, m := range numberPattern.FindAllString(input, len(keys)) {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		params[keys[i]] = v
	}
	return params, nil
}

func invokeCalendar(_ context.Context, params map[string]any) (string, error) {
	principal, okP := floatParam(params, "principal")
	rate, okR := floatParam(params, "rate")
	years, okY := floatParam(params, "years")
	if !okP || !okR || !okY {
		return "Please tell me the principal, the yearly interest rate in percent and the number of years.", nil
	}
	return CompoundInterest(principal, rate, int(years)), nil
}

func CompoundInterest(principal, rate float64, years int) string {
	amount := principal * math.Pow(1+rate/100, float64(years))
	return fmt.Sprintf("After %d years, your investment will be worth %.2f.", years, amount)
}
