package budget

import "strings"

type ModelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// pricing covers the models that can back a hosted assistant.
var pricing = map[string]ModelPricing{
	"gpt-4o":        {2.50, 10.00},
	"gpt-4o-mini":   {0.15, 0.60},
	"gpt-4.1":       {2.00, 8.00},
	"gpt-4.1-mini":  {0.40, 1.60},
	"gpt-4.1-nano":  {0.10, 0.40},
	"gpt-4-turbo":   {10.00, 30.00},
	"gpt-3.5-turbo": {0.50, 1.50},
	"o1":            {15.00, 60.00},
	"o3-mini":       {1.10, 4.40},
}

func CalculateCost(model string, inputTokens, outputTokens int) float64 {
	p, ok := lookup(model)
	if !ok {
		// Unknown model, use conservative estimate
		p = ModelPricing{5.00, 15.00}
	}

	inputCost := float64(inputTokens) * p.InputPerMillion / 1_000_000
	outputCost := float64(outputTokens) * p.OutputPerMillion / 1_000_000

	return inputCost + outputCost
}

// lookup also resolves dated snapshots such as "gpt-4o-2024-08-06".
func lookup(model string) (ModelPricing, bool) {
	if p, ok := pricing[model]; ok {
		return p, true
	}

	best := ""
	for name := range pricing {
		if strings.HasPrefix(model, name+"-") && len(name) > len(best) {
			best = name
		}
	}

	if best == "" {
		return ModelPricing{}, false
	}

	return pricing[best], true
}
