package mcp

// ModelPrice is USD cost per 1000 tokens, per spec.md §6's cost-tracking
// requirement. Unknown models are priced as the cheapest listed model
// (llama-3.1-8b), so an agent's estimated spend never silently reads zero.
type ModelPrice struct {
	InputPer1K  float64
	OutputPer1K float64
}

var modelPrices = map[string]ModelPrice{
	"gpt-4o-mini":       {InputPer1K: 0.00015, OutputPer1K: 0.0006},
	"gpt-4o":            {InputPer1K: 0.0025, OutputPer1K: 0.01},
	"claude-3-5-haiku":  {InputPer1K: 0.0008, OutputPer1K: 0.004},
	"claude-3-5-sonnet": {InputPer1K: 0.003, OutputPer1K: 0.015},
	"llama-3.1-8b":      {InputPer1K: 0.0001, OutputPer1K: 0.0001},
}

var defaultPrice = modelPrices["llama-3.1-8b"]

// EstimateCost returns the USD cost implied by a response's reported
// token counts for the given model.
func EstimateCost(modelID string, inputTokens, outputTokens int) float64 {
	price, ok := modelPrices[modelID]
	if !ok {
		price = defaultPrice
	}
	return float64(inputTokens)/1000*price.InputPer1K + float64(outputTokens)/1000*price.OutputPer1K
}
