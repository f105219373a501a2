package decision

import (
	"encoding/json"
	"fmt"
	"strings"

	"xrparena/execution"
	"xrparena/market"
	"xrparena/strategy"
)

// buildSystemPrompt grounds the model in the agent's configured
// personality, per spec.md §4.5 tier 2.
func buildSystemPrompt(cfg strategy.Config) string {
	return fmt.Sprintf(
		"You are %s, a trading agent in a paper-trading arena for XRP/EUR. "+
			"Your personality: %s. Your configured style: %s. "+
			"You refine a rules-based recommendation, you do not invent one from scratch. "+
			"Reply with a single JSON object and nothing else.",
		cfg.Meta.Name, cfg.Meta.Personality, cfg.Meta.Description,
	)
}

// buildUserPrompt describes market state and the tier-1 recommendation
// the model is being asked to confirm, adjust, or override.
func buildUserPrompt(snap *market.Snapshot, zone execution.HealthZone, pos *execution.Position, tier1 Decision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pair: %s. Last price: %.5f. Health zone: %s.\n", snap.Pair, snap.Last, zone)
	fmt.Fprintf(&b, "BTC trend: %s (%.2f%% 24h).\n", snap.BTCTrend, snap.BTCChange24h)
	if view, ok := snap.Timeframes["1h"]; ok {
		fmt.Fprintf(&b, "1h indicators: RSI=%.1f MACD_hist=%.4f BollPos=%.2f ATR=%.4f bias=%s.\n",
			view.Indicators.RSI, view.Indicators.MACDHist, view.Indicators.BollPosition, view.Indicators.ATR, view.Indicators.BiasTag)
	}
	if pos != nil && pos.Open {
		fmt.Fprintf(&b, "Open position: side=%s volume=%.4f entry=%.5f unrealized_pct=%.2f dca_count=%d.\n",
			pos.Side, pos.Volume, pos.AvgEntryPrice, pos.UnrealizedPct, pos.DCACount)
	} else {
		b.WriteString("No open position.\n")
	}
	fmt.Fprintf(&b, "Rules-based recommendation: action=%s confidence=%.1f margin_percent=%.2f rationale=%q.\n",
		tier1.Action, tier1.Confidence, tier1.MarginPercent, tier1.Rationale)
	b.WriteString(`Reply as JSON: {"action": one of "open_long","open_short","close","dca","hold","wait", "confidence": 0-100, "margin_percent": number, "rationale": short string}.`)
	return b.String()
}

type modelDecisionPayload struct {
	Action        string  `json:"action"`
	Confidence    float64 `json:"confidence"`
	MarginPercent float64 `json:"margin_percent"`
	Rationale     string  `json:"rationale"`
}

var validActions = map[Action]bool{
	OpenLong: true, OpenShort: true, Close: true, DCA: true, Hold: true, Wait: true,
}

// parseModelDecision extracts the JSON object from a model reply,
// tolerating markdown fences or surrounding commentary by taking the
// substring from the first '{' to the last '}', per spec.md §4.9.
func parseModelDecision(text string) (Decision, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end < start {
		return Decision{}, fmt.Errorf("decision: no JSON object found in model reply")
	}
	raw := text[start : end+1]

	var payload modelDecisionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Decision{}, fmt.Errorf("decision: invalid JSON from model: %w", err)
	}

	action := Action(strings.ToLower(strings.TrimSpace(payload.Action)))
	if !validActions[action] {
		return Decision{}, fmt.Errorf("decision: model returned unrecognised action %q", payload.Action)
	}

	confidence := payload.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	return Decision{
		Action:        action,
		Confidence:    confidence,
		MarginPercent: payload.MarginPercent,
		Rationale:     payload.Rationale,
		UsedModel:     true,
	}, nil
}
