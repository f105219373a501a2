// Package scoring implements the RARS composite score, ranking, and
// end-of-session titles of spec.md §4.7.
package scoring

import (
	"sort"

	"xrparena/execution"
)

const deadPenalty = 10000

// RARS computes the risk-adjusted return score of spec.md §4.7:
// return_percent × consistency_multiplier × survival_multiplier −
// dead_penalty.
func RARS(a execution.AgentState) float64 {
	returnPct := 0.0
	if a.StartingCapital > 0 {
		returnPct = a.RealizedPnL / a.StartingCapital * 100
	}

	totalTrades := a.WinCount + a.LossCount
	winRate := 0.5
	if totalTrades > 0 {
		winRate = float64(a.WinCount) / float64(totalTrades)
	}
	consistency := 1 + (winRate-0.5)*0.5

	survival := 1.0
	if a.StartingCapital > 0 {
		survival = a.Equity / a.StartingCapital
	}
	if survival > 1 {
		survival = 1
	}

	score := returnPct * consistency * survival
	if a.Dead {
		score -= deadPenalty
	}
	return score
}

// Ranked pairs an agent with its computed score for sorting/reporting.
type Ranked struct {
	Agent execution.AgentState
	Score float64
}

// Rank sorts agents by RARS descending and assigns 1-based ranks.
// Dead agents always sort below alive agents, per spec.md §8 invariant
// 4, guaranteed by the score's dead_penalty term.
func Rank(agents []execution.AgentState) []Ranked {
	ranked := make([]Ranked, len(agents))
	for i, a := range agents {
		ranked[i] = Ranked{Agent: a, Score: RARS(a)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	for i := range ranked {
		ranked[i].Agent.Rank = i + 1
	}
	return ranked
}

// Titles is the fixed taxonomy of spec.md §4.7. Each title names at
// most one winner; a title is omitted if no agent qualifies.
type Titles struct {
	BestTrader      string
	MostConsistent  string
	BiggestRiskTaker string
	Survivor        string
	SpeedDemon      string
}

// ComputeTitles derives the session titles from final agent states.
func ComputeTitles(agents []execution.AgentState) Titles {
	var t Titles
	bestScore := 0.0
	bestRate := 0.0
	bestFeePerTrade := 0.0
	mostTrades := 0

	for _, a := range agents {
		score := RARS(a)
		if t.BestTrader == "" || score > bestScore {
			t.BestTrader = a.Name
			bestScore = score
		}

		totalTrades := a.WinCount + a.LossCount
		if totalTrades >= 3 {
			rate := float64(a.WinCount) / float64(totalTrades)
			if t.MostConsistent == "" || rate > bestRate {
				t.MostConsistent = a.Name
				bestRate = rate
			}
		}

		if a.TradeCount > 0 {
			feePerTrade := a.TotalFees / float64(a.TradeCount)
			if t.BiggestRiskTaker == "" || feePerTrade > bestFeePerTrade {
				t.BiggestRiskTaker = a.Name
				bestFeePerTrade = feePerTrade
			}
		}

		if !a.Dead && a.TradeCount > 0 && t.Survivor == "" {
			t.Survivor = a.Name
		}

		if a.TradeCount > mostTrades {
			t.SpeedDemon = a.Name
			mostTrades = a.TradeCount
		}
	}
	return t
}
