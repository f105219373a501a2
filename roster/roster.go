// Package roster implements the Roster Generator of spec.md §4.9: it
// produces a validated set of agents either from a static archetype
// table or from a language-model call, in both cases passing every
// agent's strategy through the Strategy Validator before it is usable.
package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"xrparena/mcp"
	"xrparena/strategy"
)

// Agent is one validated roster entry.
type Agent struct {
	ID          string
	Name        string
	Personality string
	AvatarShape string
	ColourIndex int
	Strategy    strategy.Config
	Commentary  map[string]string
	Warnings    []string
}

// Roster is the full output of either generation mode.
type Roster struct {
	Agents           []Agent
	Theme            string
	MasterCommentary string
	InputTokens      int
	OutputTokens     int
	EstimatedCostUSD float64
}

// GenerateArchetype builds a roster from the six built-in archetypes,
// shuffled without replacement, per spec.md §4.9 archetype mode. With
// more agents than archetypes, the shuffled list repeats from the start.
func GenerateArchetype(agentCount int, restrictTo []string, sessionLeverage int, sessionDurationHours float64, seed int64) (Roster, error) {
	if agentCount < 2 || agentCount > 8 {
		return Roster{}, fmt.Errorf("roster: agent_count must be 2-8, got %d", agentCount)
	}

	pool := archetypes
	if len(restrictTo) > 0 {
		allowed := make(map[string]bool, len(restrictTo))
		for _, id := range restrictTo {
			allowed[id] = true
		}
		pool = nil
		for _, a := range archetypes {
			if allowed[a.id] {
				pool = append(pool, a)
			}
		}
	}
	if len(pool) == 0 {
		return Roster{}, fmt.Errorf("roster: no archetypes match the requested restriction")
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	agents := make([]Agent, agentCount)
	for i := 0; i < agentCount; i++ {
		arch := pool[i%len(pool)]
		result := strategy.Validate(arch.partial, sessionLeverage, sessionDurationHours)
		agents[i] = Agent{
			ID:          uuid.NewString(),
			Name:        arch.name,
			Personality: arch.personality,
			AvatarShape: avatarShapes[i%len(avatarShapes)],
			ColourIndex: i,
			Strategy:    result.Config,
			Commentary:  arch.commentary,
			Warnings:    result.Warnings,
		}
	}

	return Roster{
		Agents:           agents,
		Theme:            "Classic Archetypes",
		MasterCommentary: "Six time-tested trading personalities enter the arena.",
	}, nil
}

type modelRosterPayload struct {
	Theme            string `json:"theme"`
	MasterCommentary string `json:"master_commentary"`
	Agents           []struct {
		Name        string         `json:"name"`
		Personality string         `json:"personality"`
		Strategy    map[string]any `json:"strategy"`
		Commentary  map[string]string `json:"commentary"`
	} `json:"agents"`
}

// GenerateModel asks a language model to invent a themed roster, per
// spec.md §4.9 model mode, then validates every returned strategy
// before trusting it.
func GenerateModel(ctx context.Context, client mcp.AIClient, modelID string, agentCount int, sessionDurationHours float64, sessionLeverage int, marketContext string) (Roster, error) {
	if client == nil {
		client = mcp.NewLocalFuncClient()
	}
	prompt := buildRosterPrompt(agentCount, sessionDurationHours, sessionLeverage, marketContext)
	resp, err := client.Invoke(ctx, mcp.Request{
		ModelID:      modelID,
		SystemPrompt: "You invent a themed cast of trading agents for a paper-trading competition. Reply with a single JSON object.",
		UserPrompt:   prompt,
		MaxTokens:    2000,
	})
	if err != nil {
		return Roster{}, fmt.Errorf("roster: model invocation failed: %w", err)
	}

	payload, err := parseRosterPayload(resp.Text)
	if err != nil {
		return Roster{}, err
	}

	agents := make([]Agent, 0, len(payload.Agents))
	for i, raw := range payload.Agents {
		result := strategy.Validate(raw.Strategy, sessionLeverage, sessionDurationHours)
		agents = append(agents, Agent{
			ID:          uuid.NewString(),
			Name:        raw.Name,
			Personality: raw.Personality,
			AvatarShape: avatarShapes[i%len(avatarShapes)],
			ColourIndex: i,
			Strategy:    result.Config,
			Commentary:  raw.Commentary,
			Warnings:    result.Warnings,
		})
	}
	if len(agents) == 0 {
		return Roster{}, fmt.Errorf("roster: model returned no agents")
	}

	return Roster{
		Agents:           agents,
		Theme:            payload.Theme,
		MasterCommentary: payload.MasterCommentary,
		InputTokens:      resp.InputTokens,
		OutputTokens:     resp.OutputTokens,
		EstimatedCostUSD: mcp.EstimateCost(modelID, resp.InputTokens, resp.OutputTokens),
	}, nil
}

func buildRosterPrompt(agentCount int, sessionDurationHours float64, sessionLeverage int, marketContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Invent %d distinct trading agent personalities for a %.1f-hour XRP/EUR paper-trading arena at %dx leverage.\n", agentCount, sessionDurationHours, sessionLeverage)
	if marketContext != "" {
		fmt.Fprintf(&b, "Current market context: %s\n", marketContext)
	}
	b.WriteString(`Reply as JSON: {"theme": string, "master_commentary": string, "agents": [{"name": string, "personality": string, "strategy": {...partial strategy fields...}, "commentary": {"on_entry": string, "on_exit_profit": string, "on_exit_loss": string, "on_death": string, "on_rival_death": string}}]}.`)
	return b.String()
}

// parseRosterPayload tolerates markdown fences or surrounding text by
// extracting the first '{' to the last '}', per spec.md §4.9.
func parseRosterPayload(text string) (modelRosterPayload, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end < start {
		return modelRosterPayload{}, fmt.Errorf("roster: no JSON object found in model reply")
	}
	var payload modelRosterPayload
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return modelRosterPayload{}, fmt.Errorf("roster: invalid JSON from model: %w", err)
	}
	return payload, nil
}
