package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"xrparena/orchestrator"
	"xrparena/roster"
)

// instanceName is the one process-wide orchestrator this host serves,
// per spec.md §9's "one per process" note. Multiple concurrent arenas
// are out of scope for this illustrative host.
const instanceName = "xrparena"

type createSessionRequest struct {
	Pair                string   `json:"pair"`
	AgentCount          int      `json:"agent_count" binding:"required"`
	StartingCapital     float64  `json:"starting_capital" binding:"required"`
	DecisionIntervalS   int      `json:"decision_interval_seconds"`
	MaxDurationS        int      `json:"max_duration_seconds"`
	Leverage            int      `json:"leverage"`
	ModelID             string   `json:"model_id"`
	SessionBudgetUSD    float64  `json:"session_budget_usd"`
	PerAgentBudgetUSD   float64  `json:"per_agent_budget_usd"`
	RosterMode          string   `json:"roster_mode"` // "archetype" | "model"
	RestrictArchetypes  []string `json:"restrict_archetypes"`
	RosterSeed          int64    `json:"roster_seed"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Pair == "" {
		req.Pair = "XRP/EUR"
	}
	if req.Leverage <= 0 {
		req.Leverage = 10
	}

	durationHours := float64(req.MaxDurationS) / 3600.0
	if durationHours <= 0 {
		durationHours = 1
	}

	var r roster.Roster
	var err error
	if req.RosterMode == "model" {
		r, err = roster.GenerateModel(c.Request.Context(), s.modelClient, req.ModelID, req.AgentCount, durationHours, req.Leverage, "")
	} else {
		r, err = roster.GenerateArchetype(req.AgentCount, req.RestrictArchetypes, req.Leverage, durationHours, req.RosterSeed)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to generate roster: " + err.Error()})
		return
	}

	cfg := orchestrator.SessionConfig{
		Pair:              req.Pair,
		AgentCount:        req.AgentCount,
		StartingCapital:   req.StartingCapital,
		DecisionInterval:  time.Duration(req.DecisionIntervalS) * time.Second,
		MaxDuration:       time.Duration(req.MaxDurationS) * time.Second,
		ModelID:           req.ModelID,
		Leverage:          req.Leverage,
		SessionBudgetUSD:  req.SessionBudgetUSD,
		PerAgentBudgetUSD: req.PerAgentBudgetUSD,
	}

	o := s.orchestratorFor(instanceName)
	sessionID, agents, err := o.CreateSession(cfg, r)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"agents":     agents,
		"theme":      r.Theme,
	})
}

func (s *Server) handleStartSession(c *gin.Context) {
	o := s.orchestratorFor(instanceName)
	ctx, cancel := context.WithTimeout(c.Request.Context(), defaultRequestTimeout)
	defer cancel()
	if err := o.Start(ctx); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(o.Status())})
}

func (s *Server) handlePauseSession(c *gin.Context) {
	o := s.orchestratorFor(instanceName)
	if err := o.Pause(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(o.Status())})
}

func (s *Server) handleResumeSession(c *gin.Context) {
	o := s.orchestratorFor(instanceName)
	if err := o.Resume(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(o.Status())})
}

func (s *Server) handleStopSession(c *gin.Context) {
	o := s.orchestratorFor(instanceName)
	summary := o.Stop()
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleSessionState(c *gin.Context) {
	o := s.orchestratorFor(instanceName)
	c.JSON(http.StatusOK, gin.H{
		"session_id":    o.SessionID(),
		"status":        string(o.Status()),
		"tick":          o.CurrentTick(),
		"elapsed_ms":    o.ElapsedMs(),
		"current_price": o.CurrentPrice(),
		"rankings":      o.Rankings(),
		"agents":        o.AgentStates(),
	})
}
