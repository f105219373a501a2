// Package decision implements the three-tier per-agent decision engine
// of spec.md §4.5: deterministic rules, optional model-assisted
// refinement, and a silent deterministic fallback.
package decision

// Action is the closed decision variant spec.md §4.5 requires.
type Action string

const (
	OpenLong  Action = "open_long"
	OpenShort Action = "open_short"
	Close     Action = "close"
	DCA       Action = "dca"
	Hold      Action = "hold"
	Wait      Action = "wait"
)

// Decision is the one-per-agent-per-tick output of the engine.
type Decision struct {
	Action        Action
	Confidence    float64
	Rationale     string
	UsedModel     bool
	MarginPercent float64 // only meaningful for open_long/open_short/dca
	InputTokens   int
	OutputTokens  int
}
