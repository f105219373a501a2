package events

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"xrparena/execution"
)

const priceRingSize = 100

// countdownThresholds are checked in descending order; each fires at
// most once per session, the tick it is first crossed.
var countdownThresholds = []time.Duration{time.Hour, 15 * time.Minute, 5 * time.Minute}

// Detector is stateful per spec.md §4.6: it remembers just enough about
// the previous tick to recognise transitions, not full history.
type Detector struct {
	prevTopAgent     string
	priceRing        []float64
	winStreaks       map[string]int
	lowestHealthSeen map[string]float64
	nearDeathArmed   map[string]bool // true once the agent has recovered above 40 and can re-fire
	comebackLatched  map[string]bool
	activeFaceOffs   map[string]bool
	countdownsFired  map[time.Duration]bool
}

// New builds a Detector with empty memory, suitable for one session.
func New() *Detector {
	return &Detector{
		winStreaks:       make(map[string]int),
		lowestHealthSeen: make(map[string]float64),
		nearDeathArmed:   make(map[string]bool),
		comebackLatched:  make(map[string]bool),
		activeFaceOffs:   make(map[string]bool),
		countdownsFired:  make(map[time.Duration]bool),
	}
}

func newEvent(typ Type, importance Importance, title, detail string, price float64, now time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		Importance: importance,
		Title:      title,
		Detail:     detail,
		PriceAt:    price,
		Timestamp:  now,
	}
}

func faceOffKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// Observe runs the tick-wide checks of spec.md §4.6 (face-off, lead
// change, near-death/comeback, market shock) and returns every event
// produced. Hot streak is driven separately by OnTradeClose, since it is
// tied to the trade-close path, and countdowns by CheckCountdowns.
func (d *Detector) Observe(agents []execution.AgentState, price float64, now time.Time) []Event {
	var out []Event

	out = append(out, d.checkFaceOff(agents, price, now)...)
	out = append(out, d.checkLeadChange(agents, price, now)...)
	out = append(out, d.checkNearDeathAndComeback(agents, price, now)...)
	out = append(out, d.checkMarketShock(price, now)...)

	d.priceRing = append(d.priceRing, price)
	if len(d.priceRing) > priceRingSize {
		d.priceRing = d.priceRing[len(d.priceRing)-priceRingSize:]
	}
	return out
}

func (d *Detector) checkFaceOff(agents []execution.AgentState, price float64, now time.Time) []Event {
	var out []Event
	present := make(map[string]bool)

	for i := range agents {
		a := agents[i]
		if a.Dead || a.Position == nil || !a.Position.Open {
			continue
		}
		for j := i + 1; j < len(agents); j++ {
			b := agents[j]
			if b.Dead || b.Position == nil || !b.Position.Open {
				continue
			}
			if a.Position.Side == b.Position.Side {
				continue
			}
			key := faceOffKey(a.ID, b.ID)
			present[key] = true
			if !d.activeFaceOffs[key] {
				d.activeFaceOffs[key] = true
				out = append(out, newEvent(TypeFaceOff, ImportanceMedium,
					"Face-off!", fmt.Sprintf("%s and %s are now on opposite sides", a.Name, b.Name), price, now))
			}
		}
	}
	for key := range d.activeFaceOffs {
		if !present[key] {
			delete(d.activeFaceOffs, key)
		}
	}
	return out
}

func (d *Detector) checkLeadChange(agents []execution.AgentState, price float64, now time.Time) []Event {
	var alive []execution.AgentState
	for _, a := range agents {
		if !a.Dead {
			alive = append(alive, a)
		}
	}
	if len(alive) == 0 {
		return nil
	}
	sort.Slice(alive, func(i, j int) bool { return alive[i].Equity > alive[j].Equity })
	top := alive[0]

	if d.prevTopAgent != "" && d.prevTopAgent != top.ID {
		d.prevTopAgent = top.ID
		return []Event{newEvent(TypeLeadChange, ImportanceMedium,
			"New leader!", fmt.Sprintf("%s takes the lead", top.Name), price, now)}
	}
	d.prevTopAgent = top.ID
	return nil
}

func (d *Detector) checkNearDeathAndComeback(agents []execution.AgentState, price float64, now time.Time) []Event {
	var out []Event
	for _, a := range agents {
		if a.Dead {
			continue
		}
		if _, ok := d.lowestHealthSeen[a.ID]; !ok {
			d.lowestHealthSeen[a.ID] = a.Health
			d.nearDeathArmed[a.ID] = true
		}
		if a.Health < d.lowestHealthSeen[a.ID] {
			d.lowestHealthSeen[a.ID] = a.Health
		}

		if a.Health <= 25 && d.nearDeathArmed[a.ID] {
			d.nearDeathArmed[a.ID] = false
			out = append(out, newEvent(TypeNearDeath, ImportanceHigh,
				"Near death", fmt.Sprintf("%s is on the brink (health %.0f)", a.Name, a.Health), price, now))
		}
		if a.Health > 40 {
			d.nearDeathArmed[a.ID] = true
		}

		if !d.comebackLatched[a.ID] && d.lowestHealthSeen[a.ID] < 40 && a.Health > 70 {
			d.comebackLatched[a.ID] = true
			out = append(out, newEvent(TypeComeback, ImportanceHigh,
				"Comeback!", fmt.Sprintf("%s recovered from the brink to health %.0f", a.Name, a.Health), price, now))
		}
	}
	return out
}

func (d *Detector) checkMarketShock(price float64, now time.Time) []Event {
	if len(d.priceRing) == 0 {
		return nil
	}
	prev := d.priceRing[len(d.priceRing)-1]
	if prev == 0 {
		return nil
	}
	pct := (price - prev) / prev * 100
	if pct < 0 {
		pct = -pct
	}
	if pct > 1 {
		return []Event{newEvent(TypeMarketShock, ImportanceHigh,
			"Market shock", fmt.Sprintf("price moved %.2f%% in one tick", pct), price, now)}
	}
	return nil
}

// OnTradeClose updates the hot-streak counter for one agent and returns
// a hot_streak event when the streak reaches 3 or more, escalating
// importance at 5. Callers invoke this from the trade-close path, not
// from Observe, since streaks are driven by individual trade outcomes.
func (d *Detector) OnTradeClose(agentID, agentName string, won bool, price float64, now time.Time) *Event {
	if !won {
		d.winStreaks[agentID] = 0
		return nil
	}
	d.winStreaks[agentID]++
	streak := d.winStreaks[agentID]
	if streak < 3 {
		return nil
	}
	importance := ImportanceMedium
	if streak >= 5 {
		importance = ImportanceHigh
	}
	e := newEvent(TypeHotStreak, importance, "Hot streak",
		fmt.Sprintf("%s is on a %d-win streak", agentName, streak), price, now)
	e.AgentID = agentID
	e.AgentName = agentName
	return &e
}

// CheckCountdowns returns a session_countdown event the first time
// remaining crosses below each of 1h/15min/5min, per spec.md §4.6.
func (d *Detector) CheckCountdowns(remaining time.Duration, price float64, now time.Time) []Event {
	var out []Event
	for _, threshold := range countdownThresholds {
		if remaining <= threshold && !d.countdownsFired[threshold] {
			d.countdownsFired[threshold] = true
			out = append(out, newEvent(TypeSessionCountdown, ImportanceMedium,
				"Countdown", fmt.Sprintf("%s remaining", threshold), price, now))
		}
	}
	return out
}
