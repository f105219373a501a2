package decision

import (
	"fmt"
	"time"

	"xrparena/execution"
	"xrparena/market"
	"xrparena/strategy"
)

var healthZoneMarginFactor = map[execution.HealthZone]float64{
	execution.ZoneSafe:     1.0,
	execution.ZoneCaution:  0.9,
	execution.ZoneDanger:   0.7,
	execution.ZoneCritical: 0.5,
	execution.ZoneDeathRow: 1.0,
}

var healthZoneThresholdBump = map[execution.HealthZone]float64{
	execution.ZoneCritical: 20,
	execution.ZoneDanger:   10,
	execution.ZoneDeathRow: 0, // "last stand": revert to baseline
}

func inferRegime(ind market.Indicators, price float64) string {
	if price > 0 && ind.ATR/price > 0.02 {
		return "volatile"
	}
	if ind.BollPosition >= 0.35 && ind.BollPosition <= 0.65 {
		return "ranging"
	}
	return "trending"
}

func regimeBonus(pref strategy.RegimePreference, regime string) float64 {
	var score float64
	switch regime {
	case "trending":
		score = pref.Trending
	case "ranging":
		score = pref.Ranging
	default:
		score = pref.Volatile
	}
	return (score - 0.7) * 10
}

// EntryTier1 evaluates the "no position held" branch of spec.md §4.5
// tier 1.
func EntryTier1(snap *market.Snapshot, cfg strategy.Config, zone execution.HealthZone, knife market.KnifeState) Decision {
	view, ok := snap.Timeframes["1h"]
	if !ok {
		return Decision{Action: Wait, Confidence: 50, Rationale: "no 1h view available"}
	}

	threshold := cfg.EntryConfidence.Oversold + healthZoneThresholdBump[zone]
	regime := inferRegime(view.Indicators, snap.Last)
	bonus := regimeBonus(cfg.RegimePreference, regime)
	confidence := snap.Recommendation.Confidence + bonus

	rec := snap.Recommendation
	if rec.Action == "WAIT" {
		return Decision{Action: Wait, Confidence: confidence, Rationale: "base recommendation is WAIT"}
	}

	side := "long"
	if rec.Action == "SHORT" {
		side = "short"
	}
	thresholdBump, marginMult := market.GatePenalty(knife, side, cfg.KnifeGatePenalty)

	if confidence < threshold+thresholdBump {
		return Decision{
			Action:     Wait,
			Confidence: confidence,
			Rationale:  fmt.Sprintf("confidence %.1f below threshold %.1f (regime=%s, knife=%s)", confidence, threshold+thresholdBump, regime, knife.Phase),
		}
	}

	t := (confidence - threshold) / (100 - threshold)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	marginPercent := cfg.EntryMargin.Cautious + t*(cfg.EntryMargin.Full-cfg.EntryMargin.Cautious)
	marginPercent *= healthZoneMarginFactor[zone] * marginMult

	action := OpenLong
	if side == "short" {
		action = OpenShort
	}
	return Decision{
		Action:        action,
		Confidence:    confidence,
		MarginPercent: marginPercent,
		Rationale:     fmt.Sprintf("%s entry, regime=%s, confidence=%.1f", side, regime, confidence),
	}
}

// PositionTier1 evaluates the "position held" branch of spec.md §4.5
// tier 1, in the fixed priority order the spec lists.
func PositionTier1(snap *market.Snapshot, cfg strategy.Config, zone execution.HealthZone, pos execution.Position, now time.Time) Decision {
	hoursOpen := now.Sub(pos.OpenedAt).Hours()

	// (i) max hours exceeded.
	if hoursOpen >= cfg.MaxHours {
		return Decision{Action: Close, Confidence: 90, Rationale: "max hold duration reached"}
	}

	rec := snap.Recommendation
	reversed := (pos.Side == execution.Long && rec.Action == "SHORT") || (pos.Side == execution.Short && rec.Action == "LONG")

	// (ii) strong reversal signal.
	if reversed && rec.Confidence >= 75 {
		return Decision{Action: Close, Confidence: rec.Confidence, Rationale: "base recommendation reversed with high confidence"}
	}

	timePressure := hoursOpen / cfg.MaxHours

	// (iii) anti-greed take-profit.
	if pos.UnrealizedPct > 3 && timePressure > 0.6 && pos.UnrealizedPct > 5 {
		return Decision{Action: Close, Confidence: 70, Rationale: "anti-greed take-profit: time pressure with healthy gain"}
	}

	view, hasView := snap.Timeframes["1h"]
	dcaSignalConfidence := 50.0
	if hasView {
		regime := inferRegime(view.Indicators, snap.Last)
		dcaSignalConfidence = rec.Confidence + regimeBonus(cfg.RegimePreference, regime)
	}

	// (iv) DCA into a moderate loss.
	notCriticalOrDeathRow := zone != execution.ZoneCritical && zone != execution.ZoneDeathRow
	if pos.UnrealizedPct <= -2 && notCriticalOrDeathRow && pos.DCACount < cfg.MaxDCACount && dcaSignalConfidence >= 60 {
		return Decision{
			Action:        DCA,
			Confidence:    dcaSignalConfidence,
			MarginPercent: cfg.EntryMargin.Cautious * cfg.DCASizeFraction,
			Rationale:     "averaging into moderate loss on continued signal",
		}
	}

	// (v) cut losses in critical health.
	if zone == execution.ZoneCritical && pos.UnrealizedPct <= -5 {
		return Decision{Action: Close, Confidence: 80, Rationale: "cutting losses while in critical health"}
	}

	// (vi) default.
	return Decision{Action: Hold, Confidence: 50, Rationale: "no rule matched, holding"}
}
