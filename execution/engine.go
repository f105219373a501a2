package execution

import (
	"math"
	"time"
)

func clampMarginPercent(p float64) float64 {
	if p < 5 {
		return 5
	}
	if p > 20 {
		return 20
	}
	return p
}

func healthZoneOf(health float64) HealthZone {
	switch {
	case health <= 0:
		return ZoneDead
	case health <= 20:
		return ZoneDeathRow
	case health <= 40:
		return ZoneCritical
	case health <= 60:
		return ZoneDanger
	case health <= 80:
		return ZoneCaution
	default:
		return ZoneSafe
	}
}

// recomputeDerived updates Equity, PeakEquity, MaxDrawdownPct, Health
// and HealthZone from the current balance/position, per spec.md §3's
// equity-conservation invariant and §8 invariant 3.
func recomputeDerived(s *AgentState) {
	equity := s.Balance
	if s.Position != nil && s.Position.Open {
		equity += s.Position.MarginUsed + s.Position.UnrealizedPnL
	}
	s.Equity = equity
	if equity > s.PeakEquity {
		s.PeakEquity = equity
	}
	if s.PeakEquity > 0 {
		dd := (s.PeakEquity - equity) / s.PeakEquity * 100
		if dd > s.MaxDrawdownPct {
			s.MaxDrawdownPct = dd
		}
	}
	health := 0.0
	if s.StartingCapital > 0 {
		health = equity / s.StartingCapital * 100
	}
	if health < 0 {
		health = 0
	}
	if health > 100 {
		health = 100
	}
	s.Health = health
	s.HealthZone = healthZoneOf(health)
}

func liquidationPrice(side Side, entry float64, leverage int) float64 {
	if leverage <= 0 {
		leverage = 1
	}
	delta := LiquidationPct / float64(leverage) / 100
	var lp float64
	if side == Long {
		lp = entry * (1 - delta)
	} else {
		lp = entry * (1 + delta)
	}
	if lp < 0 {
		lp = 0
	}
	return lp
}

// OpenPosition implements spec.md §4.3 open_position. Fails (state
// unchanged) if the agent already has an open position.
func OpenPosition(s AgentState, side Side, price, marginPercent float64, leverage int, now time.Time) (AgentState, Outcome) {
	if s.Position != nil && s.Position.Open {
		return s, Outcome{Applied: false, Error: "position already open"}
	}
	if price <= 0 || leverage <= 0 {
		return s, Outcome{Applied: false, Error: "invalid price or leverage"}
	}

	marginPercent = clampMarginPercent(marginPercent)
	margin := s.Balance * marginPercent / 100
	notional := margin * float64(leverage)
	volume := notional / price
	fees := notional * (TakerFeeRate + MarginOpenFeeRate)

	s.Balance -= margin
	s.TotalFees += fees

	s.Position = &Position{
		ID:               "",
		Pair:             "",
		Side:             side,
		Volume:           volume,
		AvgEntryPrice:    price,
		Leverage:         leverage,
		MarginUsed:       margin,
		TotalFees:        fees,
		DCACount:         0,
		Open:             true,
		OpenedAt:         now,
		UnrealizedPnL:    -fees,
		LiquidationPrice: liquidationPrice(side, price, leverage),
	}
	if margin > 0 {
		s.Position.UnrealizedPct = s.Position.UnrealizedPnL / margin * 100
	}

	recomputeDerived(&s)
	return s, Outcome{Applied: true, FeesCharged: fees}
}

// ClosePosition implements spec.md §4.3 close_position.
func ClosePosition(s AgentState, price float64, now time.Time) (AgentState, Outcome) {
	if s.Position == nil || !s.Position.Open {
		return s, Outcome{Applied: false, Error: "no open position"}
	}
	pos := s.Position

	notionalAtExit := pos.Volume * price
	closingFee := notionalAtExit * TakerFeeRate

	notionalAtOpen := pos.AvgEntryPrice * pos.Volume
	hoursOpen := now.Sub(pos.OpenedAt).Hours()
	rolloverPeriods := math.Floor(hoursOpen / 4)
	if rolloverPeriods < 0 {
		rolloverPeriods = 0
	}
	rolloverFee := rolloverPeriods * MarginRolloverRate * notionalAtOpen

	rawPnL := (price - pos.AvgEntryPrice) * pos.Volume
	if pos.Side == Short {
		rawPnL = -rawPnL
	}
	realizedPnL := rawPnL - (pos.TotalFees + closingFee + rolloverFee)

	totalFeesThisClose := closingFee + rolloverFee
	s.TotalFees += totalFeesThisClose
	s.Balance += pos.MarginUsed + realizedPnL
	s.RealizedPnL += realizedPnL
	s.TradeCount++
	if realizedPnL >= 0 {
		s.WinCount++
	} else {
		s.LossCount++
	}

	bankrupt := s.Balance <= 0
	if bankrupt {
		s.Balance = 0
		s.Dead = true
		s.Status = StatusBankrupt
		s.DeathReason = "balance depleted on close"
	}

	s.Position = nil
	recomputeDerived(&s)
	return s, Outcome{Applied: true, RealizedPnL: realizedPnL, FeesCharged: totalFeesThisClose, Bankrupt: bankrupt}
}

// DCA implements spec.md §4.3 dca. Fails if there is no open position
// or the strategy's max_dca_count would be exceeded.
func DCA(s AgentState, price, additionalMarginPercent float64, leverage, maxDCACount int, reason string, now time.Time) (AgentState, Outcome) {
	if s.Position == nil || !s.Position.Open {
		return s, Outcome{Applied: false, Error: "no open position to dca into"}
	}
	pos := *s.Position
	if pos.DCACount >= maxDCACount {
		return s, Outcome{Applied: false, Error: "max dca count reached"}
	}
	if price <= 0 {
		return s, Outcome{Applied: false, Error: "invalid price"}
	}

	additionalMarginPercent = clampMarginPercent(additionalMarginPercent)
	addMargin := s.Balance * additionalMarginPercent / 100
	addNotional := addMargin * float64(leverage)
	addVolume := addNotional / price
	fees := addNotional * (TakerFeeRate + MarginOpenFeeRate)

	totalVol := pos.Volume + addVolume
	newAvgEntry := (pos.AvgEntryPrice*pos.Volume + price*addVolume) / totalVol

	s.Balance -= addMargin
	s.TotalFees += fees

	pos.Volume = totalVol
	pos.AvgEntryPrice = newAvgEntry
	pos.MarginUsed += addMargin
	pos.TotalFees += fees
	pos.DCACount++
	pos.DCAHistory = append(pos.DCAHistory, DCAEntry{
		Price: price, Volume: addVolume, Margin: addMargin, Timestamp: now, Reason: reason,
	})
	pos.LiquidationPrice = liquidationPrice(pos.Side, newAvgEntry, pos.Leverage)

	s.Position = &pos
	recomputeUnrealized(&s, price)
	recomputeDerived(&s)
	return s, Outcome{Applied: true, FeesCharged: fees}
}

// CheckLiquidation implements spec.md §4.3 check_liquidation. If the
// adverse move has reached the liquidation threshold, it closes the
// position at that price and marks the agent dead.
func CheckLiquidation(s AgentState, price float64, now time.Time) (AgentState, Outcome) {
	if s.Position == nil || !s.Position.Open {
		return s, Outcome{Applied: false}
	}
	pos := s.Position
	moveFromEntry := (pos.AvgEntryPrice - price) / pos.AvgEntryPrice * 100
	if pos.Side == Short {
		moveFromEntry = -moveFromEntry
	}
	threshold := LiquidationPct / float64(pos.Leverage)
	if moveFromEntry < threshold {
		return s, Outcome{Applied: false}
	}

	liqPrice := pos.LiquidationPrice
	next, outcome := ClosePosition(s, liqPrice, now)
	next.Dead = true
	next.Status = StatusLiquidated
	next.DeathReason = "liquidated"
	outcome.Liquidated = true
	recomputeDerived(&next)
	return next, outcome
}

// UpdateUnrealised implements spec.md §4.3 update_unrealised: refreshes
// P&L, equity, peak-equity, drawdown, health and zone without trading.
func UpdateUnrealised(s AgentState, price float64) AgentState {
	if s.Position != nil && s.Position.Open {
		recomputeUnrealized(&s, price)
	}
	recomputeDerived(&s)
	return s
}

func recomputeUnrealized(s *AgentState, price float64) {
	pos := s.Position
	raw := (price - pos.AvgEntryPrice) * pos.Volume
	if pos.Side == Short {
		raw = -raw
	}
	pos.UnrealizedPnL = raw - pos.TotalFees
	if pos.MarginUsed > 0 {
		pos.UnrealizedPct = pos.UnrealizedPnL / pos.MarginUsed * 100
	}
}
