// Package portfolio implements virtual portfolio accounting: confidence-scaled
// buys, full-position sells, and mark-to-market revaluation. All functions
// mutate the portfolio in place and assume the caller serializes access
// (the round manager holds a per-round lock during execution).
package portfolio

import (
	"math"
	"time"

	"trade-arena/pkg/types"
)

// minTradeFraction rejects buys worth less than this share of current cash.
// Keeps low-confidence signals from dribbling dust positions.
const minTradeFraction = 0.05

// New returns a fresh portfolio holding only starting cash.
func New(startingBalance float64) types.Portfolio {
	return types.Portfolio{
		Cash:       startingBalance,
		Positions:  make(map[string]*types.Position),
		TotalValue: startingBalance,
		UpdatedAt:  time.Now(),
	}
}

// ApplyBuy sizes a position off current cash and signal confidence:
//
//	positionValue = cash × maxPositionSize × min(confidence/10, 1)
//
// The buy is skipped (returns 0, false) when the sized value falls below the
// minimum trade fraction of cash or when value plus fee exceeds cash. On
// success it returns the USD notional bought.
func ApplyBuy(p *types.Portfolio, settings types.RoundSettings, symbol string, price float64, confidence int) (float64, bool) {
	if price <= 0 {
		return 0, false
	}

	scale := math.Min(float64(confidence)/10.0, 1.0)
	positionValue := p.Cash * settings.MaxPositionSize * scale
	if positionValue < p.Cash*minTradeFraction {
		return 0, false
	}
	fee := positionValue * settings.TradingFee
	if positionValue+fee > p.Cash {
		return 0, false
	}

	amount := positionValue / price
	p.Cash -= positionValue + fee

	pos, ok := p.Positions[symbol]
	if !ok {
		pos = &types.Position{Symbol: symbol}
		p.Positions[symbol] = pos
	}
	totalAmount := pos.Amount + amount
	pos.AvgEntryPrice = (pos.TotalInvested + positionValue) / totalAmount
	pos.Amount = totalAmount
	pos.TotalInvested += positionValue

	p.Trades++
	p.UpdatedAt = time.Now()
	return positionValue, true
}

// ApplySell closes the whole position in symbol at the given price. Returns
// (0, false) when no position is held. Realized P&L is net of the sell fee
// and feeds the win/loss counters.
func ApplySell(p *types.Portfolio, settings types.RoundSettings, symbol string, price float64) (float64, bool) {
	pos, ok := p.Positions[symbol]
	if !ok || pos.Amount <= 0 || price <= 0 {
		return 0, false
	}

	sellValue := pos.Amount * price
	fee := sellValue * settings.TradingFee
	realized := sellValue - pos.TotalInvested - fee

	p.Cash += sellValue - fee
	p.RealizedPnL += realized
	if realized >= 0 {
		p.Wins++
	} else {
		p.Losses++
	}
	delete(p.Positions, symbol)

	p.Trades++
	p.UpdatedAt = time.Now()
	return sellValue, true
}

// Revalue marks every position to the supplied prices and recomputes the
// derived fields. Positions without a fresh price keep their last known
// current value, so a price-feed gap never zeroes a holding.
func Revalue(p *types.Portfolio, prices map[string]float64, startingBalance float64) {
	total := p.Cash
	for symbol, pos := range p.Positions {
		if price, ok := prices[symbol]; ok && price > 0 {
			pos.CurrentValue = pos.Amount * price
			pos.UnrealizedPnL = pos.CurrentValue - pos.TotalInvested
		}
		total += pos.CurrentValue
	}
	p.TotalValue = total

	if startingBalance > 0 {
		p.PnLPercent = (total - startingBalance) / startingBalance * 100
	}
	if p.Trades > 0 {
		p.WinRate = float64(p.Wins) / float64(p.Trades) * 100
	}
	p.UpdatedAt = time.Now()
}
