package portfolio

import (
	"math"
	"testing"

	"trade-arena/pkg/types"
)

func defaultSettings() types.RoundSettings {
	return types.RoundSettings{
		MaxPositionSize: 0.3,
		TradingFee:      0.001,
	}
}

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func TestApplyBuyConfidenceSizing(t *testing.T) {
	t.Parallel()

	p := New(10000)
	value, ok := ApplyBuy(&p, defaultSettings(), "ETH", 3000, 7)
	if !ok {
		t.Fatal("buy should execute")
	}

	// 10000 × 0.3 × 0.7 = 2100 notional, 2.1 fee.
	approx(t, "value", value, 2100)
	approx(t, "cash", p.Cash, 7897.9)

	pos := p.Positions["ETH"]
	if pos == nil {
		t.Fatal("position missing")
	}
	approx(t, "amount", pos.Amount, 2100.0/3000.0)
	approx(t, "avg entry", pos.AvgEntryPrice, 3000)
	approx(t, "invested", pos.TotalInvested, 2100)
	if p.Trades != 1 {
		t.Errorf("trades = %d, want 1", p.Trades)
	}
}

func TestApplyBuyRejectsDustTrades(t *testing.T) {
	t.Parallel()

	// 0.3 × 0.1 = 3% of cash, below the 5% floor.
	p := New(10000)
	if _, ok := ApplyBuy(&p, defaultSettings(), "ETH", 3000, 1); ok {
		t.Fatal("low-confidence dust buy must not execute")
	}
	approx(t, "cash untouched", p.Cash, 10000)
	if len(p.Positions) != 0 || p.Trades != 0 {
		t.Errorf("portfolio mutated: %+v", p)
	}
}

func TestApplyBuyRejectsWhenFeeExceedsCash(t *testing.T) {
	t.Parallel()

	p := New(100)
	settings := types.RoundSettings{MaxPositionSize: 1.0, TradingFee: 0.05}
	if _, ok := ApplyBuy(&p, settings, "ETH", 3000, 10); ok {
		t.Fatal("buy whose value plus fee exceeds cash must not execute")
	}
	approx(t, "cash untouched", p.Cash, 100)
}

func TestApplyBuyAveragesEntryAcrossAdds(t *testing.T) {
	t.Parallel()

	p := New(10000)
	settings := defaultSettings()
	if _, ok := ApplyBuy(&p, settings, "ETH", 3000, 10); !ok {
		t.Fatal("first buy")
	}
	if _, ok := ApplyBuy(&p, settings, "ETH", 2000, 10); !ok {
		t.Fatal("second buy")
	}

	pos := p.Positions["ETH"]
	wantInvested := 3000.0 + 0.3*(10000-3000-3.0)*1.0 // second buy sized off remaining cash
	approx(t, "invested", pos.TotalInvested, wantInvested)
	approx(t, "avg entry", pos.AvgEntryPrice, pos.TotalInvested/pos.Amount)
	if pos.AvgEntryPrice >= 3000 || pos.AvgEntryPrice <= 2000 {
		t.Errorf("avg entry %v should sit between the two fills", pos.AvgEntryPrice)
	}
}

func TestApplySellClosesFullPositionAndScoresIt(t *testing.T) {
	t.Parallel()

	p := New(10000)
	settings := defaultSettings()
	ApplyBuy(&p, settings, "ETH", 3000, 10) // 3000 invested, 1 ETH

	value, ok := ApplySell(&p, settings, "ETH", 3300)
	if !ok {
		t.Fatal("sell should execute")
	}
	approx(t, "sell value", value, 3300)

	fee := 3300 * 0.001
	approx(t, "realized", p.RealizedPnL, 3300-3000-fee)
	approx(t, "cash", p.Cash, 10000-3000-3.0+3300-fee)
	if _, held := p.Positions["ETH"]; held {
		t.Error("position must be deleted after a full sell")
	}
	if p.Wins != 1 || p.Losses != 0 {
		t.Errorf("wins/losses = %d/%d", p.Wins, p.Losses)
	}
	if p.Trades != 2 {
		t.Errorf("trades = %d, want 2", p.Trades)
	}
}

func TestApplySellLossCountsAgainstWinRate(t *testing.T) {
	t.Parallel()

	p := New(10000)
	settings := defaultSettings()
	ApplyBuy(&p, settings, "ETH", 3000, 10)
	ApplySell(&p, settings, "ETH", 2700)

	if p.Losses != 1 || p.Wins != 0 {
		t.Fatalf("wins/losses = %d/%d", p.Wins, p.Losses)
	}
	Revalue(&p, nil, 10000)
	approx(t, "win rate", p.WinRate, 0)
	if p.RealizedPnL >= 0 {
		t.Errorf("realized = %v, want negative", p.RealizedPnL)
	}
}

func TestWinRateCountsAllTrades(t *testing.T) {
	t.Parallel()

	p := New(10000)
	settings := defaultSettings()
	ApplyBuy(&p, settings, "ETH", 3000, 10)
	ApplySell(&p, settings, "ETH", 3300)

	// One win over two trades (the opening buy counts), not over one
	// decided position.
	Revalue(&p, nil, 10000)
	approx(t, "win rate", p.WinRate, 50)

	ApplyBuy(&p, settings, "DEGEN", 0.004, 10)
	Revalue(&p, map[string]float64{"DEGEN": 0.004}, 10000)
	approx(t, "win rate with open buy", p.WinRate, 100.0/3.0)
}

func TestApplySellWithoutPosition(t *testing.T) {
	t.Parallel()

	p := New(10000)
	if _, ok := ApplySell(&p, defaultSettings(), "ETH", 3000); ok {
		t.Fatal("sell without a position must not execute")
	}
	approx(t, "cash untouched", p.Cash, 10000)
}

func TestRevalueMarksToMarket(t *testing.T) {
	t.Parallel()

	p := New(10000)
	settings := defaultSettings()
	ApplyBuy(&p, settings, "ETH", 3000, 10) // 1 ETH, 3000 invested

	Revalue(&p, map[string]float64{"ETH": 3300}, 10000)

	pos := p.Positions["ETH"]
	approx(t, "current value", pos.CurrentValue, 3300)
	approx(t, "unrealized", pos.UnrealizedPnL, 300)
	approx(t, "total", p.TotalValue, p.Cash+3300)
	approx(t, "pnl pct", p.PnLPercent, (p.TotalValue-10000)/10000*100)
}

func TestRevalueKeepsStaleValueOnMissingPrice(t *testing.T) {
	t.Parallel()

	p := New(10000)
	settings := defaultSettings()
	ApplyBuy(&p, settings, "ETH", 3000, 10)
	Revalue(&p, map[string]float64{"ETH": 3300}, 10000)
	before := p.Positions["ETH"].CurrentValue

	// Feed gap: no ETH price this tick.
	Revalue(&p, map[string]float64{}, 10000)
	approx(t, "stale value retained", p.Positions["ETH"].CurrentValue, before)
	approx(t, "total", p.TotalValue, p.Cash+before)
}

func TestCashNeverNegative(t *testing.T) {
	t.Parallel()

	p := New(50)
	settings := types.RoundSettings{MaxPositionSize: 0.99, TradingFee: 0.001}
	for range 20 {
		ApplyBuy(&p, settings, "DEGEN", 0.004, 10)
		if p.Cash < 0 {
			t.Fatalf("cash went negative: %v", p.Cash)
		}
	}
}
