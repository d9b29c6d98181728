package llm

import (
	"testing"

	"trade-arena/pkg/types"
)

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{
			name: "bare object",
			in:   `{"signal":"BUY"}`,
			want: `{"signal":"BUY"}`,
			ok:   true,
		},
		{
			name: "fenced with language tag",
			in:   "```json\n{\"signal\":\"SELL\"}\n```",
			want: `{"signal":"SELL"}`,
			ok:   true,
		},
		{
			name: "prose around the object",
			in:   `Sure! Here is the answer: {"a":1} hope that helps`,
			want: `{"a":1}`,
			ok:   true,
		},
		{
			name: "trailing comma removed",
			in:   `{"a":1,"b":2,}`,
			want: `{"a":1,"b":2}`,
			ok:   true,
		},
		{
			name: "dangling key gets null",
			in:   `{"a":1,"b":}`,
			want: `{"a":1,"b": null}`,
			ok:   true,
		},
		{
			name: "no object at all",
			in:   "the market looks bullish today",
			ok:   false,
		},
		{
			name: "empty input",
			in:   "",
			ok:   false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractJSON(tc.in)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRepairSignalDefaultsBadPrices(t *testing.T) {
	t.Parallel()

	snap := types.MarketSnapshot{Symbol: "ETH", Price: 3000}
	sig := RepairSignal(map[string]any{
		"signal":      "BUY",
		"confidence":  float64(7),
		"entry_price": "3000 * 0.95", // arithmetic strings are rejected
		"stop_loss":   float64(-5),
		"take_profit": float64(0),
	}, snap)

	if sig.Action != types.ActionBuy {
		t.Errorf("action = %q", sig.Action)
	}
	if sig.EntryPrice != 3000 {
		t.Errorf("entry = %v, want snapshot price", sig.EntryPrice)
	}
	if sig.StopLoss >= sig.EntryPrice {
		t.Errorf("stop %v must sit below entry %v for BUY", sig.StopLoss, sig.EntryPrice)
	}
	if sig.TakeProfit <= sig.EntryPrice {
		t.Errorf("target %v must sit above entry %v for BUY", sig.TakeProfit, sig.EntryPrice)
	}
	if sig.RiskReward != defaultRiskReward {
		t.Errorf("risk reward = %v", sig.RiskReward)
	}
}

func TestRepairSignalFixesInvertedSellLevels(t *testing.T) {
	t.Parallel()

	snap := types.MarketSnapshot{Symbol: "DEGEN", Price: 0.004}
	sig := RepairSignal(map[string]any{
		"signal":      "sell",
		"entry_price": float64(0.004),
		"stop_loss":   float64(0.003), // wrong side for a SELL
		"take_profit": float64(0.005), // wrong side for a SELL
	}, snap)

	if sig.Action != types.ActionSell {
		t.Fatalf("action = %q", sig.Action)
	}
	if sig.StopLoss <= sig.EntryPrice {
		t.Errorf("stop %v must sit above entry %v for SELL", sig.StopLoss, sig.EntryPrice)
	}
	if sig.TakeProfit >= sig.EntryPrice {
		t.Errorf("target %v must sit below entry %v for SELL", sig.TakeProfit, sig.EntryPrice)
	}
}

func TestRepairParsedCoercions(t *testing.T) {
	t.Parallel()

	p := RepairParsed(map[string]any{
		"strategy_type":         "TECHNICAL",
		"indicators":            []any{"RSI", " MACD "},
		"assets":                "eth, toshi",
		"clarity_score":         float64(42),
		"suggested_base_tokens": []any{"degen"},
	})

	if p.StrategyType != "technical" {
		t.Errorf("strategy type = %q", p.StrategyType)
	}
	if len(p.Indicators) != 2 || p.Indicators[1] != "MACD" {
		t.Errorf("indicators = %v", p.Indicators)
	}
	if len(p.Assets) != 2 || p.Assets[0] != "ETH" || p.Assets[1] != "TOSHI" {
		t.Errorf("assets = %v", p.Assets)
	}
	if p.ClarityScore != 10 {
		t.Errorf("clarity = %d, want clamped to 10", p.ClarityScore)
	}
	if len(p.SuggestedTokens) != 1 || p.SuggestedTokens[0] != "DEGEN" {
		t.Errorf("suggested tokens = %v", p.SuggestedTokens)
	}
}

func TestRepairParsedUnknownTypeFallsBack(t *testing.T) {
	t.Parallel()

	p := RepairParsed(map[string]any{"strategy_type": "astrology"})
	if p.StrategyType != "mixed" {
		t.Errorf("strategy type = %q, want mixed", p.StrategyType)
	}
}
