package llm

import (
	"strconv"
	"strings"

	"trade-arena/pkg/types"
)

// Schema repair: whatever shape the model returned, the values handed to the
// rest of the system satisfy their invariants. Missing or malformed fields
// get deterministic defaults anchored on the market snapshot.

const (
	defaultConfidence = 5
	defaultRiskReward = 2.0
	stopLossPct       = 0.05
	takeProfitPct     = 0.10
)

var strategyTypes = map[string]bool{
	"technical":   true,
	"fundamental": true,
	"sentiment":   true,
	"mixed":       true,
}

// DefaultSignal is the signal used when the model gave nothing usable.
func DefaultSignal(snap types.MarketSnapshot) types.Signal {
	return types.Signal{
		Action:     types.ActionHold,
		Confidence: defaultConfidence,
		EntryPrice: snap.Price,
		StopLoss:   snap.Price * (1 - stopLossPct),
		TakeProfit: snap.Price * (1 + takeProfitPct),
		RiskReward: defaultRiskReward,
		Reason:     "no usable model output",
	}
}

// RepairSignal coerces a decoded field map into a valid Signal. Prices that
// are absent, non-positive, or inconsistent with the action are replaced by
// defaults derived from the snapshot price.
func RepairSignal(fields map[string]any, snap types.MarketSnapshot) types.Signal {
	sig := DefaultSignal(snap)

	switch strings.ToUpper(asString(fields["signal"], asString(fields["action"], ""))) {
	case "BUY":
		sig.Action = types.ActionBuy
	case "SELL":
		sig.Action = types.ActionSell
	case "HOLD":
		sig.Action = types.ActionHold
	}

	if conf, ok := asFloat(fields["confidence"]); ok {
		sig.Confidence = clampInt(int(conf), 1, 10)
	}
	if v, ok := asFloat(fields["entry_price"]); ok && v > 0 {
		sig.EntryPrice = v
	}
	if v, ok := asFloat(fields["stop_loss"]); ok && v > 0 {
		sig.StopLoss = v
	}
	if v, ok := asFloat(fields["take_profit"]); ok && v > 0 {
		sig.TakeProfit = v
	}
	if v, ok := asFloat(fields["risk_reward"]); ok && v > 0 {
		sig.RiskReward = v
	}
	if r := asString(fields["reason"], ""); r != "" {
		sig.Reason = r
	}

	// Stops and targets must sit on the correct side of the entry.
	switch sig.Action {
	case types.ActionBuy, types.ActionHold:
		if sig.StopLoss >= sig.EntryPrice {
			sig.StopLoss = sig.EntryPrice * (1 - stopLossPct)
		}
		if sig.TakeProfit <= sig.EntryPrice {
			sig.TakeProfit = sig.EntryPrice * (1 + takeProfitPct)
		}
	case types.ActionSell:
		if sig.StopLoss <= sig.EntryPrice {
			sig.StopLoss = sig.EntryPrice * (1 + stopLossPct)
		}
		if sig.TakeProfit >= sig.EntryPrice {
			sig.TakeProfit = sig.EntryPrice * (1 - takeProfitPct)
		}
	}
	return sig
}

// DefaultParsed is the structured-strategy fallback for unusable output.
func DefaultParsed() types.ParsedStrategy {
	return types.ParsedStrategy{
		StrategyType:  "mixed",
		Indicators:    []string{},
		Timeframe:     "short",
		Assets:        []string{"ETH", "DEGEN", "TOSHI"},
		BaseEcosystem: true,
		ClarityScore:  defaultConfidence,
		Actionable:    true,
	}
}

// RepairParsed coerces a decoded field map into a valid ParsedStrategy.
func RepairParsed(fields map[string]any) types.ParsedStrategy {
	p := DefaultParsed()

	if t := strings.ToLower(asString(fields["strategy_type"], "")); strategyTypes[t] {
		p.StrategyType = t
	}
	if list := asStringList(fields["indicators"]); list != nil {
		p.Indicators = list
	}
	p.EntryConditions = asString(fields["entry_conditions"], "")
	p.ExitConditions = asString(fields["exit_conditions"], "")
	p.RiskManagement = asString(fields["risk_management"], "")
	if tf := strings.ToLower(asString(fields["timeframe"], "")); tf != "" {
		p.Timeframe = tf
	}
	if assets := upperList(asStringList(fields["assets"])); len(assets) > 0 {
		p.Assets = assets
	}
	if v, ok := fields["is_base_ecosystem"].(bool); ok {
		p.BaseEcosystem = v
	}
	if v, ok := asFloat(fields["clarity_score"]); ok {
		p.ClarityScore = clampInt(int(v), 1, 10)
	}
	if v, ok := fields["actionable"].(bool); ok {
		p.Actionable = v
	}
	p.SuggestedTokens = upperList(asStringList(fields["suggested_base_tokens"]))
	return p
}

// --- coercion helpers -------------------------------------------------------

func asString(v any, fallback string) string {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return fallback
}

// asFloat accepts JSON numbers and numeric strings. Models occasionally emit
// arithmetic like "3000 * 0.95"; those fail the parse and fall back to
// defaults upstream.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func asStringList(v any) []string {
	switch list := v.(type) {
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		// Comma-separated strings show up instead of arrays now and then.
		var out []string
		for _, part := range strings.Split(list, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func upperList(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(s)
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
