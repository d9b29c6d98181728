package llm

import (
	"context"
	"fmt"
	"strings"

	"trade-arena/pkg/types"
)

const parseSystemPrompt = `You are a trading strategy analyst for the Base ecosystem.
Respond with a single JSON object and nothing else. Schema:
{
  "strategy_type": "technical|fundamental|sentiment|mixed",
  "indicators": ["..."],
  "entry_conditions": "...",
  "exit_conditions": "...",
  "risk_management": "...",
  "timeframe": "...",
  "assets": ["..."],
  "is_base_ecosystem": true,
  "clarity_score": 1-10,
  "actionable": true,
  "suggested_base_tokens": ["..."]
}`

func parseUserPrompt(text string) string {
	return fmt.Sprintf("Analyze this trading strategy and map it onto Base ecosystem tokens:\n\n%s", text)
}

const signalSystemPrompt = `You are a trading signal generator. Given live market data and a
structured strategy, respond with a single JSON object and nothing else. Schema:
{
  "signal": "BUY|SELL|HOLD",
  "confidence": 1-10,
  "reason": "...",
  "entry_price": number,
  "stop_loss": number,
  "take_profit": number,
  "risk_reward": number
}
All prices are plain positive numbers, never expressions.`

func signalUserPrompt(snap types.MarketSnapshot, parsed types.ParsedStrategy) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Market data for %s:\n", snap.Symbol)
	fmt.Fprintf(&b, "- price: %.6f USD\n", snap.Price)
	fmt.Fprintf(&b, "- 24h change: %.2f%%\n", snap.Change24h)
	fmt.Fprintf(&b, "- 24h volume: %.0f USD\n", snap.Volume24h)
	fmt.Fprintf(&b, "- liquidity: %.0f USD\n", snap.Liquidity)
	fmt.Fprintf(&b, "\nStrategy: %s", parsed.StrategyType)
	if len(parsed.Indicators) > 0 {
		fmt.Fprintf(&b, " using %s", strings.Join(parsed.Indicators, ", "))
	}
	b.WriteString("\n")
	if parsed.EntryConditions != "" {
		fmt.Fprintf(&b, "Entry: %s\n", parsed.EntryConditions)
	}
	if parsed.ExitConditions != "" {
		fmt.Fprintf(&b, "Exit: %s\n", parsed.ExitConditions)
	}
	if parsed.RiskManagement != "" {
		fmt.Fprintf(&b, "Risk: %s\n", parsed.RiskManagement)
	}
	b.WriteString("\nShould this strategy buy, sell, or hold right now?")
	return b.String()
}

const insightSystemPrompt = `You are a concise market analyst for Base ecosystem tokens.
Answer in at most four sentences of plain prose. No JSON, no markdown.`

func insightUserPrompt(snap types.MarketSnapshot, timeframe string) string {
	return fmt.Sprintf(
		"Give a %s outlook for %s. Current price %.6f USD, 24h change %.2f%%, 24h volume %.0f USD, liquidity %.0f USD.",
		timeframe, snap.Symbol, snap.Price, snap.Change24h, snap.Volume24h, snap.Liquidity)
}

const roundSystemPrompt = `You design trading competition rounds. Respond with a single JSON
object and nothing else. Schema:
{
  "name": "...",
  "duration_seconds": number,
  "starting_balance": number,
  "allowed_symbols": ["..."],
  "max_position_size": 0.0-1.0,
  "expected_profit_pct": number
}`

func roundUserPrompt(prompt string, allowed []string) string {
	return fmt.Sprintf(
		"Design a trading round from this description. Only these symbols exist: %s.\n\n%s",
		strings.Join(allowed, ", "), prompt)
}

// RoundSpec is the model's answer to a prompt-to-round request, prior to
// defaulting and validation by the engine.
type RoundSpec struct {
	Name              string   `json:"name"`
	DurationSeconds   int64    `json:"duration_seconds"`
	StartingBalance   float64  `json:"starting_balance"`
	AllowedSymbols    []string `json:"allowed_symbols"`
	MaxPositionSize   float64  `json:"max_position_size"`
	ExpectedProfitPct float64  `json:"expected_profit_pct"`
}

// ParseRound turns a free-text round description into a RoundSpec. Upstream
// failures return the zero spec so the engine applies full defaults.
func (c *Client) ParseRound(ctx context.Context, prompt string, allowed []string) (RoundSpec, error) {
	raw, err := c.Complete(ctx, roundSystemPrompt, roundUserPrompt(prompt, allowed))
	if err != nil {
		c.logger.Warn("round parse degraded to defaults", "error", err)
		return RoundSpec{}, nil
	}

	fields, ok := decodeObject(raw)
	if !ok {
		return RoundSpec{}, nil
	}

	var spec RoundSpec
	spec.Name = asString(fields["name"], "")
	if v, ok := asFloat(fields["duration_seconds"]); ok && v > 0 {
		spec.DurationSeconds = int64(v)
	}
	if v, ok := asFloat(fields["starting_balance"]); ok && v > 0 {
		spec.StartingBalance = v
	}
	spec.AllowedSymbols = upperList(asStringList(fields["allowed_symbols"]))
	if v, ok := asFloat(fields["max_position_size"]); ok && v > 0 && v <= 1 {
		spec.MaxPositionSize = v
	}
	if v, ok := asFloat(fields["expected_profit_pct"]); ok && v > 0 {
		spec.ExpectedProfitPct = v
	}
	return spec, nil
}
