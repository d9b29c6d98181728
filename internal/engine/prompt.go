package engine

import (
	"context"
	"strings"
	"time"

	"trade-arena/pkg/types"
)

// Prompt-round defaults, applied for anything the model leaves out.
const (
	promptDefaultDuration = 300 * time.Second
	promptDefaultBalance  = 10000.0
	promptDefaultTarget   = 5.0
)

var promptDefaultSymbols = []string{"ETH", "TOSHI", "DEGEN"}

// CreateRoundFromPrompt turns a free-text description into a waiting round.
// The model proposes name, duration, balance, symbols, and targets; missing
// or out-of-band values fall back to defaults, and symbols the feed does not
// support are dropped rather than failing the round.
func (e *Engine) CreateRoundFromPrompt(ctx context.Context, prompt string) (*types.Round, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, types.Validationf("round prompt is required")
	}

	spec, err := e.model.ParseRound(ctx, prompt, e.feed.ListAllowed())
	if err != nil {
		return nil, err
	}

	params := CreateRoundParams{
		Title:             spec.Name,
		Description:       strings.TrimSpace(prompt),
		Duration:          time.Duration(spec.DurationSeconds) * time.Second,
		StartingBalance:   spec.StartingBalance,
		MaxPositionSize:   spec.MaxPositionSize,
		ExpectedProfitPct: spec.ExpectedProfitPct,
		AutoStart:         true,
	}
	if params.Title == "" {
		params.Title = "Prompt round"
	}
	if params.Duration <= 0 {
		params.Duration = promptDefaultDuration
	}
	if params.StartingBalance <= 0 {
		params.StartingBalance = promptDefaultBalance
	}
	if params.ExpectedProfitPct <= 0 {
		params.ExpectedProfitPct = promptDefaultTarget
	}

	for _, s := range spec.AllowedSymbols {
		if e.feed.IsAllowed(s) {
			params.AllowedSymbols = append(params.AllowedSymbols, s)
		}
	}
	if len(params.AllowedSymbols) == 0 {
		for _, s := range promptDefaultSymbols {
			if e.feed.IsAllowed(s) {
				params.AllowedSymbols = append(params.AllowedSymbols, s)
			}
		}
	}

	return e.CreateRound(ctx, params)
}
