package engine

import (
	"context"

	"trade-arena/internal/store"
	"trade-arena/pkg/types"
)

// Leaderboard returns the round standings ordered by percent P&L, best
// first. limit <= 0 returns every participant.
func (e *Engine) Leaderboard(ctx context.Context, roundID string, limit int) ([]types.LeaderboardEntry, error) {
	round, err := e.loadRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	entries, err := e.kv.ZRevRange(ctx, store.LeaderboardKey(roundID), 0, stop)
	if err != nil {
		return nil, err
	}

	board := make([]types.LeaderboardEntry, 0, len(entries))
	for i, zentry := range entries {
		row := types.LeaderboardEntry{
			Rank:       i + 1,
			Wallet:     zentry.Member,
			PnLPercent: zentry.Score,
		}
		if p, err := e.GetParticipant(ctx, roundID, zentry.Member); err == nil {
			row.Username = p.Username
			row.PnL = p.Portfolio.TotalValue - round.StartingBalance
			row.TotalValue = p.Portfolio.TotalValue
			row.Trades = p.Portfolio.Trades
			row.WinRate = p.Portfolio.WinRate
		}
		board = append(board, row)
	}
	return board, nil
}

// EnhancedLeaderboard adds profit scoring against the round's expected
// profit target: profitScore = pnlPercent / expectedProfitPct, letter-graded.
func (e *Engine) EnhancedLeaderboard(ctx context.Context, roundID string, limit int) ([]types.LeaderboardEntry, error) {
	round, err := e.loadRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	board, err := e.Leaderboard(ctx, roundID, limit)
	if err != nil {
		return nil, err
	}

	expected := round.Settings.ExpectedProfitPct
	for i := range board {
		if expected > 0 {
			board[i].ProfitScore = board[i].PnLPercent / expected
		}
		board[i].Grade = profitGrade(board[i].ProfitScore)
	}
	return board, nil
}

// profitGrade maps the achieved-to-expected profit ratio to a letter grade.
func profitGrade(ratio float64) string {
	switch {
	case ratio >= 2.0:
		return "S"
	case ratio >= 1.5:
		return "A+"
	case ratio >= 1.0:
		return "A"
	case ratio >= 0.5:
		return "B"
	case ratio >= 0.0:
		return "C"
	default:
		return "D"
	}
}
