// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the arena — rounds, participants,
// portfolios, strategies, signals, and market snapshots. It has no
// dependencies on internal packages, so it can be imported by any layer.
package types

import (
	"time"
)

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Action is the discrete trading directive produced by the signal generator.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// RoundStatus enumerates the round lifecycle states.
//
//	waiting → active → finished
//	waiting → cancelled
//
// finished and cancelled are terminal; the data is kept until the round TTL.
type RoundStatus string

const (
	RoundWaiting   RoundStatus = "waiting"
	RoundActive    RoundStatus = "active"
	RoundFinished  RoundStatus = "finished"
	RoundCancelled RoundStatus = "cancelled"
)

// SnapshotSource tags where a market snapshot came from. Mock snapshots are
// synthetic fallback data and carry SourceMock so tests and clients can
// detect them.
type SnapshotSource string

const (
	SourceDEX  SnapshotSource = "dex"
	SourceSpot SnapshotSource = "spot"
	SourceMock SnapshotSource = "mock"
)

// BindingKind identifies which of the three strategy-binding variants a
// participant carries. Exactly one variant per participant per round.
type BindingKind string

const (
	BindingInline   BindingKind = "inline"   // prose strategy parsed at join
	BindingOwned    BindingKind = "owned"    // joiner's own registered strategy
	BindingLicensed BindingKind = "licensed" // another wallet's strategy under license
)

// ————————————————————————————————————————————————————————————————————————
// Market data
// ————————————————————————————————————————————————————————————————————————

// MarketSnapshot is a point-in-time market-data record for one symbol.
type MarketSnapshot struct {
	Symbol    string         `json:"symbol"`
	Price     float64        `json:"price"`
	Change24h float64        `json:"change_24h"` // percent
	Volume24h float64        `json:"volume_24h"` // USD
	Liquidity float64        `json:"liquidity"`  // USD
	MarketCap float64        `json:"market_cap"` // USD
	Source    SnapshotSource `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
}

// ————————————————————————————————————————————————————————————————————————
// Rounds and participants
// ————————————————————————————————————————————————————————————————————————

// RoundSettings tunes how a round executes once active.
type RoundSettings struct {
	ExecutionInterval time.Duration `json:"execution_interval"`  // tick cadence (default 15s)
	MaxPositionSize   float64       `json:"max_position_size"`   // fraction of cash per buy (default 0.3)
	TradingFee        float64       `json:"trading_fee"`         // fee rate per trade (default 0.001)
	AllowedSymbols    []string      `json:"allowed_symbols"`     // uppercase symbol whitelist for this round
	AutoStart         bool          `json:"auto_start"`          // start automatically when full
	ExpectedProfitPct float64       `json:"expected_profit_pct"` // scoring baseline for profit grades
}

// RoundStats aggregates round-level counters.
type RoundStats struct {
	TotalParticipants int     `json:"total_participants"`
	TotalTrades       int     `json:"total_trades"`
	TotalVolume       float64 `json:"total_volume"` // USD notional traded
}

// Round is a time-boxed, multi-participant simulated-trading session.
// Created in waiting; mutated only by the round manager.
type Round struct {
	ID              string        `json:"id"`
	Number          int64         `json:"number"` // monotonic, from round:counter
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Duration        time.Duration `json:"duration"`
	StartingBalance float64       `json:"starting_balance"` // virtual USD per participant
	MinParticipants int           `json:"min_participants"`
	MaxParticipants int           `json:"max_participants"`
	Settings        RoundSettings `json:"settings"`
	Status          RoundStatus   `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	StartAt         time.Time     `json:"start_at,omitzero"`
	EndAt           time.Time     `json:"end_at,omitzero"`
	Stats           RoundStats    `json:"stats"`
}

// StrategyBinding attaches a trading strategy to a participant. The licensed
// variant captures the royalty percent at license time so later royalty
// changes on the source strategy do not retroactively alter closed licenses.
type StrategyBinding struct {
	Kind       BindingKind    `json:"kind"`
	StrategyID int64          `json:"strategy_id,omitempty"` // owned / licensed
	Text       string         `json:"text,omitempty"`        // inline prose
	Parsed     ParsedStrategy `json:"parsed"`
	RoyaltyPct float64        `json:"royalty_pct,omitempty"` // licensed only
	Licensor   string         `json:"licensor,omitempty"`    // licensed only: strategy owner wallet
}

// Participant is a wallet bound to a round with a strategy and a virtual
// portfolio. Mutated only by the round manager's execution task.
type Participant struct {
	RoundID   string          `json:"round_id"`
	Wallet    string          `json:"wallet"`
	Username  string          `json:"username"`
	Binding   StrategyBinding `json:"binding"`
	Portfolio Portfolio       `json:"portfolio"`
	JoinedAt  time.Time       `json:"joined_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Active    bool            `json:"active"`
}

// ————————————————————————————————————————————————————————————————————————
// Portfolio accounting
// ————————————————————————————————————————————————————————————————————————

// Position is the holdings of one symbol. A position whose amount reaches
// zero is deleted from the portfolio map — no zero-amount ghosts.
type Position struct {
	Symbol        string  `json:"symbol"`
	Amount        float64 `json:"amount"`
	AvgEntryPrice float64 `json:"avg_entry_price"`
	TotalInvested float64 `json:"total_invested"`
	CurrentValue  float64 `json:"current_value"`  // derived at revaluation
	UnrealizedPnL float64 `json:"unrealized_pnl"` // derived at revaluation
}

// Portfolio is cash plus positions, valued in virtual USD.
//
// Invariants: cash ≥ 0 on every exit path; after revaluation
// totalValue = cash + Σ position.amount × currentPrice.
type Portfolio struct {
	Cash        float64              `json:"cash"`
	Positions   map[string]*Position `json:"positions"`
	TotalValue  float64              `json:"total_value"`
	RealizedPnL float64              `json:"realized_pnl"`
	PnLPercent  float64              `json:"pnl_percent"` // vs starting balance
	Trades      int                  `json:"trades"`
	Wins        int                  `json:"wins"`
	Losses      int                  `json:"losses"`
	WinRate     float64              `json:"win_rate"` // percent, derived
	UpdatedAt   time.Time            `json:"updated_at"`
}

// TradeLog records one signal evaluation for a participant, whether or not
// it executed. Stored in the per-wallet log hash keyed by unix-milli time.
type TradeLog struct {
	Timestamp  int64   `json:"timestamp"`
	Symbol     string  `json:"symbol"`
	Action     Action  `json:"action"`
	Price      float64 `json:"price"`
	Confidence int     `json:"confidence"`
	Reason     string  `json:"reason"`
	Executed   bool    `json:"executed"`
}

// ————————————————————————————————————————————————————————————————————————
// Strategies
// ————————————————————————————————————————————————————————————————————————

// ParsedStrategy is the structured form the LLM distills from prose.
// All fields are guaranteed present after schema repair.
type ParsedStrategy struct {
	StrategyType    string   `json:"strategy_type"` // technical | fundamental | sentiment | mixed
	Indicators      []string `json:"indicators"`
	EntryConditions string   `json:"entry_conditions"`
	ExitConditions  string   `json:"exit_conditions"`
	RiskManagement  string   `json:"risk_management"`
	Timeframe       string   `json:"timeframe"`
	Assets          []string `json:"assets"`
	BaseEcosystem   bool     `json:"is_base_ecosystem"`
	ClarityScore    int      `json:"clarity_score"` // 1..10
	Actionable      bool     `json:"actionable"`
	SuggestedTokens []string `json:"suggested_base_tokens"`
}

// CandidateSymbols returns the symbols the executor should evaluate for a
// participant: the suggested tokens when the parser produced any, otherwise
// the strategy's asset list.
func (p ParsedStrategy) CandidateSymbols() []string {
	if len(p.SuggestedTokens) > 0 {
		return p.SuggestedTokens
	}
	return p.Assets
}

// StrategyStats aggregates a registered strategy's cross-round performance.
type StrategyStats struct {
	TotalUses        int     `json:"total_uses"`
	TotalEarnings    float64 `json:"total_earnings"`
	TotalTrades      int     `json:"total_trades"`
	SuccessfulTrades int     `json:"successful_trades"`
	WinRate          float64 `json:"win_rate"`
	BestPerformance  float64 `json:"best_performance"` // best round return percent
	AverageReturn    float64 `json:"average_return"`
}

// Strategy is a registered, marketable trading strategy.
type Strategy struct {
	ID          int64          `json:"id"`
	Owner       string         `json:"owner"` // wallet address
	Text        string         `json:"text"`
	Parsed      ParsedStrategy `json:"parsed"`
	RoyaltyPct  float64        `json:"royalty_pct"` // 5..50
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Tags        []string       `json:"tags"`
	Stats       StrategyStats  `json:"stats"`
	Active      bool           `json:"active"`
	Verified    bool           `json:"verified"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// StrategyOutcome is one participant's result attributed back to a
// registered strategy after a round.
type StrategyOutcome struct {
	Trades    int     `json:"trades"`
	Win       bool    `json:"win"`
	Earnings  float64 `json:"earnings"`   // royalty earnings, USD
	ReturnPct float64 `json:"return_pct"` // the round's percent P&L
}

// License grants one wallet per-round use of another wallet's strategy.
// At most one license per (licensee, round).
type License struct {
	Licensee     string    `json:"licensee"`
	StrategyID   int64     `json:"strategy_id"`
	RoundID      string    `json:"round_id"`
	Owner        string    `json:"owner"`
	RoyaltyPct   float64   `json:"royalty_pct"` // captured at license time
	ProfitShared float64   `json:"profit_shared"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// ————————————————————————————————————————————————————————————————————————
// Signals and leaderboards
// ————————————————————————————————————————————————————————————————————————

// Signal is an LLM-produced trading directive. After schema repair every
// numeric field is a positive plain number; for BUY the stop-loss sits below
// the entry price and the take-profit above it, inverted for SELL.
type Signal struct {
	Action     Action  `json:"signal"`
	Confidence int     `json:"confidence"` // 1..10
	Reason     string  `json:"reason"`
	EntryPrice float64 `json:"entry_price"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	RiskReward float64 `json:"risk_reward"`
}

// LeaderboardEntry is one ranked row of a round's leaderboard, ordered by
// percent P&L descending. ProfitScore and Grade are only populated on the
// enhanced leaderboard.
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	Wallet      string  `json:"wallet"`
	Username    string  `json:"username"`
	PnL         float64 `json:"pnl"`
	PnLPercent  float64 `json:"pnl_percentage"`
	TotalValue  float64 `json:"total_value"`
	Trades      int     `json:"trades"`
	WinRate     float64 `json:"win_rate"`
	ProfitScore float64 `json:"profit_score,omitempty"`
	Grade       string  `json:"grade,omitempty"`
}
