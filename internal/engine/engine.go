// Package engine is the round manager: it owns round lifecycle
// (waiting → active → finished/cancelled), the join protocol with its three
// strategy-binding variants, the periodic execution task that turns signals
// into simulated trades, and end-of-round settlement of leaderboards and
// royalties.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"trade-arena/internal/config"
	"trade-arena/internal/events"
	"trade-arena/internal/llm"
	"trade-arena/internal/portfolio"
	"trade-arena/internal/store"
	"trade-arena/pkg/types"
)

// retention beyond a round's scheduled end, applied as TTL to all of the
// round's keys so finished rounds stay inspectable for a while.
const retention = time.Hour

// PriceFeed supplies market snapshots and the symbol whitelist.
type PriceFeed interface {
	GetPrice(ctx context.Context, symbol string) (types.MarketSnapshot, error)
	IsAllowed(symbol string) bool
	ListAllowed() []string
}

// SignalSource is the LLM surface the engine needs.
type SignalSource interface {
	ParseStrategy(ctx context.Context, text string) (types.ParsedStrategy, error)
	GenerateSignal(ctx context.Context, snap types.MarketSnapshot, parsed types.ParsedStrategy) (types.Signal, error)
	ParseRound(ctx context.Context, prompt string, allowed []string) (llm.RoundSpec, error)
	Insight(ctx context.Context, snap types.MarketSnapshot, timeframe string) (string, error)
}

// StrategySource is the marketplace surface the engine needs for owned and
// licensed bindings and for post-round attribution.
type StrategySource interface {
	Get(ctx context.Context, id int64) (*types.Strategy, error)
	License(ctx context.Context, licensee string, strategyID int64, roundID string) (*types.License, error)
	GetLicense(ctx context.Context, wallet, roundID string) (*types.License, error)
	UpdateStats(ctx context.Context, id int64, outcome types.StrategyOutcome) error
	RecordRoyalty(ctx context.Context, wallet, roundID string, amount float64) error
}

// roundSlot is the engine's per-round runtime state: the execution task's
// cancel handle, the one-shot auto-start timer, and the lock serializing
// all mutations of that round.
type roundSlot struct {
	mu             sync.Mutex
	cancel         context.CancelFunc
	autoStart      *time.Timer
	autoStartArmed bool
}

// Engine coordinates rounds. All round mutations go through the per-round
// slot lock; the store is the single source of truth between ticks.
type Engine struct {
	kv         store.KV
	feed       PriceFeed
	model      SignalSource
	strategies StrategySource
	bus        *events.Bus
	cfg        config.RoundsConfig
	logger     *slog.Logger

	mu    sync.Mutex
	slots map[string]*roundSlot

	wg sync.WaitGroup
}

func New(kv store.KV, feed PriceFeed, model SignalSource, strategies StrategySource, bus *events.Bus, cfg config.RoundsConfig, logger *slog.Logger) *Engine {
	return &Engine{
		kv:         kv,
		feed:       feed,
		model:      model,
		strategies: strategies,
		bus:        bus,
		cfg:        cfg,
		logger:     logger.With("component", "engine"),
		slots:      make(map[string]*roundSlot),
	}
}

// Stop cancels every running execution task and waits for them to drain.
func (e *Engine) Stop() {
	e.mu.Lock()
	for _, slot := range e.slots {
		slot.mu.Lock()
		if slot.cancel != nil {
			slot.cancel()
		}
		if slot.autoStart != nil {
			slot.autoStart.Stop()
		}
		slot.mu.Unlock()
	}
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *Engine) slot(roundID string) *roundSlot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.slots[roundID]
	if !ok {
		s = &roundSlot{}
		e.slots[roundID] = s
	}
	return s
}

// ————————————————————————————————————————————————————————————————————————
// Round lifecycle
// ————————————————————————————————————————————————————————————————————————

// CreateRoundParams carries the caller-supplied round definition. Zero
// fields fall back to configured defaults.
type CreateRoundParams struct {
	Title             string
	Description       string
	Duration          time.Duration
	StartingBalance   float64
	MinParticipants   int
	MaxParticipants   int
	AllowedSymbols    []string
	ExecutionInterval time.Duration
	MaxPositionSize   float64
	TradingFee        float64
	ExpectedProfitPct float64
	AutoStart         bool
}

// CreateRound validates and persists a new round in waiting state.
func (e *Engine) CreateRound(ctx context.Context, params CreateRoundParams) (*types.Round, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, types.Validationf("round title is required")
	}
	if params.Duration <= 0 {
		return nil, types.Validationf("round duration must be positive")
	}
	if params.StartingBalance <= 0 {
		return nil, types.Validationf("starting balance must be positive")
	}
	if params.MinParticipants <= 0 {
		params.MinParticipants = 1
	}
	if params.MaxParticipants <= 0 {
		params.MaxParticipants = 10
	}
	if params.MaxParticipants < params.MinParticipants {
		return nil, types.Validationf("max participants %d below min %d", params.MaxParticipants, params.MinParticipants)
	}

	symbols := params.AllowedSymbols
	if len(symbols) == 0 {
		symbols = e.feed.ListAllowed()
	}
	normalized := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if !e.feed.IsAllowed(s) {
			return nil, types.Validationf("symbol not supported: %s", s)
		}
		normalized = append(normalized, s)
	}

	settings := types.RoundSettings{
		ExecutionInterval: params.ExecutionInterval,
		MaxPositionSize:   params.MaxPositionSize,
		TradingFee:        params.TradingFee,
		AllowedSymbols:    normalized,
		AutoStart:         params.AutoStart,
		ExpectedProfitPct: params.ExpectedProfitPct,
	}
	if settings.ExecutionInterval <= 0 {
		settings.ExecutionInterval = e.cfg.ExecutionInterval
	}
	if settings.MaxPositionSize <= 0 || settings.MaxPositionSize > 1 {
		settings.MaxPositionSize = e.cfg.MaxPositionSize
	}
	if settings.TradingFee <= 0 {
		settings.TradingFee = e.cfg.TradingFee
	}
	if settings.ExpectedProfitPct <= 0 {
		settings.ExpectedProfitPct = e.cfg.ExpectedProfitPct
	}

	number, err := e.kv.Incr(ctx, store.RoundCounterKey)
	if err != nil {
		return nil, err
	}

	round := &types.Round{
		ID:              uuid.NewString(),
		Number:          number,
		Title:           strings.TrimSpace(params.Title),
		Description:     strings.TrimSpace(params.Description),
		Duration:        params.Duration,
		StartingBalance: params.StartingBalance,
		MinParticipants: params.MinParticipants,
		MaxParticipants: params.MaxParticipants,
		Settings:        settings,
		Status:          types.RoundWaiting,
		CreatedAt:       time.Now(),
	}

	if err := e.saveRound(ctx, round); err != nil {
		return nil, err
	}
	if err := e.kv.Set(ctx, store.RoundNumberKey(number), round.ID, round.Duration+retention); err != nil {
		return nil, err
	}
	if err := e.kv.SAdd(ctx, store.RoundsActiveKey, round.ID); err != nil {
		return nil, err
	}

	e.logger.Info("round created", "round_id", round.ID, "number", number, "title", round.Title)
	e.bus.Publish(events.TopicRoundCreated, round.ID, round)
	return round, nil
}

// JoinParams binds a wallet to a round. Exactly one of StrategyText,
// StrategyID, or LicenseStrategyID must be set: text is an inline strategy,
// StrategyID resolves to an owned binding for the strategy's owner or a
// licensed binding through an already-held license, and LicenseStrategyID
// takes out the license as part of the join.
type JoinParams struct {
	RoundID           string
	Wallet            string
	Username          string
	StrategyText      string
	StrategyID        int64
	LicenseStrategyID int64
}

// JoinRound admits a wallet into a waiting round.
func (e *Engine) JoinRound(ctx context.Context, params JoinParams) (*types.Participant, error) {
	if !common.IsHexAddress(params.Wallet) {
		return nil, types.Validationf("invalid wallet address: %s", params.Wallet)
	}
	wallet := common.HexToAddress(params.Wallet).Hex()

	variants := 0
	if strings.TrimSpace(params.StrategyText) != "" {
		variants++
	}
	if params.StrategyID != 0 {
		variants++
	}
	if params.LicenseStrategyID != 0 {
		variants++
	}
	if variants != 1 {
		return nil, types.Validationf("provide exactly one of strategy text, a strategy id, or a strategy id to license")
	}

	slot := e.slot(params.RoundID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	round, err := e.loadRound(ctx, params.RoundID)
	if err != nil {
		return nil, err
	}
	if round.Status != types.RoundWaiting {
		return nil, types.Conflictf("round %s is not joinable", round.ID)
	}

	participantsKey := store.RoundParticipantsKey(round.ID)
	already, err := e.kv.SIsMember(ctx, participantsKey, wallet)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, types.Conflictf("wallet %s already joined round %s", wallet, round.ID)
	}
	count, err := e.kv.SCard(ctx, participantsKey)
	if err != nil {
		return nil, err
	}
	if int(count) >= round.MaxParticipants {
		return nil, types.Conflictf("round %s is full", round.ID)
	}

	binding, err := e.resolveBinding(ctx, round.ID, wallet, params)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	p := &types.Participant{
		RoundID:   round.ID,
		Wallet:    wallet,
		Username:  strings.TrimSpace(params.Username),
		Binding:   *binding,
		Portfolio: portfolio.New(round.StartingBalance),
		JoinedAt:  now,
		UpdatedAt: now,
		Active:    true,
	}
	if err := e.saveParticipant(ctx, round, p); err != nil {
		return nil, err
	}
	if err := e.kv.SAdd(ctx, participantsKey, wallet); err != nil {
		return nil, err
	}

	round.Stats.TotalParticipants = int(count) + 1
	if err := e.saveRound(ctx, round); err != nil {
		return nil, err
	}

	e.logger.Info("participant joined",
		"round_id", round.ID, "wallet", wallet, "binding", binding.Kind,
		"participants", round.Stats.TotalParticipants)
	e.bus.Publish(events.TopicParticipantJoined, round.ID, p)

	// Full house arms the one-shot auto-start timer.
	if round.Settings.AutoStart && round.Stats.TotalParticipants >= round.MaxParticipants && !slot.autoStartArmed {
		slot.autoStartArmed = true
		roundID := round.ID
		slot.autoStart = time.AfterFunc(e.cfg.AutoStartDelay, func() {
			if err := e.StartRound(context.Background(), roundID); err != nil {
				e.logger.Warn("auto-start failed", "round_id", roundID, "error", err)
			}
		})
		e.logger.Info("auto-start armed", "round_id", round.ID, "delay", e.cfg.AutoStartDelay)
	}
	return p, nil
}

func (e *Engine) resolveBinding(ctx context.Context, roundID, wallet string, params JoinParams) (*types.StrategyBinding, error) {
	if params.LicenseStrategyID != 0 {
		s, err := e.strategies.Get(ctx, params.LicenseStrategyID)
		if err != nil {
			return nil, err
		}
		// The registry enforces the self-licensing ban and per-round
		// uniqueness.
		lic, err := e.strategies.License(ctx, wallet, params.LicenseStrategyID, roundID)
		if err != nil {
			return nil, err
		}
		return &types.StrategyBinding{
			Kind:       types.BindingLicensed,
			StrategyID: s.ID,
			Parsed:     s.Parsed,
			RoyaltyPct: lic.RoyaltyPct,
			Licensor:   s.Owner,
		}, nil
	}

	if params.StrategyID == 0 {
		parsed, err := e.model.ParseStrategy(ctx, params.StrategyText)
		if err != nil {
			return nil, err
		}
		return &types.StrategyBinding{
			Kind:   types.BindingInline,
			Text:   params.StrategyText,
			Parsed: parsed,
		}, nil
	}

	s, err := e.strategies.Get(ctx, params.StrategyID)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(s.Owner, wallet) {
		return &types.StrategyBinding{
			Kind:       types.BindingOwned,
			StrategyID: s.ID,
			Parsed:     s.Parsed,
		}, nil
	}

	lic, err := e.strategies.GetLicense(ctx, wallet, roundID)
	if err != nil {
		if types.IsKind(err, types.KindNotFound) {
			return nil, types.Validationf("wallet %s holds no license for strategy %d in round %s", wallet, s.ID, roundID)
		}
		return nil, err
	}
	if lic.StrategyID != s.ID || !lic.Active {
		return nil, types.Validationf("license does not cover strategy %d", s.ID)
	}
	return &types.StrategyBinding{
		Kind:       types.BindingLicensed,
		StrategyID: s.ID,
		Parsed:     s.Parsed,
		RoyaltyPct: lic.RoyaltyPct,
		Licensor:   s.Owner,
	}, nil
}

// StartRound moves a waiting round to active and launches its execution task.
func (e *Engine) StartRound(ctx context.Context, roundID string) error {
	slot := e.slot(roundID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	round, err := e.loadRound(ctx, roundID)
	if err != nil {
		return err
	}
	if round.Status != types.RoundWaiting {
		return types.Conflictf("round %s is not in waiting state", roundID)
	}
	count, err := e.kv.SCard(ctx, store.RoundParticipantsKey(roundID))
	if err != nil {
		return err
	}
	if int(count) < round.MinParticipants {
		return types.Validationf("round %s needs %d participants, has %d", roundID, round.MinParticipants, count)
	}

	now := time.Now()
	round.Status = types.RoundActive
	round.StartAt = now
	round.EndAt = now.Add(round.Duration)
	if err := e.saveRound(ctx, round); err != nil {
		return err
	}
	if err := e.kv.SRem(ctx, store.RoundsActiveKey, roundID); err != nil {
		return err
	}
	if err := e.kv.SAdd(ctx, store.RoundsRunningKey, roundID); err != nil {
		return err
	}

	tickCtx, cancel := context.WithCancel(context.Background())
	slot.cancel = cancel
	e.wg.Add(1)
	go e.runTicks(tickCtx, roundID, round.Settings.ExecutionInterval)

	e.logger.Info("round started", "round_id", roundID, "ends_at", round.EndAt)
	e.bus.Publish(events.TopicRoundStarted, roundID, round)
	return nil
}

// EndRound finishes or cancels a round: stops the execution task, settles
// royalties and strategy attribution, and publishes the final standings.
// Cancelling is only allowed before the round starts.
func (e *Engine) EndRound(ctx context.Context, roundID string, cancelled bool) error {
	slot := e.slot(roundID)
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return e.endRoundLocked(ctx, slot, roundID, cancelled)
}

func (e *Engine) endRoundLocked(ctx context.Context, slot *roundSlot, roundID string, cancelled bool) error {
	// The deadline path arrives on the execution task's own context, and
	// ending the round cancels that context. Persistence and settlement
	// must outlive it.
	ctx = context.WithoutCancel(ctx)

	round, err := e.loadRound(ctx, roundID)
	if err != nil {
		return err
	}
	switch round.Status {
	case types.RoundWaiting:
		if !cancelled {
			return types.Conflictf("round %s was never started", roundID)
		}
	case types.RoundActive:
		if cancelled {
			return types.Conflictf("round %s already started", roundID)
		}
	default:
		return types.Conflictf("round %s already ended", roundID)
	}

	if slot.cancel != nil {
		slot.cancel()
		slot.cancel = nil
	}
	if slot.autoStart != nil {
		slot.autoStart.Stop()
	}

	now := time.Now()
	if cancelled {
		round.Status = types.RoundCancelled
	} else {
		round.Status = types.RoundFinished
	}
	if round.EndAt.IsZero() || now.Before(round.EndAt) {
		round.EndAt = now
	}
	if err := e.saveRound(ctx, round); err != nil {
		return err
	}
	if err := e.kv.SRem(ctx, store.RoundsActiveKey, roundID); err != nil {
		return err
	}
	if err := e.kv.SRem(ctx, store.RoundsRunningKey, roundID); err != nil {
		return err
	}
	if err := e.kv.SAdd(ctx, store.RoundsFinishedKey, roundID); err != nil {
		return err
	}

	if !cancelled {
		e.settle(ctx, round)
	}

	e.logger.Info("round ended", "round_id", roundID, "status", round.Status)
	e.bus.Publish(events.TopicRoundEnded, roundID, round)

	if board, err := e.EnhancedLeaderboard(ctx, roundID, 0); err == nil {
		e.bus.Publish(events.TopicLeaderboardUpdate, roundID, board)
	}
	return nil
}

// settle attributes outcomes back to registered strategies and records
// royalties on licensed bindings with positive profit.
func (e *Engine) settle(ctx context.Context, round *types.Round) {
	participants, err := e.participants(ctx, round.ID)
	if err != nil {
		e.logger.Warn("settlement skipped", "round_id", round.ID, "error", err)
		return
	}
	for _, p := range participants {
		if p.Binding.StrategyID == 0 {
			continue
		}

		var royalty float64
		if p.Binding.Kind == types.BindingLicensed {
			if profit := p.Portfolio.TotalValue - round.StartingBalance; profit > 0 {
				royalty = profit * p.Binding.RoyaltyPct / 100
				if err := e.strategies.RecordRoyalty(ctx, p.Wallet, round.ID, royalty); err != nil {
					e.logger.Warn("royalty not recorded", "round_id", round.ID, "wallet", p.Wallet, "error", err)
				}
			}
		}

		outcome := types.StrategyOutcome{
			Trades:    p.Portfolio.Trades,
			Win:       p.Portfolio.PnLPercent > 0,
			Earnings:  royalty,
			ReturnPct: p.Portfolio.PnLPercent,
		}
		if err := e.strategies.UpdateStats(ctx, p.Binding.StrategyID, outcome); err != nil {
			e.logger.Warn("strategy stats not updated",
				"strategy_id", p.Binding.StrategyID, "round_id", round.ID, "error", err)
		}
	}
}

// ————————————————————————————————————————————————————————————————————————
// Reads
// ————————————————————————————————————————————————————————————————————————

// GetRound loads a round by id.
func (e *Engine) GetRound(ctx context.Context, roundID string) (*types.Round, error) {
	return e.loadRound(ctx, roundID)
}

// GetRoundByNumber resolves a round number to its record.
func (e *Engine) GetRoundByNumber(ctx context.Context, number int64) (*types.Round, error) {
	id, found, err := e.kv.Get(ctx, store.RoundNumberKey(number))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, types.NotFoundf("round number %d not found", number)
	}
	return e.loadRound(ctx, id)
}

// ListRounds returns one lifecycle bucket: "active" is the joinable waiting
// set, "running" the started set, "finished" the terminal set.
func (e *Engine) ListRounds(ctx context.Context, bucket string) ([]*types.Round, error) {
	var key string
	switch bucket {
	case "active":
		key = store.RoundsActiveKey
	case "running":
		key = store.RoundsRunningKey
	case "finished":
		key = store.RoundsFinishedKey
	default:
		return nil, types.Validationf("unknown round bucket: %s", bucket)
	}

	ids, err := e.kv.SMembers(ctx, key)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Round, 0, len(ids))
	for _, id := range ids {
		round, err := e.loadRound(ctx, id)
		if err != nil {
			continue // expired record, stale set member
		}
		out = append(out, round)
	}
	return out, nil
}

// CanJoin reports whether a wallet could join a round right now, with a
// human-readable reason when it cannot.
func (e *Engine) CanJoin(ctx context.Context, roundID, wallet string) (bool, string, error) {
	if !common.IsHexAddress(wallet) {
		return false, "invalid wallet address", nil
	}
	round, err := e.loadRound(ctx, roundID)
	if err != nil {
		return false, "", err
	}
	if round.Status != types.RoundWaiting {
		return false, "round is not joinable", nil
	}

	normalized := common.HexToAddress(wallet).Hex()
	already, err := e.kv.SIsMember(ctx, store.RoundParticipantsKey(roundID), normalized)
	if err != nil {
		return false, "", err
	}
	if already {
		return false, "wallet already joined", nil
	}
	count, err := e.kv.SCard(ctx, store.RoundParticipantsKey(roundID))
	if err != nil {
		return false, "", err
	}
	if int(count) >= round.MaxParticipants {
		return false, "round is full", nil
	}
	return true, "", nil
}

// GetParticipant loads one participant record.
func (e *Engine) GetParticipant(ctx context.Context, roundID, wallet string) (*types.Participant, error) {
	if common.IsHexAddress(wallet) {
		wallet = common.HexToAddress(wallet).Hex()
	}
	raw, found, err := e.kv.Get(ctx, store.ParticipantKey(roundID, wallet))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, types.NotFoundf("wallet %s is not in round %s", wallet, roundID)
	}
	var p types.Participant
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, types.Internalf("corrupt participant record: %v", err)
	}
	return &p, nil
}

// ParticipantLogs returns a participant's trade log ordered oldest first.
func (e *Engine) ParticipantLogs(ctx context.Context, roundID, wallet string) ([]types.TradeLog, error) {
	if common.IsHexAddress(wallet) {
		wallet = common.HexToAddress(wallet).Hex()
	}
	fields, err := e.kv.HGetAll(ctx, store.LogsKey(roundID, wallet))
	if err != nil {
		return nil, err
	}
	logs := make([]types.TradeLog, 0, len(fields))
	for _, raw := range fields {
		var entry types.TradeLog
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		logs = append(logs, entry)
	}
	sortLogs(logs)
	return logs, nil
}

// Participants returns every participant record for a round. The round
// must exist; missing participant records are skipped.
func (e *Engine) Participants(ctx context.Context, roundID string) ([]*types.Participant, error) {
	if _, err := e.loadRound(ctx, roundID); err != nil {
		return nil, err
	}
	return e.participants(ctx, roundID)
}

// ParseStrategy runs strategy text through the model's tolerant parser.
func (e *Engine) ParseStrategy(ctx context.Context, text string) (types.ParsedStrategy, error) {
	if strings.TrimSpace(text) == "" {
		return types.ParsedStrategy{}, types.Validationf("strategy text is required")
	}
	return e.model.ParseStrategy(ctx, text)
}

// Signal fetches a snapshot for symbol and generates a trade signal from
// the given strategy text.
func (e *Engine) Signal(ctx context.Context, symbol, text string) (types.Signal, error) {
	snap, err := e.feed.GetPrice(ctx, symbol)
	if err != nil {
		return types.Signal{}, err
	}
	parsed, err := e.model.ParseStrategy(ctx, text)
	if err != nil {
		return types.Signal{}, err
	}
	return e.model.GenerateSignal(ctx, snap, parsed)
}

// Insight fetches a snapshot and asks the model for prose commentary.
func (e *Engine) Insight(ctx context.Context, symbol, timeframe string) (string, error) {
	snap, err := e.feed.GetPrice(ctx, symbol)
	if err != nil {
		return "", err
	}
	return e.model.Insight(ctx, snap, timeframe)
}

// ————————————————————————————————————————————————————————————————————————
// Persistence helpers
// ————————————————————————————————————————————————————————————————————————

func (e *Engine) loadRound(ctx context.Context, roundID string) (*types.Round, error) {
	raw, found, err := e.kv.Get(ctx, store.RoundKey(roundID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, types.NotFoundf("round %s not found", roundID)
	}
	var round types.Round
	if err := json.Unmarshal([]byte(raw), &round); err != nil {
		return nil, types.Internalf("corrupt round record %s: %v", roundID, err)
	}
	return &round, nil
}

func (e *Engine) saveRound(ctx context.Context, round *types.Round) error {
	body, err := json.Marshal(round)
	if err != nil {
		return types.Internalf("encode round %s: %v", round.ID, err)
	}
	return e.kv.Set(ctx, store.RoundKey(round.ID), string(body), round.Duration+retention)
}

func (e *Engine) saveParticipant(ctx context.Context, round *types.Round, p *types.Participant) error {
	body, err := json.Marshal(p)
	if err != nil {
		return types.Internalf("encode participant %s: %v", p.Wallet, err)
	}
	return e.kv.Set(ctx, store.ParticipantKey(round.ID, p.Wallet), string(body), round.Duration+retention)
}

func (e *Engine) participants(ctx context.Context, roundID string) ([]*types.Participant, error) {
	wallets, err := e.kv.SMembers(ctx, store.RoundParticipantsKey(roundID))
	if err != nil {
		return nil, err
	}
	out := make([]*types.Participant, 0, len(wallets))
	for _, wallet := range wallets {
		p, err := e.GetParticipant(ctx, roundID, wallet)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
