package engine

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"trade-arena/internal/events"
	"trade-arena/internal/portfolio"
	"trade-arena/internal/store"
	"trade-arena/pkg/types"
)

// maxFanOut caps how many participants execute concurrently within one tick
// regardless of configuration.
const maxFanOut = 10

// maxCandidates caps how many symbols one participant evaluates per tick.
const maxCandidates = 3

// runTicks is a round's execution task. Fixed-delay scheduling: each tick
// runs to completion, then the loop sleeps the full interval, so a slow tick
// delays the next instead of overlapping it.
func (e *Engine) runTicks(ctx context.Context, roundID string, interval time.Duration) {
	defer e.wg.Done()

	for {
		if !e.executeTick(ctx, roundID) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// executeTick runs one execution pass over every active participant.
// Returns false when the round is over and the task should stop.
func (e *Engine) executeTick(ctx context.Context, roundID string) bool {
	round, err := e.loadRound(ctx, roundID)
	if err != nil {
		if types.IsKind(err, types.KindNotFound) {
			return false
		}
		e.logger.Warn("tick skipped, round unreadable", "round_id", roundID, "error", err)
		return true
	}
	if round.Status != types.RoundActive {
		return false
	}
	if !round.EndAt.IsZero() && !time.Now().Before(round.EndAt) {
		if err := e.EndRound(ctx, roundID, false); err != nil {
			e.logger.Warn("round end failed", "round_id", roundID, "error", err)
		}
		return false
	}

	participants, err := e.participants(ctx, roundID)
	if err != nil {
		e.logger.Warn("tick skipped, participants unreadable", "round_id", roundID, "error", err)
		return true
	}

	workers := e.cfg.MaxConcurrency
	if workers <= 0 || workers > maxFanOut {
		workers = maxFanOut
	}
	sem := make(chan struct{}, workers)
	results := make(chan tickResult, len(participants))

	launched := 0
	for _, p := range participants {
		if !p.Active {
			continue
		}
		launched++
		sem <- struct{}{}
		go func(p *types.Participant) {
			defer func() { <-sem }()
			results <- e.executeParticipant(ctx, round, p)
		}(p)
	}

	var trades int
	var volume float64
	for range launched {
		res := <-results
		trades += res.trades
		volume += res.volume
	}

	if trades > 0 {
		e.addRoundStats(ctx, roundID, trades, volume)
	}

	// The round may have ended while this tick was in flight; stale standings
	// must not go out after the final ones.
	round, err = e.loadRound(ctx, roundID)
	if err != nil || round.Status != types.RoundActive {
		return false
	}
	if board, err := e.Leaderboard(ctx, roundID, 0); err == nil {
		e.bus.Publish(events.TopicLeaderboardUpdate, roundID, board)
	}
	return true
}

type tickResult struct {
	trades int
	volume float64
}

// executeParticipant runs one participant's candidate symbols through the
// price → signal → trade → log sequence, each symbol in order, then
// revalues the portfolio once and persists it.
func (e *Engine) executeParticipant(ctx context.Context, round *types.Round, p *types.Participant) tickResult {
	symbols := candidateSymbols(p.Binding.Parsed, round.Settings.AllowedSymbols, e.feed)
	if len(symbols) == 0 {
		return tickResult{}
	}

	var result tickResult
	prices := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		log := types.TradeLog{
			Timestamp: time.Now().UnixMilli(),
			Symbol:    symbol,
			Action:    types.ActionHold,
		}

		snap, err := e.feed.GetPrice(ctx, symbol)
		if err != nil {
			log.Reason = "price unavailable"
			e.writeLog(ctx, round.ID, p.Wallet, log)
			e.logger.Warn("price fetch failed", "round_id", round.ID, "symbol", symbol, "error", err)
			continue
		}
		prices[symbol] = snap.Price

		sig, err := e.model.GenerateSignal(ctx, snap, p.Binding.Parsed)
		if err != nil {
			log.Reason = "signal unavailable"
			log.Price = snap.Price
			e.writeLog(ctx, round.ID, p.Wallet, log)
			continue
		}

		log.Action = sig.Action
		log.Price = snap.Price
		log.Confidence = sig.Confidence
		log.Reason = sig.Reason

		switch sig.Action {
		case types.ActionBuy:
			if _, held := p.Portfolio.Positions[symbol]; held {
				// Already long; re-buying every tick would just bleed fees.
				log.Reason = "position already open"
			} else if value, ok := portfolio.ApplyBuy(&p.Portfolio, round.Settings, symbol, snap.Price, sig.Confidence); ok {
				log.Executed = true
				result.trades++
				result.volume += value
			}
		case types.ActionSell:
			if value, ok := portfolio.ApplySell(&p.Portfolio, round.Settings, symbol, snap.Price); ok {
				log.Executed = true
				result.trades++
				result.volume += value
			}
		}

		e.writeLog(ctx, round.ID, p.Wallet, log)
	}

	// Held symbols outside this tick's candidates still need a mark;
	// these usually hit the feed cache.
	for symbol := range p.Portfolio.Positions {
		if _, ok := prices[symbol]; ok {
			continue
		}
		if held, err := e.feed.GetPrice(ctx, symbol); err == nil {
			prices[symbol] = held.Price
		}
	}

	portfolio.Revalue(&p.Portfolio, prices, round.StartingBalance)
	p.UpdatedAt = time.Now()
	if err := e.saveParticipant(ctx, round, p); err != nil {
		e.logger.Warn("participant not persisted", "round_id", round.ID, "wallet", p.Wallet, "error", err)
		return result
	}
	if err := e.kv.ZAdd(ctx, store.LeaderboardKey(round.ID), p.Portfolio.PnLPercent, p.Wallet); err != nil {
		e.logger.Warn("leaderboard not updated", "round_id", round.ID, "wallet", p.Wallet, "error", err)
	}
	return result
}

// candidateSymbols picks up to three of the strategy's candidate symbols,
// restricted to the round's whitelist and the feed. Candidates outside the
// whitelist are dropped; an empty intersection falls back to the whitelist.
func candidateSymbols(parsed types.ParsedStrategy, allowed []string, feed PriceFeed) []string {
	allowedSet := make(map[string]bool, len(allowed))
	for _, s := range allowed {
		allowedSet[s] = true
	}

	var candidates []string
	for _, s := range parsed.CandidateSymbols() {
		s = strings.ToUpper(s)
		if allowedSet[s] && feed.IsAllowed(s) {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		candidates = allowed
	}
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates
}

func (e *Engine) writeLog(ctx context.Context, roundID, wallet string, entry types.TradeLog) {
	body, err := json.Marshal(entry)
	if err != nil {
		return
	}
	// Candidates evaluated in the same millisecond must not overwrite
	// each other.
	field := strconv.FormatInt(entry.Timestamp, 10) + ":" + entry.Symbol
	if err := e.kv.HSet(ctx, store.LogsKey(roundID, wallet), field, string(body)); err != nil {
		e.logger.Warn("trade log not written", "round_id", roundID, "wallet", wallet, "error", err)
	}
}

// addRoundStats folds one tick's executed trades into the round record
// under the slot lock.
func (e *Engine) addRoundStats(ctx context.Context, roundID string, trades int, volume float64) {
	slot := e.slot(roundID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	round, err := e.loadRound(ctx, roundID)
	if err != nil {
		return
	}
	round.Stats.TotalTrades += trades
	round.Stats.TotalVolume += volume
	if err := e.saveRound(ctx, round); err != nil {
		e.logger.Warn("round stats not persisted", "round_id", roundID, "error", err)
	}
}

func sortLogs(logs []types.TradeLog) {
	sort.Slice(logs, func(i, j int) bool { return logs[i].Timestamp < logs[j].Timestamp })
}
