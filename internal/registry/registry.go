// Package registry is the strategy marketplace: wallets register prose
// strategies, the LLM distills them into structured form, and other wallets
// license them per round against a royalty captured at license time.
package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"trade-arena/internal/store"
	"trade-arena/pkg/types"
)

const (
	minRoyaltyPct = 5.0
	maxRoyaltyPct = 50.0

	strategyTTL = 365 * 24 * time.Hour
	licenseTTL  = 30 * 24 * time.Hour
)

// Parser distills prose strategies into structured form.
type Parser interface {
	ParseStrategy(ctx context.Context, text string) (types.ParsedStrategy, error)
}

// Registry owns strategy and license records in the store.
type Registry struct {
	kv     store.KV
	parser Parser
	logger *slog.Logger
}

func New(kv store.KV, parser Parser, logger *slog.Logger) *Registry {
	return &Registry{kv: kv, parser: parser, logger: logger.With("component", "registry")}
}

// Register validates, parses, and persists a new strategy owned by wallet.
func (r *Registry) Register(ctx context.Context, owner, name, description, text string, tags []string, royaltyPct float64) (*types.Strategy, error) {
	if strings.TrimSpace(text) == "" {
		return nil, types.Validationf("strategy text is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, types.Validationf("strategy name is required")
	}
	if royaltyPct < minRoyaltyPct || royaltyPct > maxRoyaltyPct {
		return nil, types.Validationf("royalty must be between %.0f and %.0f percent", minRoyaltyPct, maxRoyaltyPct)
	}

	parsed, err := r.parser.ParseStrategy(ctx, text)
	if err != nil {
		return nil, err
	}

	id, err := r.kv.Incr(ctx, store.StrategyCounterKey)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	s := &types.Strategy{
		ID:          id,
		Owner:       owner,
		Text:        text,
		Parsed:      parsed,
		RoyaltyPct:  royaltyPct,
		Name:        name,
		Description: description,
		Tags:        tags,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.save(ctx, s); err != nil {
		return nil, err
	}
	if err := r.kv.SAdd(ctx, store.UserStrategiesKey(owner), strconv.FormatInt(id, 10)); err != nil {
		return nil, err
	}

	r.logger.Info("strategy registered", "id", id, "owner", owner, "royalty_pct", royaltyPct)
	return s, nil
}

// Get loads one strategy by id.
func (r *Registry) Get(ctx context.Context, id int64) (*types.Strategy, error) {
	raw, found, err := r.kv.Get(ctx, store.StrategyKey(id))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, types.NotFoundf("strategy %d not found", id)
	}
	var s types.Strategy
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, types.Internalf("corrupt strategy record %d: %v", id, err)
	}
	return &s, nil
}

// ListByOwner returns all strategies registered by a wallet.
func (r *Registry) ListByOwner(ctx context.Context, wallet string) ([]*types.Strategy, error) {
	ids, err := r.kv.SMembers(ctx, store.UserStrategiesKey(wallet))
	if err != nil {
		return nil, err
	}
	out := make([]*types.Strategy, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		s, err := r.Get(ctx, id)
		if err != nil {
			continue // expired records leave stale set members behind
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListTop returns active, verified strategies ranked by win rate weighted
// by adoption, best first.
func (r *Registry) ListTop(ctx context.Context, limit int) ([]*types.Strategy, error) {
	all, err := r.listAll(ctx)
	if err != nil {
		return nil, err
	}

	ranked := all[:0]
	for _, s := range all {
		if s.Active && s.Verified {
			ranked = append(ranked, s)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		si := ranked[i].Stats.WinRate * float64(ranked[i].Stats.TotalUses)
		sj := ranked[j].Stats.WinRate * float64(ranked[j].Stats.TotalUses)
		if si != sj {
			return si > sj
		}
		return ranked[i].ID < ranked[j].ID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// Search returns active strategies whose name, description, tags, or text
// contain the query, case-insensitively.
func (r *Registry) Search(ctx context.Context, query string) ([]*types.Strategy, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, types.Validationf("search query is required")
	}

	all, err := r.listAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []*types.Strategy
	for _, s := range all {
		if s.Active && matches(s, q) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateStats folds one round outcome into a strategy's aggregate stats.
func (r *Registry) UpdateStats(ctx context.Context, id int64, outcome types.StrategyOutcome) error {
	s, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	st := &s.Stats
	st.TotalUses++
	st.TotalTrades += outcome.Trades
	st.TotalEarnings += outcome.Earnings
	if outcome.Win {
		st.SuccessfulTrades++
	}
	st.WinRate = float64(st.SuccessfulTrades) / float64(st.TotalUses) * 100
	if outcome.ReturnPct > st.BestPerformance {
		st.BestPerformance = outcome.ReturnPct
	}
	st.AverageReturn += (outcome.ReturnPct - st.AverageReturn) / float64(st.TotalUses)

	s.UpdatedAt = time.Now()
	return r.save(ctx, s)
}

// License grants licensee the use of a strategy for one round. The royalty
// percent is captured from the strategy at license time. One license per
// (licensee, round); owners cannot license their own strategies.
func (r *Registry) License(ctx context.Context, licensee string, strategyID int64, roundID string) (*types.License, error) {
	s, err := r.Get(ctx, strategyID)
	if err != nil {
		return nil, err
	}
	if !s.Active {
		return nil, types.Validationf("strategy %d is not active", strategyID)
	}
	if strings.EqualFold(s.Owner, licensee) {
		return nil, types.Validationf("cannot license your own strategy")
	}

	key := store.LicenseKey(licensee, roundID)
	exists, err := r.kv.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, types.Conflictf("wallet %s already holds a license for round %s", licensee, roundID)
	}

	lic := &types.License{
		Licensee:   licensee,
		StrategyID: strategyID,
		RoundID:    roundID,
		Owner:      s.Owner,
		RoyaltyPct: s.RoyaltyPct,
		Active:     true,
		CreatedAt:  time.Now(),
	}
	body, err := json.Marshal(lic)
	if err != nil {
		return nil, types.Internalf("encode license: %v", err)
	}
	if err := r.kv.Set(ctx, key, string(body), licenseTTL); err != nil {
		return nil, err
	}
	if err := r.kv.SAdd(ctx, store.StrategyLicensesKey(strategyID), licensee); err != nil {
		return nil, err
	}

	r.logger.Info("strategy licensed",
		"strategy_id", strategyID, "licensee", licensee, "round_id", roundID, "royalty_pct", lic.RoyaltyPct)
	return lic, nil
}

// GetLicense loads a wallet's license for one round.
func (r *Registry) GetLicense(ctx context.Context, wallet, roundID string) (*types.License, error) {
	raw, found, err := r.kv.Get(ctx, store.LicenseKey(wallet, roundID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, types.NotFoundf("no license for wallet %s in round %s", wallet, roundID)
	}
	var lic types.License
	if err := json.Unmarshal([]byte(raw), &lic); err != nil {
		return nil, types.Internalf("corrupt license record: %v", err)
	}
	return &lic, nil
}

// RecordRoyalty adds earned royalties to an existing license record.
func (r *Registry) RecordRoyalty(ctx context.Context, wallet, roundID string, amount float64) error {
	lic, err := r.GetLicense(ctx, wallet, roundID)
	if err != nil {
		return err
	}
	lic.ProfitShared += amount
	body, err := json.Marshal(lic)
	if err != nil {
		return types.Internalf("encode license: %v", err)
	}
	return r.kv.Set(ctx, store.LicenseKey(wallet, roundID), string(body), licenseTTL)
}

// SetStatus lets the owner activate or deactivate a strategy.
func (r *Registry) SetStatus(ctx context.Context, id int64, owner string, active bool) error {
	s, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if !strings.EqualFold(s.Owner, owner) {
		return types.Validationf("only the owner can change strategy status")
	}
	s.Active = active
	s.UpdatedAt = time.Now()
	return r.save(ctx, s)
}

// SetVerified marks a strategy as curator-verified.
func (r *Registry) SetVerified(ctx context.Context, id int64, verified bool) error {
	s, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	s.Verified = verified
	s.UpdatedAt = time.Now()
	return r.save(ctx, s)
}

func (r *Registry) save(ctx context.Context, s *types.Strategy) error {
	body, err := json.Marshal(s)
	if err != nil {
		return types.Internalf("encode strategy %d: %v", s.ID, err)
	}
	return r.kv.Set(ctx, store.StrategyKey(s.ID), string(body), strategyTTL)
}

// listAll scans strategy records. Counter and license keys share the
// strategy prefix, so only keys whose suffix is a bare integer count.
func (r *Registry) listAll(ctx context.Context) ([]*types.Strategy, error) {
	keys, err := r.kv.Keys(ctx, "strategy:*")
	if err != nil {
		return nil, err
	}

	var out []*types.Strategy
	for _, key := range keys {
		id, err := strconv.ParseInt(strings.TrimPrefix(key, "strategy:"), 10, 64)
		if err != nil {
			continue
		}
		s, err := r.Get(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func matches(s *types.Strategy, q string) bool {
	if strings.Contains(strings.ToLower(s.Name), q) ||
		strings.Contains(strings.ToLower(s.Description), q) ||
		strings.Contains(strings.ToLower(s.Text), q) {
		return true
	}
	for _, tag := range s.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
