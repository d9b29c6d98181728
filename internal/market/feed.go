// Package market provides live token prices for the arena.
//
// The Feed serves MarketSnapshots for a whitelist of supported symbols. Each
// symbol's last snapshot is cached for a fixed duration; on a miss the feed
// consults a DEX-aggregator endpoint filtered to the target chain (picking
// the pool with the highest liquidity), falls back to a generic spot-price
// endpoint, and finally to a mock snapshot seeded from a hard-coded
// reference price. Mock snapshots carry source=mock so tests and clients can
// detect them.
//
// Concurrent misses for the same symbol are deduplicated: the first caller
// fetches, the rest wait for its result.
package market

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"trade-arena/internal/config"
	"trade-arena/pkg/types"
)

// dexPair is the JSON shape of one pool from the DEX-aggregator endpoint.
// Prices arrive as strings to preserve decimal precision; they are parsed
// exactly and converted to float64 at this edge.
type dexPair struct {
	ChainID     string `json:"chainId"`
	PriceUSD    string `json:"priceUsd"`
	PriceChange struct {
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	MarketCap float64 `json:"marketCap"`
}

type dexResponse struct {
	Pairs []dexPair `json:"pairs"`
}

// spotQuote is the per-id JSON shape of the generic price endpoint.
type spotQuote struct {
	USD          float64 `json:"usd"`
	USD24hChange float64 `json:"usd_24h_change"`
	USD24hVol    float64 `json:"usd_24h_vol"`
	USDMarketCap float64 `json:"usd_market_cap"`
}

type cached struct {
	snap      types.MarketSnapshot
	fetchedAt time.Time
}

// inflight tracks one in-progress fetch so concurrent misses share a result.
type inflight struct {
	done chan struct{}
	snap types.MarketSnapshot
	err  error
}

// Feed resolves symbols to market snapshots with caching and graceful
// degradation. Safe for concurrent use.
type Feed struct {
	dex       *resty.Client
	spot      *resty.Client
	network   string
	cacheTTL  time.Duration
	minLiq    float64
	mockDrift float64
	logger    *slog.Logger

	mu       sync.Mutex
	cache    map[string]cached
	fetching map[string]*inflight
}

// NewFeed creates a price feed for the configured network.
func NewFeed(cfg config.MarketConfig, network string, logger *slog.Logger) *Feed {
	dex := resty.New().
		SetBaseURL(cfg.DEXBaseURL).
		SetTimeout(cfg.RequestTimeout).
		SetRetryCount(1).
		SetRetryWaitTime(500 * time.Millisecond)

	spot := resty.New().
		SetBaseURL(cfg.SpotBaseURL).
		SetTimeout(cfg.RequestTimeout)

	return &Feed{
		dex:       dex,
		spot:      spot,
		network:   network,
		cacheTTL:  cfg.CacheTTL,
		minLiq:    cfg.MinLiquidity,
		mockDrift: cfg.MockDriftPct,
		logger:    logger.With("component", "market"),
		cache:     make(map[string]cached),
		fetching:  make(map[string]*inflight),
	}
}

// IsAllowed reports whether a symbol is on the whitelist.
func (f *Feed) IsAllowed(symbol string) bool {
	_, ok := baseTokens[strings.ToUpper(symbol)]
	return ok
}

// ListAllowed returns the whitelist in sorted order.
func (f *Feed) ListAllowed() []string {
	out := make([]string, 0, len(baseTokens))
	for symbol := range baseTokens {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// GetPrice returns the current snapshot for a symbol. Unknown symbols fail
// with a validation error; every other failure degrades to cached or mock
// data, so a whitelisted symbol always yields a snapshot.
func (f *Feed) GetPrice(ctx context.Context, symbol string) (types.MarketSnapshot, error) {
	symbol = strings.ToUpper(symbol)
	token, ok := baseTokens[symbol]
	if !ok {
		return types.MarketSnapshot{}, types.Validationf("symbol not supported: %s", symbol)
	}

	f.mu.Lock()
	if c, ok := f.cache[symbol]; ok && time.Since(c.fetchedAt) < f.cacheTTL {
		f.mu.Unlock()
		return c.snap, nil
	}
	if fl, ok := f.fetching[symbol]; ok {
		f.mu.Unlock()
		select {
		case <-fl.done:
			return fl.snap, fl.err
		case <-ctx.Done():
			return types.MarketSnapshot{}, ctx.Err()
		}
	}
	fl := &inflight{done: make(chan struct{})}
	f.fetching[symbol] = fl
	f.mu.Unlock()

	snap := f.fetch(ctx, token)

	f.mu.Lock()
	f.cache[symbol] = cached{snap: snap, fetchedAt: time.Now()}
	delete(f.fetching, symbol)
	f.mu.Unlock()

	fl.snap = snap
	close(fl.done)
	return snap, nil
}

// fetch walks the degradation chain: DEX aggregator → spot endpoint → mock.
func (f *Feed) fetch(ctx context.Context, token tokenInfo) types.MarketSnapshot {
	snap, err := f.fetchDEX(ctx, token)
	if err == nil {
		return snap
	}
	f.logger.Warn("dex lookup failed, trying spot", "symbol", token.Symbol, "error", err)

	snap, err = f.fetchSpot(ctx, token)
	if err == nil {
		return snap
	}
	f.logger.Warn("spot lookup failed, serving mock", "symbol", token.Symbol, "error", err)

	return f.mock(token)
}

func (f *Feed) fetchDEX(ctx context.Context, token tokenInfo) (types.MarketSnapshot, error) {
	var result dexResponse
	resp, err := f.dex.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/latest/dex/tokens/" + token.Address)
	if err != nil {
		return types.MarketSnapshot{}, types.PriceUpstream(err)
	}
	if resp.StatusCode() != 200 {
		return types.MarketSnapshot{}, types.PriceUpstream(fmt.Errorf("dex status %d", resp.StatusCode()))
	}

	// Filter to the target chain with sufficient liquidity; pick the deepest pool.
	var best *dexPair
	for i := range result.Pairs {
		p := &result.Pairs[i]
		if p.ChainID != f.network || p.Liquidity.USD < f.minLiq {
			continue
		}
		if best == nil || p.Liquidity.USD > best.Liquidity.USD {
			best = p
		}
	}
	if best == nil {
		return types.MarketSnapshot{}, types.PriceUpstream(fmt.Errorf("no %s pool with liquidity ≥ %.0f", f.network, f.minLiq))
	}

	price, err := decimal.NewFromString(best.PriceUSD)
	if err != nil {
		return types.MarketSnapshot{}, types.PriceUpstream(fmt.Errorf("parse priceUsd %q: %w", best.PriceUSD, err))
	}

	return types.MarketSnapshot{
		Symbol:    token.Symbol,
		Price:     price.InexactFloat64(),
		Change24h: best.PriceChange.H24,
		Volume24h: best.Volume.H24,
		Liquidity: best.Liquidity.USD,
		MarketCap: best.MarketCap,
		Source:    types.SourceDEX,
		Timestamp: time.Now(),
	}, nil
}

func (f *Feed) fetchSpot(ctx context.Context, token tokenInfo) (types.MarketSnapshot, error) {
	var result map[string]spotQuote
	resp, err := f.spot.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":                 token.SpotID,
			"vs_currencies":       "usd",
			"include_24hr_change": "true",
			"include_24hr_vol":    "true",
			"include_market_cap":  "true",
		}).
		SetResult(&result).
		Get("/simple/price")
	if err != nil {
		return types.MarketSnapshot{}, types.PriceUpstream(err)
	}
	if resp.StatusCode() != 200 {
		return types.MarketSnapshot{}, types.PriceUpstream(fmt.Errorf("spot status %d", resp.StatusCode()))
	}

	quote, ok := result[token.SpotID]
	if !ok || quote.USD <= 0 {
		return types.MarketSnapshot{}, types.PriceUpstream(fmt.Errorf("spot quote missing for %s", token.SpotID))
	}

	return types.MarketSnapshot{
		Symbol:    token.Symbol,
		Price:     quote.USD,
		Change24h: quote.USD24hChange,
		Volume24h: quote.USD24hVol,
		MarketCap: quote.USDMarketCap,
		Source:    types.SourceSpot,
		Timestamp: time.Now(),
	}, nil
}

// mock builds a synthetic snapshot: the reference price perturbed within the
// configured drift band.
func (f *Feed) mock(token tokenInfo) types.MarketSnapshot {
	drift := (rand.Float64()*2 - 1) * f.mockDrift
	return types.MarketSnapshot{
		Symbol:    token.Symbol,
		Price:     token.RefPrice * (1 + drift),
		Change24h: drift * 100,
		Volume24h: 1_000_000,
		Liquidity: 500_000,
		Source:    types.SourceMock,
		Timestamp: time.Now(),
	}
}

// GetTrending returns up to limit whitelisted symbols ranked by momentum:
// |24h change| × √volume × liquidity factor, the saturation capped so a very
// deep pool does not drown the movers.
func (f *Feed) GetTrending(ctx context.Context, limit int) ([]types.MarketSnapshot, error) {
	snaps := make([]types.MarketSnapshot, 0, len(baseTokens))
	for _, symbol := range f.ListAllowed() {
		snap, err := f.GetPrice(ctx, symbol)
		if err != nil {
			continue
		}
		snaps = append(snaps, snap)
	}

	sort.Slice(snaps, func(i, j int) bool {
		return trendScore(snaps[i]) > trendScore(snaps[j])
	})

	if limit > 0 && len(snaps) > limit {
		snaps = snaps[:limit]
	}
	return snaps, nil
}

func trendScore(s types.MarketSnapshot) float64 {
	liquidityFactor := math.Min(s.Liquidity/10000.0, 1.0)
	if s.Liquidity == 0 {
		liquidityFactor = 1.0 // spot endpoint carries no liquidity figure
	}
	return math.Abs(s.Change24h) * math.Sqrt(s.Volume24h) * liquidityFactor
}
