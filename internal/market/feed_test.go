package market

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"trade-arena/internal/config"
	"trade-arena/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testFeed(dexURL, spotURL string) *Feed {
	cfg := config.MarketConfig{
		DEXBaseURL:     dexURL,
		SpotBaseURL:    spotURL,
		CacheTTL:       30 * time.Second,
		MinLiquidity:   10000,
		RequestTimeout: 2 * time.Second,
		MockDriftPct:   0.05,
	}
	return NewFeed(cfg, "base", testLogger())
}

const dexBody = `{"pairs":[
	{"chainId":"base","priceUsd":"3000.50","priceChange":{"h24":1.2},"volume":{"h24":5000000},"liquidity":{"usd":2000000},"marketCap":360000000000},
	{"chainId":"base","priceUsd":"2999.00","priceChange":{"h24":1.1},"volume":{"h24":100000},"liquidity":{"usd":50000},"marketCap":0},
	{"chainId":"ethereum","priceUsd":"3010.00","priceChange":{"h24":1.3},"volume":{"h24":9000000},"liquidity":{"usd":9000000},"marketCap":0}
]}`

func TestGetPricePicksDeepestPoolOnTargetChain(t *testing.T) {
	t.Parallel()
	dex := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, dexBody)
	}))
	defer dex.Close()

	f := testFeed(dex.URL, "http://127.0.0.1:0")

	snap, err := f.GetPrice(context.Background(), "eth")
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if snap.Price != 3000.50 {
		t.Errorf("Price = %v, want 3000.50 (deepest base pool)", snap.Price)
	}
	if snap.Source != types.SourceDEX {
		t.Errorf("Source = %s, want dex", snap.Source)
	}
	if snap.Symbol != "ETH" {
		t.Errorf("Symbol = %s, want normalized ETH", snap.Symbol)
	}
}

func TestGetPriceUnknownSymbol(t *testing.T) {
	t.Parallel()
	f := testFeed("http://127.0.0.1:0", "http://127.0.0.1:0")

	_, err := f.GetPrice(context.Background(), "DOGE")
	if !types.IsKind(err, types.KindValidation) {
		t.Errorf("error kind = %v, want validation", types.KindOf(err))
	}
}

func TestGetPriceFallsBackToSpot(t *testing.T) {
	t.Parallel()
	dex := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer dex.Close()
	spot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"ethereum":{"usd":2990,"usd_24h_change":-0.8,"usd_24h_vol":4000000,"usd_market_cap":359000000000}}`)
	}))
	defer spot.Close()

	f := testFeed(dex.URL, spot.URL)

	snap, err := f.GetPrice(context.Background(), "ETH")
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if snap.Source != types.SourceSpot {
		t.Errorf("Source = %s, want spot", snap.Source)
	}
	if snap.Price != 2990 {
		t.Errorf("Price = %v, want 2990", snap.Price)
	}
}

func TestGetPriceDegradesToMock(t *testing.T) {
	t.Parallel()
	// Both upstreams down: unroutable addresses.
	f := testFeed("http://127.0.0.1:0", "http://127.0.0.1:0")

	snap, err := f.GetPrice(context.Background(), "TOSHI")
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if snap.Source != types.SourceMock {
		t.Errorf("Source = %s, want mock", snap.Source)
	}
	ref := baseTokens["TOSHI"].RefPrice
	if snap.Price < ref*0.95 || snap.Price > ref*1.05 {
		t.Errorf("mock price %v outside ±5%% of reference %v", snap.Price, ref)
	}
}

func TestGetPriceServesCacheWithinTTL(t *testing.T) {
	t.Parallel()
	var hits atomic.Int64
	dex := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, dexBody)
	}))
	defer dex.Close()

	f := testFeed(dex.URL, "http://127.0.0.1:0")
	ctx := context.Background()

	first, _ := f.GetPrice(ctx, "ETH")
	second, _ := f.GetPrice(ctx, "ETH")

	if hits.Load() != 1 {
		t.Errorf("upstream hits = %d, want 1 (second call cached)", hits.Load())
	}
	if first.Timestamp != second.Timestamp {
		t.Error("cached snapshot differs from first fetch")
	}
}

func TestGetPriceDeduplicatesConcurrentMisses(t *testing.T) {
	t.Parallel()
	var hits atomic.Int64
	release := make(chan struct{})
	dex := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, dexBody)
	}))
	defer dex.Close()

	f := testFeed(dex.URL, "http://127.0.0.1:0")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.GetPrice(ctx, "ETH"); err != nil {
				t.Errorf("GetPrice: %v", err)
			}
		}()
	}

	time.Sleep(100 * time.Millisecond) // let all callers reach the miss
	close(release)
	wg.Wait()

	if hits.Load() != 1 {
		t.Errorf("upstream hits = %d, want 1 (concurrent misses deduplicated)", hits.Load())
	}
}

func TestGetTrendingRanksAndLimits(t *testing.T) {
	t.Parallel()
	// All upstreams down: every snapshot is a mock, still ranked and limited.
	f := testFeed("http://127.0.0.1:0", "http://127.0.0.1:0")

	snaps, err := f.GetTrending(context.Background(), 3)
	if err != nil {
		t.Fatalf("GetTrending: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("got %d snapshots, want 3", len(snaps))
	}
	for i := 1; i < len(snaps); i++ {
		if trendScore(snaps[i]) > trendScore(snaps[i-1]) {
			t.Errorf("snapshots not ranked: score[%d] > score[%d]", i, i-1)
		}
	}
}

func TestListAllowed(t *testing.T) {
	t.Parallel()
	f := testFeed("http://127.0.0.1:0", "http://127.0.0.1:0")

	allowed := f.ListAllowed()
	if len(allowed) != len(baseTokens) {
		t.Fatalf("ListAllowed returned %d symbols, want %d", len(allowed), len(baseTokens))
	}
	if !f.IsAllowed("toshi") {
		t.Error("IsAllowed should be case-insensitive")
	}
	if f.IsAllowed("SHIB") {
		t.Error("IsAllowed(SHIB) = true, want false")
	}
}
