// Trade Arena — a multi-player, time-boxed trading simulation engine for
// Base ecosystem tokens, driven by LLM-parsed strategies.
//
// Architecture:
//
//	main.go              — entry point: loads config, wires components, waits for SIGINT/SIGTERM
//	engine/engine.go     — round manager: lifecycle, join protocol, settlement
//	engine/scheduler.go  — per-round execution task: price → signal → trade → log each tick
//	portfolio/           — virtual portfolio accounting: sized buys, full sells, revaluation
//	registry/            — strategy marketplace: register, license, attribute outcomes
//	llm/                 — serialized chat-completion client with tolerant JSON repair
//	market/feed.go       — DEX → spot → mock price chain with caching and a trending rank
//	store/               — Redis-backed KV with an in-memory permissive-mode fallback
//	events/              — in-process event bus feeding the WebSocket stream
//	api/                 — HTTP commands and the round event stream
//
// How a round plays out:
//
//	A round is created (directly or from a prompt), wallets join with a
//	strategy — inline prose, one they own, or one they licensed — and once
//	started the engine periodically asks the LLM for a signal per
//	participant, executes it against a virtual portfolio at live prices,
//	and streams the leaderboard. At the deadline the round settles:
//	standings freeze, licensed strategies earn royalties on profit, and
//	outcomes feed back into marketplace stats.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"trade-arena/internal/api"
	"trade-arena/internal/config"
	"trade-arena/internal/engine"
	"trade-arena/internal/events"
	"trade-arena/internal/llm"
	"trade-arena/internal/market"
	"trade-arena/internal/registry"
	"trade-arena/internal/store"
)

func main() {
	// Optional .env for local development; real deployments set env directly.
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if p := os.Getenv("ARENA_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	kv := openStore(cfg.Store, logger)
	defer kv.Close()

	feed := market.NewFeed(cfg.Market, cfg.Network, logger)
	model := llm.NewClient(cfg.LLM, logger)
	defer model.Close()

	bus := events.NewBus()
	reg := registry.New(kv, model, logger)
	eng := engine.New(kv, feed, model, reg, bus, cfg.Rounds, logger)

	server := api.NewServer(cfg.Server, eng, reg, feed, bus, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error("api server failed", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("trade arena started",
		"addr", fmt.Sprintf("http://localhost:%d", cfg.Server.Port),
		"network", cfg.Network,
		"symbols", feed.ListAllowed(),
		"tick_interval", cfg.Rounds.ExecutionInterval,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	if err := server.Stop(); err != nil {
		logger.Error("failed to stop api server", "error", err)
	}
	eng.Stop()
}

// openStore connects to the configured Redis instance, degrading per the
// store's failure policy. With no store configured the arena runs fully
// in memory.
func openStore(cfg config.StoreConfig, logger *slog.Logger) store.KV {
	if cfg.URL == "" && cfg.Host == "" {
		logger.Warn("no external store configured, state is in-memory only")
		return store.NewMemory()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	primary, err := store.OpenRedis(ctx, cfg)
	if err != nil {
		if !cfg.Permissive {
			logger.Error("store unreachable in strict mode", "error", err)
			os.Exit(1)
		}
		logger.Warn("store unreachable, running in-memory only", "error", err)
		return store.NewMemory()
	}
	return store.NewFallback(primary, cfg.Permissive, logger)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
