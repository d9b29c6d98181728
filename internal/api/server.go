// Package api exposes the arena over HTTP and WebSocket: round lifecycle
// commands, the strategy marketplace, market data reads, and a push stream
// fed by the engine's event bus.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"trade-arena/internal/config"
	"trade-arena/internal/engine"
	"trade-arena/internal/events"
	"trade-arena/internal/registry"
	"trade-arena/pkg/types"
)

// MarketData is the price-feed surface the API exposes directly.
type MarketData interface {
	GetPrice(ctx context.Context, symbol string) (types.MarketSnapshot, error)
	GetTrending(ctx context.Context, limit int) ([]types.MarketSnapshot, error)
	ListAllowed() []string
}

// Server runs the HTTP/WebSocket surface.
type Server struct {
	cfg    config.ServerConfig
	hub    *Hub
	bus    *events.Bus
	server *http.Server
	logger *slog.Logger
	unsub  func()
}

func NewServer(cfg config.ServerConfig, eng *engine.Engine, reg *registry.Registry, market MarketData, bus *events.Bus, logger *slog.Logger) *Server {
	hub := NewHub(cfg.AllowedOrigins, logger)
	handlers := NewHandlers(eng, reg, market, hub, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handlers.HandleHealth)

	mux.HandleFunc("POST /api/rounds", handlers.HandleCreateRound)
	mux.HandleFunc("POST /api/rounds/prompt", handlers.HandleCreateRoundFromPrompt)
	mux.HandleFunc("GET /api/rounds", handlers.HandleListRounds)
	mux.HandleFunc("GET /api/rounds/{id}", handlers.HandleGetRound)
	mux.HandleFunc("POST /api/rounds/{id}/join", handlers.HandleJoinRound)
	mux.HandleFunc("POST /api/rounds/{id}/start", handlers.HandleStartRound)
	mux.HandleFunc("POST /api/rounds/{id}/end", handlers.HandleEndRound)
	mux.HandleFunc("GET /api/rounds/{id}/can-join", handlers.HandleCanJoin)
	mux.HandleFunc("GET /api/rounds/{id}/leaderboard", handlers.HandleLeaderboard)
	mux.HandleFunc("GET /api/rounds/{id}/participants", handlers.HandleParticipants)
	mux.HandleFunc("GET /api/rounds/{id}/participants/{wallet}", handlers.HandleGetParticipant)
	mux.HandleFunc("GET /api/rounds/{id}/logs/{wallet}", handlers.HandleParticipantLogs)

	mux.HandleFunc("POST /api/strategies", handlers.HandleRegisterStrategy)
	mux.HandleFunc("GET /api/strategies", handlers.HandleListStrategies)
	mux.HandleFunc("GET /api/strategies/{id}", handlers.HandleGetStrategy)
	mux.HandleFunc("POST /api/strategies/{id}/license", handlers.HandleLicense)
	mux.HandleFunc("POST /api/strategies/parse", handlers.HandleParseStrategy)

	mux.HandleFunc("GET /api/market/symbols", handlers.HandleSymbols)
	mux.HandleFunc("GET /api/market/trending", handlers.HandleTrending)
	mux.HandleFunc("GET /api/market/price/{symbol}", handlers.HandlePrice)
	mux.HandleFunc("POST /api/market/signal/{symbol}", handlers.HandleSignal)
	mux.HandleFunc("GET /api/market/insight/{symbol}", handlers.HandleInsight)

	mux.HandleFunc("GET /ws", handlers.HandleWebSocket)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:    cfg,
		hub:    hub,
		bus:    bus,
		server: server,
		logger: logger.With("component", "api-server"),
	}
}

// Start runs the hub, bridges bus events onto it, and serves until Stop.
func (s *Server) Start() error {
	go s.hub.Run()
	s.unsub = s.bus.Subscribe(s.hub.BroadcastEvent)

	s.logger.Info("api server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.logger.Info("stopping api server")
	if s.unsub != nil {
		s.unsub()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
