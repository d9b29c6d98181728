package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"trade-arena/internal/engine"
	"trade-arena/internal/registry"
	"trade-arena/pkg/types"
)

// response is the uniform envelope: {"success": true, "data": ...} or
// {"success": false, "error": "..."}.
type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	engine   *engine.Engine
	registry *registry.Registry
	market   MarketData
	hub      *Hub
	logger   *slog.Logger
}

func NewHandlers(eng *engine.Engine, reg *registry.Registry, market MarketData, hub *Hub, logger *slog.Logger) *Handlers {
	return &Handlers{
		engine:   eng,
		registry: reg,
		market:   market,
		hub:      hub,
		logger:   logger.With("component", "api-handlers"),
	}
}

// HandleHealth returns a simple liveness response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, response{Success: true, Data: map[string]string{"status": "ok"}})
}

// ————————————————————————————————————————————————————————————————————————
// Rounds
// ————————————————————————————————————————————————————————————————————————

type createRoundRequest struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	DurationSeconds   int64    `json:"duration_seconds"`
	StartingBalance   float64  `json:"starting_balance"`
	MinParticipants   int      `json:"min_participants"`
	MaxParticipants   int      `json:"max_participants"`
	AllowedSymbols    []string `json:"allowed_symbols"`
	IntervalSeconds   int64    `json:"execution_interval_seconds"`
	MaxPositionSize   float64  `json:"max_position_size"`
	TradingFee        float64  `json:"trading_fee"`
	ExpectedProfitPct float64  `json:"expected_profit_pct"`
	AutoStart         bool     `json:"auto_start"`
}

func (h *Handlers) HandleCreateRound(w http.ResponseWriter, r *http.Request) {
	var req createRoundRequest
	if !decodeBody(w, r, &req) {
		return
	}
	round, err := h.engine.CreateRound(r.Context(), engine.CreateRoundParams{
		Title:             req.Title,
		Description:       req.Description,
		Duration:          time.Duration(req.DurationSeconds) * time.Second,
		StartingBalance:   req.StartingBalance,
		MinParticipants:   req.MinParticipants,
		MaxParticipants:   req.MaxParticipants,
		AllowedSymbols:    req.AllowedSymbols,
		ExecutionInterval: time.Duration(req.IntervalSeconds) * time.Second,
		MaxPositionSize:   req.MaxPositionSize,
		TradingFee:        req.TradingFee,
		ExpectedProfitPct: req.ExpectedProfitPct,
		AutoStart:         req.AutoStart,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{Success: true, Data: round})
}

func (h *Handlers) HandleCreateRoundFromPrompt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	round, err := h.engine.CreateRoundFromPrompt(r.Context(), req.Prompt)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{Success: true, Data: round})
}

func (h *Handlers) HandleListRounds(w http.ResponseWriter, r *http.Request) {
	bucket := r.URL.Query().Get("status")
	if bucket == "" {
		bucket = "active"
	}
	rounds, err := h.engine.ListRounds(r.Context(), bucket)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: rounds})
}

func (h *Handlers) HandleGetRound(w http.ResponseWriter, r *http.Request) {
	round, err := h.engine.GetRound(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: round})
}

type joinRequest struct {
	Wallet            string `json:"wallet"`
	Username          string `json:"username"`
	StrategyText      string `json:"strategy_text"`
	StrategyID        int64  `json:"strategy_id"`
	LicenseStrategyID int64  `json:"license_strategy_id"`
}

func (h *Handlers) HandleJoinRound(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.engine.JoinRound(r.Context(), engine.JoinParams{
		RoundID:           r.PathValue("id"),
		Wallet:            req.Wallet,
		Username:          req.Username,
		StrategyText:      req.StrategyText,
		StrategyID:        req.StrategyID,
		LicenseStrategyID: req.LicenseStrategyID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{Success: true, Data: p})
}

func (h *Handlers) HandleStartRound(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.StartRound(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true})
}

func (h *Handlers) HandleEndRound(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cancel bool `json:"cancel"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.engine.EndRound(r.Context(), r.PathValue("id"), req.Cancel); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true})
}

func (h *Handlers) HandleCanJoin(w http.ResponseWriter, r *http.Request) {
	ok, reason, err := h.engine.CanJoin(r.Context(), r.PathValue("id"), r.URL.Query().Get("wallet"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: map[string]any{
		"can_join": ok,
		"reason":   reason,
	}})
}

func (h *Handlers) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	var (
		board []types.LeaderboardEntry
		err   error
	)
	if r.URL.Query().Get("enhanced") == "true" {
		board, err = h.engine.EnhancedLeaderboard(r.Context(), r.PathValue("id"), limit)
	} else {
		board, err = h.engine.Leaderboard(r.Context(), r.PathValue("id"), limit)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: board})
}

func (h *Handlers) HandleGetParticipant(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.GetParticipant(r.Context(), r.PathValue("id"), r.PathValue("wallet"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: p})
}

func (h *Handlers) HandleParticipants(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Participants(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: list})
}

func (h *Handlers) HandleParticipantLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.engine.ParticipantLogs(r.Context(), r.PathValue("id"), r.PathValue("wallet"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: logs})
}

// ————————————————————————————————————————————————————————————————————————
// Strategy marketplace
// ————————————————————————————————————————————————————————————————————————

type registerStrategyRequest struct {
	Owner       string   `json:"owner"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Text        string   `json:"text"`
	Tags        []string `json:"tags"`
	RoyaltyPct  float64  `json:"royalty_pct"`
}

func (h *Handlers) HandleRegisterStrategy(w http.ResponseWriter, r *http.Request) {
	var req registerStrategyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s, err := h.registry.Register(r.Context(), req.Owner, req.Name, req.Description, req.Text, req.Tags, req.RoyaltyPct)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{Success: true, Data: s})
}

// HandleListStrategies serves three views: ?owner= lists a wallet's
// strategies, ?q= searches, otherwise the verified top list.
func (h *Handlers) HandleListStrategies(w http.ResponseWriter, r *http.Request) {
	var (
		list []*types.Strategy
		err  error
	)
	switch {
	case r.URL.Query().Get("owner") != "":
		list, err = h.registry.ListByOwner(r.Context(), r.URL.Query().Get("owner"))
	case r.URL.Query().Get("q") != "":
		list, err = h.registry.Search(r.Context(), r.URL.Query().Get("q"))
	default:
		list, err = h.registry.ListTop(r.Context(), queryInt(r, "limit", 20))
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: list})
}

func (h *Handlers) HandleGetStrategy(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, types.Validationf("invalid strategy id"))
		return
	}
	s, err := h.registry.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: s})
}

func (h *Handlers) HandleLicense(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, types.Validationf("invalid strategy id"))
		return
	}
	var req struct {
		Wallet  string `json:"wallet"`
		RoundID string `json:"round_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	lic, err := h.registry.License(r.Context(), req.Wallet, id, req.RoundID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{Success: true, Data: lic})
}

func (h *Handlers) HandleParseStrategy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	parsed, err := h.engine.ParseStrategy(r.Context(), req.Text)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: parsed})
}

// ————————————————————————————————————————————————————————————————————————
// Market data
// ————————————————————————————————————————————————————————————————————————

func (h *Handlers) HandleSymbols(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, response{Success: true, Data: h.market.ListAllowed()})
}

func (h *Handlers) HandleTrending(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.market.GetTrending(r.Context(), queryInt(r, "limit", 5))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: snaps})
}

func (h *Handlers) HandlePrice(w http.ResponseWriter, r *http.Request) {
	snap, err := h.market.GetPrice(r.Context(), r.PathValue("symbol"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: snap})
}

func (h *Handlers) HandleSignal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Text == "" {
		h.writeError(w, types.Validationf("strategy text is required"))
		return
	}
	sig, err := h.engine.Signal(r.Context(), r.PathValue("symbol"), req.Text)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: sig})
}

func (h *Handlers) HandleInsight(w http.ResponseWriter, r *http.Request) {
	timeframe := r.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = "short"
	}
	text, err := h.engine.Insight(r.Context(), r.PathValue("symbol"), timeframe)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: map[string]string{"insight": text}})
}

// ————————————————————————————————————————————————————————————————————————
// Plumbing
// ————————————————————————————————————————————————————————————————————————

// decodeBody parses a JSON request body. An empty body decodes to the zero
// value so bodiless commands stay valid.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		writeJSON(w, http.StatusBadRequest, response{Success: false, Error: "invalid request body"})
		return false
	}
	return true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := statusFor(types.KindOf(err))
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, response{Success: false, Error: err.Error()})
}

func statusFor(kind types.ErrorKind) int {
	switch kind {
	case types.KindValidation:
		return http.StatusBadRequest
	case types.KindNotFound:
		return http.StatusNotFound
	case types.KindConflict:
		return http.StatusConflict
	case types.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	case types.KindLLMUpstream, types.KindPriceUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
