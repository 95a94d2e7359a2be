package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"solsettle/pkg/clmm"
	"solsettle/pkg/engine"
	"solsettle/pkg/subscription"
)

type server struct {
	log     *zap.Logger
	engine  *engine.Engine
	hub     *subscription.Hub
	limiter *rate.Limiter
	start   time.Time
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /pools", s.handleListPools)
	mux.HandleFunc("POST /pools", s.limited(s.handleInitializePool))
	mux.HandleFunc("GET /pools/{address}", s.handleGetPool)
	mux.HandleFunc("POST /pools/{address}/mint", s.limited(s.handleMint))
	mux.HandleFunc("POST /pools/{address}/burn", s.limited(s.handleBurn))
	mux.HandleFunc("POST /pools/{address}/swap", s.limited(s.handleSwap))
	mux.HandleFunc("POST /pools/{address}/collect", s.limited(s.handleCollect))
	mux.HandleFunc("GET /pools/{address}/account", s.handleGetAccount)
	mux.HandleFunc("GET /pools/{address}/positions/{position}", s.handleGetPosition)
	mux.Handle("GET /ws", s.hub)
	return corsMiddleware(mux)
}

// limited applies the global rate limit to mutating endpoints.
func (s *server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			s.writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next(w, r)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("response encode failed", zap.Error(err))
	}
}

// writeError maps stable settlement codes onto HTTP statuses; everything
// else is a plain message at the given default status.
func (s *server) writeError(w http.ResponseWriter, defaultStatus int, err error) {
	resp := ErrorResponse{Error: err.Error()}
	status := defaultStatus
	if code := clmm.CodeOf(err); code != "" {
		resp.Code = string(code)
		switch code {
		case clmm.CodePoolNotFound, clmm.CodePositionNotFound:
			status = http.StatusNotFound
		case clmm.CodePoolAlreadyExists:
			status = http.StatusConflict
		case clmm.CodeNotPositionOwner:
			status = http.StatusForbidden
		default:
			status = http.StatusBadRequest
		}
	}
	s.writeJSON(w, status, resp)
}

func (s *server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func parsePubkey(field, value string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, clmm.Errorf(clmm.CodeInvalidInput, "%s: %v", field, err)
	}
	return key, nil
}

func parseAmount(field, value string) (math.Int, error) {
	n, ok := math.NewIntFromString(value)
	if !ok || n.IsNegative() {
		return math.Int{}, clmm.Errorf(clmm.CodeInvalidInput, "%s %q is not a valid amount", field, value)
	}
	return n, nil
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Uptime:    time.Since(s.start).Round(time.Second).String(),
		Pools:     len(s.engine.ListPools()),
		WSClients: s.hub.ClientCount(),
	})
}

func (s *server) handleListPools(w http.ResponseWriter, r *http.Request) {
	pools := s.engine.ListPools()
	out := make([]PoolResponse, 0, len(pools))
	for _, p := range pools {
		out = append(out, poolResponse(p))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	pool, err := s.engine.GetPool(r.PathValue("address"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, poolResponse(pool))
}

func (s *server) handleInitializePool(w http.ResponseWriter, r *http.Request) {
	var req InitializePoolRequest
	if !s.decode(w, r, &req) {
		return
	}
	mintA, err := parsePubkey("mintA", req.MintA)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	mintB, err := parsePubkey("mintB", req.MintB)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var sqrtPrice math.Int
	switch {
	case req.InitialSqrtPrice != "":
		sqrtPrice, err = parseAmount("initialSqrtPrice", req.InitialSqrtPrice)
	case req.InitialPrice != "":
		sqrtPrice, err = clmm.SqrtPriceFromDecimal(req.InitialPrice)
	default:
		err = clmm.Errorf(clmm.CodeInvalidInitialPrice, "initialSqrtPrice or initialPrice required")
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	pool, err := s.engine.InitializePool(r.Context(), mintA, mintB, sqrtPrice, req.FeeRateBps, req.TickSpacing)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, poolResponse(pool))
}

func (s *server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if !s.decode(w, r, &req) {
		return
	}
	owner, err := parsePubkey("owner", req.Owner)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	liquidity, err := parseAmount("liquidity", req.Liquidity)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	receipt, err := s.engine.Mint(r.Context(), r.PathValue("address"), owner, req.TickLower, req.TickUpper, liquidity)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, MintResponse{
		Position: receipt.Position.String(),
		AmountA:  receipt.AmountA.String(),
		AmountB:  receipt.AmountB.String(),
	})
}

func (s *server) handleBurn(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if !s.decode(w, r, &req) {
		return
	}
	owner, err := parsePubkey("owner", req.Owner)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	liquidity, err := parseAmount("liquidity", req.Liquidity)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	receipt, err := s.engine.Burn(r.Context(), r.PathValue("address"), owner, req.TickLower, req.TickUpper, liquidity)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, MintResponse{
		Position: receipt.Position.String(),
		AmountA:  receipt.AmountA.String(),
		AmountB:  receipt.AmountB.String(),
	})
}

func (s *server) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req SwapRequest
	if !s.decode(w, r, &req) {
		return
	}
	amount, err := strconv.ParseUint(req.Amount, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, clmm.Errorf(clmm.CodeInvalidInput, "amount %q is not a u64", req.Amount))
		return
	}
	limit := math.Int{}
	if req.SqrtPriceLimit != "" {
		limit, err = parseAmount("sqrtPriceLimit", req.SqrtPriceLimit)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	res, err := s.engine.Swap(r.Context(), r.PathValue("address"), req.AToB, req.ExactIn, amount, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, SwapResponse{
		AmountIn:     strconv.FormatUint(res.AmountIn, 10),
		AmountOut:    strconv.FormatUint(res.AmountOut, 10),
		FeeAmount:    strconv.FormatUint(res.FeeAmount, 10),
		SqrtPrice:    res.SqrtPrice.String(),
		TickCurrent:  res.TickCurrent,
		LimitReached: res.LimitReached,
	})
}

func (s *server) handleCollect(w http.ResponseWriter, r *http.Request) {
	var req CollectRequest
	if !s.decode(w, r, &req) {
		return
	}
	position, err := parsePubkey("position", req.Position)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	owner, err := parsePubkey("owner", req.Owner)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	amountA, amountB, err := s.engine.CollectFees(r.Context(), r.PathValue("address"), position, owner)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, CollectResponse{
		AmountA: strconv.FormatUint(amountA, 10),
		AmountB: strconv.FormatUint(amountB, 10),
	})
}

func (s *server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	data, err := s.engine.AccountData(r.PathValue("address"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, AccountResponse{
		Address: r.PathValue("address"),
		Data:    [2]string{data, "base58"},
		Owner:   clmm.SETTLEMENT_PROGRAM_ID,
		Space:   clmm.PoolAccountSize,
	})
}

func (s *server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	position, err := parsePubkey("position", r.PathValue("position"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	pos, err := s.engine.GetPosition(r.PathValue("address"), position)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, PositionResponse{
		Address:              position.String(),
		Owner:                pos.Owner.String(),
		TickLower:            pos.TickLower,
		TickUpper:            pos.TickUpper,
		Liquidity:            pos.Liquidity.String(),
		FeeGrowthInsideLastA: pos.FeeGrowthInsideLastA.String(),
		FeeGrowthInsideLastB: pos.FeeGrowthInsideLastB.String(),
		TokensOwedA:          pos.TokensOwedA,
		TokensOwedB:          pos.TokensOwedB,
	})
}
