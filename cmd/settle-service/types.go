package main

import (
	"solsettle/pkg/clmm"
)

// Amounts travel as decimal strings: u64 token amounts and u128 fixed-point
// values both overflow JSON's number range.

type InitializePoolRequest struct {
	MintA       string `json:"mintA"`
	MintB       string `json:"mintB"`
	FeeRateBps  uint16 `json:"feeRateBps"`
	TickSpacing uint16 `json:"tickSpacing"`
	// Exactly one of the two: a raw Q64.64 sqrt price, or a decimal price
	// of token B per token A.
	InitialSqrtPrice string `json:"initialSqrtPrice,omitempty"`
	InitialPrice     string `json:"initialPrice,omitempty"`
}

type PoolResponse struct {
	Address          string `json:"address"`
	MintA            string `json:"mintA"`
	MintB            string `json:"mintB"`
	VaultA           string `json:"vaultA"`
	VaultB           string `json:"vaultB"`
	FeeRateBps       uint16 `json:"feeRateBps"`
	TickSpacing      uint16 `json:"tickSpacing"`
	SqrtPrice        string `json:"sqrtPrice"`
	Price            string `json:"price"`
	TickCurrent      int32  `json:"tickCurrent"`
	Liquidity        string `json:"liquidity"`
	FeeGrowthGlobalA string `json:"feeGrowthGlobalA"`
	FeeGrowthGlobalB string `json:"feeGrowthGlobalB"`
	TickCount        int    `json:"tickCount"`
	PositionCount    int    `json:"positionCount"`
}

func poolResponse(p *clmm.Pool) PoolResponse {
	return PoolResponse{
		Address:          p.Address.String(),
		MintA:            p.MintA.String(),
		MintB:            p.MintB.String(),
		VaultA:           p.VaultA.String(),
		VaultB:           p.VaultB.String(),
		FeeRateBps:       p.FeeRateBps,
		TickSpacing:      p.TickSpacing,
		SqrtPrice:        p.SqrtPrice.String(),
		Price:            clmm.PriceFromSqrtPrice(clmm.IntFromU128(p.SqrtPrice), 6),
		TickCurrent:      p.TickCurrent,
		Liquidity:        p.Liquidity.String(),
		FeeGrowthGlobalA: p.FeeGrowthGlobalA.String(),
		FeeGrowthGlobalB: p.FeeGrowthGlobalB.String(),
		TickCount:        p.Ticks.Len(),
		PositionCount:    len(p.Positions),
	}
}

type MintRequest struct {
	Owner     string `json:"owner"`
	TickLower int32  `json:"tickLower"`
	TickUpper int32  `json:"tickUpper"`
	Liquidity string `json:"liquidity"`
}

type MintResponse struct {
	Position string `json:"position"`
	AmountA  string `json:"amountA"`
	AmountB  string `json:"amountB"`
}

type SwapRequest struct {
	AToB           bool   `json:"aToB"`
	ExactIn        bool   `json:"exactIn"`
	Amount         string `json:"amount"`
	SqrtPriceLimit string `json:"sqrtPriceLimit,omitempty"`
}

type SwapResponse struct {
	AmountIn     string `json:"amountIn"`
	AmountOut    string `json:"amountOut"`
	FeeAmount    string `json:"feeAmount"`
	SqrtPrice    string `json:"sqrtPrice"`
	TickCurrent  int32  `json:"tickCurrent"`
	LimitReached bool   `json:"limitReached"`
}

type CollectRequest struct {
	Position string `json:"position"`
	Owner    string `json:"owner"`
}

type CollectResponse struct {
	AmountA string `json:"amountA"`
	AmountB string `json:"amountB"`
}

type PositionResponse struct {
	Address              string `json:"address"`
	Owner                string `json:"owner"`
	TickLower            int32  `json:"tickLower"`
	TickUpper            int32  `json:"tickUpper"`
	Liquidity            string `json:"liquidity"`
	FeeGrowthInsideLastA string `json:"feeGrowthInsideLastA"`
	FeeGrowthInsideLastB string `json:"feeGrowthInsideLastB"`
	TokensOwedA          uint64 `json:"tokensOwedA"`
	TokensOwedB          uint64 `json:"tokensOwedB"`
}

// AccountResponse mirrors the account shape the subscription hub delivers:
// the serialized pool account with its encoding tag and owning program.
type AccountResponse struct {
	Address string    `json:"address"`
	Data    [2]string `json:"data"`
	Owner   string    `json:"owner"`
	Space   int       `json:"space"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Pools     int    `json:"pools"`
	WSClients int    `json:"wsClients"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
