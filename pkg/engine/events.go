package engine

import (
	"time"

	"github.com/mr-tron/base58"

	"solsettle/pkg/clmm"
)

// EventType names the settlement operations observers can subscribe to.
type EventType string

const (
	EventPoolInitialized EventType = "poolInitialized"
	EventLiquidityMinted EventType = "liquidityMinted"
	EventLiquidityBurned EventType = "liquidityBurned"
	EventSwapExecuted    EventType = "swapExecuted"
	EventFeesCollected   EventType = "feesCollected"
)

// Event is published after an operation has committed. AccountData carries
// the pool's serialized account, base58-encoded the way account
// notifications are delivered on the wire.
type Event struct {
	Type        EventType   `json:"type"`
	Pool        string      `json:"pool"`
	Sequence    uint64      `json:"sequence"`
	Time        time.Time   `json:"time"`
	AccountData string      `json:"accountData"`
	Detail      interface{} `json:"detail,omitempty"`
}

// Publisher receives committed events. Publish must not block; slow
// consumers are the publisher's problem.
type Publisher interface {
	Publish(Event)
}

// SwapDetail is the Detail payload of EventSwapExecuted.
type SwapDetail struct {
	AToB         bool   `json:"aToB"`
	ExactIn      bool   `json:"exactIn"`
	AmountIn     uint64 `json:"amountIn"`
	AmountOut    uint64 `json:"amountOut"`
	FeeAmount    uint64 `json:"feeAmount"`
	SqrtPrice    string `json:"sqrtPrice"`
	TickCurrent  int32  `json:"tickCurrent"`
	LimitReached bool   `json:"limitReached"`
}

// LiquidityDetail is the Detail payload of mint and burn events.
type LiquidityDetail struct {
	Owner     string `json:"owner"`
	Position  string `json:"position"`
	TickLower int32  `json:"tickLower"`
	TickUpper int32  `json:"tickUpper"`
	Liquidity string `json:"liquidity"`
	AmountA   string `json:"amountA"`
	AmountB   string `json:"amountB"`
}

// CollectDetail is the Detail payload of EventFeesCollected.
type CollectDetail struct {
	Owner    string `json:"owner"`
	Position string `json:"position"`
	AmountA  uint64 `json:"amountA"`
	AmountB  uint64 `json:"amountB"`
}

func newEvent(typ EventType, pool *clmm.Pool, seq uint64, detail interface{}) Event {
	return Event{
		Type:        typ,
		Pool:        pool.Address.String(),
		Sequence:    seq,
		Time:        time.Now().UTC(),
		AccountData: base58.Encode(clmm.PoolAccountFromPool(pool).Encode()),
		Detail:      detail,
	}
}
