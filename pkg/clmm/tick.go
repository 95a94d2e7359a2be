package clmm

import (
	"math/big"

	"cosmossdk.io/math"
	"lukechampine.com/uint128"
)

// TickState is the per-tick record backing a position boundary. It is
// created lazily on first reference and never removed; a tick whose gross
// liquidity drops back to zero keeps its record but loses its bitmap bit.
type TickState struct {
	Index             int32
	LiquidityNet      math.Int // net change to active liquidity when crossing upward (i128 domain)
	LiquidityGross    uint128.Uint128
	FeeGrowthOutsideA uint128.Uint128
	FeeGrowthOutsideB uint128.Uint128
}

func (t *TickState) clone() *TickState {
	c := *t
	return &c
}

// TickRegistry holds the lazily-populated tick records of one pool, keyed
// by tick index. The bitmap is the index over it; the registry is the data.
type TickRegistry struct {
	ticks map[int32]*TickState
}

func NewTickRegistry() *TickRegistry {
	return &TickRegistry{ticks: make(map[int32]*TickState)}
}

func (r *TickRegistry) Clone() *TickRegistry {
	ticks := make(map[int32]*TickState, len(r.ticks))
	for i, t := range r.ticks {
		ticks[i] = t.clone()
	}
	return &TickRegistry{ticks: ticks}
}

// Get returns the record for an initialized tick, or nil.
func (r *TickRegistry) Get(index int32) *TickState {
	return r.ticks[index]
}

// Len returns the number of populated tick records.
func (r *TickRegistry) Len() int {
	return len(r.ticks)
}

// Each calls fn for every populated tick record.
func (r *TickRegistry) Each(fn func(*TickState)) {
	for _, t := range r.ticks {
		fn(t)
	}
}

// Update applies a liquidity delta to one boundary tick, creating the
// record on first reference. Upper boundaries subtract the delta from
// LiquidityNet, lower boundaries add it; gross liquidity tracks the
// absolute referencing liquidity. Returns whether the tick's initialized
// state flipped (the caller flips the bitmap bit).
func (r *TickRegistry) Update(index, currentTick int32, liquidityDelta math.Int, feeGrowthGlobalA, feeGrowthGlobalB uint128.Uint128, upper bool) (flipped bool, err error) {
	tick := r.ticks[index]
	if tick == nil {
		tick = &TickState{Index: index, LiquidityNet: math.ZeroInt()}
		// By convention all fee growth below the current tick is counted
		// as "outside", so ticks created at or below it snapshot the
		// global accumulators.
		if index <= currentTick {
			tick.FeeGrowthOutsideA = feeGrowthGlobalA
			tick.FeeGrowthOutsideB = feeGrowthGlobalB
		}
		r.ticks[index] = tick
	}

	grossBefore := tick.LiquidityGross
	grossAfter := new(big.Int).Add(grossBefore.Big(), liquidityDelta.BigInt())
	if grossAfter.Sign() < 0 {
		return false, Errorf(CodeInvalidInput, "tick %d gross liquidity underflow", index)
	}
	tick.LiquidityGross = u128FromBig(grossAfter)

	if upper {
		tick.LiquidityNet = tick.LiquidityNet.Sub(liquidityDelta)
	} else {
		tick.LiquidityNet = tick.LiquidityNet.Add(liquidityDelta)
	}

	return grossBefore.IsZero() != tick.LiquidityGross.IsZero(), nil
}

// Cross flips the tick's outside fee-growth snapshots as the price moves
// through it and returns the net liquidity contribution. The outside value
// is always "fee growth on the far side of this tick as seen from the
// current price", so each crossing re-derives it as global minus itself.
func (r *TickRegistry) Cross(index int32, feeGrowthGlobalA, feeGrowthGlobalB uint128.Uint128) math.Int {
	tick := r.ticks[index]
	if tick == nil {
		return math.ZeroInt()
	}
	tick.FeeGrowthOutsideA = feeGrowthGlobalA.SubWrap(tick.FeeGrowthOutsideA)
	tick.FeeGrowthOutsideB = feeGrowthGlobalB.SubWrap(tick.FeeGrowthOutsideB)
	return tick.LiquidityNet
}

// FeeGrowthInside computes fee growth accrued strictly inside
// [lower, upper) since pool creation, per token, from the two boundary
// snapshots and the global accumulators. All arithmetic wraps mod 2^128;
// only differences of accumulators are meaningful.
func (r *TickRegistry) FeeGrowthInside(lower, upper, currentTick int32, feeGrowthGlobalA, feeGrowthGlobalB uint128.Uint128) (insideA, insideB uint128.Uint128) {
	lowerTick := r.ticks[lower]
	upperTick := r.ticks[upper]

	var belowA, belowB uint128.Uint128
	if lowerTick != nil {
		if currentTick >= lower {
			belowA = lowerTick.FeeGrowthOutsideA
			belowB = lowerTick.FeeGrowthOutsideB
		} else {
			belowA = feeGrowthGlobalA.SubWrap(lowerTick.FeeGrowthOutsideA)
			belowB = feeGrowthGlobalB.SubWrap(lowerTick.FeeGrowthOutsideB)
		}
	}

	var aboveA, aboveB uint128.Uint128
	if upperTick != nil {
		if currentTick < upper {
			aboveA = upperTick.FeeGrowthOutsideA
			aboveB = upperTick.FeeGrowthOutsideB
		} else {
			aboveA = feeGrowthGlobalA.SubWrap(upperTick.FeeGrowthOutsideA)
			aboveB = feeGrowthGlobalB.SubWrap(upperTick.FeeGrowthOutsideB)
		}
	}

	insideA = feeGrowthGlobalA.SubWrap(belowA).SubWrap(aboveA)
	insideB = feeGrowthGlobalB.SubWrap(belowB).SubWrap(aboveB)
	return insideA, insideB
}

// u128FromBig truncates a non-negative big.Int to 128 bits.
func u128FromBig(x *big.Int) uint128.Uint128 {
	masked := new(big.Int).And(x, MaxUint128.BigInt())
	return uint128.FromBig(masked)
}

// u128FromInt converts a non-negative math.Int, truncating to 128 bits.
func u128FromInt(x math.Int) uint128.Uint128 {
	return u128FromBig(x.BigInt())
}

// intFromU128 lifts a uint128 into math.Int.
func intFromU128(u uint128.Uint128) math.Int {
	return math.NewIntFromBigInt(u.Big())
}

// IntFromU128 is the exported form of the lift for callers that render or
// compare pool state.
func IntFromU128(u uint128.Uint128) math.Int {
	return intFromU128(u)
}
