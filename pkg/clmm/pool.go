package clmm

import (
	"bytes"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// Pool is the aggregate state of one trading pair at one fee tier. All
// mutating operations on it are single-threaded by the engine; the pool
// itself holds no locks.
type Pool struct {
	Address solana.PublicKey

	// Canonical order: MintA is the byte-wise smaller mint.
	MintA  solana.PublicKey
	MintB  solana.PublicKey
	VaultA solana.PublicKey
	VaultB solana.PublicKey

	FeeRateBps  uint16
	TickSpacing uint16

	SqrtPrice   uint128.Uint128 // Q64.64
	TickCurrent int32
	Liquidity   uint128.Uint128 // liquidity of ranges containing TickCurrent

	FeeGrowthGlobalA uint128.Uint128 // Q64.64 per liquidity unit, wrapping
	FeeGrowthGlobalB uint128.Uint128

	Bitmap    *TickBitmap
	Ticks     *TickRegistry
	Positions map[string]*Position
}

// CanonicalMintOrder returns the two mints with the byte-wise smaller one
// first, and whether the input order was already canonical.
func CanonicalMintOrder(a, b solana.PublicKey) (solana.PublicKey, solana.PublicKey, bool) {
	if bytes.Compare(a.Bytes(), b.Bytes()) <= 0 {
		return a, b, true
	}
	return b, a, false
}

// NewPool validates the tier and initial price and builds an empty pool.
// Mints must already be in canonical order; the engine reorders caller
// input before deriving the pool address so both always agree.
func NewPool(mintA, mintB solana.PublicKey, initialSqrtPrice math.Int, feeRateBps, tickSpacing uint16) (*Pool, error) {
	if mintA.Equals(mintB) {
		return nil, Errorf(CodeMintsMustDiffer, "pool mints are identical")
	}
	if _, _, canonical := CanonicalMintOrder(mintA, mintB); !canonical {
		return nil, Errorf(CodeMintsNotInCanonicalOrder, "mint %s must sort before %s", mintB, mintA)
	}
	if tickSpacing == 0 || !SupportedTier(feeRateBps, tickSpacing) {
		return nil, Errorf(CodeInvalidTickSpacing, "unsupported tier fee=%dbps spacing=%d", feeRateBps, tickSpacing)
	}
	if initialSqrtPrice.IsNil() || initialSqrtPrice.Sign() <= 0 {
		return nil, Errorf(CodeInvalidInitialPrice, "initial sqrt price must be positive")
	}
	if initialSqrtPrice.LT(MinSqrtPriceQ64) || initialSqrtPrice.GT(MaxSqrtPriceQ64) {
		return nil, Errorf(CodePriceOutOfBounds, "initial sqrt price %s outside representable range", initialSqrtPrice)
	}

	tick, err := TickFromSqrtPrice(initialSqrtPrice)
	if err != nil {
		return nil, err
	}

	address, err := DerivePoolAddress(mintA, mintB)
	if err != nil {
		return nil, err
	}
	vaultA, err := DeriveVaultAddress(address, mintA)
	if err != nil {
		return nil, err
	}
	vaultB, err := DeriveVaultAddress(address, mintB)
	if err != nil {
		return nil, err
	}

	return &Pool{
		Address:     address,
		MintA:       mintA,
		MintB:       mintB,
		VaultA:      vaultA,
		VaultB:      vaultB,
		FeeRateBps:  feeRateBps,
		TickSpacing: tickSpacing,
		SqrtPrice:   u128FromInt(initialSqrtPrice),
		TickCurrent: tick,
		Bitmap:      NewTickBitmap(),
		Ticks:       NewTickRegistry(),
		Positions:   make(map[string]*Position),
	}, nil
}

// Clone deep-copies the aggregate. The engine mutates a clone and swaps it
// in only on success, which gives every operation all-or-nothing semantics.
func (p *Pool) Clone() *Pool {
	positions := make(map[string]*Position, len(p.Positions))
	for k, pos := range p.Positions {
		positions[k] = pos.clone()
	}
	c := *p
	c.Bitmap = p.Bitmap.Clone()
	c.Ticks = p.Ticks.Clone()
	c.Positions = positions
	return &c
}

func (p *Pool) checkTickRange(tickLower, tickUpper int32) error {
	if tickLower >= tickUpper {
		return Errorf(CodeInvalidTickRange, "tick lower %d must be below tick upper %d", tickLower, tickUpper)
	}
	if tickLower < MIN_TICK || tickUpper > MAX_TICK {
		return Errorf(CodeInvalidTickRange, "range [%d, %d) outside [%d, %d]", tickLower, tickUpper, MIN_TICK, MAX_TICK)
	}
	spacing := int32(p.TickSpacing)
	if tickLower%spacing != 0 || tickUpper%spacing != 0 {
		return Errorf(CodeInvalidTickSpacing, "range [%d, %d) not aligned to spacing %d", tickLower, tickUpper, spacing)
	}
	return nil
}

// Mint adds liquidity over [tickLower, tickUpper) for owner, creating the
// boundary ticks and the position as needed. Returns the position and the
// token amounts the owner must deposit (rounded up).
func (p *Pool) Mint(owner solana.PublicKey, tickLower, tickUpper int32, liquidity math.Int) (*Position, math.Int, math.Int, error) {
	if err := p.checkTickRange(tickLower, tickUpper); err != nil {
		return nil, math.Int{}, math.Int{}, err
	}
	if liquidity.IsNil() || liquidity.Sign() <= 0 {
		return nil, math.Int{}, math.Int{}, Errorf(CodeZeroLiquidityDelta, "liquidity delta must be positive")
	}
	if liquidity.LT(math.NewInt(MinLiquidity)) {
		return nil, math.Int{}, math.Int{}, Errorf(CodeInvalidInput, "liquidity %s below minimum %d", liquidity, MinLiquidity)
	}
	if liquidity.GT(MaxUint128) {
		return nil, math.Int{}, math.Int{}, Errorf(CodeInvalidInput, "liquidity %s exceeds the 128-bit domain", liquidity)
	}

	pos, err := p.modifyPosition(owner, tickLower, tickUpper, liquidity)
	if err != nil {
		return nil, math.Int{}, math.Int{}, err
	}
	amountA, amountB := p.amountsForDelta(tickLower, tickUpper, liquidity, true)
	return pos, amountA, amountB, nil
}

// Burn removes liquidity from an existing position, mirroring Mint's tick
// bookkeeping with inverted sign. The withdrawn token amounts (rounded
// down) accrue to the position's owed balances and are paid out by
// CollectFees.
func (p *Pool) Burn(owner solana.PublicKey, tickLower, tickUpper int32, liquidity math.Int) (math.Int, math.Int, error) {
	if err := p.checkTickRange(tickLower, tickUpper); err != nil {
		return math.Int{}, math.Int{}, err
	}
	if liquidity.IsNil() || liquidity.Sign() <= 0 {
		return math.Int{}, math.Int{}, Errorf(CodeZeroLiquidityDelta, "liquidity delta must be positive")
	}
	pos := p.Positions[PositionKey(owner, tickLower, tickUpper)]
	if pos == nil {
		return math.Int{}, math.Int{}, Errorf(CodePositionNotFound, "no position for owner %s over [%d, %d)", owner, tickLower, tickUpper)
	}
	if intFromU128(pos.Liquidity).LT(liquidity) {
		return math.Int{}, math.Int{}, Errorf(CodeInvalidInput, "burn %s exceeds position liquidity %s", liquidity, pos.Liquidity)
	}

	// Settle accrued fees into the owed balances first (the same zero-delta
	// update CollectFees runs), then check that the withdrawal still fits
	// the 64-bit owed fields before any tick bookkeeping. An oversized burn
	// fails whole; the caller can burn in smaller slices.
	insideA, insideB := p.Ticks.FeeGrowthInside(tickLower, tickUpper, p.TickCurrent, p.FeeGrowthGlobalA, p.FeeGrowthGlobalB)
	if err := pos.update(math.ZeroInt(), insideA, insideB); err != nil {
		return math.Int{}, math.Int{}, err
	}
	amountA, amountB := p.amountsForDelta(tickLower, tickUpper, liquidity, false)
	owedA, okA := addOwed(pos.TokensOwedA, amountA)
	owedB, okB := addOwed(pos.TokensOwedB, amountB)
	if !okA || !okB {
		return math.Int{}, math.Int{}, Errorf(CodeInvalidInput, "withdrawal of %s / %s does not fit the owed balance", amountA, amountB)
	}

	if _, err := p.modifyPosition(owner, tickLower, tickUpper, liquidity.Neg()); err != nil {
		return math.Int{}, math.Int{}, err
	}
	pos.TokensOwedA = owedA
	pos.TokensOwedB = owedB
	return amountA, amountB, nil
}

// addOwed adds a withdrawal amount to an owed balance, reporting whether
// the sum still fits uint64.
func addOwed(owed uint64, amount math.Int) (uint64, bool) {
	if !amount.IsUint64() {
		return 0, false
	}
	sum := owed + amount.Uint64()
	if sum < owed {
		return 0, false
	}
	return sum, true
}

// modifyPosition applies a signed liquidity delta to the boundary ticks,
// the position and, when the current tick is in range, the pool's active
// liquidity. Every unit added at the lower boundary is subtracted at the
// upper one, so net liquidity over all ticks stays exactly zero.
func (p *Pool) modifyPosition(owner solana.PublicKey, tickLower, tickUpper int32, liquidityDelta math.Int) (*Position, error) {
	flippedLower, err := p.Ticks.Update(tickLower, p.TickCurrent, liquidityDelta, p.FeeGrowthGlobalA, p.FeeGrowthGlobalB, false)
	if err != nil {
		return nil, err
	}
	flippedUpper, err := p.Ticks.Update(tickUpper, p.TickCurrent, liquidityDelta, p.FeeGrowthGlobalA, p.FeeGrowthGlobalB, true)
	if err != nil {
		return nil, err
	}
	spacing := int32(p.TickSpacing)
	if flippedLower {
		p.Bitmap.Flip(tickLower, spacing)
	}
	if flippedUpper {
		p.Bitmap.Flip(tickUpper, spacing)
	}

	insideA, insideB := p.Ticks.FeeGrowthInside(tickLower, tickUpper, p.TickCurrent, p.FeeGrowthGlobalA, p.FeeGrowthGlobalB)

	key := PositionKey(owner, tickLower, tickUpper)
	pos := p.Positions[key]
	if pos == nil {
		pos = &Position{Owner: owner, TickLower: tickLower, TickUpper: tickUpper}
		p.Positions[key] = pos
	}
	if err := pos.update(liquidityDelta, insideA, insideB); err != nil {
		return nil, err
	}

	if tickLower <= p.TickCurrent && p.TickCurrent < tickUpper {
		next := intFromU128(p.Liquidity).Add(liquidityDelta)
		if next.Sign() < 0 {
			return nil, Errorf(CodeInvalidInput, "active liquidity underflow")
		}
		p.Liquidity = u128FromInt(next)
	}
	return pos, nil
}

// amountsForDelta computes the token amounts a liquidity delta over the
// range represents at the current price. Deposits round up, withdrawals
// round down.
func (p *Pool) amountsForDelta(tickLower, tickUpper int32, liquidity math.Int, roundUp bool) (amountA, amountB math.Int) {
	sqrtLower, _ := SqrtPriceFromTick(tickLower)
	sqrtUpper, _ := SqrtPriceFromTick(tickUpper)
	sqrtCurrent := intFromU128(p.SqrtPrice)

	switch {
	case p.TickCurrent < tickLower:
		amountA = amountADelta(sqrtLower, sqrtUpper, liquidity, roundUp)
		amountB = math.ZeroInt()
	case p.TickCurrent < tickUpper:
		amountA = amountADelta(sqrtCurrent, sqrtUpper, liquidity, roundUp)
		amountB = amountBDelta(sqrtLower, sqrtCurrent, liquidity, roundUp)
	default:
		amountA = math.ZeroInt()
		amountB = amountBDelta(sqrtLower, sqrtUpper, liquidity, roundUp)
	}
	return amountA, amountB
}

// SwapResult reports how much of a swap actually settled and where the
// price ended. LimitReached marks a partial fill stopped by the caller's
// price limit; it is a normal outcome, not an error.
type SwapResult struct {
	AmountIn     uint64
	AmountOut    uint64
	FeeAmount    uint64
	SqrtPrice    uint128.Uint128
	TickCurrent  int32
	LimitReached bool
}

// Swap executes the stepping algorithm: walk initialized ticks in the
// direction of trade, absorb as much of the request as each segment of
// liquidity allows, accrue fees per liquidity unit, and cross ticks as the
// price passes them. aToB means token A is the input (price falls).
func (p *Pool) Swap(aToB, exactIn bool, amountSpecified uint64, sqrtPriceLimit math.Int) (SwapResult, error) {
	if amountSpecified == 0 {
		return SwapResult{}, Errorf(CodeInvalidInput, "swap amount must be positive")
	}

	current := intFromU128(p.SqrtPrice)
	limit := sqrtPriceLimit
	if limit.IsNil() || limit.IsZero() {
		// No limit: run to the edge of the representable range.
		if aToB {
			limit = MinSqrtPriceQ64
		} else {
			limit = MaxSqrtPriceQ64
		}
	}
	if limit.LT(MinSqrtPriceQ64) || limit.GT(MaxSqrtPriceQ64) {
		return SwapResult{}, Errorf(CodePriceOutOfBounds, "price limit %s outside representable range", limit)
	}

	// A limit at or beyond the current price cannot be approached; the
	// swap terminates immediately as a zero fill.
	if (aToB && limit.GTE(current)) || (!aToB && limit.LTE(current)) {
		return SwapResult{
			SqrtPrice:    p.SqrtPrice,
			TickCurrent:  p.TickCurrent,
			LimitReached: true,
		}, nil
	}

	remaining := math.NewIntFromUint64(amountSpecified)
	calculated := math.ZeroInt()
	feeTotal := math.ZeroInt()
	sqrtPrice := current
	tick := p.TickCurrent
	liquidity := intFromU128(p.Liquidity)

	feeGrowthGlobal := p.FeeGrowthGlobalA
	if !aToB {
		feeGrowthGlobal = p.FeeGrowthGlobalB
	}

	for remaining.Sign() > 0 && !sqrtPrice.Equal(limit) {
		tickNext, initialized := p.Bitmap.NextInitialized(tick, int32(p.TickSpacing), aToB)
		if liquidity.IsZero() && !initialized {
			return SwapResult{}, Errorf(CodeInsufficientLiquidity, "no liquidity between tick %d and the space boundary", tick)
		}

		sqrtPriceNext, err := SqrtPriceFromTick(tickNext)
		if err != nil {
			return SwapResult{}, err
		}

		target := sqrtPriceNext
		if aToB {
			if sqrtPriceNext.LT(limit) {
				target = limit
			}
		} else {
			if sqrtPriceNext.GT(limit) {
				target = limit
			}
		}

		sqrtPriceStart := sqrtPrice
		step := computeSwapStep(sqrtPrice, target, liquidity, remaining, p.FeeRateBps, exactIn)
		sqrtPrice = step.nextSqrtPrice

		if exactIn {
			remaining = remaining.Sub(step.amountIn).Sub(step.feeAmount)
			calculated = calculated.Add(step.amountOut)
		} else {
			remaining = remaining.Sub(step.amountOut)
			calculated = calculated.Add(step.amountIn).Add(step.feeAmount)
		}
		feeTotal = feeTotal.Add(step.feeAmount)

		// Fee growth is denominated per unit of liquidity in Q64.64.
		if liquidity.Sign() > 0 && step.feeAmount.Sign() > 0 {
			growth := mulDivFloor(step.feeAmount, Q64, liquidity)
			feeGrowthGlobal = feeGrowthGlobal.AddWrap(u128FromInt(growth))
		}

		if sqrtPrice.Equal(sqrtPriceNext) {
			// Landed exactly on the tick boundary; cross it.
			if initialized {
				var globalA, globalB uint128.Uint128
				if aToB {
					globalA, globalB = feeGrowthGlobal, p.FeeGrowthGlobalB
				} else {
					globalA, globalB = p.FeeGrowthGlobalA, feeGrowthGlobal
				}
				liquidityNet := p.Ticks.Cross(tickNext, globalA, globalB)
				if aToB {
					liquidityNet = liquidityNet.Neg()
				}
				liquidity = liquidity.Add(liquidityNet)
				if liquidity.Sign() < 0 {
					return SwapResult{}, Errorf(CodeInsufficientLiquidity, "crossing tick %d drove liquidity negative", tickNext)
				}
			}
			if aToB {
				tick = tickNext - 1
				if tick < MIN_TICK {
					tick = MIN_TICK
				}
			} else {
				tick = tickNext
			}
		} else if !sqrtPrice.Equal(sqrtPriceStart) {
			tick, err = TickFromSqrtPrice(sqrtPrice)
			if err != nil {
				return SwapResult{}, err
			}
		}
	}

	// The settled side can legitimately exceed the 64-bit token domain at
	// extreme prices even for a u64 request. Reject before committing so
	// the pool is left untouched; a tighter price limit bounds the fill.
	if !calculated.IsUint64() || !feeTotal.IsUint64() {
		return SwapResult{}, Errorf(CodeInvalidInput, "swap settles %s with fee %s, beyond the 64-bit token domain", calculated, feeTotal)
	}

	p.SqrtPrice = u128FromInt(sqrtPrice)
	p.TickCurrent = tick
	p.Liquidity = u128FromInt(liquidity)
	if aToB {
		p.FeeGrowthGlobalA = feeGrowthGlobal
	} else {
		p.FeeGrowthGlobalB = feeGrowthGlobal
	}

	filled := math.NewIntFromUint64(amountSpecified).Sub(remaining)
	res := SwapResult{
		SqrtPrice:    p.SqrtPrice,
		TickCurrent:  tick,
		LimitReached: remaining.Sign() > 0,
		FeeAmount:    feeTotal.Uint64(),
	}
	if exactIn {
		res.AmountIn = filled.Uint64()
		res.AmountOut = calculated.Uint64()
	} else {
		res.AmountIn = calculated.Uint64()
		res.AmountOut = filled.Uint64()
	}
	return res, nil
}

// CollectFees settles and drains the fees owed to a position.
func (p *Pool) CollectFees(owner solana.PublicKey, tickLower, tickUpper int32) (amountA, amountB uint64, err error) {
	pos := p.Positions[PositionKey(owner, tickLower, tickUpper)]
	if pos == nil {
		return 0, 0, Errorf(CodePositionNotFound, "no position for owner %s over [%d, %d)", owner, tickLower, tickUpper)
	}
	insideA, insideB := p.Ticks.FeeGrowthInside(tickLower, tickUpper, p.TickCurrent, p.FeeGrowthGlobalA, p.FeeGrowthGlobalB)
	if err := pos.update(math.ZeroInt(), insideA, insideB); err != nil {
		return 0, 0, err
	}
	amountA, amountB = pos.collect()
	return amountA, amountB, nil
}

// NetLiquiditySum adds LiquidityNet over every populated tick. It is zero
// after any sequence of mints and burns.
func (p *Pool) NetLiquiditySum() math.Int {
	sum := math.ZeroInt()
	p.Ticks.Each(func(t *TickState) {
		sum = sum.Add(t.LiquidityNet)
	})
	return sum
}

// ActiveLiquidityFromTicks recomputes active liquidity from first
// principles: the sum of LiquidityNet over initialized ticks at or below
// the current tick.
func (p *Pool) ActiveLiquidityFromTicks() math.Int {
	sum := math.ZeroInt()
	p.Ticks.Each(func(t *TickState) {
		if t.Index <= p.TickCurrent && !t.LiquidityGross.IsZero() {
			sum = sum.Add(t.LiquidityNet)
		}
	})
	return sum
}
