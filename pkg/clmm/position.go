package clmm

import (
	"fmt"
	"math/big"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// Position is a liquidity provider's claim over [TickLower, TickUpper),
// with fee checkpoints taken at creation and on every liquidity change or
// collection.
type Position struct {
	Owner     solana.PublicKey
	TickLower int32
	TickUpper int32
	Liquidity uint128.Uint128

	FeeGrowthInsideLastA uint128.Uint128
	FeeGrowthInsideLastB uint128.Uint128

	// Accrued but uncollected fees, realized into token units.
	TokensOwedA uint64
	TokensOwedB uint64
}

func (p *Position) clone() *Position {
	c := *p
	return &c
}

// Key identifies a position inside its pool.
func (p *Position) Key() string {
	return PositionKey(p.Owner, p.TickLower, p.TickUpper)
}

// PositionKey builds the per-pool map key for (owner, range).
func PositionKey(owner solana.PublicKey, tickLower, tickUpper int32) string {
	return fmt.Sprintf("%s/%d/%d", owner, tickLower, tickUpper)
}

// update settles fees owed since the last checkpoint at the position's
// current liquidity, then applies the liquidity delta and advances the
// checkpoint. Owed amounts are floored; the checkpoint only moves forward
// in the wrapping accumulator space.
func (p *Position) update(liquidityDelta math.Int, insideA, insideB uint128.Uint128) error {
	liquidityNext := new(big.Int).Add(p.Liquidity.Big(), liquidityDelta.BigInt())
	if liquidityNext.Sign() < 0 {
		return Errorf(CodeInvalidInput, "position liquidity underflow")
	}

	owedA := owedDelta(insideA, p.FeeGrowthInsideLastA, p.Liquidity)
	owedB := owedDelta(insideB, p.FeeGrowthInsideLastB, p.Liquidity)

	p.Liquidity = u128FromBig(liquidityNext)
	p.FeeGrowthInsideLastA = insideA
	p.FeeGrowthInsideLastB = insideB
	p.TokensOwedA += owedA
	p.TokensOwedB += owedB
	return nil
}

// collect drains the owed token amounts.
func (p *Position) collect() (amountA, amountB uint64) {
	amountA, amountB = p.TokensOwedA, p.TokensOwedB
	p.TokensOwedA, p.TokensOwedB = 0, 0
	return amountA, amountB
}

// owedDelta converts a fee-growth-inside delta (Q64.64 per liquidity unit)
// into token units for the given liquidity: (inside - last) * L >> 64,
// floored, saturating at the u64 range.
func owedDelta(inside, last uint128.Uint128, liquidity uint128.Uint128) uint64 {
	if liquidity.IsZero() {
		return 0
	}
	diff := inside.SubWrap(last)
	if diff.IsZero() {
		return 0
	}
	owed := new(big.Int).Mul(diff.Big(), liquidity.Big())
	owed.Rsh(owed, 64)
	if !owed.IsUint64() {
		return ^uint64(0)
	}
	return owed.Uint64()
}
