package clmm

import (
	"math/big"

	"cosmossdk.io/math"
)

// The products below can exceed 256 bits for liquidity near the top of the
// u128 domain, so they are taken in big.Int; only the quotient, which stays
// within the math.Int range for u128 liquidity and Q64.64 prices, converts
// back.

// mulDivFloor computes a*b/den rounding down.
func mulDivFloor(a, b, den math.Int) math.Int {
	num := new(big.Int).Mul(a.BigInt(), b.BigInt())
	return math.NewIntFromBigInt(num.Quo(num, den.BigInt()))
}

// mulDivCeil computes a*b/den rounding up.
func mulDivCeil(a, b, den math.Int) math.Int {
	d := den.BigInt()
	num := new(big.Int).Mul(a.BigInt(), b.BigInt())
	num.Add(num, new(big.Int).Sub(d, big.NewInt(1)))
	return math.NewIntFromBigInt(num.Quo(num, d))
}

// amountADelta returns the token A amount between two sqrt prices for the
// given liquidity: L * 2^64 * (pb - pa) / (pb * pa). Rounds up when the pool
// is owed the amount, down when the pool pays it.
func amountADelta(sqrtPriceA, sqrtPriceB, liquidity math.Int, roundUp bool) math.Int {
	if sqrtPriceA.GT(sqrtPriceB) {
		sqrtPriceA, sqrtPriceB = sqrtPriceB, sqrtPriceA
	}
	numerator1 := liquidity.Mul(Q64)
	numerator2 := sqrtPriceB.Sub(sqrtPriceA)

	if roundUp {
		return mulDivCeil(mulDivCeil(numerator1, numerator2, sqrtPriceB), math.OneInt(), sqrtPriceA)
	}
	return mulDivFloor(numerator1, numerator2, sqrtPriceB).Quo(sqrtPriceA)
}

// amountBDelta returns the token B amount between two sqrt prices:
// L * (pb - pa) / 2^64.
func amountBDelta(sqrtPriceA, sqrtPriceB, liquidity math.Int, roundUp bool) math.Int {
	if sqrtPriceA.GT(sqrtPriceB) {
		sqrtPriceA, sqrtPriceB = sqrtPriceB, sqrtPriceA
	}
	diff := sqrtPriceB.Sub(sqrtPriceA)
	if roundUp {
		return mulDivCeil(liquidity, diff, Q64)
	}
	return mulDivFloor(liquidity, diff, Q64)
}

// nextSqrtPriceFromInput moves the sqrt price by consuming an exact input
// amount. aToB consumes token A (price falls); otherwise token B (price
// rises). Rounds so the trader never receives more than the curve allows.
func nextSqrtPriceFromInput(sqrtPrice, liquidity, amountIn math.Int, aToB bool) math.Int {
	if aToB {
		return nextSqrtPriceFromAmountAUp(sqrtPrice, liquidity, amountIn, true)
	}
	return nextSqrtPriceFromAmountBDown(sqrtPrice, liquidity, amountIn, true)
}

// nextSqrtPriceFromOutput moves the sqrt price by producing an exact output
// amount.
func nextSqrtPriceFromOutput(sqrtPrice, liquidity, amountOut math.Int, aToB bool) math.Int {
	if aToB {
		return nextSqrtPriceFromAmountBDown(sqrtPrice, liquidity, amountOut, false)
	}
	return nextSqrtPriceFromAmountAUp(sqrtPrice, liquidity, amountOut, false)
}

func nextSqrtPriceFromAmountAUp(sqrtPrice, liquidity, amount math.Int, add bool) math.Int {
	if amount.IsZero() {
		return sqrtPrice
	}
	liquidityShifted := liquidity.Mul(Q64)

	if add {
		denominator := liquidityShifted.Add(amount.Mul(sqrtPrice))
		return mulDivCeil(liquidityShifted, sqrtPrice, denominator)
	}
	denominator := liquidityShifted.Sub(amount.Mul(sqrtPrice))
	return mulDivCeil(liquidityShifted, sqrtPrice, denominator)
}

func nextSqrtPriceFromAmountBDown(sqrtPrice, liquidity, amount math.Int, add bool) math.Int {
	shifted := amount.Mul(Q64)
	if add {
		return sqrtPrice.Add(shifted.Quo(liquidity))
	}
	return sqrtPrice.Sub(mulDivCeil(shifted, math.OneInt(), liquidity))
}

// LiquidityForAmounts returns the largest liquidity the given token amounts
// can back over [sqrtPriceLower, sqrtPriceUpper] at the current price.
func LiquidityForAmounts(sqrtPrice, sqrtPriceLower, sqrtPriceUpper, amountA, amountB math.Int) math.Int {
	if sqrtPriceLower.GT(sqrtPriceUpper) {
		sqrtPriceLower, sqrtPriceUpper = sqrtPriceUpper, sqrtPriceLower
	}
	switch {
	case sqrtPrice.LTE(sqrtPriceLower):
		return liquidityFromAmountA(sqrtPriceLower, sqrtPriceUpper, amountA)
	case sqrtPrice.LT(sqrtPriceUpper):
		la := liquidityFromAmountA(sqrtPrice, sqrtPriceUpper, amountA)
		lb := liquidityFromAmountB(sqrtPriceLower, sqrtPrice, amountB)
		if la.LT(lb) {
			return la
		}
		return lb
	default:
		return liquidityFromAmountB(sqrtPriceLower, sqrtPriceUpper, amountB)
	}
}

func liquidityFromAmountA(sqrtPriceA, sqrtPriceB, amount math.Int) math.Int {
	intermediate := mulDivFloor(sqrtPriceA, sqrtPriceB, Q64)
	return mulDivFloor(amount, intermediate, sqrtPriceB.Sub(sqrtPriceA))
}

func liquidityFromAmountB(sqrtPriceA, sqrtPriceB, amount math.Int) math.Int {
	return mulDivFloor(amount, Q64, sqrtPriceB.Sub(sqrtPriceA))
}
