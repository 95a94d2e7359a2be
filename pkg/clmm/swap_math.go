package clmm

import (
	"cosmossdk.io/math"
)

// swapStep is the outcome of advancing the price toward one target: either
// the next initialized tick or the caller's price limit.
type swapStep struct {
	nextSqrtPrice math.Int
	amountIn      math.Int
	amountOut     math.Int
	feeAmount     math.Int
}

// computeSwapStep advances the sqrt price from current toward target given
// the active liquidity and the amount still unfilled. exactIn interprets
// amountRemaining as input (fee deducted from it); otherwise as the output
// still owed to the trader.
//
// Rounding is always against the trader: input amounts round up, output
// amounts round down. Fees are floored.
func computeSwapStep(sqrtPriceCurrent, sqrtPriceTarget, liquidity, amountRemaining math.Int, feeRateBps uint16, exactIn bool) swapStep {
	aToB := sqrtPriceCurrent.GTE(sqrtPriceTarget)
	feeRate := math.NewInt(int64(feeRateBps))
	var step swapStep

	if exactIn {
		amountLessFee := mulDivFloor(amountRemaining, FeeRateDenominator.Sub(feeRate), FeeRateDenominator)
		if aToB {
			step.amountIn = amountADelta(sqrtPriceTarget, sqrtPriceCurrent, liquidity, true)
		} else {
			step.amountIn = amountBDelta(sqrtPriceCurrent, sqrtPriceTarget, liquidity, true)
		}
		if amountLessFee.GTE(step.amountIn) {
			step.nextSqrtPrice = sqrtPriceTarget
		} else {
			step.nextSqrtPrice = nextSqrtPriceFromInput(sqrtPriceCurrent, liquidity, amountLessFee, aToB)
		}
	} else {
		if aToB {
			step.amountOut = amountBDelta(sqrtPriceTarget, sqrtPriceCurrent, liquidity, false)
		} else {
			step.amountOut = amountADelta(sqrtPriceCurrent, sqrtPriceTarget, liquidity, false)
		}
		if amountRemaining.GTE(step.amountOut) {
			step.nextSqrtPrice = sqrtPriceTarget
		} else {
			step.nextSqrtPrice = nextSqrtPriceFromOutput(sqrtPriceCurrent, liquidity, amountRemaining, aToB)
		}
	}

	reachedTarget := step.nextSqrtPrice.Equal(sqrtPriceTarget)

	if aToB {
		if !(reachedTarget && exactIn) {
			step.amountIn = amountADelta(step.nextSqrtPrice, sqrtPriceCurrent, liquidity, true)
		}
		if !(reachedTarget && !exactIn) {
			step.amountOut = amountBDelta(step.nextSqrtPrice, sqrtPriceCurrent, liquidity, false)
		}
	} else {
		if !(reachedTarget && exactIn) {
			step.amountIn = amountBDelta(sqrtPriceCurrent, step.nextSqrtPrice, liquidity, true)
		}
		if !(reachedTarget && !exactIn) {
			step.amountOut = amountADelta(sqrtPriceCurrent, step.nextSqrtPrice, liquidity, false)
		}
	}

	// Exact-output never pays out more than requested.
	if !exactIn && step.amountOut.GT(amountRemaining) {
		step.amountOut = amountRemaining
	}

	if exactIn && !reachedTarget {
		// Ran out of input inside the step; the unconsumed remainder is
		// the fee.
		step.feeAmount = amountRemaining.Sub(step.amountIn)
	} else {
		step.feeAmount = mulDivFloor(step.amountIn, feeRate, FeeRateDenominator.Sub(feeRate))
	}
	return step
}
