package clmm

import (
	"testing"

	"cosmossdk.io/math"
)

func TestComputeSwapStepExactInWithinTarget(t *testing.T) {
	// 1e6 of token A against 1e9 liquidity, target far below: the input is
	// exhausted inside the step and the fee is the unconsumed remainder.
	current := mustSqrtPrice(t, 0)
	target := mustSqrtPrice(t, -600)
	liquidity := math.NewInt(1_000_000_000)
	remaining := math.NewInt(1_000_000)

	step := computeSwapStep(current, target, liquidity, remaining, 30, true)

	if step.nextSqrtPrice.Equal(target) {
		t.Fatal("step should stop short of the target")
	}
	if want := mustInt(t, "18428370987834680440"); !step.nextSqrtPrice.Equal(want) {
		t.Errorf("next sqrt price %s, want %s", step.nextSqrtPrice, want)
	}
	if want := math.NewInt(997_000); !step.amountIn.Equal(want) {
		t.Errorf("amountIn %s, want %s", step.amountIn, want)
	}
	if want := math.NewInt(996_006); !step.amountOut.Equal(want) {
		t.Errorf("amountOut %s, want %s", step.amountOut, want)
	}
	if want := math.NewInt(3_000); !step.feeAmount.Equal(want) {
		t.Errorf("feeAmount %s, want %s", step.feeAmount, want)
	}
	if !step.amountIn.Add(step.feeAmount).Equal(remaining) {
		t.Errorf("input %s + fee %s must consume the full remaining %s", step.amountIn, step.feeAmount, remaining)
	}
}

func TestComputeSwapStepReachesTarget(t *testing.T) {
	current := mustSqrtPrice(t, 0)
	target := mustSqrtPrice(t, -60)
	liquidity := math.NewInt(1_000_000_000)
	remaining := math.NewInt(1_000_000_000) // far more than the segment holds

	step := computeSwapStep(current, target, liquidity, remaining, 30, true)
	if !step.nextSqrtPrice.Equal(target) {
		t.Fatalf("step must land on the target, got %s", step.nextSqrtPrice)
	}
	// Fee on the consumed input at 30bps, floored.
	wantFee := mulDivFloor(step.amountIn, math.NewInt(30), FeeRateDenominator.Sub(math.NewInt(30)))
	if !step.feeAmount.Equal(wantFee) {
		t.Errorf("feeAmount %s, want %s", step.feeAmount, wantFee)
	}
	if step.amountIn.Add(step.feeAmount).GT(remaining) {
		t.Error("consumed more than remaining")
	}
}

func TestComputeSwapStepExactOutClamp(t *testing.T) {
	current := mustSqrtPrice(t, 0)
	target := mustSqrtPrice(t, 600)
	liquidity := math.NewInt(1_000_000_000)
	remaining := math.NewInt(500_000)

	step := computeSwapStep(current, target, liquidity, remaining, 30, false)
	if step.amountOut.GT(remaining) {
		t.Fatalf("exact-out paid %s, more than the %s requested", step.amountOut, remaining)
	}
	if step.nextSqrtPrice.Equal(target) {
		t.Fatal("small exact-out request should not reach the target")
	}
	if step.feeAmount.Sign() <= 0 {
		t.Error("fee must be positive on a filled step")
	}
}

func TestComputeSwapStepZeroLiquidity(t *testing.T) {
	current := mustSqrtPrice(t, 0)
	target := mustSqrtPrice(t, -60)

	step := computeSwapStep(current, target, math.ZeroInt(), math.NewInt(1_000), 30, true)
	if !step.nextSqrtPrice.Equal(target) {
		t.Fatalf("zero liquidity must jump to the target, got %s", step.nextSqrtPrice)
	}
	if !step.amountIn.IsZero() || !step.amountOut.IsZero() || !step.feeAmount.IsZero() {
		t.Errorf("zero liquidity moved amounts: in=%s out=%s fee=%s", step.amountIn, step.amountOut, step.feeAmount)
	}
}
