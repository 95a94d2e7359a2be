package clmm

import (
	"testing"

	"cosmossdk.io/math"
	"lukechampine.com/uint128"
)

func TestTickUpdateFlipAndNet(t *testing.T) {
	r := NewTickRegistry()
	delta := math.NewInt(5_000)
	zero := uint128.Zero

	flipped, err := r.Update(-600, 0, delta, zero, zero, false)
	if err != nil {
		t.Fatal(err)
	}
	if !flipped {
		t.Error("first liquidity must flip the tick on")
	}
	flipped, err = r.Update(600, 0, delta, zero, zero, true)
	if err != nil {
		t.Fatal(err)
	}
	if !flipped {
		t.Error("first liquidity must flip the tick on")
	}

	lower, upper := r.Get(-600), r.Get(600)
	if !lower.LiquidityNet.Equal(delta) {
		t.Errorf("lower net %s, want %s", lower.LiquidityNet, delta)
	}
	if !upper.LiquidityNet.Equal(delta.Neg()) {
		t.Errorf("upper net %s, want %s", upper.LiquidityNet, delta.Neg())
	}

	// Second deposit on the same tick does not flip.
	flipped, err = r.Update(-600, 0, delta, zero, zero, false)
	if err != nil {
		t.Fatal(err)
	}
	if flipped {
		t.Error("second deposit flipped an already-initialized tick")
	}

	// Removing everything flips it back off.
	flipped, err = r.Update(-600, 0, delta.MulRaw(2).Neg(), zero, zero, false)
	if err != nil {
		t.Fatal(err)
	}
	if !flipped {
		t.Error("removing all liquidity must flip the tick off")
	}

	// Cannot remove more than the gross balance.
	if _, err := r.Update(600, 0, delta.MulRaw(2).Neg(), zero, zero, true); !IsCode(err, CodeInvalidInput) {
		t.Errorf("gross underflow: got %v, want %s", err, CodeInvalidInput)
	}
}

func TestTickOutsideSnapshotOnCreate(t *testing.T) {
	r := NewTickRegistry()
	globalA := uint128.From64(1 << 40)
	globalB := uint128.From64(1 << 41)

	// At or below the current tick: snapshot the globals.
	if _, err := r.Update(-600, 0, math.NewInt(1_000), globalA, globalB, false); err != nil {
		t.Fatal(err)
	}
	if got := r.Get(-600).FeeGrowthOutsideA; !got.Equals(globalA) {
		t.Errorf("lower outside A %v, want %v", got, globalA)
	}

	// Above the current tick: outside starts at zero.
	if _, err := r.Update(600, 0, math.NewInt(1_000), globalA, globalB, true); err != nil {
		t.Fatal(err)
	}
	if got := r.Get(600).FeeGrowthOutsideA; !got.IsZero() {
		t.Errorf("upper outside A %v, want 0", got)
	}
}

func TestTickCrossFlipsOutside(t *testing.T) {
	r := NewTickRegistry()
	if _, err := r.Update(-600, 0, math.NewInt(7_000), uint128.Zero, uint128.Zero, false); err != nil {
		t.Fatal(err)
	}

	globalA := uint128.From64(100)
	globalB := uint128.From64(40)
	net := r.Cross(-600, globalA, globalB)
	if !net.Equal(math.NewInt(7_000)) {
		t.Errorf("cross net %s, want 7000", net)
	}
	// outside was the snapshot (globals at creation, i.e. 0), now global - 0.
	if got := r.Get(-600).FeeGrowthOutsideA; !got.Equals(globalA) {
		t.Errorf("outside A after cross %v, want %v", got, globalA)
	}

	// Crossing back restores the original snapshot.
	r.Cross(-600, globalA, globalB)
	if got := r.Get(-600).FeeGrowthOutsideA; !got.IsZero() {
		t.Errorf("outside A after double cross %v, want 0", got)
	}
}

func TestFeeGrowthInside(t *testing.T) {
	r := NewTickRegistry()
	if _, err := r.Update(-600, 0, math.NewInt(1_000), uint128.Zero, uint128.Zero, false); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Update(600, 0, math.NewInt(1_000), uint128.Zero, uint128.Zero, true); err != nil {
		t.Fatal(err)
	}

	globalA := uint128.From64(500)
	globalB := uint128.From64(900)

	// Price inside the range, all growth happened inside.
	insideA, insideB := r.FeeGrowthInside(-600, 600, 0, globalA, globalB)
	if !insideA.Equals(globalA) || !insideB.Equals(globalB) {
		t.Errorf("inside = %v/%v, want %v/%v", insideA, insideB, globalA, globalB)
	}

	// Price below the range: everything is outside.
	insideA, _ = r.FeeGrowthInside(-600, 600, -700, globalA, globalB)
	wantA := globalA.SubWrap(globalA.SubWrap(r.Get(-600).FeeGrowthOutsideA)).SubWrap(r.Get(600).FeeGrowthOutsideA)
	if !insideA.Equals(wantA) {
		t.Errorf("inside below range = %v, want %v", insideA, wantA)
	}

	// Missing boundary records contribute zero.
	insideA, insideB = r.FeeGrowthInside(-1200, 1200, 0, globalA, globalB)
	if !insideA.Equals(globalA) || !insideB.Equals(globalB) {
		t.Errorf("inside with missing boundaries = %v/%v", insideA, insideB)
	}
}
