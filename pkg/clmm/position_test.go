package clmm

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

func TestPositionUpdateAccruesOwed(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	pos := &Position{Owner: owner, TickLower: -600, TickUpper: 600}

	if err := pos.update(math.NewInt(1_000_000_000), uint128.Zero, uint128.Zero); err != nil {
		t.Fatal(err)
	}
	if pos.Liquidity.Cmp64(1_000_000_000) != 0 {
		t.Fatalf("liquidity %v after first update", pos.Liquidity)
	}

	// Growth of 3 token units per full liquidity unit: 3 << 64.
	inside := uint128.From64(3).Lsh(64)
	if err := pos.update(math.ZeroInt(), inside, uint128.Zero); err != nil {
		t.Fatal(err)
	}
	if pos.TokensOwedA != 3_000_000_000 {
		t.Errorf("owed A %d, want 3000000000", pos.TokensOwedA)
	}
	if pos.TokensOwedB != 0 {
		t.Errorf("owed B %d, want 0", pos.TokensOwedB)
	}
	if !pos.FeeGrowthInsideLastA.Equals(inside) {
		t.Error("checkpoint did not advance")
	}

	// Same checkpoint again accrues nothing.
	if err := pos.update(math.ZeroInt(), inside, uint128.Zero); err != nil {
		t.Fatal(err)
	}
	if pos.TokensOwedA != 3_000_000_000 {
		t.Errorf("owed A changed to %d on idempotent update", pos.TokensOwedA)
	}
}

func TestPositionUpdateUnderflow(t *testing.T) {
	pos := &Position{}
	if err := pos.update(math.NewInt(-1), uint128.Zero, uint128.Zero); !IsCode(err, CodeInvalidInput) {
		t.Fatalf("underflow: got %v, want %s", err, CodeInvalidInput)
	}
}

func TestPositionCollectDrains(t *testing.T) {
	pos := &Position{TokensOwedA: 42, TokensOwedB: 7}
	a, b := pos.collect()
	if a != 42 || b != 7 {
		t.Fatalf("collect returned %d/%d", a, b)
	}
	a, b = pos.collect()
	if a != 0 || b != 0 {
		t.Fatalf("second collect returned %d/%d", a, b)
	}
}

func TestOwedDeltaFloorsAndSaturates(t *testing.T) {
	liquidity := uint128.From64(1_000_000_000)

	// A growth just under one token unit per liquidity floors to zero per
	// unit but not in aggregate.
	growth := uint128.From64(1).Lsh(64).Sub64(1)
	owed := owedDelta(growth, uint128.Zero, liquidity)
	if owed != 999_999_999 {
		t.Errorf("owed %d, want 999999999", owed)
	}

	if owedDelta(uint128.Zero, uint128.Zero, liquidity) != 0 {
		t.Error("zero growth must owe nothing")
	}
	if owedDelta(growth, uint128.Zero, uint128.Zero) != 0 {
		t.Error("zero liquidity must owe nothing")
	}

	// Saturates rather than wrapping the u64.
	huge := uint128.Max
	if owed := owedDelta(huge, uint128.Zero, huge); owed != ^uint64(0) {
		t.Errorf("saturation returned %d", owed)
	}
}
