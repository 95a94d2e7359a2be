package clmm

import (
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestCanonicalMintOrder(t *testing.T) {
	a := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	b := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

	x, y, _ := CanonicalMintOrder(a, b)
	x2, y2, _ := CanonicalMintOrder(b, a)
	if !x.Equals(x2) || !y.Equals(y2) {
		t.Fatal("order of arguments changed the canonical pair")
	}

	_, _, canonical := CanonicalMintOrder(x, y)
	if !canonical {
		t.Fatal("canonical pair not recognized as canonical")
	}
}

func TestDerivedAddressesStableAndDistinct(t *testing.T) {
	mintA, mintB, _ := CanonicalMintOrder(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())

	pool, err := DerivePoolAddress(mintA, mintB)
	if err != nil {
		t.Fatal(err)
	}
	again, err := DerivePoolAddress(mintA, mintB)
	if err != nil {
		t.Fatal(err)
	}
	if !pool.Equals(again) {
		t.Fatal("pool derivation is not deterministic")
	}

	vaultA, err := DeriveVaultAddress(pool, mintA)
	if err != nil {
		t.Fatal(err)
	}
	vaultB, err := DeriveVaultAddress(pool, mintB)
	if err != nil {
		t.Fatal(err)
	}
	if vaultA.Equals(vaultB) {
		t.Fatal("both vaults derived to the same address")
	}

	tickN, err := DeriveTickAddress(pool, -600)
	if err != nil {
		t.Fatal(err)
	}
	tickP, err := DeriveTickAddress(pool, 600)
	if err != nil {
		t.Fatal(err)
	}
	if tickN.Equals(tickP) {
		t.Fatal("sign of the tick index lost in the seed encoding")
	}

	owner := solana.NewWallet().PublicKey()
	pos1, err := DerivePositionAddress(pool, owner, -600, 600)
	if err != nil {
		t.Fatal(err)
	}
	pos2, err := DerivePositionAddress(pool, owner, -600, 1200)
	if err != nil {
		t.Fatal(err)
	}
	if pos1.Equals(pos2) {
		t.Fatal("different ranges derived the same position address")
	}
}
