package clmm

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// tickLE encodes a tick index as 4 little-endian bytes, two's complement.
func tickLE(tick int32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(tick))
	return b[:]
}

// DerivePoolAddress derives the program address of a pool from its mints.
// Mints must be in canonical order so that both orderings of a pair map to
// the same pool.
func DerivePoolAddress(mintA, mintB solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(POOL_SEED), mintA.Bytes(), mintB.Bytes()},
		SettlementProgramID,
	)
	return addr, err
}

// DeriveVaultAddress derives a pool's token vault for one of its mints.
func DeriveVaultAddress(pool, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(VAULT_SEED), pool.Bytes(), mint.Bytes()},
		SettlementProgramID,
	)
	return addr, err
}

// DeriveTickAddress derives the account address of one tick record.
func DeriveTickAddress(pool solana.PublicKey, tick int32) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(TICK_SEED), pool.Bytes(), tickLE(tick)},
		SettlementProgramID,
	)
	return addr, err
}

// DerivePositionAddress derives the account address of a position from its
// pool, owner and tick range.
func DerivePositionAddress(pool, owner solana.PublicKey, tickLower, tickUpper int32) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(POSITION_SEED), pool.Bytes(), owner.Bytes(), tickLE(tickLower), tickLE(tickUpper)},
		SettlementProgramID,
	)
	return addr, err
}
