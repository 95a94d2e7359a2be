package clmm

import (
	"math/big"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
)

// Settlement program ID
const (
	SETTLEMENT_PROGRAM_ID = "HP1DtCHhocjM6yM2BBDusXcKkY7cx7AXkt4KKbRq4tdk"
)

var (
	SettlementProgramID = solana.MustPublicKeyFromBase58(SETTLEMENT_PROGRAM_ID)
)

// Account seeds
const (
	POOL_SEED     = "pool"
	VAULT_SEED    = "vault"
	TICK_SEED     = "tick"
	POSITION_SEED = "position"
)

// Tick constants
const (
	MIN_TICK = -887272
	MAX_TICK = 887272

	// Bits of the word index inside the compressed tick space.
	BITMAP_WORD_BITS = 64
)

// MinLiquidity is the smallest liquidity delta a mint may carry. Dust
// positions below it are rejected with CodeInvalidInput.
const MinLiquidity = 1000

// FeeRateDenominator converts basis points to a fraction (1 bps = 0.01%).
var FeeRateDenominator = math.NewInt(10000)

// Q64.64 fixed-point constants.
var (
	Q64  = math.NewIntFromBigInt(new(big.Int).Lsh(big.NewInt(1), 64))
	Q128 = math.NewIntFromBigInt(new(big.Int).Lsh(big.NewInt(1), 128))

	MaxUint128 = math.NewIntFromBigInt(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1)))

	// Sqrt prices at the tick-space boundaries. The bottom of the range
	// sits two units above zero in Q64.64; the top leaves ~0.004% of the
	// u128 span as headroom.
	MinSqrtPriceQ64    = math.NewInt(2)
	MaxSqrtPriceQ64, _ = math.NewIntFromString("340269576638287423012608907232989748563")
)

// Supported (feeRateBps, tickSpacing) tiers.
var FeeTiers = map[uint16]uint16{
	1:   1,
	5:   10,
	30:  60,
	100: 200,
}

// SupportedTier reports whether the fee rate / tick spacing pair is one of
// the deployed tiers.
func SupportedTier(feeRateBps, tickSpacing uint16) bool {
	spacing, ok := FeeTiers[feeRateBps]
	return ok && spacing == tickSpacing
}
