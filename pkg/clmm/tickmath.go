package clmm

import (
	"math/big"
	"strings"

	"cosmossdk.io/math"
)

// sqrtRatioMagic[i] = sqrt(1.0001^-(2^i)) * 2^128, truncated. Multiplying the
// running ratio by the constants selected by the bits of |tick| walks the
// price curve in log steps; the product stays in X128 until the final shift
// so no precision is lost before the Q64.64 truncation.
var sqrtRatioMagic = [20]*big.Int{
	mustBig("0xfffcb933bd6fad37aa2d162d1a594001"),
	mustBig("0xfff97272373d413259a46990580e213a"),
	mustBig("0xfff2e50f5f656932ef12357cf3c7fdcc"),
	mustBig("0xffe5caca7e10e4e61c3624eaa0941cd0"),
	mustBig("0xffcb9843d60f6159c9db58835c926644"),
	mustBig("0xff973b41fa98c081472e6896dfb254c0"),
	mustBig("0xff2ea16466c96a3843ec78b326b52861"),
	mustBig("0xfe5dee046a99a2a811c461f1969c3053"),
	mustBig("0xfcbe86c7900a88aedcffc83b479aa3a4"),
	mustBig("0xf987a7253ac413176f2b074cf7815e54"),
	mustBig("0xf3392b0822b70005940c7a398e4b70f3"),
	mustBig("0xe7159475a2c29b7443b29c7fa6e889d9"),
	mustBig("0xd097f3bdfd2022b8845ad8f792aa5825"),
	mustBig("0xa9f746462d870fdf8a65dc1f90e061e5"),
	mustBig("0x70d869a156d2a1b890bb3df62baf32f7"),
	mustBig("0x31be135f97d08fd981231505542fcfa6"),
	mustBig("0x9aa508b5b7a84e1c677de54f3e99bc9"),
	mustBig("0x5d6af8dedb81196699c329225ee604"),
	mustBig("0x2216e584f5fa1ea926041bedfe98"),
	mustBig("0x48a170391f7dc42444e8fa2"),
}

var (
	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	oneX128    = new(big.Int).Lsh(big.NewInt(1), 128)
	oneX64     = new(big.Int).Lsh(big.NewInt(1), 64)
)

func mustBig(s string) *big.Int {
	n, ok := new(big.Int).SetString(strings.TrimPrefix(s, "0x"), 16)
	if !ok {
		panic("clmm: bad magic constant " + s)
	}
	return n
}

// SqrtPriceFromTick returns sqrt(1.0001^tick) in Q64.64.
func SqrtPriceFromTick(tick int32) (math.Int, error) {
	if tick < MIN_TICK || tick > MAX_TICK {
		return math.Int{}, Errorf(CodeInvalidTickRange, "tick %d outside [%d, %d]", tick, MIN_TICK, MAX_TICK)
	}

	absTick := uint32(tick)
	if tick < 0 {
		absTick = uint32(-tick)
	}

	ratio := new(big.Int).Set(oneX128)
	if absTick&1 != 0 {
		ratio.Set(sqrtRatioMagic[0])
	}
	for i := 1; i < len(sqrtRatioMagic); i++ {
		if absTick&(1<<uint(i)) != 0 {
			ratio.Mul(ratio, sqrtRatioMagic[i])
			ratio.Rsh(ratio, 128)
		}
	}

	// The table walks toward negative ticks; invert for positive ones.
	if tick > 0 {
		ratio.Div(maxUint256, ratio)
	}

	// X128 -> X64, rounding up so the tick-from-price floor stays consistent.
	rem := new(big.Int)
	ratio.DivMod(ratio, oneX64, rem)
	if rem.Sign() != 0 {
		ratio.Add(ratio, big.NewInt(1))
	}
	return math.NewIntFromBigInt(ratio), nil
}

// TickFromSqrtPrice returns the largest tick whose sqrt price is <= the
// given Q64.64 value (floor semantics).
func TickFromSqrtPrice(sqrtPriceQ64 math.Int) (int32, error) {
	if sqrtPriceQ64.LT(MinSqrtPriceQ64) || sqrtPriceQ64.GT(MaxSqrtPriceQ64) {
		return 0, Errorf(CodePriceOutOfBounds, "sqrt price %s outside representable range", sqrtPriceQ64)
	}

	lo, hi := int32(MIN_TICK), int32(MAX_TICK)
	for lo < hi {
		mid := int32((int64(lo) + int64(hi) + 1) / 2)
		p, err := SqrtPriceFromTick(mid)
		if err != nil {
			return 0, err
		}
		if p.LTE(sqrtPriceQ64) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}

// SqrtPriceFromRatio converts the price num/den (token B per token A) to
// Q64.64 sqrt price: isqrt(num * 2^128 / den). Integer arithmetic only; this
// is the canonical algorithm for fractional prices.
func SqrtPriceFromRatio(num, den math.Int) (math.Int, error) {
	if num.Sign() <= 0 || den.Sign() <= 0 {
		return math.Int{}, Errorf(CodeInvalidInitialPrice, "price must be positive")
	}
	scaled := new(big.Int).Lsh(num.BigInt(), 128)
	scaled.Div(scaled, den.BigInt())
	root := new(big.Int).Sqrt(scaled)
	sqrtPrice := math.NewIntFromBigInt(root)
	if sqrtPrice.LT(MinSqrtPriceQ64) || sqrtPrice.GT(MaxSqrtPriceQ64) {
		return math.Int{}, Errorf(CodePriceOutOfBounds, "price %s/%s maps outside the sqrt-price range", num, den)
	}
	return sqrtPrice, nil
}

// SqrtPriceFromDecimal parses a decimal price string ("1", "0.25",
// "1543.21") and converts it via SqrtPriceFromRatio. No floating point is
// involved at any step.
func SqrtPriceFromDecimal(price string) (math.Int, error) {
	price = strings.TrimSpace(price)
	if price == "" || strings.HasPrefix(price, "-") {
		return math.Int{}, Errorf(CodeInvalidInitialPrice, "price %q must be positive", price)
	}
	intPart, fracPart := price, ""
	if i := strings.IndexByte(price, '.'); i >= 0 {
		intPart, fracPart = price[:i], price[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	num, ok := new(big.Int).SetString(intPart+fracPart, 10)
	if !ok {
		return math.Int{}, Errorf(CodeInvalidInitialPrice, "price %q is not a decimal number", price)
	}
	den := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(len(fracPart))), nil)
	return SqrtPriceFromRatio(math.NewIntFromBigInt(num), math.NewIntFromBigInt(den))
}

// PriceFromSqrtPrice renders sqrtPrice^2 / 2^128 as a decimal string with
// the given number of fractional digits.
func PriceFromSqrtPrice(sqrtPriceQ64 math.Int, fracDigits int) string {
	sq := new(big.Int).Mul(sqrtPriceQ64.BigInt(), sqrtPriceQ64.BigInt())
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(fracDigits)), nil)
	sq.Mul(sq, scale)
	sq.Rsh(sq, 128)

	q, r := new(big.Int).DivMod(sq, scale, new(big.Int))
	if fracDigits == 0 {
		return q.String()
	}
	frac := r.String()
	for len(frac) < fracDigits {
		frac = "0" + frac
	}
	return q.String() + "." + frac
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// AlignTickFloor rounds tick down to a multiple of spacing.
func AlignTickFloor(tick, spacing int32) int32 {
	return floorDiv(tick, spacing) * spacing
}

// AlignTickCeil rounds tick up to a multiple of spacing.
func AlignTickCeil(tick, spacing int32) int32 {
	aligned := AlignTickFloor(tick, spacing)
	if aligned != tick {
		aligned += spacing
	}
	return aligned
}
