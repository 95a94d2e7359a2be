package clmm

import (
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"cosmossdk.io/math"
)

// Account discriminators: first 8 bytes of sha256("account:<Name>").
var (
	PoolDiscriminator     = [8]byte{241, 154, 109, 4, 17, 177, 109, 188}
	TickDiscriminator     = [8]byte{176, 94, 67, 247, 133, 173, 7, 115}
	PositionDiscriminator = [8]byte{170, 188, 143, 228, 122, 64, 247, 208}
)

// Fixed serialized sizes, discriminator included.
const (
	PoolAccountSize     = 208
	TickAccountSize     = 108
	PositionAccountSize = 144
)

// PoolAccount is the wire layout of a pool: discriminator, then the fields
// below in order, all integers little-endian, u128 as 16 bytes.
type PoolAccount struct {
	MintA            solana.PublicKey
	MintB            solana.PublicKey
	VaultA           solana.PublicKey
	VaultB           solana.PublicKey
	FeeRateBps       uint16
	TickSpacing      uint16
	SqrtPrice        uint128.Uint128
	TickCurrent      int32
	Liquidity        uint128.Uint128
	FeeGrowthGlobalA uint128.Uint128
	FeeGrowthGlobalB uint128.Uint128
}

func PoolAccountFromPool(p *Pool) *PoolAccount {
	return &PoolAccount{
		MintA:            p.MintA,
		MintB:            p.MintB,
		VaultA:           p.VaultA,
		VaultB:           p.VaultB,
		FeeRateBps:       p.FeeRateBps,
		TickSpacing:      p.TickSpacing,
		SqrtPrice:        p.SqrtPrice,
		TickCurrent:      p.TickCurrent,
		Liquidity:        p.Liquidity,
		FeeGrowthGlobalA: p.FeeGrowthGlobalA,
		FeeGrowthGlobalB: p.FeeGrowthGlobalB,
	}
}

func (a *PoolAccount) Encode() []byte {
	data := make([]byte, PoolAccountSize)
	copy(data[0:8], PoolDiscriminator[:])
	copy(data[8:40], a.MintA.Bytes())
	copy(data[40:72], a.MintB.Bytes())
	copy(data[72:104], a.VaultA.Bytes())
	copy(data[104:136], a.VaultB.Bytes())
	binary.LittleEndian.PutUint16(data[136:138], a.FeeRateBps)
	binary.LittleEndian.PutUint16(data[138:140], a.TickSpacing)
	putU128(data[140:156], a.SqrtPrice)
	binary.LittleEndian.PutUint32(data[156:160], uint32(a.TickCurrent))
	putU128(data[160:176], a.Liquidity)
	putU128(data[176:192], a.FeeGrowthGlobalA)
	putU128(data[192:208], a.FeeGrowthGlobalB)
	return data
}

func DecodePoolAccount(data []byte) (*PoolAccount, error) {
	if len(data) < PoolAccountSize {
		return nil, fmt.Errorf("pool account: expected %d bytes, got %d", PoolAccountSize, len(data))
	}
	if [8]byte(data[0:8]) != PoolDiscriminator {
		return nil, fmt.Errorf("pool account: wrong discriminator")
	}
	a := &PoolAccount{
		MintA:  solana.PublicKeyFromBytes(data[8:40]),
		MintB:  solana.PublicKeyFromBytes(data[40:72]),
		VaultA: solana.PublicKeyFromBytes(data[72:104]),
		VaultB: solana.PublicKeyFromBytes(data[104:136]),
	}
	dec := bin.NewBinDecoder(data[136:208])
	for _, field := range []interface{}{
		&a.FeeRateBps, &a.TickSpacing,
	} {
		if err := dec.Decode(field); err != nil {
			return nil, fmt.Errorf("pool account: %w", err)
		}
	}
	var err error
	if a.SqrtPrice, err = readU128(dec); err != nil {
		return nil, fmt.Errorf("pool account: %w", err)
	}
	if err := dec.Decode(&a.TickCurrent); err != nil {
		return nil, fmt.Errorf("pool account: %w", err)
	}
	if a.Liquidity, err = readU128(dec); err != nil {
		return nil, fmt.Errorf("pool account: %w", err)
	}
	if a.FeeGrowthGlobalA, err = readU128(dec); err != nil {
		return nil, fmt.Errorf("pool account: %w", err)
	}
	if a.FeeGrowthGlobalB, err = readU128(dec); err != nil {
		return nil, fmt.Errorf("pool account: %w", err)
	}
	return a, nil
}

// TickAccount is the wire layout of one tick record. LiquidityNet is an
// i128 in two's complement.
type TickAccount struct {
	Pool              solana.PublicKey
	Index             int32
	LiquidityNet      math.Int
	LiquidityGross    uint128.Uint128
	FeeGrowthOutsideA uint128.Uint128
	FeeGrowthOutsideB uint128.Uint128
}

func TickAccountFromState(pool solana.PublicKey, t *TickState) *TickAccount {
	return &TickAccount{
		Pool:              pool,
		Index:             t.Index,
		LiquidityNet:      t.LiquidityNet,
		LiquidityGross:    t.LiquidityGross,
		FeeGrowthOutsideA: t.FeeGrowthOutsideA,
		FeeGrowthOutsideB: t.FeeGrowthOutsideB,
	}
}

func (a *TickAccount) State() *TickState {
	return &TickState{
		Index:             a.Index,
		LiquidityNet:      a.LiquidityNet,
		LiquidityGross:    a.LiquidityGross,
		FeeGrowthOutsideA: a.FeeGrowthOutsideA,
		FeeGrowthOutsideB: a.FeeGrowthOutsideB,
	}
}

func (a *TickAccount) Encode() []byte {
	data := make([]byte, TickAccountSize)
	copy(data[0:8], TickDiscriminator[:])
	copy(data[8:40], a.Pool.Bytes())
	binary.LittleEndian.PutUint32(data[40:44], uint32(a.Index))
	putU128(data[44:60], u128FromInt(a.LiquidityNet))
	putU128(data[60:76], a.LiquidityGross)
	putU128(data[76:92], a.FeeGrowthOutsideA)
	putU128(data[92:108], a.FeeGrowthOutsideB)
	return data
}

func DecodeTickAccount(data []byte) (*TickAccount, error) {
	if len(data) < TickAccountSize {
		return nil, fmt.Errorf("tick account: expected %d bytes, got %d", TickAccountSize, len(data))
	}
	if [8]byte(data[0:8]) != TickDiscriminator {
		return nil, fmt.Errorf("tick account: wrong discriminator")
	}
	a := &TickAccount{Pool: solana.PublicKeyFromBytes(data[8:40])}
	dec := bin.NewBinDecoder(data[40:TickAccountSize])
	if err := dec.Decode(&a.Index); err != nil {
		return nil, fmt.Errorf("tick account: %w", err)
	}
	net, err := readU128(dec)
	if err != nil {
		return nil, fmt.Errorf("tick account: %w", err)
	}
	a.LiquidityNet = i128FromU128(net)
	if a.LiquidityGross, err = readU128(dec); err != nil {
		return nil, fmt.Errorf("tick account: %w", err)
	}
	if a.FeeGrowthOutsideA, err = readU128(dec); err != nil {
		return nil, fmt.Errorf("tick account: %w", err)
	}
	if a.FeeGrowthOutsideB, err = readU128(dec); err != nil {
		return nil, fmt.Errorf("tick account: %w", err)
	}
	return a, nil
}

// PositionAccount is the wire layout of one position.
type PositionAccount struct {
	Pool                 solana.PublicKey
	Owner                solana.PublicKey
	TickLower            int32
	TickUpper            int32
	Liquidity            uint128.Uint128
	FeeGrowthInsideLastA uint128.Uint128
	FeeGrowthInsideLastB uint128.Uint128
	TokensOwedA          uint64
	TokensOwedB          uint64
}

func PositionAccountFromPosition(pool solana.PublicKey, p *Position) *PositionAccount {
	return &PositionAccount{
		Pool:                 pool,
		Owner:                p.Owner,
		TickLower:            p.TickLower,
		TickUpper:            p.TickUpper,
		Liquidity:            p.Liquidity,
		FeeGrowthInsideLastA: p.FeeGrowthInsideLastA,
		FeeGrowthInsideLastB: p.FeeGrowthInsideLastB,
		TokensOwedA:          p.TokensOwedA,
		TokensOwedB:          p.TokensOwedB,
	}
}

func (a *PositionAccount) Position() *Position {
	return &Position{
		Owner:                a.Owner,
		TickLower:            a.TickLower,
		TickUpper:            a.TickUpper,
		Liquidity:            a.Liquidity,
		FeeGrowthInsideLastA: a.FeeGrowthInsideLastA,
		FeeGrowthInsideLastB: a.FeeGrowthInsideLastB,
		TokensOwedA:          a.TokensOwedA,
		TokensOwedB:          a.TokensOwedB,
	}
}

func (a *PositionAccount) Encode() []byte {
	data := make([]byte, PositionAccountSize)
	copy(data[0:8], PositionDiscriminator[:])
	copy(data[8:40], a.Pool.Bytes())
	copy(data[40:72], a.Owner.Bytes())
	binary.LittleEndian.PutUint32(data[72:76], uint32(a.TickLower))
	binary.LittleEndian.PutUint32(data[76:80], uint32(a.TickUpper))
	putU128(data[80:96], a.Liquidity)
	putU128(data[96:112], a.FeeGrowthInsideLastA)
	putU128(data[112:128], a.FeeGrowthInsideLastB)
	binary.LittleEndian.PutUint64(data[128:136], a.TokensOwedA)
	binary.LittleEndian.PutUint64(data[136:144], a.TokensOwedB)
	return data
}

func DecodePositionAccount(data []byte) (*PositionAccount, error) {
	if len(data) < PositionAccountSize {
		return nil, fmt.Errorf("position account: expected %d bytes, got %d", PositionAccountSize, len(data))
	}
	if [8]byte(data[0:8]) != PositionDiscriminator {
		return nil, fmt.Errorf("position account: wrong discriminator")
	}
	a := &PositionAccount{
		Pool:  solana.PublicKeyFromBytes(data[8:40]),
		Owner: solana.PublicKeyFromBytes(data[40:72]),
	}
	dec := bin.NewBinDecoder(data[72:PositionAccountSize])
	if err := dec.Decode(&a.TickLower); err != nil {
		return nil, fmt.Errorf("position account: %w", err)
	}
	if err := dec.Decode(&a.TickUpper); err != nil {
		return nil, fmt.Errorf("position account: %w", err)
	}
	var err error
	if a.Liquidity, err = readU128(dec); err != nil {
		return nil, fmt.Errorf("position account: %w", err)
	}
	if a.FeeGrowthInsideLastA, err = readU128(dec); err != nil {
		return nil, fmt.Errorf("position account: %w", err)
	}
	if a.FeeGrowthInsideLastB, err = readU128(dec); err != nil {
		return nil, fmt.Errorf("position account: %w", err)
	}
	if err := dec.Decode(&a.TokensOwedA); err != nil {
		return nil, fmt.Errorf("position account: %w", err)
	}
	if err := dec.Decode(&a.TokensOwedB); err != nil {
		return nil, fmt.Errorf("position account: %w", err)
	}
	return a, nil
}

// PoolFromAccounts rebuilds a live pool from its serialized accounts. The
// bitmap is not persisted; it is re-derived from the ticks that still carry
// gross liquidity.
func PoolFromAccounts(account *PoolAccount, ticks []*TickAccount, positions []*PositionAccount) (*Pool, error) {
	address, err := DerivePoolAddress(account.MintA, account.MintB)
	if err != nil {
		return nil, err
	}
	p := &Pool{
		Address:          address,
		MintA:            account.MintA,
		MintB:            account.MintB,
		VaultA:           account.VaultA,
		VaultB:           account.VaultB,
		FeeRateBps:       account.FeeRateBps,
		TickSpacing:      account.TickSpacing,
		SqrtPrice:        account.SqrtPrice,
		TickCurrent:      account.TickCurrent,
		Liquidity:        account.Liquidity,
		FeeGrowthGlobalA: account.FeeGrowthGlobalA,
		FeeGrowthGlobalB: account.FeeGrowthGlobalB,
		Bitmap:           NewTickBitmap(),
		Ticks:            NewTickRegistry(),
		Positions:        make(map[string]*Position, len(positions)),
	}
	for _, t := range ticks {
		state := t.State()
		p.Ticks.ticks[state.Index] = state
		if !state.LiquidityGross.IsZero() {
			p.Bitmap.Flip(state.Index, int32(p.TickSpacing))
		}
	}
	for _, pa := range positions {
		pos := pa.Position()
		p.Positions[pos.Key()] = pos
	}
	return p, nil
}

func putU128(dst []byte, v uint128.Uint128) {
	binary.LittleEndian.PutUint64(dst[0:8], v.Lo)
	binary.LittleEndian.PutUint64(dst[8:16], v.Hi)
}

func readU128(dec *bin.Decoder) (uint128.Uint128, error) {
	var v bin.Uint128
	if err := dec.Decode(&v); err != nil {
		return uint128.Uint128{}, err
	}
	return uint128.New(v.Lo, v.Hi), nil
}

// i128FromU128 reinterprets 128 bits as a signed two's complement value.
func i128FromU128(u uint128.Uint128) math.Int {
	v := intFromU128(u)
	if u.Hi>>63 == 1 {
		v = v.Sub(Q128)
	}
	return v
}
