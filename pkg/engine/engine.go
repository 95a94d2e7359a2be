// Package engine drives settlement operations against pools: it owns the
// in-memory pool set, serializes mutations per pool, persists committed
// state and publishes events. All math lives in pkg/clmm; the engine adds
// atomicity and plumbing.
package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"solsettle/pkg/clmm"
	"solsettle/pkg/store"
)

// Engine is safe for concurrent use. Operations on different pools run in
// parallel; operations on the same pool are serialized in arrival order.
type Engine struct {
	log   *zap.Logger
	store store.Store
	pub   Publisher
	seq   atomic.Uint64

	mu    sync.RWMutex
	pools map[string]*poolEntry
}

type poolEntry struct {
	mu   sync.Mutex
	pool *clmm.Pool
}

// New builds an engine over the given store and reloads every persisted
// pool. pub may be nil when nothing subscribes.
func New(ctx context.Context, log *zap.Logger, st store.Store, pub Publisher) (*Engine, error) {
	e := &Engine{
		log:   log,
		store: st,
		pub:   pub,
		pools: make(map[string]*poolEntry),
	}
	pools, err := st.LoadAllPools(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range pools {
		e.pools[p.Address.String()] = &poolEntry{pool: p}
	}
	log.Info("engine loaded", zap.Int("pools", len(pools)))
	return e, nil
}

func (e *Engine) publish(ev Event) {
	if e.pub != nil {
		e.pub.Publish(ev)
	}
}

func (e *Engine) entry(address string) (*poolEntry, error) {
	e.mu.RLock()
	entry := e.pools[address]
	e.mu.RUnlock()
	if entry == nil {
		return nil, clmm.Errorf(clmm.CodePoolNotFound, "no pool at %s", address)
	}
	return entry, nil
}

// InitializePool creates and persists a pool for the mint pair at one fee
// tier. The mints are reordered canonically before the address derivation,
// so both orderings name the same pool.
func (e *Engine) InitializePool(ctx context.Context, mintA, mintB solana.PublicKey, initialSqrtPrice math.Int, feeRateBps, tickSpacing uint16) (*clmm.Pool, error) {
	mintA, mintB, _ = clmm.CanonicalMintOrder(mintA, mintB)
	pool, err := clmm.NewPool(mintA, mintB, initialSqrtPrice, feeRateBps, tickSpacing)
	if err != nil {
		return nil, err
	}
	address := pool.Address.String()

	e.mu.Lock()
	if _, ok := e.pools[address]; ok {
		e.mu.Unlock()
		return nil, clmm.Errorf(clmm.CodePoolAlreadyExists, "pool %s already initialized", address)
	}
	// Reserve the slot before the store write so a concurrent initialize
	// of the same pair fails fast.
	entry := &poolEntry{pool: pool}
	entry.mu.Lock()
	e.pools[address] = entry
	e.mu.Unlock()
	defer entry.mu.Unlock()

	if err := e.store.SavePool(ctx, pool); err != nil {
		e.mu.Lock()
		delete(e.pools, address)
		e.mu.Unlock()
		return nil, err
	}

	e.log.Info("pool initialized",
		zap.String("pool", address),
		zap.String("mint_a", mintA.String()),
		zap.String("mint_b", mintB.String()),
		zap.Uint16("fee_bps", feeRateBps),
		zap.Int32("tick", pool.TickCurrent))
	e.publish(newEvent(EventPoolInitialized, pool, e.seq.Add(1), nil))
	return pool.Clone(), nil
}

// MintReceipt reports a committed liquidity deposit.
type MintReceipt struct {
	Position solana.PublicKey
	AmountA  math.Int
	AmountB  math.Int
}

// Mint adds liquidity to a pool. The whole operation commits or none of it
// does: the mutation runs on a clone that only replaces the live pool after
// the store write succeeds.
func (e *Engine) Mint(ctx context.Context, poolAddress string, owner solana.PublicKey, tickLower, tickUpper int32, liquidity math.Int) (MintReceipt, error) {
	entry, err := e.entry(poolAddress)
	if err != nil {
		return MintReceipt{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	work := entry.pool.Clone()
	pos, amountA, amountB, err := work.Mint(owner, tickLower, tickUpper, liquidity)
	if err != nil {
		return MintReceipt{}, err
	}
	// Derive before persisting so a derivation failure cannot surface as an
	// error for an operation that already committed.
	posAddr, err := clmm.DerivePositionAddress(work.Address, owner, tickLower, tickUpper)
	if err != nil {
		return MintReceipt{}, err
	}
	if err := e.store.SavePool(ctx, work); err != nil {
		return MintReceipt{}, err
	}
	entry.pool = work

	e.log.Info("liquidity minted",
		zap.String("pool", poolAddress),
		zap.String("owner", owner.String()),
		zap.Int32("tick_lower", tickLower),
		zap.Int32("tick_upper", tickUpper),
		zap.String("liquidity", liquidity.String()))
	e.publish(newEvent(EventLiquidityMinted, work, e.seq.Add(1), LiquidityDetail{
		Owner:     owner.String(),
		Position:  posAddr.String(),
		TickLower: tickLower,
		TickUpper: tickUpper,
		Liquidity: pos.Liquidity.String(),
		AmountA:   amountA.String(),
		AmountB:   amountB.String(),
	}))
	return MintReceipt{Position: posAddr, AmountA: amountA, AmountB: amountB}, nil
}

// Burn removes liquidity from a position. The withdrawn amounts accrue to
// the position's owed balances.
func (e *Engine) Burn(ctx context.Context, poolAddress string, owner solana.PublicKey, tickLower, tickUpper int32, liquidity math.Int) (MintReceipt, error) {
	entry, err := e.entry(poolAddress)
	if err != nil {
		return MintReceipt{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	work := entry.pool.Clone()
	amountA, amountB, err := work.Burn(owner, tickLower, tickUpper, liquidity)
	if err != nil {
		return MintReceipt{}, err
	}
	posAddr, err := clmm.DerivePositionAddress(work.Address, owner, tickLower, tickUpper)
	if err != nil {
		return MintReceipt{}, err
	}
	if err := e.store.SavePool(ctx, work); err != nil {
		return MintReceipt{}, err
	}
	entry.pool = work

	e.log.Info("liquidity burned",
		zap.String("pool", poolAddress),
		zap.String("owner", owner.String()),
		zap.String("liquidity", liquidity.String()))
	e.publish(newEvent(EventLiquidityBurned, work, e.seq.Add(1), LiquidityDetail{
		Owner:     owner.String(),
		Position:  posAddr.String(),
		TickLower: tickLower,
		TickUpper: tickUpper,
		Liquidity: liquidity.String(),
		AmountA:   amountA.String(),
		AmountB:   amountB.String(),
	}))
	return MintReceipt{Position: posAddr, AmountA: amountA, AmountB: amountB}, nil
}

// Swap trades against a pool. A fill stopped early by the price limit
// commits what it settled and reports LimitReached.
func (e *Engine) Swap(ctx context.Context, poolAddress string, aToB, exactIn bool, amount uint64, sqrtPriceLimit math.Int) (clmm.SwapResult, error) {
	entry, err := e.entry(poolAddress)
	if err != nil {
		return clmm.SwapResult{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	work := entry.pool.Clone()
	res, err := work.Swap(aToB, exactIn, amount, sqrtPriceLimit)
	if err != nil {
		return clmm.SwapResult{}, err
	}
	if err := e.store.SavePool(ctx, work); err != nil {
		return clmm.SwapResult{}, err
	}
	entry.pool = work

	e.log.Info("swap executed",
		zap.String("pool", poolAddress),
		zap.Bool("a_to_b", aToB),
		zap.Bool("exact_in", exactIn),
		zap.Uint64("amount_in", res.AmountIn),
		zap.Uint64("amount_out", res.AmountOut),
		zap.Uint64("fee", res.FeeAmount),
		zap.Int32("tick", res.TickCurrent),
		zap.Bool("limit_reached", res.LimitReached))
	e.publish(newEvent(EventSwapExecuted, work, e.seq.Add(1), SwapDetail{
		AToB:         aToB,
		ExactIn:      exactIn,
		AmountIn:     res.AmountIn,
		AmountOut:    res.AmountOut,
		FeeAmount:    res.FeeAmount,
		SqrtPrice:    res.SqrtPrice.String(),
		TickCurrent:  res.TickCurrent,
		LimitReached: res.LimitReached,
	}))
	return res, nil
}

// CollectFees pays out the owed balances of the position at the given
// address. caller must be the recorded owner.
func (e *Engine) CollectFees(ctx context.Context, poolAddress string, positionAddress, caller solana.PublicKey) (amountA, amountB uint64, err error) {
	entry, err := e.entry(poolAddress)
	if err != nil {
		return 0, 0, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	work := entry.pool.Clone()
	pos, err := findPositionByAddress(work, positionAddress)
	if err != nil {
		return 0, 0, err
	}
	if !pos.Owner.Equals(caller) {
		return 0, 0, clmm.Errorf(clmm.CodeNotPositionOwner, "caller %s does not own position %s", caller, positionAddress)
	}
	amountA, amountB, err = work.CollectFees(pos.Owner, pos.TickLower, pos.TickUpper)
	if err != nil {
		return 0, 0, err
	}
	if err := e.store.SavePool(ctx, work); err != nil {
		return 0, 0, err
	}
	entry.pool = work

	e.log.Info("fees collected",
		zap.String("pool", poolAddress),
		zap.String("position", positionAddress.String()),
		zap.Uint64("amount_a", amountA),
		zap.Uint64("amount_b", amountB))
	e.publish(newEvent(EventFeesCollected, work, e.seq.Add(1), CollectDetail{
		Owner:    pos.Owner.String(),
		Position: positionAddress.String(),
		AmountA:  amountA,
		AmountB:  amountB,
	}))
	return amountA, amountB, nil
}

func findPositionByAddress(pool *clmm.Pool, address solana.PublicKey) (*clmm.Position, error) {
	for _, pos := range pool.Positions {
		derived, err := clmm.DerivePositionAddress(pool.Address, pos.Owner, pos.TickLower, pos.TickUpper)
		if err != nil {
			return nil, err
		}
		if derived.Equals(address) {
			return pos, nil
		}
	}
	return nil, clmm.Errorf(clmm.CodePositionNotFound, "no position at %s", address)
}

// GetPool returns an isolated snapshot of one pool.
func (e *Engine) GetPool(address string) (*clmm.Pool, error) {
	entry, err := e.entry(address)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.pool.Clone(), nil
}

// ListPools returns snapshots of every pool.
func (e *Engine) ListPools() []*clmm.Pool {
	e.mu.RLock()
	entries := make([]*poolEntry, 0, len(e.pools))
	for _, entry := range e.pools {
		entries = append(entries, entry)
	}
	e.mu.RUnlock()

	pools := make([]*clmm.Pool, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		pools = append(pools, entry.pool.Clone())
		entry.mu.Unlock()
	}
	return pools
}

// GetPosition resolves a position by its derived address.
func (e *Engine) GetPosition(poolAddress string, positionAddress solana.PublicKey) (*clmm.Position, error) {
	pool, err := e.GetPool(poolAddress)
	if err != nil {
		return nil, err
	}
	return findPositionByAddress(pool, positionAddress)
}

// AccountData returns the pool's serialized account, base58-encoded the
// same way account notifications carry it.
func (e *Engine) AccountData(address string) (string, error) {
	entry, err := e.entry(address)
	if err != nil {
		return "", err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return base58.Encode(clmm.PoolAccountFromPool(entry.pool).Encode()), nil
}

func (e *Engine) Close() {
	e.store.Close()
}
