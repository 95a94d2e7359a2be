package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"solsettle/pkg/clmm"
	"solsettle/pkg/store"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []Event
}

func (c *capturePublisher) Publish(ev Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *capturePublisher) byType(typ EventType) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, ev := range c.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type failingStore struct {
	store.Store
	failAfter int
	saves     int
}

func (f *failingStore) SavePool(ctx context.Context, pool *clmm.Pool) error {
	f.saves++
	if f.saves > f.failAfter {
		return errors.New("disk full")
	}
	return f.Store.SavePool(ctx, pool)
}

func newTestEngine(t *testing.T) (*Engine, *capturePublisher) {
	t.Helper()
	pub := &capturePublisher{}
	e, err := New(context.Background(), zap.NewNop(), store.NewMemoryStore(), pub)
	if err != nil {
		t.Fatal(err)
	}
	return e, pub
}

func testMintPair(t *testing.T) (solana.PublicKey, solana.PublicKey) {
	t.Helper()
	a, b, _ := clmm.CanonicalMintOrder(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	return a, b
}

func TestInitializePool(t *testing.T) {
	ctx := context.Background()
	e, pub := newTestEngine(t)
	mintA, mintB := testMintPair(t)

	pool, err := e.InitializePool(ctx, mintA, mintB, clmm.Q64, 30, 60)
	if err != nil {
		t.Fatal(err)
	}
	if pool.TickCurrent != 0 {
		t.Errorf("tick %d at price 1.0", pool.TickCurrent)
	}

	// Same pair again, in either order, is a conflict.
	if _, err := e.InitializePool(ctx, mintA, mintB, clmm.Q64, 30, 60); !clmm.IsCode(err, clmm.CodePoolAlreadyExists) {
		t.Errorf("duplicate init: got %v", err)
	}
	if _, err := e.InitializePool(ctx, mintB, mintA, clmm.Q64, 30, 60); !clmm.IsCode(err, clmm.CodePoolAlreadyExists) {
		t.Errorf("reversed duplicate init: got %v", err)
	}

	if got := len(pub.byType(EventPoolInitialized)); got != 1 {
		t.Errorf("%d init events, want 1", got)
	}
}

func TestMintSwapCollectFlow(t *testing.T) {
	ctx := context.Background()
	e, pub := newTestEngine(t)
	mintA, mintB := testMintPair(t)
	owner := solana.NewWallet().PublicKey()

	pool, err := e.InitializePool(ctx, mintA, mintB, clmm.Q64, 30, 60)
	if err != nil {
		t.Fatal(err)
	}
	address := pool.Address.String()

	receipt, err := e.Mint(ctx, address, owner, -600, 600, math.NewInt(1_000_000_000))
	if err != nil {
		t.Fatal(err)
	}
	if want := math.NewInt(29_553_011); !receipt.AmountA.Equal(want) || !receipt.AmountB.Equal(want) {
		t.Errorf("deposits %s/%s, want %s each", receipt.AmountA, receipt.AmountB, want)
	}

	res, err := e.Swap(ctx, address, true, true, 1_000_000, math.Int{})
	if err != nil {
		t.Fatal(err)
	}
	if res.AmountOut != 996_006 || res.FeeAmount != 3_000 {
		t.Errorf("swap out=%d fee=%d", res.AmountOut, res.FeeAmount)
	}

	feeA, feeB, err := e.CollectFees(ctx, address, receipt.Position, owner)
	if err != nil {
		t.Fatal(err)
	}
	if feeA != 2_999 || feeB != 0 {
		t.Errorf("collected %d/%d, want 2999/0", feeA, feeB)
	}

	if _, err := e.Burn(ctx, address, owner, -600, 600, math.NewInt(500_000_000)); err != nil {
		t.Fatal(err)
	}

	// One event per committed operation, strictly ordered.
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 5 {
		t.Fatalf("%d events, want 5", len(pub.events))
	}
	for i := 1; i < len(pub.events); i++ {
		if pub.events[i].Sequence <= pub.events[i-1].Sequence {
			t.Fatal("event sequence not increasing")
		}
	}
	for _, ev := range pub.events {
		if ev.AccountData == "" || ev.Pool != address {
			t.Fatalf("malformed event %+v", ev)
		}
	}
}

func TestOperationsAreAtomic(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{Store: store.NewMemoryStore(), failAfter: 2}
	e, err := New(ctx, zap.NewNop(), fs, nil)
	if err != nil {
		t.Fatal(err)
	}
	mintA, mintB := testMintPair(t)
	owner := solana.NewWallet().PublicKey()

	pool, err := e.InitializePool(ctx, mintA, mintB, clmm.Q64, 30, 60)
	if err != nil {
		t.Fatal(err)
	}
	address := pool.Address.String()
	if _, err := e.Mint(ctx, address, owner, -600, 600, math.NewInt(1_000_000_000)); err != nil {
		t.Fatal(err)
	}

	// Third save fails; the swap must leave no trace.
	if _, err := e.Swap(ctx, address, true, true, 1_000_000, math.Int{}); err == nil {
		t.Fatal("swap succeeded past a failing store")
	}
	after, err := e.GetPool(address)
	if err != nil {
		t.Fatal(err)
	}
	if after.TickCurrent != 0 || !after.FeeGrowthGlobalA.IsZero() {
		t.Errorf("failed swap mutated the pool: tick=%d", after.TickCurrent)
	}
}

func TestCollectFeesOwnership(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	mintA, mintB := testMintPair(t)
	owner := solana.NewWallet().PublicKey()

	pool, err := e.InitializePool(ctx, mintA, mintB, clmm.Q64, 30, 60)
	if err != nil {
		t.Fatal(err)
	}
	address := pool.Address.String()
	receipt, err := e.Mint(ctx, address, owner, -600, 600, math.NewInt(1_000_000_000))
	if err != nil {
		t.Fatal(err)
	}

	stranger := solana.NewWallet().PublicKey()
	if _, _, err := e.CollectFees(ctx, address, receipt.Position, stranger); !clmm.IsCode(err, clmm.CodeNotPositionOwner) {
		t.Errorf("stranger collect: got %v", err)
	}
	if _, _, err := e.CollectFees(ctx, address, solana.NewWallet().PublicKey(), owner); !clmm.IsCode(err, clmm.CodePositionNotFound) {
		t.Errorf("unknown position: got %v", err)
	}
}

func TestPoolNotFound(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	owner := solana.NewWallet().PublicKey()

	if _, err := e.Mint(ctx, "nope", owner, -600, 600, math.NewInt(1_000_000)); !clmm.IsCode(err, clmm.CodePoolNotFound) {
		t.Errorf("mint on missing pool: got %v", err)
	}
	if _, err := e.Swap(ctx, "nope", true, true, 1, math.Int{}); !clmm.IsCode(err, clmm.CodePoolNotFound) {
		t.Errorf("swap on missing pool: got %v", err)
	}
	if _, err := e.GetPool("nope"); !clmm.IsCode(err, clmm.CodePoolNotFound) {
		t.Errorf("get missing pool: got %v", err)
	}
}

func TestEngineReload(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	e, err := New(ctx, zap.NewNop(), st, nil)
	if err != nil {
		t.Fatal(err)
	}
	mintA, mintB := testMintPair(t)
	owner := solana.NewWallet().PublicKey()

	pool, err := e.InitializePool(ctx, mintA, mintB, clmm.Q64, 30, 60)
	if err != nil {
		t.Fatal(err)
	}
	address := pool.Address.String()
	if _, err := e.Mint(ctx, address, owner, -600, 600, math.NewInt(1_000_000_000)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Swap(ctx, address, true, true, 1_000_000, math.Int{}); err != nil {
		t.Fatal(err)
	}
	before, err := e.GetPool(address)
	if err != nil {
		t.Fatal(err)
	}

	// A fresh engine over the same store sees identical state.
	e2, err := New(ctx, zap.NewNop(), st, nil)
	if err != nil {
		t.Fatal(err)
	}
	after, err := e2.GetPool(address)
	if err != nil {
		t.Fatal(err)
	}
	if !after.SqrtPrice.Equals(before.SqrtPrice) || after.TickCurrent != before.TickCurrent {
		t.Error("reloaded pool price state differs")
	}
	if !after.FeeGrowthGlobalA.Equals(before.FeeGrowthGlobalA) {
		t.Error("reloaded fee growth differs")
	}
	if len(after.Positions) != len(before.Positions) {
		t.Error("reloaded positions differ")
	}
}
