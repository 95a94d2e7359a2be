package store

import (
	"context"
	"sync"

	"solsettle/pkg/clmm"
)

type memoryRecord struct {
	pool      []byte
	ticks     [][]byte
	positions [][]byte
}

// MemoryStore keeps the serialized accounts in process memory. It is the
// default when no database is configured and the backend used by tests.
type MemoryStore struct {
	mu    sync.RWMutex
	pools map[string]memoryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pools: make(map[string]memoryRecord)}
}

func (s *MemoryStore) SavePool(_ context.Context, pool *clmm.Pool) error {
	rec := memoryRecord{pool: clmm.PoolAccountFromPool(pool).Encode()}
	pool.Ticks.Each(func(t *clmm.TickState) {
		rec.ticks = append(rec.ticks, clmm.TickAccountFromState(pool.Address, t).Encode())
	})
	for _, pos := range pool.Positions {
		rec.positions = append(rec.positions, clmm.PositionAccountFromPosition(pool.Address, pos).Encode())
	}

	s.mu.Lock()
	s.pools[pool.Address.String()] = rec
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) LoadPool(_ context.Context, address string) (*clmm.Pool, error) {
	s.mu.RLock()
	rec, ok := s.pools[address]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeRecord(rec)
}

func (s *MemoryStore) LoadAllPools(_ context.Context) ([]*clmm.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pools := make([]*clmm.Pool, 0, len(s.pools))
	for _, rec := range s.pools {
		p, err := decodeRecord(rec)
		if err != nil {
			return nil, err
		}
		pools = append(pools, p)
	}
	return pools, nil
}

func (s *MemoryStore) Close() {}

func decodeRecord(rec memoryRecord) (*clmm.Pool, error) {
	account, err := clmm.DecodePoolAccount(rec.pool)
	if err != nil {
		return nil, err
	}
	ticks := make([]*clmm.TickAccount, 0, len(rec.ticks))
	for _, data := range rec.ticks {
		t, err := clmm.DecodeTickAccount(data)
		if err != nil {
			return nil, err
		}
		ticks = append(ticks, t)
	}
	positions := make([]*clmm.PositionAccount, 0, len(rec.positions))
	for _, data := range rec.positions {
		p, err := clmm.DecodePositionAccount(data)
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return clmm.PoolFromAccounts(account, ticks, positions)
}
