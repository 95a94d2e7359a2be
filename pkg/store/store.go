// Package store persists settlement pools. Pools are written whole after
// every committed operation and read back on startup, so the engine never
// serves state the store has not seen.
package store

import (
	"context"
	"errors"

	"solsettle/pkg/clmm"
)

// ErrNotFound is returned when a pool address has no stored state.
var ErrNotFound = errors.New("store: pool not found")

// Store is the persistence boundary of the engine.
type Store interface {
	// SavePool writes the pool with all of its ticks and positions
	// atomically, replacing any previous state.
	SavePool(ctx context.Context, pool *clmm.Pool) error

	// LoadPool rebuilds one pool by address.
	LoadPool(ctx context.Context, address string) (*clmm.Pool, error)

	// LoadAllPools rebuilds every stored pool.
	LoadAllPools(ctx context.Context) ([]*clmm.Pool, error)

	Close()
}
