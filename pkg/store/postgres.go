package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"solsettle/pkg/clmm"
)

// PostgresStore persists pools in three tables keyed by the pool address,
// one row per serialized account. Every SavePool runs in one transaction so
// a pool on disk is always a consistent snapshot.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS pools (
			address    TEXT PRIMARY KEY,
			data       BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS ticks (
			pool_address TEXT NOT NULL REFERENCES pools(address) ON DELETE CASCADE,
			tick_index   INTEGER NOT NULL,
			data         BYTEA NOT NULL,
			PRIMARY KEY (pool_address, tick_index)
		);
		CREATE TABLE IF NOT EXISTS positions (
			pool_address TEXT NOT NULL REFERENCES pools(address) ON DELETE CASCADE,
			position_key TEXT NOT NULL,
			data         BYTEA NOT NULL,
			PRIMARY KEY (pool_address, position_key)
		);
	`)
	return err
}

func (s *PostgresStore) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *PostgresStore) SavePool(ctx context.Context, pool *clmm.Pool) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	address := pool.Address.String()
	_, err = tx.Exec(ctx, `
		INSERT INTO pools (address, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (address) DO UPDATE
		SET data = EXCLUDED.data, updated_at = now()
	`, address, clmm.PoolAccountFromPool(pool).Encode())
	if err != nil {
		return err
	}

	// Replace the dependent rows wholesale; the row counts per pool are
	// small and this keeps deletions (emptied ticks, closed positions)
	// from lingering.
	if _, err := tx.Exec(ctx, `DELETE FROM ticks WHERE pool_address = $1`, address); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM positions WHERE pool_address = $1`, address); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	queued := 0
	pool.Ticks.Each(func(t *clmm.TickState) {
		batch.Queue(`
			INSERT INTO ticks (pool_address, tick_index, data)
			VALUES ($1, $2, $3)
		`, address, t.Index, clmm.TickAccountFromState(pool.Address, t).Encode())
		queued++
	})
	for _, pos := range pool.Positions {
		batch.Queue(`
			INSERT INTO positions (pool_address, position_key, data)
			VALUES ($1, $2, $3)
		`, address, pos.Key(), clmm.PositionAccountFromPosition(pool.Address, pos).Encode())
		queued++
	}
	if queued > 0 {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < queued; i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return err
			}
		}
		if err := br.Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) LoadPool(ctx context.Context, address string) (*clmm.Pool, error) {
	var data []byte
	row := s.db.QueryRow(ctx, `SELECT data FROM pools WHERE address = $1`, address)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	account, err := clmm.DecodePoolAccount(data)
	if err != nil {
		return nil, err
	}

	ticks, err := s.loadTicks(ctx, address)
	if err != nil {
		return nil, err
	}
	positions, err := s.loadPositions(ctx, address)
	if err != nil {
		return nil, err
	}
	return clmm.PoolFromAccounts(account, ticks, positions)
}

func (s *PostgresStore) LoadAllPools(ctx context.Context) ([]*clmm.Pool, error) {
	rows, err := s.db.Query(ctx, `SELECT address FROM pools ORDER BY address`)
	if err != nil {
		return nil, err
	}
	var addresses []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			rows.Close()
			return nil, err
		}
		addresses = append(addresses, addr)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pools := make([]*clmm.Pool, 0, len(addresses))
	for _, addr := range addresses {
		p, err := s.LoadPool(ctx, addr)
		if err != nil {
			return nil, err
		}
		pools = append(pools, p)
	}
	return pools, nil
}

func (s *PostgresStore) loadTicks(ctx context.Context, address string) ([]*clmm.TickAccount, error) {
	rows, err := s.db.Query(ctx, `SELECT data FROM ticks WHERE pool_address = $1`, address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ticks []*clmm.TickAccount
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		t, err := clmm.DecodeTickAccount(data)
		if err != nil {
			return nil, err
		}
		ticks = append(ticks, t)
	}
	return ticks, rows.Err()
}

func (s *PostgresStore) loadPositions(ctx context.Context, address string) ([]*clmm.PositionAccount, error) {
	rows, err := s.db.Query(ctx, `SELECT data FROM positions WHERE pool_address = $1`, address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var positions []*clmm.PositionAccount
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		p, err := clmm.DecodePositionAccount(data)
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}
