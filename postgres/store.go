// Package postgres implements api.KVStore against PostgreSQL using pgx's
// native pool API, one of the networked backends the root module's
// pluggable storage layer supports without importing a database driver
// itself.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowzero/zflow/pkg/api"
)

// Store is an api.KVStore backed by a *pgxpool.Pool.
//
// The caller owns the pool's lifecycle (Connect/Close); Store only runs
// queries against it.
type Store struct {
	pool *pgxpool.Pool
}

var _ api.KVStore = (*Store)(nil)

// New initializes the required schema against pool and returns a Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS zflow_kv (
			namespace TEXT NOT NULL,
			key       BYTEA NOT NULL,
			ts        BIGINT NOT NULL,
			value     BYTEA NOT NULL,
			PRIMARY KEY (namespace, key, ts)
		);
		CREATE INDEX IF NOT EXISTS zflow_kv_ns_key ON zflow_kv (namespace, key);
	`)
	return err
}

func (s *Store) Put(ctx context.Context, ns string, key []byte, value []byte, ts uint64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO zflow_kv (namespace, key, ts, value) VALUES ($1, $2, $3, $4)
		ON CONFLICT (namespace, key, ts) DO UPDATE SET value = excluded.value`,
		ns, key, int64(ts), value,
	)
	if err != nil {
		return api.NewIOError("put", ns, err)
	}
	return nil
}

func (s *Store) GetLatest(ctx context.Context, ns string, key []byte, before *uint64) ([]byte, bool, error) {
	var row pgx.Row
	if before == nil {
		row = s.pool.QueryRow(ctx, `
			SELECT value FROM zflow_kv
			WHERE namespace = $1 AND key = $2
			ORDER BY ts DESC LIMIT 1`,
			ns, key,
		)
	} else {
		row = s.pool.QueryRow(ctx, `
			SELECT value FROM zflow_kv
			WHERE namespace = $1 AND key = $2 AND ts <= $3
			ORDER BY ts DESC LIMIT 1`,
			ns, key, int64(*before),
		)
	}

	var value []byte
	if err := row.Scan(&value); err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, api.NewIOError("get_latest", ns, err)
	}
	return value, true, nil
}

func (s *Store) GetLatestTimestamp(ctx context.Context, ns string, key []byte) (uint64, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT ts FROM zflow_kv
		WHERE namespace = $1 AND key = $2
		ORDER BY ts DESC LIMIT 1`,
		ns, key,
	)

	var ts int64
	if err := row.Scan(&ts); err != nil {
		if err == pgx.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, api.NewIOError("get_latest_timestamp", ns, err)
	}
	return uint64(ts), true, nil
}

func (s *Store) GetAllTimestamps(ctx context.Context, ns string, key []byte) api.TimestampSeq {
	return func(yield func(uint64, error) bool) {
		rows, err := s.pool.Query(ctx, `
			SELECT ts FROM zflow_kv
			WHERE namespace = $1 AND key = $2
			ORDER BY ts DESC`,
			ns, key,
		)
		if err != nil {
			yield(0, api.NewIOError("get_all_timestamps", ns, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var ts int64
			if err := rows.Scan(&ts); err != nil {
				yield(0, api.NewIOError("get_all_timestamps", ns, err))
				return
			}
			if !yield(uint64(ts), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(0, api.NewIOError("get_all_timestamps", ns, err))
		}
	}
}

func (s *Store) ScanAll(ctx context.Context, ns string) api.EntrySeq {
	return func(yield func(api.Entry, error) bool) {
		rows, err := s.pool.Query(ctx, `
			SELECT key, value FROM zflow_kv outer_kv
			WHERE namespace = $1 AND ts = (
				SELECT MAX(ts) FROM zflow_kv inner_kv
				WHERE inner_kv.namespace = outer_kv.namespace AND inner_kv.key = outer_kv.key
			)
			ORDER BY key`,
			ns,
		)
		if err != nil {
			yield(api.Entry{}, api.NewIOError("scan_all", ns, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var e api.Entry
			if err := rows.Scan(&e.Key, &e.Value); err != nil {
				yield(api.Entry{}, api.NewIOError("scan_all", ns, err))
				return
			}
			if !yield(e, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(api.Entry{}, api.NewIOError("scan_all", ns, err))
		}
	}
}

func (s *Store) ScanAllKeys(ctx context.Context, ns string) api.KeySeq {
	entries := s.ScanAll(ctx, ns)
	return func(yield func([]byte, error) bool) {
		for e, err := range entries {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(e.Key, nil) {
				return
			}
		}
	}
}

func (s *Store) Delete(ctx context.Context, ns string, key []byte, marker *uint64) error {
	var err error
	if marker == nil {
		_, err = s.pool.Exec(ctx, `DELETE FROM zflow_kv WHERE namespace = $1 AND key = $2`, ns, key)
	} else {
		_, err = s.pool.Exec(ctx, `
			DELETE FROM zflow_kv
			WHERE namespace = $1 AND key = $2 AND ts <= $3 AND ts < (
				SELECT MAX(ts) FROM zflow_kv
				WHERE namespace = $1 AND key = $2 AND ts <= $3
			)`,
			ns, key, int64(*marker),
		)
	}
	if err != nil {
		return api.NewIOError("delete", ns, err)
	}
	return nil
}
