package kv

import (
	"context"
	"database/sql"

	"github.com/flowzero/zflow/pkg/api"
)

// SQLiteStore is an api.KVStore backed by SQLite.
//
// It expects an *sql.DB using a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing the
// driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteStore struct {
	db *sql.DB
}

var _ api.KVStore = (*SQLiteStore)(nil)

// NewSQLiteStore initializes the required schema in db and returns a new
// SQLiteStore.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS zflow_kv (
			namespace TEXT NOT NULL,
			key       BLOB NOT NULL,
			ts        INTEGER NOT NULL,
			value     BLOB NOT NULL,
			PRIMARY KEY (namespace, key, ts)
		);
		CREATE INDEX IF NOT EXISTS zflow_kv_ns_key ON zflow_kv (namespace, key);
	`)
	return err
}

func (s *SQLiteStore) Put(ctx context.Context, ns string, key []byte, value []byte, ts uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO zflow_kv (namespace, key, ts, value) VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, key, ts) DO UPDATE SET value = excluded.value`,
		ns, key, ts, value,
	)
	if err != nil {
		return api.NewIOError("put", ns, err)
	}
	return nil
}

func (s *SQLiteStore) GetLatest(ctx context.Context, ns string, key []byte, before *uint64) ([]byte, bool, error) {
	var row *sql.Row
	if before == nil {
		row = s.db.QueryRowContext(ctx, `
			SELECT value FROM zflow_kv
			WHERE namespace = ? AND key = ?
			ORDER BY ts DESC LIMIT 1`,
			ns, key,
		)
	} else {
		row = s.db.QueryRowContext(ctx, `
			SELECT value FROM zflow_kv
			WHERE namespace = ? AND key = ? AND ts <= ?
			ORDER BY ts DESC LIMIT 1`,
			ns, key, *before,
		)
	}

	var value []byte
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, api.NewIOError("get_latest", ns, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) GetLatestTimestamp(ctx context.Context, ns string, key []byte) (uint64, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT ts FROM zflow_kv
		WHERE namespace = ? AND key = ?
		ORDER BY ts DESC LIMIT 1`,
		ns, key,
	)

	var ts uint64
	if err := row.Scan(&ts); err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, api.NewIOError("get_latest_timestamp", ns, err)
	}
	return ts, true, nil
}

func (s *SQLiteStore) GetAllTimestamps(ctx context.Context, ns string, key []byte) api.TimestampSeq {
	return func(yield func(uint64, error) bool) {
		rows, err := s.db.QueryContext(ctx, `
			SELECT ts FROM zflow_kv
			WHERE namespace = ? AND key = ?
			ORDER BY ts DESC`,
			ns, key,
		)
		if err != nil {
			yield(0, api.NewIOError("get_all_timestamps", ns, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var ts uint64
			if err := rows.Scan(&ts); err != nil {
				yield(0, api.NewIOError("get_all_timestamps", ns, err))
				return
			}
			if !yield(ts, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(0, api.NewIOError("get_all_timestamps", ns, err))
		}
	}
}

func (s *SQLiteStore) ScanAll(ctx context.Context, ns string) api.EntrySeq {
	return func(yield func(api.Entry, error) bool) {
		rows, err := s.db.QueryContext(ctx, `
			SELECT key, value FROM zflow_kv
			WHERE namespace = ? AND ts = (
				SELECT MAX(ts) FROM zflow_kv AS inner
				WHERE inner.namespace = zflow_kv.namespace AND inner.key = zflow_kv.key
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

func (s *SQLiteStore) ScanAllKeys(ctx context.Context, ns string) api.KeySeq {
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

func (s *SQLiteStore) Delete(ctx context.Context, ns string, key []byte, marker *uint64) error {
	var err error
	if marker == nil {
		_, err = s.db.ExecContext(ctx, `DELETE FROM zflow_kv WHERE namespace = ? AND key = ?`, ns, key)
	} else {
		// Keep the newest surviving version at or before marker: delete
		// everything at or before marker except that single newest row.
		_, err = s.db.ExecContext(ctx, `
			DELETE FROM zflow_kv
			WHERE namespace = ? AND key = ? AND ts <= ? AND ts < (
				SELECT MAX(ts) FROM zflow_kv
				WHERE namespace = ? AND key = ? AND ts <= ?
			)`,
			ns, key, *marker, ns, key, *marker,
		)
	}
	if err != nil {
		return api.NewIOError("delete", ns, err)
	}
	return nil
}
