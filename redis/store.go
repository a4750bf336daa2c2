// Package redis implements api.KVStore against Redis, modeling a key's
// version history as a sorted set of timestamps plus one string value
// per timestamp,
// following the key-prefixing style of the teacher's RedisInstanceStore.
package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/flowzero/zflow/pkg/api"
)

// Store is an api.KVStore backed by a *redis.Client.
//
// Per (ns, key) it keeps:
//
//	<prefix>:ts:<ns>:<key>      => ZSET member=ts score=ts (history index)
//	<prefix>:val:<ns>:<key>:<ts> => STRING value at that timestamp
//	<prefix>:keys:<ns>          => SET of every key ever written in ns
type Store struct {
	client *redis.Client
	prefix string
}

var _ api.KVStore = (*Store)(nil)

// New creates a Store. prefix is optional; it defaults to "zflow:".
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "zflow:"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) keyTS(ns string, key []byte) string {
	return s.prefix + "ts:" + ns + ":" + string(key)
}

func (s *Store) keyValue(ns string, key []byte, ts uint64) string {
	return s.prefix + "val:" + ns + ":" + string(key) + ":" + strconv.FormatUint(ts, 10)
}

func (s *Store) keyKeySet(ns string) string {
	return s.prefix + "keys:" + ns
}

func (s *Store) Put(ctx context.Context, ns string, key []byte, value []byte, ts uint64) error {
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, s.keyTS(ns, key), redis.Z{Score: float64(ts), Member: ts})
	pipe.Set(ctx, s.keyValue(ns, key, ts), value, 0)
	pipe.SAdd(ctx, s.keyKeySet(ns), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return api.NewIOError("put", ns, err)
	}
	return nil
}

func (s *Store) getAtTS(ctx context.Context, ns string, key []byte, ts uint64) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, s.keyValue(ns, key, ts)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

func (s *Store) GetLatest(ctx context.Context, ns string, key []byte, before *uint64) ([]byte, bool, error) {
	ts, found, err := s.GetLatestTimestamp(ctx, ns, key)
	if err != nil {
		return nil, false, err
	}
	if before != nil {
		// ZADD scores float64; re-derive the newest member <= *before
		// directly rather than trusting GetLatestTimestamp's unbounded max.
		members, err := s.client.ZRevRangeByScore(ctx, s.keyTS(ns, key), &redis.ZRangeBy{
			Min: "-inf",
			Max: strconv.FormatUint(*before, 10),
		}).Result()
		if err != nil {
			return nil, false, api.NewIOError("get_latest", ns, err)
		}
		if len(members) == 0 {
			return nil, false, nil
		}
		parsed, err := strconv.ParseUint(members[0], 10, 64)
		if err != nil {
			return nil, false, api.NewIOError("get_latest", ns, err)
		}
		ts, found = parsed, true
	}
	if !found {
		return nil, false, nil
	}
	v, found, err := s.getAtTS(ctx, ns, key, ts)
	if err != nil {
		return nil, false, api.NewIOError("get_latest", ns, err)
	}
	return v, found, nil
}

func (s *Store) GetLatestTimestamp(ctx context.Context, ns string, key []byte) (uint64, bool, error) {
	members, err := s.client.ZRevRangeByScore(ctx, s.keyTS(ns, key), &redis.ZRangeBy{
		Min: "-inf", Max: "+inf", Count: 1,
	}).Result()
	if err != nil {
		return 0, false, api.NewIOError("get_latest_timestamp", ns, err)
	}
	if len(members) == 0 {
		return 0, false, nil
	}
	ts, err := strconv.ParseUint(members[0], 10, 64)
	if err != nil {
		return 0, false, api.NewIOError("get_latest_timestamp", ns, err)
	}
	return ts, true, nil
}

func (s *Store) GetAllTimestamps(ctx context.Context, ns string, key []byte) api.TimestampSeq {
	return func(yield func(uint64, error) bool) {
		members, err := s.client.ZRevRange(ctx, s.keyTS(ns, key), 0, -1).Result()
		if err != nil {
			yield(0, api.NewIOError("get_all_timestamps", ns, err))
			return
		}
		for _, m := range members {
			ts, err := strconv.ParseUint(m, 10, 64)
			if err != nil {
				yield(0, api.NewIOError("get_all_timestamps", ns, err))
				return
			}
			if !yield(ts, nil) {
				return
			}
		}
	}
}

func (s *Store) ScanAll(ctx context.Context, ns string) api.EntrySeq {
	return func(yield func(api.Entry, error) bool) {
		keys, err := s.client.SMembers(ctx, s.keyKeySet(ns)).Result()
		if err != nil {
			yield(api.Entry{}, api.NewIOError("scan_all", ns, err))
			return
		}
		for _, k := range keys {
			v, found, err := s.GetLatest(ctx, ns, []byte(k), nil)
			if err != nil {
				yield(api.Entry{}, err)
				return
			}
			if !found {
				continue
			}
			if !yield(api.Entry{Key: []byte(k), Value: v}, nil) {
				return
			}
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
	if marker == nil {
		members, err := s.client.ZRange(ctx, s.keyTS(ns, key), 0, -1).Result()
		if err != nil {
			return api.NewIOError("delete", ns, err)
		}
		pipe := s.client.TxPipeline()
		for _, m := range members {
			ts, _ := strconv.ParseUint(m, 10, 64)
			pipe.Del(ctx, s.keyValue(ns, key, ts))
		}
		pipe.Del(ctx, s.keyTS(ns, key))
		pipe.SRem(ctx, s.keyKeySet(ns), key)
		if _, err := pipe.Exec(ctx); err != nil {
			return api.NewIOError("delete", ns, err)
		}
		return nil
	}

	// Keep the newest surviving version at or before marker (the last
	// entry in ascending order); drop every other version at or before
	// marker.
	members, err := s.client.ZRangeByScore(ctx, s.keyTS(ns, key), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatUint(*marker, 10),
	}).Result()
	if err != nil {
		return api.NewIOError("delete", ns, err)
	}
	if len(members) == 0 {
		return nil
	}
	keepMember := members[len(members)-1]

	pipe := s.client.TxPipeline()
	for _, m := range members {
		if m == keepMember {
			continue
		}
		ts, _ := strconv.ParseUint(m, 10, 64)
		pipe.Del(ctx, s.keyValue(ns, key, ts))
		pipe.ZRem(ctx, s.keyTS(ns, key), m)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return api.NewIOError("delete", ns, err)
	}
	return nil
}
