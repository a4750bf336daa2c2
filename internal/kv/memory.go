// Package kv provides in-process backends for api.KVStore: an in-memory
// reference implementation and a SQLite-backed implementation.
package kv

import (
	"context"
	"sort"
	"sync"

	"github.com/flowzero/zflow/pkg/api"
)

type version struct {
	ts    uint64
	value []byte
}

// MemoryStore is a goroutine-safe api.KVStore backed by maps. It keeps
// every version of every key in memory and is meant as the reference
// implementation: simple enough to trust, used as the baseline other
// backends are tested against.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]version // namespace -> key -> versions, sorted by ts asc
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string][]version)}
}

var _ api.KVStore = (*MemoryStore)(nil)

func (s *MemoryStore) Put(_ context.Context, ns string, key []byte, value []byte, ts uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.data[ns]
	if keys == nil {
		keys = make(map[string][]version)
		s.data[ns] = keys
	}
	k := string(key)
	versions := keys[k]

	v := append([]byte(nil), value...)
	i := sort.Search(len(versions), func(i int) bool { return versions[i].ts >= ts })
	switch {
	case i < len(versions) && versions[i].ts == ts:
		versions[i].value = v
	case i == len(versions):
		versions = append(versions, version{ts: ts, value: v})
	default:
		versions = append(versions, version{})
		copy(versions[i+1:], versions[i:])
		versions[i] = version{ts: ts, value: v}
	}
	keys[k] = versions
	return nil
}

// latestIndex returns the index of the newest version with ts <= before
// (or the newest version overall if before is nil), or -1 if none exists.
func latestIndex(versions []version, before *uint64) int {
	if before == nil {
		if len(versions) == 0 {
			return -1
		}
		return len(versions) - 1
	}
	i := sort.Search(len(versions), func(i int) bool { return versions[i].ts > *before })
	if i == 0 {
		return -1
	}
	return i - 1
}

func (s *MemoryStore) GetLatest(_ context.Context, ns string, key []byte, before *uint64) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.data[ns][string(key)]
	i := latestIndex(versions, before)
	if i < 0 {
		return nil, false, nil
	}
	return append([]byte(nil), versions[i].value...), true, nil
}

func (s *MemoryStore) GetLatestTimestamp(_ context.Context, ns string, key []byte) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.data[ns][string(key)]
	i := latestIndex(versions, nil)
	if i < 0 {
		return 0, false, nil
	}
	return versions[i].ts, true, nil
}

func (s *MemoryStore) GetAllTimestamps(_ context.Context, ns string, key []byte) api.TimestampSeq {
	s.mu.RLock()
	versions := append([]version(nil), s.data[ns][string(key)]...)
	s.mu.RUnlock()

	return func(yield func(uint64, error) bool) {
		for i := len(versions) - 1; i >= 0; i-- {
			if !yield(versions[i].ts, nil) {
				return
			}
		}
	}
}

func (s *MemoryStore) ScanAll(_ context.Context, ns string) api.EntrySeq {
	s.mu.RLock()
	keys := s.data[ns]
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)
	snapshot := make(map[string][]version, len(keys))
	for _, k := range names {
		snapshot[k] = append([]version(nil), keys[k]...)
	}
	s.mu.RUnlock()

	return func(yield func(api.Entry, error) bool) {
		for _, k := range names {
			versions := snapshot[k]
			if len(versions) == 0 {
				continue
			}
			latest := versions[len(versions)-1]
			if !yield(api.Entry{Key: []byte(k), Value: latest.value}, nil) {
				return
			}
		}
	}
}

func (s *MemoryStore) ScanAllKeys(ctx context.Context, ns string) api.KeySeq {
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

func (s *MemoryStore) Delete(_ context.Context, ns string, key []byte, marker *uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.data[ns]
	if keys == nil {
		return nil
	}
	k := string(key)
	if marker == nil {
		delete(keys, k)
		return nil
	}

	versions := keys[k]
	i := latestIndex(versions, marker)
	if i < 0 {
		return nil
	}
	// Keep the newest surviving version at or before marker, plus
	// everything strictly after marker.
	cut := append([]version(nil), versions[i:]...)
	keys[k] = cut
	return nil
}
