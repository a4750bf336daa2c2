package api

import "context"

// KVStore is the durable, versioned key-value contract every other
// component is built on (spec §4.1): a mapping (namespace, key) → an
// ordered sequence of (timestamp, value) pairs, with range scans and
// marker-based truncation.
//
// Every scan returns a lazy, range-over-func iterator in the shape of
// the standard library's iter.Seq2: a caller-driven `for v, err := range
// seq` loop pulls one element at a time, and stopping the loop early
// (break/return) lets the implementation release whatever resource it
// was streaming from (open rows, a cursor, a snapshot) without having
// buffered the rest of the table. A non-nil err ends the sequence; the
// caller should stop ranging once it sees one.
type KVStore interface {
	// Put inserts the version (ns, key, ts, value), overwriting any
	// prior write at the same (ns, key, ts).
	Put(ctx context.Context, ns string, key []byte, value []byte, ts uint64) error

	// GetLatest returns the value of the largest-timestamp version with
	// ts <= *before, or the largest version overall if before is nil.
	// found is false if no such version exists; it is never false
	// because of a transient failure (those return a non-nil error).
	GetLatest(ctx context.Context, ns string, key []byte, before *uint64) (value []byte, found bool, err error)

	// GetLatestTimestamp is GetLatest's timestamp-only counterpart.
	GetLatestTimestamp(ctx context.Context, ns string, key []byte) (ts uint64, found bool, err error)

	// GetAllTimestamps streams every timestamp for (ns, key), newest
	// first.
	GetAllTimestamps(ctx context.Context, ns string, key []byte) TimestampSeq

	// ScanAll streams one (key, value) pair per key in ns, the value
	// being that key's newest surviving version.
	ScanAll(ctx context.Context, ns string) EntrySeq

	// ScanAllKeys is ScanAll without the values.
	ScanAllKeys(ctx context.Context, ns string) KeySeq

	// Delete removes versions of (ns, key). With a non-nil marker it
	// truncates history up to and including marker, retaining the
	// single newest surviving version at or before marker so that
	// GetLatest(ns, key, before=marker) keeps answering consistently.
	// With marker == nil it removes every version.
	Delete(ctx context.Context, ns string, key []byte, marker *uint64) error
}

// Entry is one (key, value) pair yielded by ScanAll.
type Entry struct {
	Key   []byte
	Value []byte
}

// TimestampSeq, EntrySeq, and KeySeq are the fallible lazy-sequence
// shapes KVStore scans return. They follow the standard range-over-func
// iterator convention (see iter.Seq2): range over them with
//
//	for item, err := range seq {
//	    if err != nil { ... ; break }
//	    ...
//	}
type (
	TimestampSeq func(yield func(uint64, error) bool)
	EntrySeq     func(yield func(Entry, error) bool)
	KeySeq       func(yield func([]byte, error) bool)
)
