// Package mongo implements api.KVStore against MongoDB, modeling a
// (namespace, key) pair as a single document with an embedded array of
// {ts, value} pairs, following the one-document-per-instance style of
// the teacher's MongoInstanceStore.
package mongo

import (
	"context"
	"errors"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/flowzero/zflow/pkg/api"
)

// Store is an api.KVStore backed by a *mongo.Collection.
type Store struct {
	coll *mongo.Collection
}

var _ api.KVStore = (*Store)(nil)

// New creates a Store. dbName and collName default to "zflow" and
// "kv_entries" when empty.
func New(client *mongo.Client, dbName, collName string) *Store {
	if dbName == "" {
		dbName = "zflow"
	}
	if collName == "" {
		collName = "kv_entries"
	}
	return &Store{coll: client.Database(dbName).Collection(collName)}
}

type versionDoc struct {
	TS    int64  `bson:"ts"`
	Value []byte `bson:"value"`
}

type kvDoc struct {
	ID       string       `bson:"_id"`
	Ns       string       `bson:"ns"`
	Key      []byte       `bson:"key"`
	Versions []versionDoc `bson:"versions"`
}

func docID(ns string, key []byte) string {
	return ns + "\x00" + string(key)
}

func (s *Store) loadDoc(ctx context.Context, ns string, key []byte) (*kvDoc, error) {
	var doc kvDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": docID(ns, key)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (s *Store) Put(ctx context.Context, ns string, key []byte, value []byte, ts uint64) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": docID(ns, key)},
		bson.M{
			"$pull":        bson.M{"versions": bson.M{"ts": int64(ts)}},
			"$setOnInsert": bson.M{"ns": ns, "key": key},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return api.NewIOError("put", ns, err)
	}

	_, err = s.coll.UpdateOne(ctx,
		bson.M{"_id": docID(ns, key)},
		bson.M{"$push": bson.M{"versions": versionDoc{TS: int64(ts), Value: value}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return api.NewIOError("put", ns, err)
	}
	return nil
}

// latestIndex mirrors internal/kv.MemoryStore's helper: versions need not
// arrive pre-sorted, so sort a copy before searching.
func latestIndex(versions []versionDoc, before *uint64) int {
	sorted := append([]versionDoc(nil), versions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TS < sorted[j].TS })

	if before == nil {
		if len(sorted) == 0 {
			return -1
		}
		return len(sorted) - 1
	}
	best := -1
	for i, v := range sorted {
		if uint64(v.TS) <= *before {
			best = i
		}
	}
	return best
}

func sortedVersions(versions []versionDoc) []versionDoc {
	sorted := append([]versionDoc(nil), versions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TS < sorted[j].TS })
	return sorted
}

func (s *Store) GetLatest(ctx context.Context, ns string, key []byte, before *uint64) ([]byte, bool, error) {
	doc, err := s.loadDoc(ctx, ns, key)
	if err != nil {
		return nil, false, api.NewIOError("get_latest", ns, err)
	}
	if doc == nil {
		return nil, false, nil
	}
	sorted := sortedVersions(doc.Versions)
	i := latestIndex(sorted, before)
	if i < 0 {
		return nil, false, nil
	}
	return sorted[i].Value, true, nil
}

func (s *Store) GetLatestTimestamp(ctx context.Context, ns string, key []byte) (uint64, bool, error) {
	doc, err := s.loadDoc(ctx, ns, key)
	if err != nil {
		return 0, false, api.NewIOError("get_latest_timestamp", ns, err)
	}
	if doc == nil {
		return 0, false, nil
	}
	sorted := sortedVersions(doc.Versions)
	i := latestIndex(sorted, nil)
	if i < 0 {
		return 0, false, nil
	}
	return uint64(sorted[i].TS), true, nil
}

func (s *Store) GetAllTimestamps(ctx context.Context, ns string, key []byte) api.TimestampSeq {
	return func(yield func(uint64, error) bool) {
		doc, err := s.loadDoc(ctx, ns, key)
		if err != nil {
			yield(0, api.NewIOError("get_all_timestamps", ns, err))
			return
		}
		if doc == nil {
			return
		}
		sorted := sortedVersions(doc.Versions)
		for i := len(sorted) - 1; i >= 0; i-- {
			if !yield(uint64(sorted[i].TS), nil) {
				return
			}
		}
	}
}

func (s *Store) ScanAll(ctx context.Context, ns string) api.EntrySeq {
	return func(yield func(api.Entry, error) bool) {
		cur, err := s.coll.Find(ctx, bson.M{"ns": ns}, options.Find().SetSort(bson.M{"key": 1}))
		if err != nil {
			yield(api.Entry{}, api.NewIOError("scan_all", ns, err))
			return
		}
		defer cur.Close(ctx)

		for cur.Next(ctx) {
			var doc kvDoc
			if err := cur.Decode(&doc); err != nil {
				yield(api.Entry{}, api.NewIOError("scan_all", ns, err))
				return
			}
			sorted := sortedVersions(doc.Versions)
			if len(sorted) == 0 {
				continue
			}
			latest := sorted[len(sorted)-1]
			if !yield(api.Entry{Key: doc.Key, Value: latest.Value}, nil) {
				return
			}
		}
		if err := cur.Err(); err != nil {
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
	if marker == nil {
		_, err := s.coll.DeleteOne(ctx, bson.M{"_id": docID(ns, key)})
		if err != nil {
			return api.NewIOError("delete", ns, err)
		}
		return nil
	}

	doc, err := s.loadDoc(ctx, ns, key)
	if err != nil {
		return api.NewIOError("delete", ns, err)
	}
	if doc == nil {
		return nil
	}
	sorted := sortedVersions(doc.Versions)
	i := latestIndex(sorted, marker)
	if i < 0 {
		return nil
	}
	// Keep the newest surviving version at or before marker, plus
	// everything strictly after marker.
	kept := sorted[i:]

	_, err = s.coll.UpdateOne(ctx,
		bson.M{"_id": docID(ns, key)},
		bson.M{"$set": bson.M{"versions": kept}},
	)
	if err != nil {
		return api.NewIOError("delete", ns, err)
	}
	return nil
}
