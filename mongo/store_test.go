package mongo

import (
	"context"
	"testing"

	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stretchr/testify/suite"

	"github.com/flowzero/zflow/mongo/internal/testutil"
	"github.com/flowzero/zflow/pkg/api"
)

// StoreTestSuite runs the KV store conformance properties (spec §8)
// against a real MongoDB instance.
type StoreTestSuite struct {
	suite.Suite
	client *mongodriver.Client
	store  *Store
}

func TestStoreSuite(t *testing.T) {
	uri := testutil.GetMongoURI(t)

	ctx := context.Background()
	client, err := mongodriver.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("mongo.Connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	ts := &StoreTestSuite{client: client, store: New(client, "zflow_test", "kv_entries")}
	suite.Run(t, ts)
}

func (s *StoreTestSuite) SetupTest() {
	s.Require().NoError(s.store.coll.Drop(context.Background()))
}

func (s *StoreTestSuite) TestPutThenGetLatest() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, "ns", []byte("k"), []byte("v1"), 10))

	v, found, err := s.store.GetLatest(ctx, "ns", []byte("k"), nil)
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal("v1", string(v))
}

func (s *StoreTestSuite) TestGetLatestBeforeTimestamp() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, "ns", []byte("k"), []byte("v1"), 10))
	s.Require().NoError(s.store.Put(ctx, "ns", []byte("k"), []byte("v2"), 20))
	s.Require().NoError(s.store.Put(ctx, "ns", []byte("k"), []byte("v3"), 30))

	before := uint64(25)
	v, found, err := s.store.GetLatest(ctx, "ns", []byte("k"), &before)
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal("v2", string(v))
}

func (s *StoreTestSuite) TestGetLatestUnknownKey() {
	ctx := context.Background()
	_, found, err := s.store.GetLatest(ctx, "ns", []byte("missing"), nil)
	s.Require().NoError(err)
	s.False(found)
}

func (s *StoreTestSuite) TestGetAllTimestampsNewestFirst() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, "ns", []byte("k"), []byte("v1"), 10))
	s.Require().NoError(s.store.Put(ctx, "ns", []byte("k"), []byte("v2"), 20))

	var got []uint64
	for ts, err := range s.store.GetAllTimestamps(ctx, "ns", []byte("k")) {
		s.Require().NoError(err)
		got = append(got, ts)
	}
	s.Equal([]uint64{20, 10}, got)
}

func (s *StoreTestSuite) TestScanAllReturnsNewestPerKey() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, "ns", []byte("a"), []byte("a1"), 1))
	s.Require().NoError(s.store.Put(ctx, "ns", []byte("a"), []byte("a2"), 2))
	s.Require().NoError(s.store.Put(ctx, "ns", []byte("b"), []byte("b1"), 1))

	got := map[string]string{}
	for e, err := range s.store.ScanAll(ctx, "ns") {
		s.Require().NoError(err)
		got[string(e.Key)] = string(e.Value)
	}
	s.Equal("a2", got["a"])
	s.Equal("b1", got["b"])
}

func (s *StoreTestSuite) TestDeleteWithoutMarkerRemovesEverything() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, "ns", []byte("k"), []byte("v1"), 10))
	s.Require().NoError(s.store.Delete(ctx, "ns", []byte("k"), nil))

	_, found, err := s.store.GetLatest(ctx, "ns", []byte("k"), nil)
	s.Require().NoError(err)
	s.False(found)
}

func (s *StoreTestSuite) TestDeleteWithMarkerRetainsNewestSurvivor() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, "ns", []byte("k"), []byte("v1"), 10))
	s.Require().NoError(s.store.Put(ctx, "ns", []byte("k"), []byte("v2"), 20))
	s.Require().NoError(s.store.Put(ctx, "ns", []byte("k"), []byte("v3"), 30))

	marker := uint64(25)
	s.Require().NoError(s.store.Delete(ctx, "ns", []byte("k"), &marker))

	var got []uint64
	for ts, err := range s.store.GetAllTimestamps(ctx, "ns", []byte("k")) {
		s.Require().NoError(err)
		got = append(got, ts)
	}
	s.Equal([]uint64{30, 20}, got)

	before := marker
	v, found, err := s.store.GetLatest(ctx, "ns", []byte("k"), &before)
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal("v2", string(v))
}

var _ api.KVStore = (*Store)(nil)
