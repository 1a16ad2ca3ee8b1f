package threshold

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrirwin/channelfeed/internal/database"
	"github.com/johnrirwin/channelfeed/internal/models"
	"github.com/johnrirwin/channelfeed/internal/query"
	"github.com/johnrirwin/channelfeed/internal/testutil"
)

// fakeCache is a map-backed cache whose entries can be expired on demand
type fakeCache struct {
	values map[string]int64
	ttls   map[string]time.Duration
	err    error
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCache) Get(_ context.Context, key string) (int64, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value int64, ttl time.Duration) error {
	f.values[key] = value
	f.ttls[key] = ttl
	return nil
}

// expireAll drops every entry as if its TTL had passed
func (f *fakeCache) expireAll() {
	f.values = map[string]int64{}
}

func engagementStore() *database.MemoryStore {
	m := database.NewMemoryStore()
	for i, comments := range []int64{10, 9, 8, 7, 6, 5, 4, 3} {
		lang := "de"
		if i%2 == 1 {
			lang = ""
		}
		m.Insert(models.TablePostEngagement, testutil.EngagementRow(models.Item{
			URIID: int64(i + 1), OwnerID: 1, Comments: comments, Activities: comments * 2,
			Language: lang, Created: testutil.At(int64(i)),
		}))
	}
	// Rows the base predicate must ignore
	m.Insert(models.TablePostEngagement,
		testutil.EngagementRow(models.Item{URIID: 100, Comments: 50, Restricted: true}),
		testutil.EngagementRow(models.Item{URIID: 101, Comments: 60, ContactType: int(models.AccountCommunity)}),
		testutil.EngagementRow(models.Item{URIID: 102, Comments: 0}),
		testutil.EngagementRow(models.Item{URIID: 103, Comments: 70, Language: "fr"}),
	)
	return m
}

func TestMedianComments_RankAtQuantile(t *testing.T) {
	src := engagementStore()
	fc := newFakeCache()
	c := New(src, fc, testutil.NullLogger(), 0)

	// 8 qualifying rows, divider 4: value at offset 2 of [10 9 8 ...]
	got, err := c.MedianComments(context.Background(), []string{"en", "de"}, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(8), got)

	key := Key{Metric: MetricComments, Divider: 4, Languages: []string{"de", "en"}}.String()
	assert.Equal(t, int64(8), fc.values[key])
	assert.Equal(t, DefaultTTL, fc.ttls[key])
}

func TestMedianActivities_UsesOwnColumn(t *testing.T) {
	c := New(engagementStore(), newFakeCache(), testutil.NullLogger(), time.Minute)

	got, err := c.MedianActivities(context.Background(), []string{"de", "en"}, 2)
	require.NoError(t, err)
	// offset 4 of [20 18 16 14 12 10 8 6]
	assert.Equal(t, int64(12), got)
}

func TestMedianOf_LanguageFilter(t *testing.T) {
	c := New(engagementStore(), newFakeCache(), testutil.NullLogger(), 0)

	// The French row only counts without a language restriction: 9 rows,
	// divider 10, offset 0
	got, err := c.MedianComments(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(70), got)
}

func TestMedianOf_CacheHitSkipsStorage(t *testing.T) {
	src := engagementStore()
	fc := newFakeCache()
	c := New(src, fc, testutil.NullLogger(), 0)
	ctx := context.Background()

	_, err := c.MedianComments(ctx, []string{"de"}, 4)
	require.NoError(t, err)
	first := src.Stats()

	_, err = c.MedianComments(ctx, []string{"de"}, 4)
	require.NoError(t, err)
	assert.Equal(t, first, src.Stats())

	// Expiry forces a recomputation
	fc.expireAll()
	_, err = c.MedianComments(ctx, []string{"de"}, 4)
	require.NoError(t, err)
	assert.Equal(t, first.Counts+1, src.Stats().Counts)
	assert.Equal(t, first.Selects+1, src.Stats().Selects)
}

func TestMedianOf_DifferentKeysDoNotCollide(t *testing.T) {
	a := Key{Metric: MetricComments, Divider: 4, Languages: []string{"de"}}
	b := Key{Metric: MetricComments, Divider: 4, Languages: []string{"de", "en"}}
	d := Key{Metric: MetricComments, Divider: 2, Languages: []string{"de"}}
	assert.NotEqual(t, a.String(), b.String())
	assert.NotEqual(t, a.String(), d.String())
	assert.Equal(t, "threshold:relation_thread_score:4:cid=9",
		Key{Metric: MetricRelationThreadScore, Divider: 4, Subject: 9}.String())
}

func TestMedianOf_ZeroIsNotCached(t *testing.T) {
	src := database.NewMemoryStore()
	fc := newFakeCache()
	c := New(src, fc, testutil.NullLogger(), 0)

	got, err := c.MedianComments(context.Background(), []string{"de"}, 4)
	require.NoError(t, err)
	assert.Zero(t, got)
	assert.Empty(t, fc.values)
}

func TestMedianRelationThreadScore(t *testing.T) {
	src := database.NewMemoryStore()
	for i, score := range []int64{40, 30, 20, 10} {
		src.Insert(models.TableContactRelation, query.Row{
			"cid": int64(100 + i), "relation_cid": int64(7), "follows": true, "relation_thread_score": score,
		})
	}
	src.Insert(models.TableContactRelation, query.Row{"cid": int64(200), "relation_cid": int64(8), "relation_thread_score": int64(99)})

	c := New(src, newFakeCache(), testutil.NullLogger(), 0)
	got, err := c.MedianRelationThreadScore(context.Background(), 7, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(30), got)
}

func TestMedianOf_Errors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("redis down")

	fc := newFakeCache()
	fc.err = boom
	c := New(engagementStore(), fc, testutil.NullLogger(), 0)
	_, err := c.MedianComments(ctx, nil, 4)
	assert.ErrorIs(t, err, boom)

	src := engagementStore()
	src.FailWith(context.DeadlineExceeded)
	c = New(src, newFakeCache(), testutil.NullLogger(), 0)
	_, err = c.MedianComments(ctx, nil, 4)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = c.MedianComments(ctx, nil, 0)
	assert.Error(t, err)

	_, err = c.MedianOf(ctx, MetricRelationThreadScore, nil, 4)
	assert.Error(t, err)
}
