package diversity

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrirwin/channelfeed/internal/models"
	"github.com/johnrirwin/channelfeed/internal/pager"
	"github.com/johnrirwin/channelfeed/internal/testutil"
)

// corpus serves batches of a descending item list the way a keyset query
// on created would
type corpus struct {
	items   []models.Item
	perPage int
	calls   []pager.Bounds
}

func (c *corpus) fetch(_ context.Context, b pager.Bounds) ([]models.Item, error) {
	c.calls = append(c.calls, b)
	var window []models.Item
	for _, it := range c.items {
		v := models.OrderCreated.Value(it)
		if b.Max != nil && models.CompareKeys(v, b.Max) >= 0 {
			continue
		}
		if b.Min != nil && models.CompareKeys(v, b.Min) <= 0 {
			continue
		}
		window = append(window, it)
	}
	if b.PreviousPage() {
		if len(window) > c.perPage {
			window = window[len(window)-c.perPage:]
		}
		return window, nil
	}
	if len(window) > c.perPage {
		window = window[:c.perPage]
	}
	return window, nil
}

// newCorpus builds n items with created = n..1 and the given owner function
func newCorpus(n, perPage int, owner func(i int) int64) *corpus {
	c := &corpus{perPage: perPage}
	for i := 0; i < n; i++ {
		c.items = append(c.items, models.Item{
			URIID:   int64(n - i),
			OwnerID: owner(i),
			Created: testutil.At(int64(n - i)),
		})
	}
	return c
}

func createdSecs(items []models.Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.Created.Unix()
	}
	return out
}

func TestLimit_ZeroRatioIsIdentity(t *testing.T) {
	c := newCorpus(10, 5, func(int) int64 { return 1 })
	initial, _ := c.fetch(context.Background(), pager.Bounds{})
	c.calls = nil

	res, err := Limit(context.Background(), initial, c.fetch, Options{ItemsPerPage: 5, Order: models.OrderCreated})
	require.NoError(t, err)
	assert.Equal(t, initial, res.Items)
	assert.Zero(t, res.Iterations)
	assert.Empty(t, c.calls)
}

func TestLimit_DominantOwnerIsCapped(t *testing.T) {
	const perPage = 10
	const ratio = 2.0
	// Nine of every ten items come from owner 1
	c := newCorpus(200, perPage, func(i int) int64 {
		if i%10 == 0 {
			return int64(1000 + i)
		}
		return 1
	})
	ctx := context.Background()
	initial, _ := c.fetch(ctx, pager.Bounds{})

	res, err := Limit(ctx, initial, c.fetch, Options{
		MaxPerOwner:  ratio,
		ItemsPerPage: perPage,
		Order:        models.OrderCreated,
	})
	require.NoError(t, err)

	// Each full batch keeps 2 of owner 1 and the single other item
	assert.Equal(t, 4, res.Iterations)
	assert.Len(t, res.Items, 12)
	assert.Equal(t, 4*7, res.Dropped)

	ceiling := int(math.Ceil(float64(perPage) / perPage * ratio))
	owned := 0
	for _, it := range res.Items {
		if it.OwnerID == 1 {
			owned++
		}
	}
	assert.LessOrEqual(t, owned, ceiling*res.Iterations)

	// Display order survives and the cursor moved past every batch
	secs := createdSecs(res.Items)
	for i := 1; i < len(secs); i++ {
		assert.Greater(t, secs[i-1], secs[i])
	}
	require.Len(t, c.calls, 4)
	assert.Equal(t, testutil.At(191), c.calls[1].Max)
	assert.Equal(t, testutil.At(171), c.calls[3].Max)
}

func TestLimit_StopsAtIterationCap(t *testing.T) {
	calls := 0
	next := int64(1_000_000)
	// Endless single-owner corpus where every item is dropped
	fetch := func(_ context.Context, _ pager.Bounds) ([]models.Item, error) {
		calls++
		batch := make([]models.Item, 3)
		for i := range batch {
			next--
			batch[i] = models.Item{URIID: next, OwnerID: 9, Created: testutil.At(next)}
		}
		return batch, nil
	}
	initial, _ := fetch(context.Background(), pager.Bounds{})
	calls = 0

	res, err := Limit(context.Background(), initial, fetch, Options{
		MaxPerOwner:  0.1,
		ItemsPerPage: 20,
		Order:        models.OrderCreated,
	})
	require.NoError(t, err)
	assert.Equal(t, MaxIterations, res.Iterations)
	assert.Equal(t, MaxIterations, calls)
	assert.Empty(t, res.Items)
}

func TestLimit_StopsOnEmptyBatch(t *testing.T) {
	c := newCorpus(6, 4, func(i int) int64 { return int64(i % 2) })
	ctx := context.Background()
	initial, _ := c.fetch(ctx, pager.Bounds{})

	c.calls = nil

	res, err := Limit(ctx, initial, c.fetch, Options{MaxPerOwner: 2, ItemsPerPage: 8, Order: models.OrderCreated})
	require.NoError(t, err)
	// Batches of 4 then 2 keep one item per owner; the third fetch is empty
	assert.Len(t, c.calls, 2)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, []int64{4, 3, 2, 1}, createdSecs(res.Items))
}

func TestLimit_PreviousPageAdvancesMin(t *testing.T) {
	c := newCorpus(100, 4, func(i int) int64 { return int64(i % 2) })
	ctx := context.Background()
	bounds := pager.Bounds{Min: testutil.At(10)}
	initial, _ := c.fetch(ctx, bounds)
	require.Equal(t, []int64{14, 13, 12, 11}, createdSecs(initial))
	c.calls = nil

	res, err := Limit(ctx, initial, c.fetch, Options{
		MaxPerOwner:  1,
		ItemsPerPage: 4,
		Order:        models.OrderCreated,
		Bounds:       bounds,
	})
	require.NoError(t, err)

	require.Len(t, c.calls, 1)
	assert.Equal(t, testutil.At(14), c.calls[0].Min)
	assert.Nil(t, c.calls[0].Max)
	// Equal weights drop the newest item of each owner first
	assert.Equal(t, []int64{16, 15, 12, 11}, createdSecs(res.Items))
}

func TestLimit_FetchErrorPropagates(t *testing.T) {
	boom := errors.New("storage down")
	initial := []models.Item{
		{URIID: 2, OwnerID: 1, Created: testutil.At(2)},
		{URIID: 1, OwnerID: 1, Created: testutil.At(1)},
	}
	fetch := func(context.Context, pager.Bounds) ([]models.Item, error) { return nil, boom }

	_, err := Limit(context.Background(), initial, fetch, Options{MaxPerOwner: 1, ItemsPerPage: 4, Order: models.OrderCreated})
	assert.ErrorIs(t, err, boom)
}

func TestCap_DropsLowestRanked(t *testing.T) {
	batch := []models.Item{
		{URIID: 1, OwnerID: 7, Comments: 1},
		{URIID: 2, OwnerID: 8, Comments: 0},
		{URIID: 3, OwnerID: 7, Comments: 0, Activities: 50},
		{URIID: 4, OwnerID: 7, Comments: 3},
	}

	kept := Cap(batch, 2, ByOwnerID, ByEngagement)
	ids := make([]int64, len(kept))
	for i, it := range kept {
		ids[i] = it.URIID
	}
	assert.Equal(t, []int64{1, 2, 4}, ids)
}

func TestCap_CommunityGrouping(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	batch := []models.Item{
		{URIID: 1, AuthorLink: "https://a.example/u/x", Received: base.Add(3 * time.Hour)},
		{URIID: 2, AuthorLink: "https://a.example/u/y", Received: base.Add(2 * time.Hour)},
		{URIID: 3, AuthorLink: "https://b.example/u/z", Received: base.Add(time.Hour)},
	}

	// Two authors on one server: by link nothing drops, by server the older goes
	assert.Len(t, Cap(batch, 1, ByAuthorLink, ByReceived), 3)

	kept := Cap(batch, 1, ByAuthorServer, ByReceived)
	require.Len(t, kept, 2)
	assert.Equal(t, int64(1), kept[0].URIID)
	assert.Equal(t, int64(3), kept[1].URIID)
}
