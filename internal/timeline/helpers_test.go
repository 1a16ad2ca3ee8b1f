package timeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/johnrirwin/channelfeed/internal/database"
	"github.com/johnrirwin/channelfeed/internal/models"
	"github.com/johnrirwin/channelfeed/internal/pager"
	"github.com/johnrirwin/channelfeed/internal/query"
	"github.com/johnrirwin/channelfeed/internal/testutil"
)

// fakeThresholds returns fixed cutoffs and counts calls
type fakeThresholds struct {
	comments   int64
	activities int64
	// relation maps a divider to its cutoff
	relation map[int]int64
	err      error
	calls    int
}

func (f *fakeThresholds) MedianComments(_ context.Context, _ []string, _ int) (int64, error) {
	f.calls++
	return f.comments, f.err
}

func (f *fakeThresholds) MedianActivities(_ context.Context, _ []string, _ int) (int64, error) {
	f.calls++
	return f.activities, f.err
}

func (f *fakeThresholds) MedianRelationThreadScore(_ context.Context, _ int64, divider int) (int64, error) {
	f.calls++
	return f.relation[divider], f.err
}

// fakeChannels serves channel definitions by id and owner
type fakeChannels struct {
	channels map[int64]*models.UserDefinedChannel
	err      error
}

func (f *fakeChannels) SelectByID(_ context.Context, id, uid int64) (*models.UserDefinedChannel, error) {
	if f.err != nil {
		return nil, f.err
	}
	ch, ok := f.channels[id]
	if !ok || ch.UID != uid {
		return nil, nil
	}
	return ch, nil
}

func newTestBuilder(th *fakeThresholds, channels ...*models.UserDefinedChannel) *Builder {
	repo := &fakeChannels{channels: map[int64]*models.UserDefinedChannel{}}
	for _, ch := range channels {
		repo.channels[ch.ID] = ch
	}
	return NewBuilder(th, repo, BuilderConfig{SharerInteractionDays: 90, DefaultLanguage: "en"})
}

// engagement inserts post_engagement rows with created = uri_id seconds
func engagement(store *database.MemoryStore, items ...models.Item) {
	for _, it := range items {
		if it.Created.IsZero() {
			it.Created = testutil.At(it.URIID)
			it.Received = it.Created
			it.Commented = it.Created
		}
		store.Insert(models.TablePostEngagement, testutil.EngagementRow(it))
	}
}

// planIDs runs a plan against the store and returns the uri ids in display order
func planIDs(t *testing.T, store *database.MemoryStore, plan Plan) []int64 {
	t.Helper()
	bounded := pager.Bound(plan.Where, plan.Order.Column(), plan.Bounds)
	rows, err := store.Select(context.Background(), plan.Table, []string{"uri_id"}, bounded.Where, bounded.Order, query.Limit{})
	require.NoError(t, err)
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.Int64("uri_id")
	}
	if bounded.Reverse {
		pager.Reverse(ids)
	}
	return ids
}

func accountType(t models.AccountType) *models.AccountType {
	return &t
}
