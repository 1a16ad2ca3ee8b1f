package timeline

import (
	"context"

	"github.com/johnrirwin/channelfeed/internal/logging"
	"github.com/johnrirwin/channelfeed/internal/metrics"
	"github.com/johnrirwin/channelfeed/internal/models"
	"github.com/johnrirwin/channelfeed/internal/query"
)

// SeenTracker flips the unseen flag of a viewer's thread copies
type SeenTracker struct {
	src    query.DataSource
	logger *logging.Logger
}

// NewSeenTracker creates a seen tracker
func NewSeenTracker(src query.DataSource, logger *logging.Logger) *SeenTracker {
	return &SeenTracker{src: src, logger: logger}
}

// MarkSeen marks the unseen copies under the given thread roots. It writes
// only when a matching unseen row exists and is a no-op for anonymous
// viewers or an empty id set.
func (s *SeenTracker) MarkSeen(ctx context.Context, uid int64, parentIDs []int64) (int64, error) {
	if uid == 0 || len(parentIDs) == 0 {
		return 0, nil
	}
	return s.mark(ctx, uid, query.In{Field: "parent_uri_id", Values: query.Values(uniqueIDs(parentIDs))})
}

// MarkAllSeen marks every unseen copy of the viewer
func (s *SeenTracker) MarkAllSeen(ctx context.Context, uid int64) (int64, error) {
	if uid == 0 {
		return 0, nil
	}
	return s.mark(ctx, uid, nil)
}

func (s *SeenTracker) mark(ctx context.Context, uid int64, scope query.Condition) (int64, error) {
	where := query.AndOf(
		query.Cmp{Field: "uid", Op: query.Eq, Value: uid},
		query.Flag{Field: "unseen"},
		scope,
	)

	found, err := s.src.Exists(ctx, models.TablePostUser, where)
	if err != nil {
		return 0, storageErr("seen lookup", err)
	}
	if !found {
		return 0, nil
	}

	n, err := s.src.Update(ctx, models.TablePostUser, map[string]interface{}{"unseen": false}, where)
	if err != nil {
		return 0, storageErr("seen update", err)
	}
	metrics.MarkedSeen(n)
	s.logger.Debug("Marked threads seen", logging.WithFields(map[string]interface{}{
		"uid":  uid,
		"rows": n,
	}))
	return n, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
