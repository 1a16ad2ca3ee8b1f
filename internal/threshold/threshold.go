// Package threshold computes the engagement cutoffs used by the channel
// feeds. A cutoff is the metric value found at rank count/divider when the
// matching rows are sorted by that metric in descending order, which is a
// cheap quantile approximation rather than a true median. Results are
// cached with a TTL and never invalidated.
package threshold

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/johnrirwin/channelfeed/internal/cache"
	"github.com/johnrirwin/channelfeed/internal/logging"
	"github.com/johnrirwin/channelfeed/internal/metrics"
	"github.com/johnrirwin/channelfeed/internal/models"
	"github.com/johnrirwin/channelfeed/internal/query"
)

// DefaultTTL is how long a computed cutoff is reused
const DefaultTTL = 30 * time.Minute

// Metric is a column a cutoff can be computed for
type Metric string

const (
	MetricComments            Metric = "comments"
	MetricActivities          Metric = "activities"
	MetricRelationThreadScore Metric = "relation_thread_score"
)

// Key identifies one cached cutoff
type Key struct {
	Metric  Metric
	Divider int
	// Languages is the sorted wanted-language set, engagement metrics only
	Languages []string
	// Subject is the public contact id, relation metrics only
	Subject int64
}

// String renders the cache key
func (k Key) String() string {
	var sb strings.Builder
	sb.WriteString("threshold:")
	sb.WriteString(string(k.Metric))
	sb.WriteString(":")
	sb.WriteString(strconv.Itoa(k.Divider))
	if k.Metric == MetricRelationThreadScore {
		sb.WriteString(":cid=")
		sb.WriteString(strconv.FormatInt(k.Subject, 10))
		return sb.String()
	}
	sb.WriteString(":")
	sb.WriteString(strings.Join(k.Languages, ","))
	return sb.String()
}

// Cache computes and caches cutoffs
type Cache struct {
	src    query.DataSource
	cache  cache.Cache
	logger *logging.Logger
	ttl    time.Duration
}

// New creates a threshold cache. A non-positive ttl uses DefaultTTL.
func New(src query.DataSource, c cache.Cache, logger *logging.Logger, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{src: src, cache: c, logger: logger, ttl: ttl}
}

// MedianComments is the comment-count cutoff for the language set
func (c *Cache) MedianComments(ctx context.Context, languages []string, divider int) (int64, error) {
	return c.MedianOf(ctx, MetricComments, languages, divider)
}

// MedianActivities is the activity-count cutoff for the language set
func (c *Cache) MedianActivities(ctx context.Context, languages []string, divider int) (int64, error) {
	return c.MedianOf(ctx, MetricActivities, languages, divider)
}

// MedianOf computes an engagement cutoff over post_engagement. Community
// owners and restricted posts never count.
func (c *Cache) MedianOf(ctx context.Context, metric Metric, languages []string, divider int) (int64, error) {
	if metric != MetricComments && metric != MetricActivities {
		return 0, fmt.Errorf("unsupported engagement metric %q", metric)
	}

	langs := sortedCopy(languages)
	key := Key{Metric: metric, Divider: divider, Languages: langs}
	where := query.AndOf(
		query.Cmp{Field: "contact_type", Op: query.Ne, Value: int64(models.AccountCommunity)},
		query.Cmp{Field: string(metric), Op: query.Gt, Value: int64(0)},
		query.Not{C: query.Flag{Field: "restricted"}},
		LanguageCondition(langs),
	)
	return c.lookup(ctx, key, models.TablePostEngagement, where, logging.WithField("languages", langs))
}

// MedianRelationThreadScore is the affinity cutoff among the contacts
// related to cid
func (c *Cache) MedianRelationThreadScore(ctx context.Context, cid int64, divider int) (int64, error) {
	key := Key{Metric: MetricRelationThreadScore, Divider: divider, Subject: cid}
	where := query.And{
		query.Cmp{Field: "relation_cid", Op: query.Eq, Value: cid},
		query.Cmp{Field: string(MetricRelationThreadScore), Op: query.Gt, Value: int64(0)},
	}
	return c.lookup(ctx, key, models.TableContactRelation, where, logging.WithField("cid", cid))
}

func (c *Cache) lookup(ctx context.Context, key Key, table string, where query.Condition, extra logging.Fields) (int64, error) {
	if key.Divider <= 0 {
		return 0, fmt.Errorf("invalid divider %d", key.Divider)
	}

	cacheKey := key.String()
	value, ok, err := c.cache.Get(ctx, cacheKey)
	if err != nil {
		return 0, fmt.Errorf("threshold cache get: %w", err)
	}
	if ok {
		metrics.ThresholdLookup(string(key.Metric), "hit")
		return value, nil
	}

	count, err := c.src.Count(ctx, table, where)
	if err != nil {
		return 0, fmt.Errorf("count %s rows: %w", key.Metric, err)
	}

	column := string(key.Metric)
	rows, err := c.src.Select(ctx, table, []string{column}, where,
		[]query.Order{{Field: column, Desc: true}},
		query.Limit{Offset: int(count / int64(key.Divider)), Count: 1})
	if err != nil {
		return 0, fmt.Errorf("select %s cutoff: %w", key.Metric, err)
	}

	var median int64
	if len(rows) > 0 {
		median = rows[0].Int64(column)
	}
	if median == 0 {
		// Zero is not cached so an empty table is re-read on the next call
		metrics.ThresholdLookup(string(key.Metric), "zero")
		return 0, nil
	}

	if err := c.cache.Set(ctx, cacheKey, median, c.ttl); err != nil {
		return 0, fmt.Errorf("threshold cache set: %w", err)
	}
	metrics.ThresholdLookup(string(key.Metric), "miss")

	fields := logging.WithFields(map[string]interface{}{
		"metric":  string(key.Metric),
		"divider": key.Divider,
		"median":  median,
	})
	c.logger.Debug("Calculated median", fields, extra)
	return median, nil
}

// LanguageCondition keeps rows without a detected language or in one of the
// wanted languages. An empty set adds no restriction.
func LanguageCondition(languages []string) query.Condition {
	if len(languages) == 0 {
		return query.True{}
	}
	return query.Or{
		query.IsNull{Field: "language"},
		query.In{Field: "language", Values: query.Values(languages)},
	}
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
