// Package timeline composes channel, community and network pages from the
// engagement read models.
package timeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/johnrirwin/channelfeed/internal/models"
	"github.com/johnrirwin/channelfeed/internal/pager"
	"github.com/johnrirwin/channelfeed/internal/query"
	"github.com/johnrirwin/channelfeed/internal/threshold"
)

// Divider used for every engagement and relation threshold
const thresholdDivider = 4

// Discover gates the second hop at a lower quantile than the first
const discoverSecondHopDivider = 2

// Thresholds supplies the cached rank-at-quantile cutoffs
type Thresholds interface {
	MedianComments(ctx context.Context, languages []string, divider int) (int64, error)
	MedianActivities(ctx context.Context, languages []string, divider int) (int64, error)
	MedianRelationThreadScore(ctx context.Context, cid int64, divider int) (int64, error)
}

// ChannelRepository resolves user-defined channels owned by a viewer
type ChannelRepository interface {
	SelectByID(ctx context.Context, id, uid int64) (*models.UserDefinedChannel, error)
}

// Plan is a built feed query. Where excludes the cursor window, which the
// pager adds from Bounds on every fetch.
type Plan struct {
	Table  string
	Where  query.Condition
	Order  models.OrderKey
	Bounds pager.Bounds
}

// BuilderConfig holds the node settings the builder reads
type BuilderConfig struct {
	SharerInteractionDays int
	DefaultLanguage       string
}

// Builder turns selectors into condition trees
type Builder struct {
	thresholds Thresholds
	channels   ChannelRepository
	cfg        BuilderConfig
	now        func() time.Time
}

// NewBuilder creates a condition builder
func NewBuilder(thresholds Thresholds, channels ChannelRepository, cfg BuilderConfig) *Builder {
	if cfg.SharerInteractionDays <= 0 {
		cfg.SharerInteractionDays = 90
	}
	return &Builder{
		thresholds: thresholds,
		channels:   channels,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Channel builds the query of a channel selector
func (b *Builder) Channel(ctx context.Context, sel models.FeedSelector, viewer models.Viewer, req Request) (Plan, error) {
	if !sel.IsChannel() {
		return Plan{}, ErrInvalidFeedSelector
	}
	// Channels are personal timelines and need a local user
	if viewer.Anonymous() {
		return Plan{}, ErrForbidden
	}

	plan := Plan{Table: models.TablePostEngagement, Order: models.OrderCreated}
	var ch *models.UserDefinedChannel
	if sel.Kind == models.FeedUserDefined {
		var err error
		if ch, err = b.channels.SelectByID(ctx, sel.ChannelID, viewer.ID); err != nil {
			return Plan{}, storageErr("channel lookup", err)
		}
		if ch == nil {
			return Plan{}, ErrChannelNotFound
		}
		if order, ok := ch.VirtualOrder(); ok {
			plan.Table = models.TablePostThreadUser
			plan.Order = order
		}
	}

	cursor, err := cursorWindow(plan.Order, req)
	if err != nil {
		return Plan{}, err
	}
	plan.Bounds = cursor.bounds

	conds := []query.Condition{cursor.item}
	languages := viewer.Languages

	switch sel.Kind {
	case models.FeedWhatsHot:
		cond, err := b.whatsHot(ctx, viewer)
		if err != nil {
			return Plan{}, err
		}
		conds = append(conds, cond)
	case models.FeedForYou:
		cond, err := b.forYou(ctx, viewer)
		if err != nil {
			return Plan{}, err
		}
		conds = append(conds, cond)
	case models.FeedDiscover:
		cond, err := b.discover(ctx, viewer)
		if err != nil {
			return Plan{}, err
		}
		conds = append(conds, cond)
	case models.FeedFollowers:
		conds = append(conds, ownerInAccounts(viewer.ID, query.Cmp{Field: "rel", Op: query.Eq, Value: models.RelationFollower}))
	case models.FeedSharersOfSharers:
		cond, err := b.sharersOfSharers(ctx, viewer)
		if err != nil {
			return Plan{}, err
		}
		conds = append(conds, cond)
	case models.FeedImage:
		conds = append(conds, query.BitsSet{Field: "media_type", Mask: models.MediaImage})
	case models.FeedVideo:
		conds = append(conds, query.BitsSet{Field: "media_type", Mask: models.MediaVideo})
	case models.FeedAudio:
		conds = append(conds, query.BitsSet{Field: "media_type", Mask: models.MediaAudio})
	case models.FeedLanguage:
		lang := viewer.PrimaryLanguage()
		if lang == "" {
			lang = b.cfg.DefaultLanguage
		}
		conds = append(conds, query.Cmp{Field: "language", Op: query.Eq, Value: lang})
		languages = nil
	case models.FeedUserDefined:
		if plan.Table == models.TablePostThreadUser {
			conds = append(conds, query.Cmp{Field: "uid", Op: query.Eq, Value: viewer.ID})
		}
		conds = append(conds, userDefined(ch, viewer.ID)...)
		if len(ch.Languages) > 0 {
			languages = ch.Languages
		}
	default:
		return Plan{}, ErrInvalidFeedSelector
	}

	conds = append(conds, threshold.LanguageCondition(languages))
	if sel.Kind != models.FeedWhatsHot && viewer.AccountType != nil {
		conds = append(conds, query.Cmp{Field: "contact_type", Op: query.Eq, Value: int64(*viewer.AccountType)})
	}
	conds = append(conds, visibleTo(plan.Table, viewer.ID)...)

	plan.Where = query.AndOf(conds...)
	return plan, nil
}

func (b *Builder) engagementMedians(ctx context.Context, viewer models.Viewer) (int64, int64, error) {
	comments, err := b.thresholds.MedianComments(ctx, viewer.Languages, thresholdDivider)
	if err != nil {
		return 0, 0, storageErr("threshold comments", err)
	}
	activities, err := b.thresholds.MedianActivities(ctx, viewer.Languages, thresholdDivider)
	if err != nil {
		return 0, 0, storageErr("threshold activities", err)
	}
	return comments, activities, nil
}

func (b *Builder) relationMedian(ctx context.Context, cid int64, divider int) (int64, error) {
	score, err := b.thresholds.MedianRelationThreadScore(ctx, cid, divider)
	if err != nil {
		return 0, storageErr("threshold relation_thread_score", err)
	}
	return score, nil
}

func (b *Builder) whatsHot(ctx context.Context, viewer models.Viewer) (query.Condition, error) {
	comments, activities, err := b.engagementMedians(ctx, viewer)
	if err != nil {
		return nil, err
	}
	hot := query.Or{
		query.Cmp{Field: "comments", Op: query.Gt, Value: comments},
		query.Cmp{Field: "activities", Op: query.Gt, Value: activities},
	}
	if viewer.AccountType != nil {
		return query.And{hot, query.Cmp{Field: "contact_type", Op: query.Eq, Value: int64(*viewer.AccountType)}}, nil
	}
	return query.And{hot, query.Cmp{Field: "contact_type", Op: query.Ne, Value: int64(models.AccountCommunity)}}, nil
}

func (b *Builder) forYou(ctx context.Context, viewer models.Viewer) (query.Condition, error) {
	cid := viewer.PublicContactID
	score, err := b.relationMedian(ctx, cid, thresholdDivider)
	if err != nil {
		return nil, err
	}
	comments, activities, err := b.engagementMedians(ctx, viewer)
	if err != nil {
		return nil, err
	}

	return query.Or{
		ownerInRelations(query.And{
			query.Cmp{Field: "relation_cid", Op: query.Eq, Value: cid},
			query.Cmp{Field: "relation_thread_score", Op: query.Gt, Value: score},
		}),
		query.And{
			query.Or{
				query.Cmp{Field: "comments", Op: query.Ge, Value: comments},
				query.Cmp{Field: "activities", Op: query.Ge, Value: activities},
			},
			ownerInRelations(followedBy(cid)),
		},
		query.InSelect{Field: "owner_id", Select: query.Select{
			Table:  models.TableUserContact,
			Column: "cid",
			Where: query.And{
				query.Cmp{Field: "uid", Op: query.Eq, Value: viewer.ID},
				query.Or{
					query.Flag{Field: "notify_new_posts"},
					query.Cmp{Field: "channel_frequency", Op: query.Eq, Value: models.FrequencyAlways},
				},
			},
		}},
	}, nil
}

// discover reaches owners followed by contacts the viewer has a strong
// relation with, excluding owners the viewer follows directly.
func (b *Builder) discover(ctx context.Context, viewer models.Viewer) (query.Condition, error) {
	cid := viewer.PublicContactID
	firstHop, err := b.relationMedian(ctx, cid, thresholdDivider)
	if err != nil {
		return nil, err
	}
	secondHop, err := b.relationMedian(ctx, cid, discoverSecondHopDivider)
	if err != nil {
		return nil, err
	}

	return query.And{
		ownerInRelations(query.And{
			query.Flag{Field: "follows"},
			query.Cmp{Field: "relation_thread_score", Op: query.Gt, Value: secondHop},
			query.InSelect{Field: "relation_cid", Select: query.Select{
				Table:  models.TableContactRelation,
				Column: "cid",
				Where: query.And{
					query.Flag{Field: "follows"},
					query.Cmp{Field: "relation_cid", Op: query.Eq, Value: cid},
					query.Cmp{Field: "relation_thread_score", Op: query.Gt, Value: firstHop},
				},
			}},
		}),
		query.Not{C: ownerInRelations(followedBy(cid))},
		query.Cmp{Field: "owner_id", Op: query.Ne, Value: cid},
	}, nil
}

func (b *Builder) sharersOfSharers(ctx context.Context, viewer models.Viewer) (query.Condition, error) {
	cid := viewer.PublicContactID
	score, err := b.relationMedian(ctx, cid, thresholdDivider)
	if err != nil {
		return nil, err
	}
	since := b.now().UTC().AddDate(0, 0, -b.cfg.SharerInteractionDays)

	return ownerInRelations(query.And{
		query.Flag{Field: "follows"},
		query.Cmp{Field: "last_interaction", Op: query.Gt, Value: since},
		query.InSelect{Field: "relation_cid", Select: query.Select{
			Table:  models.TableContactRelation,
			Column: "cid",
			Where: query.And{
				query.Flag{Field: "follows"},
				query.Cmp{Field: "relation_cid", Op: query.Eq, Value: cid},
				query.Cmp{Field: "relation_thread_score", Op: query.Ge, Value: score},
			},
		}},
		query.Not{C: query.InSelect{Field: "cid", Select: query.Select{
			Table:  models.TableContactRelation,
			Column: "cid",
			Where:  followedBy(cid),
		}}},
	}), nil
}

// userDefined composes the circle and content filters of a channel
func userDefined(ch *models.UserDefinedChannel, uid int64) []query.Condition {
	var conds []query.Condition

	switch {
	case ch.Circle == models.CircleFollowing:
		conds = append(conds, ownerInAccounts(uid, query.In{Field: "rel", Values: query.Values([]int64{models.RelationSharing, models.RelationFriend})}))
	case ch.Circle == models.CircleFollowers:
		conds = append(conds, ownerInAccounts(uid, query.Cmp{Field: "rel", Op: query.Eq, Value: models.RelationFollower}))
	case ch.Circle > 0:
		conds = append(conds, ownerInAccounts(uid, query.InSelect{Field: "id", Select: query.Select{
			Table:  models.TableGroupMember,
			Column: "contact_id",
			Where:  query.Cmp{Field: "gid", Op: query.Eq, Value: ch.Circle},
		}}))
	}

	switch ch.Mode() {
	case models.ChannelModeFullText:
		conds = append(conds, query.Match{Field: "searchtext", Search: ChannelSearch(ch)})
	default:
		if tags := models.NormalizeTags(ch.IncludeTags); len(tags) > 0 {
			conds = append(conds, taggedWith(tags))
		}
		if tags := models.NormalizeTags(ch.ExcludeTags); len(tags) > 0 {
			conds = append(conds, query.Not{C: taggedWith(tags)})
		}
	}

	if ch.MediaType != 0 {
		conds = append(conds, query.BitsSet{Field: "media_type", Mask: ch.MediaType})
	}
	if ch.MinSize > 0 {
		conds = append(conds, query.Cmp{Field: "size", Op: query.Ge, Value: ch.MinSize})
	}
	if ch.MaxSize > 0 {
		conds = append(conds, query.Cmp{Field: "size", Op: query.Le, Value: ch.MaxSize})
	}
	return conds
}

// ChannelSearch is the full-text search of a channel. Hashtags in the
// expression match the stored tag: keywords and excluded tags become
// negated tag: terms.
func ChannelSearch(ch *models.UserDefinedChannel) query.Search {
	s := query.ParseSearch(ch.FullTextSearch)
	s.Must = tagKeywords(s.Must)
	s.Should = tagKeywords(s.Should)
	s.MustNot = tagKeywords(s.MustNot)
	for _, tag := range models.NormalizeTags(ch.ExcludeTags) {
		s.MustNot = append(s.MustNot, "tag:"+tag)
	}
	return s
}

func tagKeywords(terms []string) []string {
	for i, t := range terms {
		if strings.HasPrefix(t, "#") && len(t) > 1 && !strings.Contains(t, " ") {
			terms[i] = "tag:" + t[1:]
		}
	}
	return terms
}

func taggedWith(tags []string) query.Condition {
	return query.InSelect{Field: "uri_id", Select: query.Select{
		Table:  models.TablePostTag,
		Column: "uri_id",
		Where: query.And{
			query.Cmp{Field: "type", Op: query.Eq, Value: models.TagTypeHashtag},
			query.In{Field: "name", Values: query.Values(tags)},
		},
	}}
}

func followedBy(cid int64) query.Condition {
	return query.And{
		query.Flag{Field: "follows"},
		query.Cmp{Field: "relation_cid", Op: query.Eq, Value: cid},
	}
}

func ownerInRelations(where query.Condition) query.Condition {
	return query.InSelect{Field: "owner_id", Select: query.Select{
		Table:  models.TableContactRelation,
		Column: "cid",
		Where:  where,
	}}
}

func ownerInAccounts(uid int64, rel query.Condition) query.Condition {
	return query.InSelect{Field: "owner_id", Select: query.Select{
		Table:  models.TableAccountUserView,
		Column: "pid",
		Where: query.And{
			query.Cmp{Field: "uid", Op: query.Eq, Value: uid},
			rel,
		},
	}}
}

// visibleTo hides restricted items without a viewer copy and owners the
// viewer ignored, blocked, collapsed or set to never show.
func visibleTo(table string, uid int64) []query.Condition {
	return []query.Condition{
		query.Or{
			query.Not{C: query.Flag{Field: "restricted"}},
			query.Exists{Select: query.Select{
				Table:  models.TablePostUser,
				Column: "uri_id",
				Where: query.And{
					query.Cmp{Field: "uid", Op: query.Eq, Value: uid},
					query.Cmp{Field: "uri_id", Op: query.Eq, Value: query.Column{Table: table, Name: "uri_id"}},
				},
			}},
		},
		ownerNotHidden(table, uid),
	}
}

func ownerNotHidden(table string, uid int64) query.Condition {
	return query.Not{C: query.Exists{Select: query.Select{
		Table:  models.TableUserContact,
		Column: "cid",
		Where: query.And{
			query.Cmp{Field: "uid", Op: query.Eq, Value: uid},
			query.Cmp{Field: "cid", Op: query.Eq, Value: query.Column{Table: table, Name: "owner_id"}},
			query.Or{
				query.Flag{Field: "ignored"},
				query.Flag{Field: "blocked"},
				query.Flag{Field: "collapsed"},
				query.Flag{Field: "is_blocked"},
				query.Cmp{Field: "channel_frequency", Op: query.Eq, Value: models.FrequencyNever},
			},
		},
	}}}
}

// window is the parsed cursor part of a request
type window struct {
	bounds pager.Bounds
	// item restricts to a single thread, nil otherwise
	item query.Condition
}

// cursorWindow parses the cursors for order. A single item lookup ignores
// the cursors.
func cursorWindow(order models.OrderKey, req Request) (window, error) {
	if req.ItemURIID != 0 {
		return window{item: query.Cmp{Field: "uri_id", Op: query.Eq, Value: req.ItemURIID}}, nil
	}
	var w window
	if req.MinID != "" {
		v, err := order.ParseCursor(req.MinID)
		if err != nil {
			return w, errors.Join(ErrInvalidCursor, err)
		}
		w.bounds.Min = v
	}
	if raw := req.maxCursor(order); raw != "" {
		v, err := order.ParseCursor(raw)
		if err != nil {
			return w, errors.Join(ErrInvalidCursor, err)
		}
		w.bounds.Max = v
	}
	return w, nil
}
