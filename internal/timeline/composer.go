package timeline

import (
	"context"
	"errors"
	"time"

	"github.com/johnrirwin/channelfeed/internal/diversity"
	"github.com/johnrirwin/channelfeed/internal/logging"
	"github.com/johnrirwin/channelfeed/internal/metrics"
	"github.com/johnrirwin/channelfeed/internal/models"
	"github.com/johnrirwin/channelfeed/internal/pager"
	"github.com/johnrirwin/channelfeed/internal/query"
)

// Settings are the node defaults the composer applies
type Settings struct {
	ItemsPerPage       int
	ItemsPerPageMobile int
	// MaxPostsPerAuthor is the channel share of one owner per page, 0 disables
	MaxPostsPerAuthor float64
	// MaxAuthorPostsCommunity is the community share of one author or server
	MaxAuthorPostsCommunity float64
	// MaxItemsPerPage bounds every page size, request overrides included
	MaxItemsPerPage int
	Community       CommunityPolicy
}

// DefaultMaxItemsPerPage applies when Settings.MaxItemsPerPage is unset
const DefaultMaxItemsPerPage = 100

// Composer assembles timeline pages
type Composer struct {
	src      query.DataSource
	builder  *Builder
	seen     *SeenTracker
	settings Settings
	logger   *logging.Logger
}

// NewComposer creates a composer over a data source
func NewComposer(src query.DataSource, builder *Builder, seen *SeenTracker, settings Settings, logger *logging.Logger) *Composer {
	if settings.ItemsPerPage <= 0 {
		settings.ItemsPerPage = 20
	}
	if settings.ItemsPerPageMobile <= 0 {
		settings.ItemsPerPageMobile = settings.ItemsPerPage
	}
	if settings.MaxItemsPerPage <= 0 {
		settings.MaxItemsPerPage = DefaultMaxItemsPerPage
	}
	return &Composer{
		src:      src,
		builder:  builder,
		seen:     seen,
		settings: settings,
		logger:   logger,
	}
}

// compose describes one page run
type compose struct {
	plan      Plan
	diversity *diversity.Options
	// markSeen receives the page items after the fetch
	markSeen func(ctx context.Context, items []models.Item) error
}

// GetPage dispatches on the selector kind
func (c *Composer) GetPage(ctx context.Context, sel models.FeedSelector, viewer models.Viewer, req Request) (*models.Page, error) {
	switch {
	case sel.IsChannel():
		return c.channel(ctx, sel, viewer, req)
	case sel.IsCommunity():
		return c.community(ctx, sel, viewer, req)
	case sel.Kind == models.FeedInbox:
		return c.network(ctx, sel.Tab, viewer, req)
	}
	return nil, ErrInvalidFeedSelector
}

// Channel returns a page of the channel named by code
func (c *Composer) Channel(ctx context.Context, code string, viewer models.Viewer, req Request) (*models.Page, error) {
	sel, ok := models.ParseChannelSelector(code)
	if !ok {
		return nil, ErrInvalidFeedSelector
	}
	return c.channel(ctx, sel, viewer, req)
}

// Community returns a page of the local or global community. An empty
// content selects the node default.
func (c *Composer) Community(ctx context.Context, content string, viewer models.Viewer, req Request) (*models.Page, error) {
	sel, err := c.settings.Community.ResolveCommunity(content, viewer)
	if err != nil {
		return nil, err
	}
	return c.community(ctx, sel, viewer, req)
}

// Network returns a page of the viewer's inbox and the resolved tab
func (c *Composer) Network(ctx context.Context, viewer models.Viewer, req Request) (*models.Page, error) {
	return c.network(ctx, ResolveInboxTab(req), viewer, req)
}

func (c *Composer) channel(ctx context.Context, sel models.FeedSelector, viewer models.Viewer, req Request) (*models.Page, error) {
	plan, err := c.builder.Channel(ctx, sel, viewer, req)
	if err != nil {
		return nil, err
	}
	run := compose{
		plan: plan,
		markSeen: func(ctx context.Context, items []models.Item) error {
			_, err := c.seen.MarkSeen(ctx, viewer.ID, threadRoots(items))
			return err
		},
	}
	if c.settings.MaxPostsPerAuthor > 0 {
		run.diversity = &diversity.Options{
			MaxPerOwner: c.settings.MaxPostsPerAuthor,
			Owner:       diversity.ByOwnerID,
			Less:        diversity.ByEngagement,
		}
	}
	return c.run(ctx, sel, viewer, req, run)
}

func (c *Composer) community(ctx context.Context, sel models.FeedSelector, viewer models.Viewer, req Request) (*models.Page, error) {
	plan, err := c.builder.Community(sel, viewer, req)
	if err != nil {
		return nil, err
	}
	run := compose{
		plan: plan,
		markSeen: func(ctx context.Context, items []models.Item) error {
			_, err := c.seen.MarkSeen(ctx, viewer.ID, threadRoots(items))
			return err
		},
	}
	if c.settings.MaxAuthorPostsCommunity > 0 {
		owner := diversity.ByAuthorLink
		if sel.Kind == models.FeedCommunityGlobal {
			owner = diversity.ByAuthorServer
		}
		run.diversity = &diversity.Options{
			MaxPerOwner: c.settings.MaxAuthorPostsCommunity,
			Owner:       owner,
			Less:        diversity.ByReceived,
		}
	}
	return c.run(ctx, sel, viewer, req, run)
}

func (c *Composer) network(ctx context.Context, tab models.InboxTab, viewer models.Viewer, req Request) (*models.Page, error) {
	plan, err := c.builder.Network(tab, viewer, req)
	if err != nil {
		return nil, err
	}
	run := compose{
		plan: plan,
		markSeen: func(ctx context.Context, items []models.Item) error {
			if marksAll(tab, req) {
				_, err := c.seen.MarkAllSeen(ctx, viewer.ID)
				return err
			}
			_, err := c.seen.MarkSeen(ctx, viewer.ID, threadRoots(items))
			return err
		},
	}
	page, err := c.run(ctx, models.InboxSelector(tab), viewer, req, run)
	if err != nil {
		return nil, err
	}
	page.SelectedTab = tab.Name()
	return page, nil
}

func (c *Composer) run(ctx context.Context, sel models.FeedSelector, viewer models.Viewer, req Request, run compose) (*models.Page, error) {
	start := time.Now()
	plan := run.plan
	perPage := c.itemsPerPage(viewer, req)

	c.logger.Debug("Composing page", logging.WithFields(map[string]interface{}{
		"feed":     sel.Code(),
		"uid":      viewer.ID,
		"order":    string(plan.Order),
		"min_id":   req.MinID,
		"max_id":   req.maxCursor(plan.Order),
		"per_page": perPage,
	}))

	fetch := func(ctx context.Context, b pager.Bounds) ([]models.Item, error) {
		bounded := pager.Bound(plan.Where, plan.Order.Column(), b)
		rows, err := c.src.Select(ctx, plan.Table, nil, bounded.Where, bounded.Order, query.Limit{Count: perPage})
		if err != nil {
			return nil, c.storageFailure("select "+plan.Table, err)
		}
		items := make([]models.Item, len(rows))
		for i, row := range rows {
			items[i] = itemFromRow(row)
		}
		if bounded.Reverse {
			pager.Reverse(items)
		}
		return items, nil
	}

	items, err := fetch(ctx, plan.Bounds)
	if err != nil {
		return nil, err
	}

	if run.diversity != nil && req.ItemURIID == 0 {
		opts := *run.diversity
		opts.ItemsPerPage = perPage
		opts.Order = plan.Order
		opts.Bounds = plan.Bounds
		res, err := diversity.Limit(ctx, items, fetch, opts)
		if err != nil {
			return nil, err
		}
		metrics.ObserveDiversity(res.Iterations, res.Dropped)
		items = res.Items
	}

	page := &models.Page{Selector: sel, Items: items, Order: plan.Order}
	page.SetBounds()

	if run.markSeen != nil && len(items) > 0 {
		if err := run.markSeen(ctx, items); err != nil {
			c.logStorage(err)
			return nil, err
		}
	}

	metrics.ObservePage(sel.MetricLabel(), len(items), time.Since(start))
	return page, nil
}

// itemsPerPage applies the request override, then the viewer preference,
// then the node default, never exceeding the node maximum
func (c *Composer) itemsPerPage(viewer models.Viewer, req Request) int {
	return min(c.requestedPerPage(viewer, req), c.settings.MaxItemsPerPage)
}

func (c *Composer) requestedPerPage(viewer models.Viewer, req Request) int {
	if req.ItemsPerPage > 0 {
		return req.ItemsPerPage
	}
	if viewer.Mobile {
		if viewer.ItemsPerPageMobile > 0 {
			return viewer.ItemsPerPageMobile
		}
		return c.settings.ItemsPerPageMobile
	}
	if viewer.ItemsPerPage > 0 {
		return viewer.ItemsPerPage
	}
	return c.settings.ItemsPerPage
}

func (c *Composer) storageFailure(op string, err error) error {
	wrapped := storageErr(op, err)
	c.logStorage(wrapped)
	return wrapped
}

func (c *Composer) logStorage(err error) {
	var se *StorageError
	if !errors.As(err, &se) || errors.Is(err, context.Canceled) {
		return
	}
	metrics.StorageError(se.Op)
	c.logger.Error("Feed storage failure", logging.WithFields(map[string]interface{}{
		"op":    se.Op,
		"error": se.Err.Error(),
	}))
}

func itemFromRow(r query.Row) models.Item {
	return models.Item{
		URIID:       r.Int64("uri_id"),
		ParentURIID: r.Int64("parent_uri_id"),
		OwnerID:     r.Int64("owner_id"),
		AuthorLink:  r.String("author_link"),
		ContactType: int(r.Int64("contact_type")),
		Comments:    r.Int64("comments"),
		Activities:  r.Int64("activities"),
		MediaType:   r.Int64("media_type"),
		Language:    r.String("language"),
		Size:        r.Int64("size"),
		Restricted:  r.Bool("restricted"),
		Created:     r.Time("created"),
		Received:    r.Time("received"),
		Commented:   r.Time("commented"),
	}
}

func threadRoots(items []models.Item) []int64 {
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ThreadRoot()
	}
	return ids
}
