package timeline

import (
	"github.com/johnrirwin/channelfeed/internal/models"
	"github.com/johnrirwin/channelfeed/internal/query"
)

// CommunityPolicy is the node-wide community page configuration
type CommunityPolicy struct {
	PageStyle   models.PageStyle
	BlockPublic bool
	SingleUser  bool
}

// ResolveCommunity picks the community page for content and checks that
// the viewer may see it. An empty content selects the node default.
func (p CommunityPolicy) ResolveCommunity(content string, viewer models.Viewer) (models.FeedSelector, error) {
	if p.BlockPublic && viewer.Anonymous() {
		return models.FeedSelector{}, ErrForbidden
	}
	if p.PageStyle == models.PageStyleDisabled {
		return models.FeedSelector{}, ErrForbidden
	}

	if content == "" {
		content = p.defaultContent()
	}
	sel, ok := models.ParseCommunitySelector(content)
	if !ok {
		return models.FeedSelector{}, ErrInvalidFeedSelector
	}

	if viewer.Anonymous() && !p.visitorAllowed(sel) {
		return models.FeedSelector{}, ErrForbidden
	}
	return sel, nil
}

func (p CommunityPolicy) defaultContent() string {
	if p.SingleUser || p.PageStyle == models.PageStyleGlobal {
		return "global"
	}
	return "local"
}

func (p CommunityPolicy) visitorAllowed(sel models.FeedSelector) bool {
	switch p.PageStyle {
	case models.PageStyleLocalAndGlobal:
		return true
	case models.PageStyleLocal:
		return sel.Kind == models.FeedCommunityLocal
	case models.PageStyleGlobal:
		return sel.Kind == models.FeedCommunityGlobal
	}
	return false
}

// Community builds the query of a community page. Items the viewer already
// holds a copy of are hidden when NoSharer is set.
func (b *Builder) Community(sel models.FeedSelector, viewer models.Viewer, req Request) (Plan, error) {
	cursor, err := cursorWindow(models.OrderCommented, req)
	if err != nil {
		return Plan{}, err
	}

	conds := []query.Condition{cursor.item}
	switch sel.Kind {
	case models.FeedCommunityLocal:
		conds = append(conds,
			query.Flag{Field: "wall"},
			query.Flag{Field: "origin"},
		)
	case models.FeedCommunityGlobal:
		conds = append(conds, query.Cmp{Field: "uid", Op: query.Eq, Value: int64(0)})
	default:
		return Plan{}, ErrInvalidFeedSelector
	}
	conds = append(conds, query.Cmp{Field: "private", Op: query.Eq, Value: models.VisibilityPublic})

	if viewer.AccountType != nil {
		conds = append(conds, query.Cmp{Field: "contact_type", Op: query.Eq, Value: int64(*viewer.AccountType)})
	}
	if req.NoSharer && !viewer.Anonymous() {
		conds = append(conds, query.Not{C: query.InSelect{Field: "uri_id", Select: query.Select{
			Table:  models.TablePostUser,
			Column: "uri_id",
			Where:  query.Cmp{Field: "uid", Op: query.Eq, Value: viewer.ID},
		}}})
	}
	conds = append(conds, visibleTo(models.TablePostThreadView, viewer.ID)...)

	return Plan{
		Table:  models.TablePostThreadView,
		Where:  query.AndOf(conds...),
		Order:  models.OrderCommented,
		Bounds: cursor.bounds,
	}, nil
}
