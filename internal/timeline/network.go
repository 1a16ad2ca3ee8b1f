package timeline

import (
	"strings"

	"github.com/johnrirwin/channelfeed/internal/models"
	"github.com/johnrirwin/channelfeed/internal/query"
)

// ResolveInboxTab combines the stored tab with the request toggles. Star
// wins over mention. An explicit order drops a filter inherited from the
// stored tab; filters requested alongside it still apply.
func ResolveInboxTab(req Request) models.InboxTab {
	tab := models.InboxTab{Order: models.OrderCommented}

	stored := strings.ToLower(strings.TrimSpace(req.StoredTab))
	switch stored {
	case "star":
		tab.Filter = models.InboxStarred
	case "mention":
		tab.Filter = models.InboxMentioned
	}

	switch {
	case req.Star:
		tab.Filter = models.InboxStarred
	case req.Mention:
		tab.Filter = models.InboxMentioned
	}

	if req.Order != "" {
		order, ok := models.ParseOrderKey(req.Order)
		if !ok {
			order = models.OrderCommented
		}
		tab.Order = order
		if !req.Star && !req.Mention {
			tab.Filter = models.InboxAll
		}
		return tab
	}

	switch stored {
	case "received", "star", "mention":
		tab.Order = models.OrderReceived
	default:
		if order, ok := models.ParseOrderKey(stored); ok {
			tab.Order = order
		}
	}
	return tab
}

// Network builds the query of the viewer's network inbox
func (b *Builder) Network(tab models.InboxTab, viewer models.Viewer, req Request) (Plan, error) {
	if viewer.Anonymous() {
		return Plan{}, ErrForbidden
	}

	cursor, err := cursorWindow(tab.Order, req)
	if err != nil {
		return Plan{}, err
	}

	conds := []query.Condition{
		cursor.item,
		query.Cmp{Field: "uid", Op: query.Eq, Value: viewer.ID},
	}
	if viewer.AccountType != nil {
		conds = append(conds, query.Cmp{Field: "contact_type", Op: query.Eq, Value: int64(*viewer.AccountType)})
	}
	switch tab.Filter {
	case models.InboxStarred:
		conds = append(conds, query.Flag{Field: "starred"})
	case models.InboxMentioned:
		conds = append(conds, query.Flag{Field: "mention"})
	}
	if req.Network != "" {
		conds = append(conds, query.Cmp{Field: "network", Op: query.Eq, Value: req.Network})
	}
	if !req.DateFrom.IsZero() {
		conds = append(conds, query.Cmp{Field: "received", Op: query.Le, Value: req.DateFrom.UTC()})
	}
	if !req.DateTo.IsZero() {
		conds = append(conds, query.Cmp{Field: "received", Op: query.Ge, Value: req.DateTo.UTC()})
	}
	switch {
	case req.CircleID > 0:
		conds = append(conds, query.InSelect{Field: "contact_id", Select: query.Select{
			Table:  models.TableGroupMember,
			Column: "contact_id",
			Where:  query.Cmp{Field: "gid", Op: query.Eq, Value: req.CircleID},
		}})
	case req.ContactID > 0:
		conds = append(conds, query.Cmp{Field: "contact_id", Op: query.Eq, Value: req.ContactID})
	}
	conds = append(conds, ownerNotHidden(models.TableNetworkThreadView, viewer.ID))

	return Plan{
		Table:  models.TableNetworkThreadView,
		Where:  query.AndOf(conds...),
		Order:  tab.Order,
		Bounds: cursor.bounds,
	}, nil
}

// marksAll reports whether the inbox view covers every thread of the viewer
func marksAll(tab models.InboxTab, req Request) bool {
	return tab.Filter == models.InboxAll && req.CircleID == 0 && req.ContactID == 0
}
