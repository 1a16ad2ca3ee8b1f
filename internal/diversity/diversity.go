// Package diversity caps how many items a single owner contributes to a
// page, refilling from further batches until the page is full.
package diversity

import (
	"context"
	"math"
	"sort"
	"strconv"

	"github.com/johnrirwin/channelfeed/internal/models"
	"github.com/johnrirwin/channelfeed/internal/pager"
)

// MaxIterations bounds the number of batches examined per page
const MaxIterations = 50

// FetchFunc loads the next batch, in display order, for the given bounds
type FetchFunc func(ctx context.Context, bounds pager.Bounds) ([]models.Item, error)

// Less reports whether a ranks below b within one owner's items
type Less func(a, b models.Item) bool

// ByEngagement ranks channel items by comments*100 + activities
func ByEngagement(a, b models.Item) bool {
	return a.EngagementScore() < b.EngagementScore()
}

// ByReceived ranks community items by arrival time
func ByReceived(a, b models.Item) bool {
	return a.Received.Before(b.Received)
}

// ByOwnerID groups by the owner contact
func ByOwnerID(it models.Item) string {
	return "owner:" + strconv.FormatInt(it.OwnerID, 10)
}

// ByAuthorLink groups by the author profile
func ByAuthorLink(it models.Item) string {
	return "author:" + it.AuthorLink
}

// ByAuthorServer groups by the author's server
func ByAuthorServer(it models.Item) string {
	return "server:" + it.AuthorServer()
}

// Options configure one limiter run
type Options struct {
	// MaxPerOwner is the per-page share of a single owner; 0 disables limiting
	MaxPerOwner  float64
	ItemsPerPage int
	Owner        func(models.Item) string
	Less         Less
	// Order supplies the sort key used to advance the cursor
	Order  models.OrderKey
	Bounds pager.Bounds
}

// Result is the limiter output
type Result struct {
	Items      []models.Item
	Iterations int
	Dropped    int
}

// Limit runs the diversity pass over initial, calling fetch for more
// batches. Items stay in display order. The page is not truncated: the
// last batch may push it past ItemsPerPage.
func Limit(ctx context.Context, initial []models.Item, fetch FetchFunc, opts Options) (Result, error) {
	if opts.MaxPerOwner == 0 || opts.ItemsPerPage <= 0 {
		return Result{Items: initial}, nil
	}

	owner := opts.Owner
	if owner == nil {
		owner = ByOwnerID
	}
	less := opts.Less
	if less == nil {
		less = ByEngagement
	}

	var res Result
	bounds := opts.Bounds
	previous := bounds.PreviousPage()
	batch := initial

	for len(res.Items) < opts.ItemsPerPage && res.Iterations < MaxIterations && len(batch) > 0 {
		res.Iterations++

		allowed := int(math.Round(float64(len(batch)) / float64(opts.ItemsPerPage) * opts.MaxPerOwner))
		first := opts.Order.Value(batch[0])
		last := opts.Order.Value(batch[len(batch)-1])

		kept := Cap(batch, allowed, owner, less)
		res.Dropped += len(batch) - len(kept)

		if previous {
			// Later batches are newer and go in front
			res.Items = append(kept, res.Items...)
			bounds.Min = first
		} else {
			res.Items = append(res.Items, kept...)
			bounds.Max = last
		}

		if len(res.Items) >= opts.ItemsPerPage {
			break
		}

		var err error
		if batch, err = fetch(ctx, bounds); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Cap drops the lowest-ranked items of every owner with more than allowed
// items in batch. The survivors keep their batch order.
func Cap(batch []models.Item, allowed int, owner func(models.Item) string, less Less) []models.Item {
	groups := make(map[string][]int)
	for i, it := range batch {
		key := owner(it)
		groups[key] = append(groups[key], i)
	}

	drop := make(map[int]bool)
	for _, idx := range groups {
		if len(idx) <= allowed {
			continue
		}
		ranked := append([]int(nil), idx...)
		sort.SliceStable(ranked, func(a, b int) bool {
			return less(batch[ranked[a]], batch[ranked[b]])
		})
		for _, i := range ranked[:len(ranked)-max(allowed, 0)] {
			drop[i] = true
		}
	}

	kept := make([]models.Item, 0, len(batch)-len(drop))
	for i, it := range batch {
		if !drop[i] {
			kept = append(kept, it)
		}
	}
	return kept
}
