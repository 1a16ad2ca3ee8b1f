package timeline

import (
	"time"

	"github.com/johnrirwin/channelfeed/internal/models"
)

// Request carries the caller-supplied paging and filter fields
type Request struct {
	MinID string
	MaxID string
	// Last holds last_<order> cursors; the one for the active order
	// overrides MaxID
	Last map[models.OrderKey]string
	// Order is the explicit inbox order, empty to keep the stored tab
	Order string
	// NoSharer hides items the viewer already holds a copy of
	NoSharer bool
	Star     bool
	Mention  bool
	// ItemURIID restricts the page to one thread and disables cursors
	ItemURIID int64
	// StoredTab is the inbox tab selected on a previous request
	StoredTab string
	CircleID  int64
	ContactID int64
	Network   string
	DateFrom  time.Time
	DateTo    time.Time
	// ItemsPerPage overrides the viewer and node page size when positive
	ItemsPerPage int
}

func (r Request) maxCursor(order models.OrderKey) string {
	if v, ok := r.Last[order]; ok && v != "" {
		return v
	}
	return r.MaxID
}
