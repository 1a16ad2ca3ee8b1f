package testutil

import (
	"time"

	"github.com/johnrirwin/channelfeed/internal/models"
	"github.com/johnrirwin/channelfeed/internal/query"
)

// At returns a UTC time the given number of seconds after the epoch
func At(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// EngagementRow converts an item into a post_engagement row. The same
// columns serve post_thread_user once a uid is added.
func EngagementRow(it models.Item) query.Row {
	row := query.Row{
		"uri_id":       it.URIID,
		"owner_id":     it.OwnerID,
		"contact_type": int64(it.ContactType),
		"media_type":   it.MediaType,
		"searchtext":   "",
		"size":         it.Size,
		"restricted":   it.Restricted,
		"comments":     it.Comments,
		"activities":   it.Activities,
		"created":      it.Created,
		"received":     it.Received,
		"commented":    it.Commented,
		"language":     nil,
	}
	if it.Language != "" {
		row["language"] = it.Language
	}
	return row
}

// ThreadViewRow builds a post_thread_view row for community pages
func ThreadViewRow(it models.Item, uid int64, wall, origin bool, private int64) query.Row {
	return query.Row{
		"uri_id":       it.URIID,
		"uid":          uid,
		"owner_id":     it.OwnerID,
		"author_link":  it.AuthorLink,
		"contact_type": int64(it.ContactType),
		"wall":         wall,
		"origin":       origin,
		"private":      private,
		"restricted":   it.Restricted,
		"created":      it.Created,
		"received":     it.Received,
		"commented":    it.Commented,
	}
}

// NetworkRow builds a network_thread_view row for the inbox
func NetworkRow(it models.Item, uid, contactID int64, starred, mention bool) query.Row {
	parent := it.ParentURIID
	if parent == 0 {
		parent = it.URIID
	}
	return query.Row{
		"uid":           uid,
		"uri_id":        it.URIID,
		"parent_uri_id": parent,
		"owner_id":      it.OwnerID,
		"contact_id":    contactID,
		"contact_type":  int64(it.ContactType),
		"network":       "apub",
		"starred":       starred,
		"mention":       mention,
		"created":       it.Created,
		"received":      it.Received,
		"commented":     it.Commented,
	}
}

// PostUserRow builds a per-viewer post copy with its seen flag
func PostUserRow(uid, uriID, parentURIID int64, unseen bool) query.Row {
	return query.Row{
		"uid":           uid,
		"uri_id":        uriID,
		"parent_uri_id": parentURIID,
		"unseen":        unseen,
	}
}
