package models

import (
	"net/url"
	"strings"
	"time"
)

// Item is one candidate row of a feed table: the engagement read model for
// channels, a thread row for community pages and the inbox.
type Item struct {
	URIID       int64     `json:"uri_id"`
	ParentURIID int64     `json:"parent_uri_id,omitempty"`
	OwnerID     int64     `json:"owner_id"`
	AuthorLink  string    `json:"author_link,omitempty"`
	ContactType int       `json:"contact_type"`
	Comments    int64     `json:"comments"`
	Activities  int64     `json:"activities"`
	MediaType   int64     `json:"media_type"`
	Language    string    `json:"language,omitempty"`
	Size        int64     `json:"size"`
	Restricted  bool      `json:"restricted"`
	Created     time.Time `json:"created"`
	Received    time.Time `json:"received"`
	Commented   time.Time `json:"commented"`
}

// ThreadRoot is the identifier used when marking a thread seen
func (it Item) ThreadRoot() int64 {
	if it.ParentURIID != 0 {
		return it.ParentURIID
	}
	return it.URIID
}

// EngagementScore ranks channel items: comments weigh a hundred reactions
func (it Item) EngagementScore() int64 {
	return it.Comments*100 + it.Activities
}

// AuthorServer is the host part of the author link
func (it Item) AuthorServer() string {
	if it.AuthorLink == "" {
		return ""
	}
	u, err := url.Parse(it.AuthorLink)
	if err != nil || u.Host == "" {
		return strings.ToLower(it.AuthorLink)
	}
	return strings.ToLower(u.Hostname())
}
