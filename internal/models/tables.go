package models

import "time"

// Storage tables read by the feed engine
const (
	TablePostEngagement    = "post_engagement"
	TablePostThreadUser    = "post_thread_user"
	TablePostThreadView    = "post_thread_view"
	TableNetworkThreadView = "network_thread_view"
	TablePostUser          = "post_user"
	TableContactRelation   = "contact_relation"
	TableUserContact       = "user_contact"
	TableAccountUserView   = "account_user_view"
	TableGroupMember       = "group_member"
	TablePostTag           = "post_tag"
	TableChannel           = "channel"
	TableViewerProfile     = "viewer_profile"
)

// Contact relation of a local account to a contact
const (
	RelationFollower int64 = 1
	RelationSharing  int64 = 2
	RelationFriend   int64 = 3
)

// Per-owner channel frequency preference
const (
	FrequencyDefault int64 = 0
	FrequencyNever   int64 = 1
	FrequencyAlways  int64 = 2
	FrequencyReduced int64 = 3
)

// Post visibility
const (
	VisibilityPublic   int64 = 0
	VisibilityPrivate  int64 = 1
	VisibilityUnlisted int64 = 2
)

// Media type bits
const (
	MediaImage int64 = 1
	MediaVideo int64 = 2
	MediaAudio int64 = 4
)

// Tag types in post_tag
const (
	TagTypeHashtag int64 = 1
)

// PageStyle is the community page visibility policy of the node
type PageStyle int

const (
	PageStyleDisabled        PageStyle = -2
	PageStyleDisabledVisitor PageStyle = -1
	PageStyleLocal           PageStyle = 0
	PageStyleGlobal          PageStyle = 1
	PageStyleLocalAndGlobal  PageStyle = 2
)

// ParsePageStyle accepts the configuration names of the page styles
func ParsePageStyle(s string) (PageStyle, bool) {
	switch s {
	case "disabled":
		return PageStyleDisabled, true
	case "disabled-visitor":
		return PageStyleDisabledVisitor, true
	case "local":
		return PageStyleLocal, true
	case "global":
		return PageStyleGlobal, true
	case "both", "local-and-global":
		return PageStyleLocalAndGlobal, true
	}
	return PageStyleLocal, false
}

// CompareKeys orders two sort-key values of the same order. Times compare
// chronologically, identifiers numerically.
func CompareKeys(a, b interface{}) int {
	switch av := a.(type) {
	case time.Time:
		bv, _ := b.(time.Time)
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		}
		return 0
	case int64:
		bv, _ := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	}
	return 0
}
