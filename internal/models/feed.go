package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FeedKind identifies which timeline algorithm runs for a request
type FeedKind int

const (
	FeedWhatsHot FeedKind = iota + 1
	FeedForYou
	FeedDiscover
	FeedFollowers
	FeedSharersOfSharers
	FeedImage
	FeedVideo
	FeedAudio
	FeedLanguage
	FeedUserDefined
	FeedCommunityLocal
	FeedCommunityGlobal
	FeedInbox
)

var channelCodes = map[string]FeedKind{
	"whatshot":         FeedWhatsHot,
	"foryou":           FeedForYou,
	"discover":         FeedDiscover,
	"followers":        FeedFollowers,
	"sharersofsharers": FeedSharersOfSharers,
	"image":            FeedImage,
	"video":            FeedVideo,
	"audio":            FeedAudio,
	"language":         FeedLanguage,
}

// FeedSelector is an immutable choice of feed variant
type FeedSelector struct {
	Kind FeedKind
	// ChannelID is set for FeedUserDefined only
	ChannelID int64
	// Tab is set for FeedInbox only
	Tab InboxTab
}

// Code returns the stable string form used by callers and logs
func (s FeedSelector) Code() string {
	switch s.Kind {
	case FeedUserDefined:
		return strconv.FormatInt(s.ChannelID, 10)
	case FeedCommunityLocal:
		return "local"
	case FeedCommunityGlobal:
		return "global"
	case FeedInbox:
		return "network:" + s.Tab.Name()
	}
	for code, kind := range channelCodes {
		if kind == s.Kind {
			return code
		}
	}
	return ""
}

// MetricLabel is Code with every user-defined channel folded into one
// value, keeping metric cardinality bounded
func (s FeedSelector) MetricLabel() string {
	if s.Kind == FeedUserDefined {
		return "userdefined"
	}
	return s.Code()
}

// IsChannel reports whether the selector reads from the engagement feeds
func (s FeedSelector) IsChannel() bool {
	return s.Kind >= FeedWhatsHot && s.Kind <= FeedUserDefined
}

// IsCommunity reports whether the selector is one of the community pages
func (s FeedSelector) IsCommunity() bool {
	return s.Kind == FeedCommunityLocal || s.Kind == FeedCommunityGlobal
}

// ParseChannelSelector resolves a channel code. Numeric codes select a
// user-defined channel.
func ParseChannelSelector(code string) (FeedSelector, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if kind, ok := channelCodes[code]; ok {
		return FeedSelector{Kind: kind}, true
	}
	if id, err := strconv.ParseInt(code, 10, 64); err == nil && id > 0 {
		return FeedSelector{Kind: FeedUserDefined, ChannelID: id}, true
	}
	return FeedSelector{}, false
}

// ParseCommunitySelector resolves "local" or "global"
func ParseCommunitySelector(code string) (FeedSelector, bool) {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "local":
		return FeedSelector{Kind: FeedCommunityLocal}, true
	case "global":
		return FeedSelector{Kind: FeedCommunityGlobal}, true
	}
	return FeedSelector{}, false
}

// InboxSelector builds the network inbox selector for a resolved tab
func InboxSelector(tab InboxTab) FeedSelector {
	return FeedSelector{Kind: FeedInbox, Tab: tab}
}

// InboxFilter is the mutually exclusive star/mention restriction of the inbox
type InboxFilter int

const (
	InboxAll InboxFilter = iota
	InboxStarred
	InboxMentioned
)

// InboxTab is the resolved inbox view: one sort order plus at most one filter
type InboxTab struct {
	Order  OrderKey
	Filter InboxFilter
}

// Name is the selected-tab value persisted by callers
func (t InboxTab) Name() string {
	switch t.Filter {
	case InboxStarred:
		return "star"
	case InboxMentioned:
		return "mention"
	}
	return string(t.Order)
}

// OrderKey is a sortable column used as a keyset cursor
type OrderKey string

const (
	OrderCreated   OrderKey = "created"
	OrderReceived  OrderKey = "received"
	OrderCommented OrderKey = "commented"
	OrderURIID     OrderKey = "uriid"
)

// CursorTimeLayout is the textual form of time cursors
const CursorTimeLayout = "2006-01-02 15:04:05"

// ParseOrderKey accepts the four known orders
func ParseOrderKey(s string) (OrderKey, bool) {
	switch OrderKey(strings.ToLower(strings.TrimSpace(s))) {
	case OrderCreated:
		return OrderCreated, true
	case OrderReceived:
		return OrderReceived, true
	case OrderCommented:
		return OrderCommented, true
	case OrderURIID:
		return OrderURIID, true
	}
	return "", false
}

// Column is the storage column backing the order
func (o OrderKey) Column() string {
	if o == OrderURIID {
		return "uri_id"
	}
	return string(o)
}

// Value extracts the sort key of an item
func (o OrderKey) Value(it Item) interface{} {
	switch o {
	case OrderCreated:
		return it.Created
	case OrderReceived:
		return it.Received
	case OrderURIID:
		return it.URIID
	default:
		return it.Commented
	}
}

// ParseCursor converts a request cursor into a typed value for this order
func (o OrderKey) ParseCursor(s string) (interface{}, error) {
	s = strings.TrimSpace(s)
	if o == OrderURIID {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid uriid cursor %q: %w", s, err)
		}
		return id, nil
	}
	if t, err := time.ParseInLocation(CursorTimeLayout, s, time.UTC); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return nil, fmt.Errorf("invalid %s cursor %q", o, s)
}

// FormatCursor renders a sort key the way ParseCursor reads it
func (o OrderKey) FormatCursor(v interface{}) string {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(CursorTimeLayout)
	case int64:
		return strconv.FormatInt(val, 10)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
