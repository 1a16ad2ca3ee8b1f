package models

import (
	"testing"
	"time"
)

func TestParseChannelSelector(t *testing.T) {
	tests := []struct {
		code   string
		want   FeedSelector
		wantOK bool
	}{
		{"whatshot", FeedSelector{Kind: FeedWhatsHot}, true},
		{"ForYou", FeedSelector{Kind: FeedForYou}, true},
		{" sharersofsharers ", FeedSelector{Kind: FeedSharersOfSharers}, true},
		{"42", FeedSelector{Kind: FeedUserDefined, ChannelID: 42}, true},
		{"0", FeedSelector{}, false},
		{"-3", FeedSelector{}, false},
		{"trending", FeedSelector{}, false},
		{"", FeedSelector{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, ok := ParseChannelSelector(tt.code)
			if ok != tt.wantOK {
				t.Fatalf("ParseChannelSelector(%q) ok = %v, want %v", tt.code, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ParseChannelSelector(%q) = %+v, want %+v", tt.code, got, tt.want)
			}
		})
	}
}

func TestFeedSelector_Code(t *testing.T) {
	tests := []struct {
		sel  FeedSelector
		want string
	}{
		{FeedSelector{Kind: FeedImage}, "image"},
		{FeedSelector{Kind: FeedUserDefined, ChannelID: 7}, "7"},
		{FeedSelector{Kind: FeedCommunityGlobal}, "global"},
		{InboxSelector(InboxTab{Order: OrderReceived}), "network:received"},
		{InboxSelector(InboxTab{Order: OrderCommented, Filter: InboxStarred}), "network:star"},
	}

	for _, tt := range tests {
		if got := tt.sel.Code(); got != tt.want {
			t.Errorf("Code() = %q, want %q", got, tt.want)
		}
	}
}

func TestFeedSelector_MetricLabel(t *testing.T) {
	tests := []struct {
		sel  FeedSelector
		want string
	}{
		{FeedSelector{Kind: FeedUserDefined, ChannelID: 7}, "userdefined"},
		{FeedSelector{Kind: FeedUserDefined, ChannelID: 90210}, "userdefined"},
		{FeedSelector{Kind: FeedWhatsHot}, "whatshot"},
		{InboxSelector(InboxTab{Order: OrderReceived}), "network:received"},
	}

	for _, tt := range tests {
		if got := tt.sel.MetricLabel(); got != tt.want {
			t.Errorf("MetricLabel() = %q, want %q", got, tt.want)
		}
	}
}

func TestFeedSelector_Families(t *testing.T) {
	if !(FeedSelector{Kind: FeedUserDefined}).IsChannel() {
		t.Error("user-defined selector should be a channel")
	}
	if (FeedSelector{Kind: FeedCommunityLocal}).IsChannel() {
		t.Error("community selector should not be a channel")
	}
	if !(FeedSelector{Kind: FeedCommunityLocal}).IsCommunity() {
		t.Error("local selector should be a community page")
	}
	if (FeedSelector{Kind: FeedInbox}).IsCommunity() {
		t.Error("inbox selector should not be a community page")
	}
}

func TestOrderKey_ParseCursor(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	for _, in := range []string{"2024-03-01 12:30:00", "2024-03-01T12:30:00Z", "1709296200"} {
		v, err := OrderCommented.ParseCursor(in)
		if err != nil {
			t.Fatalf("ParseCursor(%q) error = %v", in, err)
		}
		if got := v.(time.Time); !got.Equal(want) {
			t.Errorf("ParseCursor(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := OrderCreated.ParseCursor("yesterday"); err == nil {
		t.Error("expected error for unparsable time cursor")
	}

	v, err := OrderURIID.ParseCursor("1234")
	if err != nil || v.(int64) != 1234 {
		t.Errorf("ParseCursor(uriid) = %v, %v", v, err)
	}
	if _, err := OrderURIID.ParseCursor("2024-03-01"); err == nil {
		t.Error("expected error for non-numeric uriid cursor")
	}
}

func TestOrderKey_FormatCursorRoundTrip(t *testing.T) {
	ts := time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)
	s := OrderReceived.FormatCursor(ts)
	if s != "2023-12-31 23:59:59" {
		t.Fatalf("FormatCursor = %q", s)
	}
	back, err := OrderReceived.ParseCursor(s)
	if err != nil || !back.(time.Time).Equal(ts) {
		t.Errorf("ParseCursor(FormatCursor) = %v, %v", back, err)
	}
}

func TestInboxTab_Name(t *testing.T) {
	if got := (InboxTab{Order: OrderCreated}).Name(); got != "created" {
		t.Errorf("Name() = %q, want created", got)
	}
	if got := (InboxTab{Order: OrderCreated, Filter: InboxMentioned}).Name(); got != "mention" {
		t.Errorf("Name() = %q, want mention", got)
	}
}
