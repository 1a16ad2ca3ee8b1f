package models

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Circle values with special meaning on a user-defined channel
const (
	CircleNone         int64 = 0
	CircleFollowing    int64 = -1
	CircleFollowers    int64 = -2
	CircleOwnCreated   int64 = -3
	CircleOwnReceived  int64 = -4
	CircleOwnCommented int64 = -5
)

// ChannelMode is how a user-defined channel filters content: either by
// explicit tag lists or by a full-text expression, never both.
type ChannelMode int

const (
	ChannelModeTags ChannelMode = iota
	ChannelModeFullText
)

// UserDefinedChannel is a viewer-owned channel definition
type UserDefinedChannel struct {
	ID             int64    `json:"id"`
	UID            int64    `json:"uid"`
	Label          string   `json:"label"`
	Description    string   `json:"description,omitempty"`
	AccessKey      string   `json:"access_key,omitempty"`
	Circle         int64    `json:"circle"`
	IncludeTags    []string `json:"include_tags,omitempty"`
	ExcludeTags    []string `json:"exclude_tags,omitempty"`
	FullTextSearch string   `json:"full_text_search,omitempty"`
	MediaType      int64    `json:"media_type"`
	MinSize        int64    `json:"min_size,omitempty"`
	MaxSize        int64    `json:"max_size,omitempty"`
	Languages      []string `json:"languages,omitempty"`
}

// Mode derives the filtering mode from the definition
func (c *UserDefinedChannel) Mode() ChannelMode {
	if strings.TrimSpace(c.FullTextSearch) != "" {
		return ChannelModeFullText
	}
	return ChannelModeTags
}

// VirtualOrder returns the order key of the viewer's own thread table for
// the virtual circles, and false for every other circle.
func (c *UserDefinedChannel) VirtualOrder() (OrderKey, bool) {
	switch c.Circle {
	case CircleOwnCreated:
		return OrderCreated, true
	case CircleOwnReceived:
		return OrderReceived, true
	case CircleOwnCommented:
		return OrderCommented, true
	}
	return "", false
}

// NormalizeTags lowercases and NFC-normalises tag names, accepting either a
// list or comma separated entries and dropping a leading '#'.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, entry := range tags {
		for _, tag := range strings.Split(entry, ",") {
			tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
			if tag == "" {
				continue
			}
			tag = strings.ToLower(norm.NFC.String(tag))
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}
