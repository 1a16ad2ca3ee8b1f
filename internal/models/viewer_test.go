package models

import (
	"reflect"
	"testing"
)

func TestParseAccountType(t *testing.T) {
	if got := ParseAccountType("news"); got == nil || *got != AccountNews {
		t.Errorf("ParseAccountType(news) = %v", got)
	}
	if got := ParseAccountType("Organization"); got == nil || *got != AccountOrganisation {
		t.Errorf("ParseAccountType(Organization) = %v", got)
	}
	if got := ParseAccountType(""); got != nil {
		t.Errorf("ParseAccountType(\"\") = %v, want nil", *got)
	}
	if got := ParseAccountType("robot"); got != nil {
		t.Errorf("ParseAccountType(robot) = %v, want nil", *got)
	}
}

func TestNormalizeLanguages(t *testing.T) {
	got := NormalizeLanguages([]string{"de-DE", "en", "EN-gb", " ", "xx-invalid-@@", "fr"})
	want := []string{"de", "en", "fr"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeLanguages = %v, want %v", got, want)
	}
}

func TestViewer_PrimaryLanguage(t *testing.T) {
	if got := (Viewer{}).PrimaryLanguage(); got != "" {
		t.Errorf("PrimaryLanguage() = %q, want empty", got)
	}
	if got := (Viewer{Languages: []string{"de", "en"}}).PrimaryLanguage(); got != "de" {
		t.Errorf("PrimaryLanguage() = %q, want de", got)
	}
	if !(Viewer{}).Anonymous() {
		t.Error("zero viewer should be anonymous")
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{"#Go, golang", "Café", "go"})
	want := []string{"go", "golang", "café"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeTags = %q, want %q", got, want)
	}
}

func TestUserDefinedChannel_Mode(t *testing.T) {
	c := &UserDefinedChannel{IncludeTags: []string{"go"}}
	if c.Mode() != ChannelModeTags {
		t.Error("expected tag mode")
	}
	c.FullTextSearch = "+golang -java"
	if c.Mode() != ChannelModeFullText {
		t.Error("expected full-text mode")
	}
	c.Circle = CircleOwnReceived
	if o, ok := c.VirtualOrder(); !ok || o != OrderReceived {
		t.Errorf("VirtualOrder() = %q, %v", o, ok)
	}
	c.Circle = CircleFollowers
	if _, ok := c.VirtualOrder(); ok {
		t.Error("followers circle is not virtual")
	}
}
