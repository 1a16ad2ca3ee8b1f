package models

import (
	"strings"

	"golang.org/x/text/language"
)

// AccountType is the contact type of an owner
type AccountType int

const (
	AccountPerson       AccountType = 0
	AccountOrganisation AccountType = 1
	AccountNews         AccountType = 2
	AccountCommunity    AccountType = 3
)

// ParseAccountType maps the request string to a type. Unknown or empty
// strings yield nil, meaning "no filter".
func ParseAccountType(s string) *AccountType {
	var t AccountType
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "person":
		t = AccountPerson
	case "organisation", "organization":
		t = AccountOrganisation
	case "news":
		t = AccountNews
	case "community":
		t = AccountCommunity
	default:
		return nil
	}
	return &t
}

// Viewer is the per-request viewer context
type Viewer struct {
	// ID is the local user id, 0 for anonymous visitors
	ID int64
	// PublicContactID is the viewer's public identity used for relation lookups
	PublicContactID int64
	// Languages is the ordered set of wanted languages, primary first
	Languages []string
	Mobile    bool
	// AccountType restricts owners to one contact type when set
	AccountType *AccountType

	ItemsPerPage       int
	ItemsPerPageMobile int
}

// Anonymous reports whether the request has no local user
func (v Viewer) Anonymous() bool {
	return v.ID == 0
}

// PrimaryLanguage is the first wanted language, or "" when none is set
func (v Viewer) PrimaryLanguage() string {
	if len(v.Languages) == 0 {
		return ""
	}
	return v.Languages[0]
}

// NormalizeLanguages reduces tags to their base ISO 639 code, dropping
// unparsable entries and duplicates while keeping order.
func NormalizeLanguages(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, raw := range tags {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		tag, err := language.Parse(raw)
		if err != nil {
			continue
		}
		base, conf := tag.Base()
		if conf == language.No {
			continue
		}
		code := base.String()
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
